package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fridgesight/internal/camera"
	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/logger"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHubService(logger.NewWriter(io.Discard, false))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastDetection(&dto.DetectionMessage{EventID: 9})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg dto.LiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != dto.LiveDetection || msg.Detection == nil || msg.Detection.EventID != 9 {
		t.Errorf("unexpected message %s", data)
	}

	cancel()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHubService(logger.NewWriter(io.Discard, false))
	for i := 0; i < cap(hub.broadcast); i++ {
		if !hub.Broadcast([]byte("x")) {
			t.Fatalf("broadcast %d should be queued", i)
		}
	}
	if hub.Broadcast([]byte("overflow")) {
		t.Error("expected broadcast to be dropped when the queue is full")
	}
}

func TestLiveFeed_PushFrame(t *testing.T) {
	hub := NewHubService(logger.NewWriter(io.Discard, false))
	source := &singleFrameSource{}
	feed := NewLiveFeed(&config.Config{LiveFeedFPS: 5}, source, hub, logger.NewWriter(io.Discard, false))

	if feed.interval != 200*time.Millisecond {
		t.Errorf("expected 200ms interval, got %v", feed.interval)
	}
	if err := feed.pushFrame(); err != nil {
		t.Fatalf("pushFrame failed: %v", err)
	}

	select {
	case payload := <-hub.broadcast:
		var msg dto.LiveMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != dto.LiveFrame || msg.Image == "" || msg.Light != 64 {
			t.Errorf("unexpected frame message type=%s light=%v", msg.Type, msg.Light)
		}
	default:
		t.Fatal("expected a queued frame")
	}
}

type singleFrameSource struct{}

func (singleFrameSource) Read() (camera.Frame, error) {
	return camera.NewUniformFrame(4, 4, 64, time.Now()), nil
}

func (singleFrameSource) Close() error { return nil }
