package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fridgesight/internal/config"
	"fridgesight/internal/dto"
	"fridgesight/internal/logger"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	publishQoS     = 1
)

// MQTTPublisher publishes detection messages as JSON to one topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger *logger.Logger

	mu        sync.Mutex
	published uint64
	failures  uint64
}

// NewPublisher returns an MQTT publisher when a broker is configured and Nop otherwise.
func NewPublisher(cfg *config.Config, logger *logger.Logger) (Publisher, error) {
	if cfg.MQTTBroker == "" {
		return Nop{}, nil
	}
	p, err := ConnectMQTT(cfg, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConnectMQTT connects to cfg.MQTTBroker with automatic reconnection.
func ConnectMQTT(cfg *config.Config, logger *logger.Logger) (*MQTTPublisher, error) {
	broker := cfg.MQTTBroker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("MQTT connection established (%s)", broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warning("MQTT connection lost, will auto-reconnect: %v", err)
	}

	client := mqtt.NewClient(opts)
	if err := connect(client, connectTimeout); err != nil {
		return nil, err
	}

	return newMQTTPublisher(client, cfg.MQTTTopic, logger), nil
}

// connect waits for the first connection. On failure the client is
// disconnected so its retry loop stops.
func connect(client mqtt.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func newMQTTPublisher(client mqtt.Client, topic string, logger *logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, logger: logger}
}

func (p *MQTTPublisher) Publish(ctx context.Context, msg *dto.DetectionMessage) error {
	if !p.client.IsConnected() {
		p.countFailure()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.countFailure()
		return fmt.Errorf("failed to marshal detection: %w", err)
	}

	token := p.client.Publish(p.topic, publishQoS, false, payload)
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		p.countFailure()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countFailure()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	p.logger.Debug("Detection for event %d published to %s (%d bytes)", msg.EventID, p.topic, len(payload))
	return nil
}

// Stats returns the number of delivered and failed publishes.
func (p *MQTTPublisher) Stats() (published, failures uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failures
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

func (p *MQTTPublisher) countFailure() {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()
}
