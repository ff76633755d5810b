// Package notify announces committed detections to other systems.
package notify

import (
	"context"

	"fridgesight/internal/dto"
)

// Publisher delivers detection messages. Delivery failures never undo a
// committed cycle; callers only log them.
type Publisher interface {
	Publish(ctx context.Context, msg *dto.DetectionMessage) error
	// Stats returns the number of delivered and failed publishes.
	Stats() (published, failures uint64)
	Close()
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, msg *dto.DetectionMessage) error { return nil }

func (Nop) Stats() (published, failures uint64) { return 0, 0 }

func (Nop) Close() {}
