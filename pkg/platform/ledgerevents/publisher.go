package ledgerevents

import (
	"context"
	"log/slog"
)

// ChannelPublisher buffers events on a channel drained by a Worker. When the
// buffer is full the event is dropped and counted; ledger calls never stall
// on a slow sink.
type ChannelPublisher struct {
	ch     chan Event
	logger *slog.Logger
}

// NewChannelPublisher creates a publisher with the given buffer size.
func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &ChannelPublisher{
		ch:     make(chan Event, buffer),
		logger: logger,
	}
}

// Publish enqueues the event, dropping it if the buffer is full.
func (p *ChannelPublisher) Publish(ctx context.Context, event Event) {
	select {
	case p.ch <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "ledger event dropped, buffer full",
				"topic", event.Topic,
				"action", event.Action,
			)
		}
	}
}

// Inbox exposes the receive side for a Worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.ch
}
