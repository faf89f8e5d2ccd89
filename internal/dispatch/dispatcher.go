// Package dispatch fans negotiation lifecycle events out to subscribers.
package dispatch

import (
	"context"
	"log"
	"time"

	"haggle.local/haggle-gateway/internal/events"
	"haggle.local/haggle-gateway/internal/subscribers"
)

type Dispatcher struct {
	logger       *log.Logger
	subscribers  []subscribers.Subscriber
	retryCount   int
	retryBackoff time.Duration
}

func New(logger *log.Logger, subs []subscribers.Subscriber) *Dispatcher {
	return &Dispatcher{
		logger:       logger,
		subscribers:  subs,
		retryCount:   3,
		retryBackoff: 150 * time.Millisecond,
	}
}

// Dispatch delivers the event to every subscriber concurrently. Delivery is
// best-effort: failures are retried and then logged, never surfaced to the
// negotiation path.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Envelope) {
	for _, sub := range d.subscribers {
		s := sub
		go d.dispatchOne(ctx, s, event)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sub subscribers.Subscriber, event events.Envelope) {
	for attempt := 1; attempt <= d.retryCount; attempt++ {
		err := sub.Handle(ctx, event)
		if err == nil {
			return
		}

		d.logger.Printf("subscriber=%s event_id=%s type=%s attempt=%d err=%v", sub.Name(), event.EventID, event.Type, attempt, err)
		if attempt == d.retryCount {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.retryBackoff):
		}
	}
}
