package subscribers

import (
	"context"

	"haggle.local/haggle-gateway/internal/events"
)

type Subscriber interface {
	Name() string
	Handle(context.Context, events.Envelope) error
}
