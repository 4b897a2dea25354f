package event

import "context"

// Sink delivers one event to a downstream transport.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
}

// Publisher is what the engine talks to. Publish never blocks and never
// reports failure: delivery is best-effort and at most once.
type Publisher interface {
	Publish(evt Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
