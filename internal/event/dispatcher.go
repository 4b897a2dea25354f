package event

import (
	"context"
	"sync"
	"time"

	"auctionhouse/pkg/logger"
)

const sinkTimeout = 5 * time.Second

// Dispatcher decouples the engine from the broker: Publish enqueues into a
// bounded buffer and a single worker drains it into the Sink. A full buffer
// drops the event.
type Dispatcher struct {
	sink Sink
	ch   chan Event
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{sink: sink, ch: make(chan Event, bufferSize)}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for evt := range d.ch {
			d.deliver(evt)
		}
	}()
}

func (d *Dispatcher) deliver(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := d.sink.Publish(ctx, evt); err != nil {
		logger.Warn("event delivery failed", map[string]any{
			"event_id":   evt.ID,
			"event_type": string(evt.Type),
			"session_id": evt.SessionID,
			"item_id":    evt.ItemID,
			"error":      err.Error(),
		})
	}
}

func (d *Dispatcher) Publish(evt Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- evt:
	default:
		logger.Warn("event buffer full, dropping event", map[string]any{
			"event_type": string(evt.Type),
			"session_id": evt.SessionID,
			"item_id":    evt.ItemID,
		})
	}
}

// Close stops accepting events and waits for the buffered ones to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()
	d.wg.Wait()
}
