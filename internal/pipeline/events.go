package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event is one named payload published by a run.
type Event struct {
	Name string
	Data any
}

// Frame renders the event in server-sent-events wire format.
func (e Event) Frame() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", e.Name, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Name, data)), nil
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Name == "done" || e.Name == "error"
}

// EventChannel is the single-consumer event queue of one run. Publishing
// never blocks the pipeline worker; the queue grows as needed and drains
// through Next. Once a terminal event has been delivered the channel stays
// closed and Publish becomes a no-op.
type EventChannel struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	closed bool
}

// NewEventChannel creates an empty, open event channel.
func NewEventChannel() *EventChannel {
	return &EventChannel{
		notify: make(chan struct{}, 1),
	}
}

// Publish appends an event to the queue. It is a no-op after the channel
// has closed.
func (c *EventChannel) Publish(name string, data any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	ev := Event{Name: name, Data: data}
	c.queue = append(c.queue, ev)
	if ev.Terminal() {
		c.closed = true
	}
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Next returns the next queued event, blocking until one is available or
// the context is canceled. After a terminal event has been returned, Next
// reports ok=false.
func (c *EventChannel) Next(ctx context.Context) (Event, bool, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			ev := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return ev, true, nil
		}
		if c.closed {
			c.mu.Unlock()
			return Event{}, false, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, false, ctx.Err()
		case <-c.notify:
		}
	}
}

// Close shuts the channel down. If no terminal event was published, a bare
// done event is injected so consumers always see the stream end.
func (c *EventChannel) Close() {
	c.mu.Lock()
	if !c.closed {
		c.queue = append(c.queue, Event{Name: "done", Data: map[string]string{}})
		c.closed = true
	}
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Closed reports whether a terminal event has been published.
func (c *EventChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
