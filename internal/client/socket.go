package client

import (
	"context"
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of a push event.
type Handler func(data json.RawMessage)

// Subscription is the handle returned by Subscribe. Unsubscribing one
// handle never affects listeners registered by other callers.
type Subscription uint64

// Socket is the push side of the connection as the store sees it.
type Socket interface {
	Subscribe(event string, h Handler) Subscription
	Unsubscribe(sub Subscription)
	JoinGroups(ctx context.Context, groupIDs []int) error
}

// Bus keeps per-subscription listeners keyed by event name.
type Bus struct {
	mu       sync.Mutex
	next     Subscription
	events   map[Subscription]string
	handlers map[string]map[Subscription]Handler
}

func NewBus() *Bus {
	return &Bus{
		events:   make(map[Subscription]string),
		handlers: make(map[string]map[Subscription]Handler),
	}
}

func (b *Bus) Subscribe(event string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	sub := b.next
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[Subscription]Handler)
	}
	b.handlers[event][sub] = h
	b.events[sub] = event
	return sub
}

func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	event, ok := b.events[sub]
	if !ok {
		return
	}
	delete(b.events, sub)
	delete(b.handlers[event], sub)
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}
}

// Dispatch calls every handler for event. Handlers run outside the lock so
// they may subscribe or unsubscribe.
func (b *Bus) Dispatch(event string, data json.RawMessage) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(data)
	}
}
