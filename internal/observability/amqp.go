package observability

import (
	"context"
)

// Publisher is the subset of the AMQP publisher used for event emission.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Events publishes socket session events under "<prefix>.<name>".
// A nil *Events or a nil publisher drops everything.
type Events struct {
	publisher Publisher
	prefix    string
}

func NewEvents(publisher Publisher) *Events {
	return &Events{publisher: publisher, prefix: "ws_events"}
}

// RoutingKey returns the key ev is published under.
func (e *Events) RoutingKey(ev SessionEvent) string {
	return e.prefix + "." + ev.Name
}

func (e *Events) Session(ctx context.Context, ev SessionEvent, headers map[string]string) error {
	CountSocketEvent("session", ev.Name)
	if e == nil || e.publisher == nil {
		return nil
	}

	err := e.publisher.Publish(ctx, e.RoutingKey(ev), ev, headers)
	if err != nil {
		CountPublishFailure()
	}
	return err
}
