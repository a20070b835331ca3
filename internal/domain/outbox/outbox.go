// Package outbox defines the ports of the in-process event bus. Finished
// fulfillment attempts travel through it to the audit trail and the Kafka sink.
package outbox

import "context"

type Event interface {
	EventName() string
}

// Handler consumes one delivered event. Returned errors are logged by the bus and
// never reach the publisher.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
