package bus

import "context"

// Handler processes one inbound message payload. Handlers run on the
// adapter's delivery goroutine; they must not block for long (§5:
// "heavy callbacks must not be held under the engine's internal lock"
// applies equally here).
type Handler func(payload []byte)

// Bus is the transport boundary named in §6: a topic-addressed message bus
// with at-least-once delivery. The core never talks to paho directly;
// every subsystem that publishes or subscribes depends on this interface,
// so it can be swapped for the in-memory adapter under test or --demo.
type Bus interface {
	Start(ctx context.Context) error
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
	Connected() bool
	Close()
}
