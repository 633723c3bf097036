package bus

import (
	"context"
	"sync"
)

// InMemory is a Bus adapter that delivers published payloads straight to
// locally registered handlers. Used for --demo mode and for tests that
// exercise the orchestrator end to end without a broker.
type InMemory struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	started  bool
}

func NewInMemory() *InMemory {
	return &InMemory{handlers: make(map[string][]Handler)}
}

func (b *InMemory) Start(context.Context) error {
	b.mu.Lock()
	b.started = true
	b.mu.Unlock()
	return nil
}

func (b *InMemory) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *InMemory) Publish(topic string, payload []byte) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
	return nil
}

func (b *InMemory) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

func (b *InMemory) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
}
