package event

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/zeromunge/internal/logging"
)

// Handler is a function that handles an event.
type Handler func(Event)

// Wildcard is the topic that receives every published event.
const Wildcard = "*"

type subscription struct {
	id      string
	topic   string
	handler Handler
}

// Bus is a synchronous pub-sub event bus. Publish runs handlers on the
// caller's goroutine, so the sequencer's output pumps deliver lines in the
// order the process wrote them.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]subscription
	logger *logging.Logger
}

// NewBus creates a bus. A nil logger discards handler panic reports.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{
		topics: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one topic (e.g. TopicJobOutput) and
// returns an ID for Unsubscribe.
func (b *Bus) Subscribe(topic string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{id: uuid.NewString(), topic: topic, handler: handler}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub.id
}

// SubscribeAll registers a handler for every topic.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(Wildcard, handler)
}

// SubscribeLevel registers a handler that only sees events at or above min.
func (b *Bus) SubscribeLevel(min Level, handler Handler) string {
	return b.SubscribeAll(func(e Event) {
		if e.Level() >= min {
			handler(e)
		}
	})
}

// Unsubscribe removes a subscription. It reports whether the ID was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.topics {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			b.topics[topic] = append(rest, subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers e to topic subscribers first, then wildcard subscribers,
// each group in registration order. A panicking handler is logged and does
// not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.topics[e.EventType()])+len(b.topics[Wildcard]))
	targets = append(targets, b.topics[e.EventType()]...)
	targets = append(targets, b.topics[Wildcard]...)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", e.EventType(),
				"subscription", sub.id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	sub.handler(e)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = make(map[string][]subscription)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.topics {
		n += len(subs)
	}
	return n
}
