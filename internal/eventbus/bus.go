package eventbus

import (
	"sync"
	"time"
)

// Topic represents an event topic.
type Topic string

const (
	TopicAuthResolved       Topic = "auth_resolved"
	TopicToolChoiceFallback Topic = "tool_choice_fallback"
	TopicToolConverted      Topic = "tool_converted"
	TopicErrorClassified    Topic = "error_classified"
	TopicResponseAggregated Topic = "response_aggregated"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// Bus is a simple in-process pub/sub event bus used for bridge
// diagnostics. Handlers run synchronously in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	counts   map[Topic]int64
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		counts:   make(map[Topic]int64),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish sends an event to all subscribers of the topic and bumps the
// topic counter. Degradation paths (e.g. tool-choice fallback) publish
// here so they stay observable even with no subscribers attached.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.Lock()
	b.counts[topic]++
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.Unlock()

	event := Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	for _, h := range handlers {
		h(event)
	}
}

// Count returns how many events were published on a topic.
func (b *Bus) Count(topic Topic) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.counts[topic]
}
