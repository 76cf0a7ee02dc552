// Package feed fans change events out to live subscribers. Subscriptions are
// keyed by topic; a topic is a conversation's message stream, a user's
// conversation list or a user's notification inbox.
package feed

import (
	"sync"
)

// Sink is the minimal interface the hub needs from a subscriber.
type Sink interface {
	Send(Event) error
}

// Hub manages active subscriptions. It maps a topic to one or more sinks so
// the server can push an event to every endpoint currently watching it.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]map[int64]Sink
	nextID int64
}

// NewHub creates a new hub instance.
func NewHub() *Hub {
	return &Hub{sinks: make(map[string]map[int64]Sink)}
}

// Register adds s to topic and returns an id for Unregister.
func (h *Hub) Register(topic string, s Sink) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sinks[topic]; !ok {
		h.sinks[topic] = make(map[int64]Sink)
	}

	h.nextID++
	id := h.nextID
	h.sinks[topic][id] = s
	return id
}

// Unregister removes a previously registered sink.
func (h *Hub) Unregister(topic string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.sinks[topic]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.sinks, topic)
		}
	}
}

// Publish sends ev to every sink registered on topic and returns how many
// accepted it. Delivery is best effort: a sink that fails is unregistered so
// broken subscribers do not linger, and the first error is returned.
func (h *Hub) Publish(topic string, ev Event) (int, error) {
	h.mu.RLock()
	conns := make(map[int64]Sink, len(h.sinks[topic]))
	for id, s := range h.sinks[topic] {
		conns[id] = s
	}
	h.mu.RUnlock()

	var firstErr error
	var failedIDs []int64
	delivered := 0

	for id, s := range conns {
		if err := s.Send(ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failedIDs = append(failedIDs, id)
			continue
		}
		delivered++
	}

	for _, id := range failedIDs {
		h.Unregister(topic, id)
	}
	return delivered, firstErr
}

// Subscribers returns the number of sinks on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks[topic])
}
