package feed

import (
	"log"
	"sync"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events rather than blocking the
// publisher.
const subscriberBuffer = 64

// Broker fans published events out to subscribers filtered by session id.
// Store writes publish through the broker; SSE handlers subscribe.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Event // sessionID -> subscriber id -> chan
	next int
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers a subscriber for one session's events. The returned
// cancel func unregisters and closes the channel; calling it more than once
// is safe.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan Event, subscriberBuffer)
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int]chan Event)
	}
	b.subs[sessionID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if m := b.subs[sessionID]; m != nil {
				if c, ok := m[id]; ok {
					delete(m, id)
					close(c)
				}
				if len(m) == 0 {
					delete(b.subs, sessionID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its session. Slow
// subscribers with a full buffer lose the event.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[evt.SessionID] {
		select {
		case ch <- evt:
		default:
			log.Printf("feed: subscriber %d for session %s is full, dropping event", id, evt.SessionID)
		}
	}
}

// ActiveSessions returns the session ids that currently have at least one
// subscriber.
func (b *Broker) ActiveSessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	return ids
}

// SubscriberCount returns how many subscribers are registered for a session.
func (b *Broker) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}
