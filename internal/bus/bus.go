package bus

import (
	"encoding/json"
	"sync"
)

// Envelope is one message on the general broadcast stream. Every surface
// sees every envelope and filters by action (and requestId, for correlated
// responses).
type Envelope struct {
	Action    string          `json:"action"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope, marshaling the payload. Marshal errors
// yield an envelope with an empty payload; payloads are plain structs and
// cannot realistically fail to encode.
func NewEnvelope(action, requestID string, payload interface{}) Envelope {
	env := Envelope{Action: action, RequestID: requestID}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			env.Payload = data
		}
	}
	return env
}

// Bus is the in-process broadcast stream connecting the coordinator to UI
// surfaces. Publishing never blocks: a subscriber that cannot keep up (or
// has gone away) simply misses the message, matching the best-effort
// delivery contract of surface messaging.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Envelope
	next int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]chan Envelope),
	}
}

// Subscribe registers a listener on the broadcast stream. The returned
// cancel func must be called when the surface disconnects.
func (b *Bus) Subscribe(buffer int) (<-chan Envelope, func()) {
	if buffer < 1 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Envelope, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish broadcasts an envelope to all current subscribers, dropping it
// for any subscriber whose buffer is full.
func (b *Bus) Publish(env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
			// Slow or dead subscriber: drop, never block the sender.
		}
	}
}

// SubscriberCount returns the number of connected surfaces.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}
