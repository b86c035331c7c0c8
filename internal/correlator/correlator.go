package correlator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/logger"
)

// Source tells how a pending request was resolved.
type Source string

const (
	// SourceFast is the synchronous reply on the original channel.
	SourceFast Source = "fast"
	// SourceMessage is the independent correlated message on the
	// broadcast stream.
	SourceMessage Source = "message"
)

type resolution struct {
	payload json.RawMessage
	source  Source
}

type pending struct {
	ch   chan resolution // buffered 1; first resolution wins
	done bool
}

// Correlator turns the one-shot surface reply channel into a reliable
// async call. A caller registers a requestId, sends its request, and
// awaits; the callee may answer on the original channel (fast path) or as
// a new independent message carrying the same requestId. Whichever comes
// first resolves the request exactly once; later arrivals and the deadline
// are no-ops against a terminal request. A request that sees neither
// before its deadline resolves to an empty payload, not an error: having
// nothing to report is a legitimate terminal state.
type Correlator struct {
	mu       sync.Mutex
	pending  map[string]*pending
	deadline time.Duration
	logger   logger.Logger
}

// New creates a correlator with the given per-request deadline.
func New(deadline time.Duration, log logger.Logger) *Correlator {
	return &Correlator{
		pending:  make(map[string]*pending),
		deadline: deadline,
		logger:   log,
	}
}

// NewRequestID generates a collision-resistant request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// Register creates the pending slot for a requestId. Registering an id
// that is already live replaces nothing and returns false.
func (c *Correlator) Register(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[requestID]; exists {
		return false
	}
	c.pending[requestID] = &pending{ch: make(chan resolution, 1)}
	return true
}

// Resolve completes a pending request. Only the first resolution for a
// requestId takes effect; every later call is a no-op and returns false.
func (c *Correlator) Resolve(requestID string, source Source, payload json.RawMessage) bool {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	if !ok || p.done {
		c.mu.Unlock()
		return false
	}
	p.done = true
	delete(c.pending, requestID)
	c.mu.Unlock()

	p.ch <- resolution{payload: payload, source: source}
	return true
}

// Cancel drops a pending request without resolving it.
func (c *Correlator) Cancel(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[requestID]; ok {
		p.done = true
		delete(c.pending, requestID)
	}
}

// Await blocks until the request resolves or its deadline elapses. A
// deadline or context end yields (nil, false); the request is then
// terminal and any later resolution is discarded.
func (c *Correlator) Await(ctx context.Context, requestID string) (json.RawMessage, bool) {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	timer := time.NewTimer(c.deadline)
	defer timer.Stop()

	select {
	case res := <-p.ch:
		c.logger.Debug("request resolved",
			logger.String("request_id", requestID),
			logger.String("source", string(res.source)))
		return res.payload, true

	case <-timer.C:
		c.Cancel(requestID)
		c.logger.Debug("request deadline elapsed",
			logger.String("request_id", requestID))
		return nil, false

	case <-ctx.Done():
		c.Cancel(requestID)
		return nil, false
	}
}

// PendingCount returns the number of live pending requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Listen consumes the broadcast stream and resolves any envelope carrying
// a known requestId: the independent-message path. Envelopes for unknown
// or already-terminal requests are discarded silently; a callee is never
// required to know whether its caller is still listening.
func (c *Correlator) Listen(ctx context.Context, b *bus.Bus) {
	ch, cancel := b.Subscribe(64)
	defer cancel()

	for {
		select {
		case env, ok := <-ch:
			if !ok {
				return
			}
			if env.RequestID == "" {
				continue
			}
			c.Resolve(env.RequestID, SourceMessage, env.Payload)

		case <-ctx.Done():
			return
		}
	}
}
