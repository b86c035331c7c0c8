package correlator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/logger"
)

func newTestCorrelator(deadline time.Duration) *Correlator {
	return New(deadline, logger.New("error", false))
}

func TestResolveExactlyOnce(t *testing.T) {
	c := newTestCorrelator(time.Second)
	id := NewRequestID()
	if !c.Register(id) {
		t.Fatal("Register() = false, want true")
	}

	resolved := 0
	if c.Resolve(id, SourceFast, json.RawMessage(`{"n":1}`)) {
		resolved++
	}
	if c.Resolve(id, SourceMessage, json.RawMessage(`{"n":2}`)) {
		resolved++
	}
	if c.Resolve(id, SourceMessage, json.RawMessage(`{"n":3}`)) {
		resolved++
	}

	if resolved != 1 {
		t.Errorf("effective resolutions = %d, want 1", resolved)
	}

	payload, ok := c.Await(context.Background(), id)
	if !ok {
		t.Fatal("Await() reported timeout, want resolution")
	}
	if string(payload) != `{"n":1}` {
		t.Errorf("payload = %s, want the first arrival", payload)
	}
}

func TestAwaitDeadlineYieldsEmptyResult(t *testing.T) {
	c := newTestCorrelator(30 * time.Millisecond)
	id := NewRequestID()
	c.Register(id)

	start := time.Now()
	payload, ok := c.Await(context.Background(), id)
	if ok {
		t.Fatal("Await() = resolved, want timeout")
	}
	if payload != nil {
		t.Errorf("payload = %s, want nil", payload)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Await() returned after %v, before the deadline", elapsed)
	}

	// The request is terminal: a late resolution is a no-op
	if c.Resolve(id, SourceMessage, json.RawMessage(`{}`)) {
		t.Error("late Resolve() took effect after timeout")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	c := newTestCorrelator(time.Second)
	id := NewRequestID()

	if !c.Register(id) {
		t.Fatal("first Register() = false, want true")
	}
	if c.Register(id) {
		t.Error("duplicate Register() = true, want false")
	}
}

func TestAwaitUnknownRequest(t *testing.T) {
	c := newTestCorrelator(time.Second)

	payload, ok := c.Await(context.Background(), "never-registered")
	if ok || payload != nil {
		t.Errorf("Await(unknown) = (%s, %v), want (nil, false)", payload, ok)
	}
}

func TestCancelDropsRequest(t *testing.T) {
	c := newTestCorrelator(time.Second)
	id := NewRequestID()
	c.Register(id)

	c.Cancel(id)
	if c.Resolve(id, SourceFast, nil) {
		t.Error("Resolve() after Cancel() took effect")
	}
}

func TestFastPathBeatsDeadline(t *testing.T) {
	c := newTestCorrelator(time.Second)
	id := NewRequestID()
	c.Register(id)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Resolve(id, SourceFast, json.RawMessage(`{"url":"https://example.com"}`))
	}()

	payload, ok := c.Await(context.Background(), id)
	if !ok {
		t.Fatal("Await() timed out, want fast resolution")
	}
	if string(payload) != `{"url":"https://example.com"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestListenResolvesCorrelatedMessages(t *testing.T) {
	c := newTestCorrelator(time.Second)
	b := bus.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Listen(ctx, b)

	// Give the listener a beat to subscribe
	time.Sleep(10 * time.Millisecond)

	id := NewRequestID()
	c.Register(id)

	// Uncorrelated broadcast traffic is ignored
	b.Publish(bus.Envelope{Action: bus.ActionIconUpdate})
	// The independent correlated message resolves the request
	b.Publish(bus.Envelope{
		Action:    bus.ActionCurrentTabResult,
		RequestID: id,
		Payload:   json.RawMessage(`{"title":"Example"}`),
	})

	payload, ok := c.Await(context.Background(), id)
	if !ok {
		t.Fatal("Await() timed out, want message resolution")
	}
	if string(payload) != `{"title":"Example"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestListenIgnoresUnknownRequestIDs(t *testing.T) {
	c := newTestCorrelator(50 * time.Millisecond)
	b := bus.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Listen(ctx, b)
	time.Sleep(10 * time.Millisecond)

	// A response for a caller that already gave up must not panic or leak
	b.Publish(bus.Envelope{
		Action:    bus.ActionCurrentTabResult,
		RequestID: "gone-caller",
		Payload:   json.RawMessage(`{}`),
	})
	time.Sleep(10 * time.Millisecond)

	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		if id == "" {
			t.Fatal("NewRequestID() returned empty string")
		}
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}
