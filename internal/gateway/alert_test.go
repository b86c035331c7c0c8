package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/logger"
)

// fakeMessenger fails the first failSends deliveries, then succeeds.
type fakeMessenger struct {
	failSends  int
	sends      []bus.Envelope
	injects    int
	injectErr  error
	sendCalled int
}

func (m *fakeMessenger) SendOverlay(_ context.Context, _ int, env bus.Envelope) error {
	m.sendCalled++
	if m.sendCalled <= m.failSends {
		return errors.New("listener not ready")
	}
	m.sends = append(m.sends, env)
	return nil
}

func (m *fakeMessenger) InjectOverlay(_ context.Context, _ int) error {
	m.injects++
	return m.injectErr
}

func newTestGateway(m PageMessenger, sessions *SessionTracker) *AlertGateway {
	return NewAlertGateway(m, sessions, 3, time.Millisecond, logger.New("error", false))
}

func TestNotifyPageSafeScoreHidesOverlay(t *testing.T) {
	m := &fakeMessenger{}
	g := newTestGateway(m, NewSessionTracker())

	g.NotifyPage(context.Background(), 1, 80, "https://example.com")

	if len(m.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(m.sends))
	}
	if m.sends[0].Action != bus.ActionOverlayHide {
		t.Errorf("action = %q, want %q", m.sends[0].Action, bus.ActionOverlayHide)
	}
}

func TestNotifyPageLowScoreShowsOverlay(t *testing.T) {
	m := &fakeMessenger{}
	g := newTestGateway(m, NewSessionTracker())

	g.NotifyPage(context.Background(), 1, 42, "https://bad.example")

	if len(m.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(m.sends))
	}
	if m.sends[0].Action != bus.ActionOverlayShow {
		t.Errorf("action = %q, want %q", m.sends[0].Action, bus.ActionOverlayShow)
	}
}

func TestNotifyPageZeroScoreKeepsScoreFields(t *testing.T) {
	m := &fakeMessenger{}
	g := newTestGateway(m, NewSessionTracker())

	g.NotifyPage(context.Background(), 1, 0, "https://worst.example")

	if len(m.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(m.sends))
	}
	if m.sends[0].Action != bus.ActionOverlayShow {
		t.Fatalf("action = %q, want %q", m.sends[0].Action, bus.ActionOverlayShow)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.sends[0].Payload, &fields); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, ok := fields["score"]; !ok {
		t.Error("overlay payload is missing score")
	}
	if string(fields["score"]) != "0" {
		t.Errorf("score = %s, want 0", fields["score"])
	}
	if tier, ok := fields["tier"]; !ok || string(tier) != `"danger"` {
		t.Errorf("tier = %s, want %q", tier, "danger")
	}
}

func TestNotifyPageRetriesThenSucceeds(t *testing.T) {
	m := &fakeMessenger{failSends: 2}
	g := newTestGateway(m, NewSessionTracker())

	g.NotifyPage(context.Background(), 1, 42, "https://bad.example")

	if m.sendCalled != 3 {
		t.Errorf("send attempts = %d, want 3", m.sendCalled)
	}
	if m.injects != 0 {
		t.Errorf("injects = %d, want 0", m.injects)
	}
	if len(m.sends) != 1 {
		t.Errorf("successful sends = %d, want 1", len(m.sends))
	}
}

func TestNotifyPageInjectsAsLastResort(t *testing.T) {
	m := &fakeMessenger{failSends: 3}
	g := newTestGateway(m, NewSessionTracker())

	g.NotifyPage(context.Background(), 1, 42, "https://bad.example")

	if m.injects != 1 {
		t.Errorf("injects = %d, want 1", m.injects)
	}
	// attempt after injection succeeds (failSends exhausted)
	if len(m.sends) != 1 {
		t.Errorf("successful sends = %d, want 1", len(m.sends))
	}
}

func TestNotifyPageGivesUpSilently(t *testing.T) {
	m := &fakeMessenger{failSends: 10, injectErr: errors.New("page refuses injection")}
	g := newTestGateway(m, NewSessionTracker())

	// Must not panic, hang or escalate
	g.NotifyPage(context.Background(), 1, 42, "https://locked.example")

	if m.sendCalled != 3 {
		t.Errorf("send attempts = %d, want 3 (inject failed, no extra send)", m.sendCalled)
	}
}

func TestNotifyPageHonorsDismissal(t *testing.T) {
	m := &fakeMessenger{}
	sessions := NewSessionTracker()
	g := newTestGateway(m, sessions)

	target := "https://bad.example"
	sessions.Navigated(1, target)
	g.NotifyPage(context.Background(), 1, 42, target)
	if len(m.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(m.sends))
	}

	g.Dismiss(1, target)
	g.NotifyPage(context.Background(), 1, 42, target)
	if len(m.sends) != 1 {
		t.Errorf("sends after dismissal = %d, want still 1", len(m.sends))
	}

	// Navigating to a different address clears the dismissal
	sessions.Navigated(1, "https://other.example")
	g.NotifyPage(context.Background(), 1, 42, "https://other.example")
	if len(m.sends) != 2 {
		t.Errorf("sends after navigation = %d, want 2", len(m.sends))
	}
}

func TestSessionTrackerDismissalScopedToAddress(t *testing.T) {
	s := NewSessionTracker()

	s.Navigated(1, "https://a.example")
	s.Dismiss(1, "https://a.example")
	if !s.Dismissed(1, "https://a.example") {
		t.Error("dismissal not recorded")
	}

	// Dismissal for a stale address is ignored
	s.Dismiss(1, "https://never-visited.example")
	if s.Dismissed(1, "https://never-visited.example") {
		t.Error("dismissal recorded for an address the tab is not on")
	}

	// Re-navigation to the same address keeps the dismissal
	s.Navigated(1, "https://a.example")
	if !s.Dismissed(1, "https://a.example") {
		t.Error("dismissal lost without an address change")
	}

	s.Navigated(1, "https://b.example")
	if s.Dismissed(1, "https://a.example") {
		t.Error("dismissal survived navigation to a different address")
	}
}

func TestSessionTrackerPrune(t *testing.T) {
	s := NewSessionTracker()
	s.Navigated(1, "https://a.example")
	s.Navigated(2, "https://b.example")

	if dropped := s.Prune(time.Now().Add(time.Hour), 30*time.Minute); dropped != 2 {
		t.Errorf("Prune() = %d, want 2", dropped)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}
