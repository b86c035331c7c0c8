package gateway

import (
	"sync"
	"time"
)

type pageSession struct {
	url       string
	dismissed bool
	lastSeen  time.Time
}

// SessionTracker holds per-page alert-dismissal state. A dismissal is
// scoped to one page session: it sticks while the tab stays on the same
// address and is cleared the moment the tab navigates somewhere else.
// Nothing here is persisted; a full reload of the advisor starts clean.
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[int]*pageSession // tab ID -> session
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		sessions: make(map[int]*pageSession),
	}
}

// Navigated records that a tab is now on url, resetting dismissal state
// when the address changed.
func (t *SessionTracker) Navigated(tabID int, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[tabID]
	if !ok || s.url != url {
		t.sessions[tabID] = &pageSession{url: url, lastSeen: time.Now()}
		return
	}
	s.lastSeen = time.Now()
}

// Dismiss marks the alert for a tab's current page as dismissed. A
// dismissal for a stale address is ignored.
func (t *SessionTracker) Dismiss(tabID int, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[tabID]; ok && s.url == url {
		s.dismissed = true
		s.lastSeen = time.Now()
	}
}

// Dismissed reports whether the alert for tabID at url was dismissed in
// the current page session.
func (t *SessionTracker) Dismissed(tabID int, url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[tabID]
	return ok && s.url == url && s.dismissed
}

// Drop forgets a closed tab.
func (t *SessionTracker) Drop(tabID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, tabID)
}

// Prune removes sessions idle for longer than maxIdle and returns how many
// were dropped.
func (t *SessionTracker) Prune(now time.Time, maxIdle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for id, s := range t.sessions {
		if now.Sub(s.lastSeen) > maxIdle {
			delete(t.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Count returns the number of tracked sessions.
func (t *SessionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sessions)
}
