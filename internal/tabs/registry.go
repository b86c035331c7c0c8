package tabs

import (
	"sort"
	"sync"
	"time"
)

// Registry is the advisor's in-memory copy of the host's open tabs.
// Surfaces push snapshots and incremental updates; readers never block
// writers for long since all operations are map-sized.
type Registry struct {
	mu         sync.RWMutex
	tabs       map[int]*Tab // tab ID -> Tab
	lastUpdate time.Time
}

// NewRegistry creates an empty tab registry.
func NewRegistry() *Registry {
	return &Registry{
		tabs: make(map[int]*Tab),
	}
}

// Replace swaps the full tab set, used when a surface reports a snapshot.
func (r *Registry) Replace(tabs []*Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tabs = make(map[int]*Tab, len(tabs))
	for _, t := range tabs {
		r.tabs[t.ID] = t
	}
	r.lastUpdate = time.Now()
}

// Upsert adds or updates a single tab.
func (r *Registry) Upsert(t *Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Active {
		// Only one tab per window can be active.
		for _, other := range r.tabs {
			if other.WindowID == t.WindowID && other.ID != t.ID {
				other.Active = false
			}
		}
	}
	r.tabs[t.ID] = t
	r.lastUpdate = time.Now()
}

// Remove drops a closed tab.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tabs, id)
	r.lastUpdate = time.Now()
}

// Get returns a tab by ID.
func (r *Registry) Get(id int) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tabs[id]
	return t, ok
}

// Active returns the active tab of a window, if any.
func (r *Registry) Active(windowID int) (*Tab, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tabs {
		if t.WindowID == windowID && t.Active {
			return t, true
		}
	}
	return nil, false
}

// Window returns all tabs of a window in open/creation order.
func (r *Registry) Window(windowID int) []*Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tab, 0, len(r.tabs))
	for _, t := range r.tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Count returns the number of known tabs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tabs)
}

// LastUpdate returns when the registry last changed.
func (r *Registry) LastUpdate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastUpdate
}
