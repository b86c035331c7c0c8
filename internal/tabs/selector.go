package tabs

// SelectAssessable finds the page worth assessing in a window. The active
// tab is not a reliable signal: it may be the advisor's own popup or a
// browser-internal page, both of which enumerate like any other tab. When
// the active tab is unusable the window is scanned in open order and the
// first real http(s) page wins.
//
// Returns nil when the window holds no assessable page, which is a
// legitimate terminal state for the caller, not an error.
func SelectAssessable(r *Registry, windowID int) *Tab {
	if active, ok := r.Active(windowID); ok && active.Assessable() {
		return active
	}

	for _, t := range r.Window(windowID) {
		if t.Assessable() {
			return t
		}
	}
	return nil
}
