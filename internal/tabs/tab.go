package tabs

import "strings"

// Tab mirrors the host browser's view of one open page. Surfaces report
// snapshots of this state; the registry is the advisor's local copy.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId"`
	Index    int    `json:"index"` // open/creation order within the window
	URL      string `json:"url"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
}

// internalPrefixes lists schemes that can never be user content: browser
// internals, extension surfaces and devtools all enumerate as tabs too.
var internalPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"moz-extension://",
	"about:",
	"devtools://",
	"view-source:",
}

// Assessable reports whether the tab points at scannable user content:
// an http(s) address that is not a browser-internal surface.
func (t *Tab) Assessable() bool {
	if t == nil || t.URL == "" {
		return false
	}
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(t.URL, prefix) {
			return false
		}
	}
	return strings.HasPrefix(t.URL, "http://") || strings.HasPrefix(t.URL, "https://")
}
