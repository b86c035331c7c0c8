package gateway

import (
	"sync"
	"time"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/logger"
)

// badge colors per tier
var tierColors = map[domain.IconTier]string{
	domain.TierSafe:    "#16a34a",
	domain.TierWarning: "#f59e0b",
	domain.TierDanger:  "#dc2626",
}

type iconPayload struct {
	Tier   domain.IconTier `json:"tier"`
	Domain string          `json:"domain,omitempty"`
}

type badgePayload struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// IconGateway swaps the extension icon between its three tiers and manages
// the badge, including the transient attention highlight.
type IconGateway struct {
	bus       *bus.Bus
	duration  time.Duration
	logger    logger.Logger
	mu        sync.Mutex
	highlight *time.Timer
}

// NewIconGateway creates an icon gateway; duration is how long the
// attention badge stays up.
func NewIconGateway(b *bus.Bus, duration time.Duration, log logger.Logger) *IconGateway {
	return &IconGateway{
		bus:      b,
		duration: duration,
		logger:   log,
	}
}

// Apply sets the icon tier for an assessment.
func (g *IconGateway) Apply(a *domain.Assessment) {
	tier := domain.TierForScore(a.SafetyScore)
	g.bus.Publish(bus.NewEnvelope(bus.ActionIconUpdate, "", iconPayload{
		Tier:   tier,
		Domain: a.Domain,
	}))
	g.logger.Debug("icon updated",
		logger.String("domain", a.Domain),
		logger.String("tier", string(tier)))
}

// Highlight flashes the attention badge for the configured duration.
// Fire-and-forget: repeated calls just restart the timer.
func (g *IconGateway) Highlight() {
	g.bus.Publish(bus.NewEnvelope(bus.ActionBadgeUpdate, "", badgePayload{
		Text:  "!",
		Color: tierColors[domain.TierWarning],
	}))

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.highlight != nil {
		g.highlight.Stop()
	}
	g.highlight = time.AfterFunc(g.duration, func() {
		g.bus.Publish(bus.NewEnvelope(bus.ActionBadgeUpdate, "", badgePayload{Text: ""}))
	})
}
