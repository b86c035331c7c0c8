package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/logger"
)

// PageMessenger delivers messages to one page's in-content overlay
// listener. The bus-backed implementation is best-effort; tests use fakes
// that fail a configurable number of times to exercise the retry loop.
type PageMessenger interface {
	SendOverlay(ctx context.Context, tabID int, env bus.Envelope) error
	// InjectOverlay asks the surface layer to (re)inject the overlay
	// listener into the page, for pages freshly navigated.
	InjectOverlay(ctx context.Context, tabID int) error
}

// BusMessenger delivers overlay messages over the broadcast stream.
type BusMessenger struct {
	bus *bus.Bus
}

// NewBusMessenger creates a messenger over b.
func NewBusMessenger(b *bus.Bus) *BusMessenger {
	return &BusMessenger{bus: b}
}

func (m *BusMessenger) SendOverlay(_ context.Context, tabID int, env bus.Envelope) error {
	if m.bus.SubscriberCount() == 0 {
		return &domain.DeliveryFailure{
			Target: fmt.Sprintf("tab %d", tabID),
			Err:    fmt.Errorf("no connected surfaces"),
		}
	}
	m.bus.Publish(env)
	return nil
}

func (m *BusMessenger) InjectOverlay(_ context.Context, tabID int) error {
	if m.bus.SubscriberCount() == 0 {
		return &domain.DeliveryFailure{
			Target: fmt.Sprintf("tab %d", tabID),
			Err:    fmt.Errorf("no connected surfaces"),
		}
	}
	m.bus.Publish(bus.NewEnvelope("overlayInject", "", map[string]int{"tabId": tabID}))
	return nil
}

// overlayPayload is the wire shape of an overlay instruction. Score and
// Tier always serialize on a show: a 0 score is the worst valid result,
// not an absent one.
type overlayPayload struct {
	TabID  int             `json:"tabId"`
	URL    string          `json:"url,omitempty"`
	Score  float64         `json:"score"`
	Tier   domain.IconTier `json:"tier"`
	Status string          `json:"status,omitempty"`
}

// AlertGateway drives the in-page overlay. Delivery tolerates the page's
// listener not being ready right after navigation: a bounded retry loop
// with backoff, then a single reinjection attempt as the last resort.
// A page that refuses everything is logged and dropped, never escalated.
type AlertGateway struct {
	messenger PageMessenger
	sessions  *SessionTracker
	attempts  int
	backoff   time.Duration
	logger    logger.Logger
}

// NewAlertGateway creates an alert gateway.
func NewAlertGateway(m PageMessenger, sessions *SessionTracker, attempts int, backoff time.Duration, log logger.Logger) *AlertGateway {
	if attempts < 1 {
		attempts = 1
	}
	return &AlertGateway{
		messenger: m,
		sessions:  sessions,
		attempts:  attempts,
		backoff:   backoff,
		logger:    log,
	}
}

// NotifyPage shows or hides the overlay for a page depending on its score.
// Safe pages get a hide; everything else gets a tiered alert unless the
// user already dismissed one for this page session.
func (g *AlertGateway) NotifyPage(ctx context.Context, tabID int, score float64, target string) {
	if !domain.ShouldAlert(score) {
		g.deliver(ctx, tabID, bus.NewEnvelope(bus.ActionOverlayHide, "", overlayPayload{TabID: tabID}))
		return
	}

	if g.sessions.Dismissed(tabID, target) {
		g.logger.Debug("alert suppressed, dismissed this session",
			logger.Int("tab", tabID),
			logger.String("target", target))
		return
	}

	g.deliver(ctx, tabID, bus.NewEnvelope(bus.ActionOverlayShow, "", overlayPayload{
		TabID: tabID,
		URL:   target,
		Score: score,
		Tier:  domain.TierForScore(score),
	}))
}

// Hide retracts the overlay for a page unconditionally.
func (g *AlertGateway) Hide(ctx context.Context, tabID int) {
	g.deliver(ctx, tabID, bus.NewEnvelope(bus.ActionOverlayHide, "", overlayPayload{TabID: tabID}))
}

// Dismiss records a user dismissal for the page session.
func (g *AlertGateway) Dismiss(tabID int, url string) {
	g.sessions.Dismiss(tabID, url)
}

// deliver runs the bounded retry loop. Delivery failures never propagate:
// overlay messages are best-effort by contract.
func (g *AlertGateway) deliver(ctx context.Context, tabID int, env bus.Envelope) {
	var err error
	wait := g.backoff

	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err = g.messenger.SendOverlay(ctx, tabID, env); err == nil {
			return
		}
		if attempt == g.attempts {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait *= 2
	}

	// Last resort: the listener may never have been injected on this page.
	if injErr := g.messenger.InjectOverlay(ctx, tabID); injErr == nil {
		if err = g.messenger.SendOverlay(ctx, tabID, env); err == nil {
			return
		}
	}

	g.logger.Warn("overlay unreachable, giving up",
		logger.Int("tab", tabID),
		logger.String("action", env.Action),
		logger.Int("attempts", g.attempts),
		logger.Error(err))
}
