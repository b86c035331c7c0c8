package gateway

import (
	"context"
	"sync"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/logger"
)

// PrefStore persists the soft notification toggle.
type PrefStore interface {
	NotificationPref(ctx context.Context) (bool, error)
	SetNotificationPref(ctx context.Context, enabled bool) error
}

// HostPermission tracks the host-level notification grant as last reported
// by the surfaces. The grant is owned by the host platform and can be
// revoked there at any time, independent of the soft toggle.
type HostPermission struct {
	mu      sync.RWMutex
	granted bool
}

// Set records the grant state reported by a surface.
func (p *HostPermission) Set(granted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted = granted
}

// Granted returns the last reported grant state.
func (p *HostPermission) Granted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.granted
}

// notificationPayload is the wire shape of a native notification request.
type notificationPayload struct {
	Domain string          `json:"domain"`
	Score  float64         `json:"score"`
	Tier   domain.IconTier `json:"tier"`
	Title  string          `json:"title"`
	Body   string          `json:"body"`
}

// NotificationGateway posts native notifications for dangerous pages.
// Effective delivery needs the score gate AND the soft toggle AND the host
// grant; each leg is independently revocable.
type NotificationGateway struct {
	bus        *bus.Bus
	prefs      PrefStore
	permission *HostPermission
	logger     logger.Logger
}

// NewNotificationGateway creates a notification gateway.
func NewNotificationGateway(b *bus.Bus, prefs PrefStore, permission *HostPermission, log logger.Logger) *NotificationGateway {
	return &NotificationGateway{
		bus:        b,
		prefs:      prefs,
		permission: permission,
		logger:     log,
	}
}

// SetPreference applies a soft-toggle change from a surface. Turning the
// toggle on requires the host grant: the surface requests the permission
// first and reports the outcome, and "on" only persists when it was
// granted. Returns the effective persisted state.
func (g *NotificationGateway) SetPreference(ctx context.Context, enabled, permissionGranted bool) (bool, error) {
	g.permission.Set(permissionGranted)

	effective := enabled && permissionGranted
	if enabled && !permissionGranted {
		g.logger.Info("notification toggle requested without host grant, keeping off")
	}

	if err := g.prefs.SetNotificationPref(ctx, effective); err != nil {
		return false, err
	}
	return effective, nil
}

// Notify posts a native notification for an assessment when the score is
// low enough and the effective preference allows it. Failures to read the
// preference fail closed (no notification).
func (g *NotificationGateway) Notify(ctx context.Context, a *domain.Assessment) {
	if !domain.NotifyEligible(a.SafetyScore) {
		return
	}

	soft, err := g.prefs.NotificationPref(ctx)
	if err != nil {
		g.logger.Warn("failed to read notification preference",
			logger.Error(err))
		return
	}
	if !soft || !g.permission.Granted() {
		return
	}

	g.bus.Publish(bus.NewEnvelope(bus.ActionNotification, "", notificationPayload{
		Domain: a.Domain,
		Score:  a.SafetyScore,
		Tier:   domain.TierForScore(a.SafetyScore),
		Title:  "Unsafe site detected",
		Body:   a.Domain + " scored low on the safety check",
	}))
	g.logger.Info("native notification posted",
		logger.String("domain", a.Domain),
		logger.Float64("score", a.SafetyScore))
}
