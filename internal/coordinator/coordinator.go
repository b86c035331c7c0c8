package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/netstar-dev/advisor/internal/assess"
	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/gateway"
	"github.com/netstar-dev/advisor/internal/logger"
	redisstore "github.com/netstar-dev/advisor/internal/store/redis"
	"github.com/netstar-dev/advisor/internal/tabs"
)

// Store is the slice of the persistent store the coordinator uses beyond
// the assessment cache.
type Store interface {
	PushRecent(ctx context.Context, scan domain.RecentScan, capacity int) error
	Recent(ctx context.Context) ([]domain.RecentScan, error)
	SaveSignals(ctx context.Context, entry redisstore.SignalEntry) error
}

// Coordinator is the hub of the advisor: it consumes inbound commands and
// page-lifecycle events, runs the select/assess/derive pipeline and fans
// the derived state out to the icon, overlay and notification gateways.
// One failing assessment never blocks assessment of another domain.
type Coordinator struct {
	cache     *assess.Cache
	registry  *tabs.Registry
	store     Store
	bus       *bus.Bus
	alerts    *gateway.AlertGateway
	notify    *gateway.NotificationGateway
	icons     *gateway.IconGateway
	sessions  *gateway.SessionTracker
	recentCap int
	logger    logger.Logger
}

// Options carries the coordinator's collaborators.
type Options struct {
	Cache     *assess.Cache
	Registry  *tabs.Registry
	Store     Store
	Bus       *bus.Bus
	Alerts    *gateway.AlertGateway
	Notify    *gateway.NotificationGateway
	Icons     *gateway.IconGateway
	Sessions  *gateway.SessionTracker
	RecentCap int
	Logger    logger.Logger
}

// New creates a coordinator.
func New(opts Options) *Coordinator {
	if opts.RecentCap < 1 {
		opts.RecentCap = 3
	}
	return &Coordinator{
		cache:     opts.Cache,
		registry:  opts.Registry,
		store:     opts.Store,
		bus:       opts.Bus,
		alerts:    opts.Alerts,
		notify:    opts.Notify,
		icons:     opts.Icons,
		sessions:  opts.Sessions,
		recentCap: opts.RecentCap,
		logger:    opts.Logger,
	}
}

// ScanResponse answers a manual scanUrl command. Either Error/Message is
// set or the score fields are. The score fields never carry omitempty: a
// score of exactly 0 is a valid (worst possible) result and must still
// serialize.
type ScanResponse struct {
	Error       bool                     `json:"error,omitempty"`
	Message     string                   `json:"message,omitempty"`
	SafetyScore float64                  `json:"safetyScore"`
	Indicators  []domain.IndicatorResult `json:"indicators"`
	Timestamp   time.Time                `json:"timestamp"`
}

// CurrentTabResponse answers a getCurrentTab command.
type CurrentTabResponse struct {
	URL          string             `json:"url"`
	Title        string             `json:"title"`
	SecurityData *domain.Assessment `json:"securityData,omitempty"`
}

// Ack is the reply for fire-and-forget commands.
type Ack struct {
	OK bool `json:"ok"`
}

// HandleCommand executes one inbound command. The returned payload is the
// synchronous (fast path) answer; a nil payload with nil error means the
// answer, if any, will arrive as an independent correlated message.
func (c *Coordinator) HandleCommand(ctx context.Context, cmd bus.Command) (interface{}, error) {
	switch cmd := cmd.(type) {
	case *bus.ScanURLCommand:
		return c.handleScanURL(ctx, cmd), nil

	case *bus.GetCurrentTabCommand:
		return c.handleGetCurrentTab(ctx, cmd), nil

	case *bus.HighlightCommand:
		c.icons.Highlight()
		return Ack{OK: true}, nil

	case *bus.ShowAlertCommand:
		c.alerts.NotifyPage(ctx, cmd.TabID, cmd.SafetyScore, cmd.URL)
		return Ack{OK: true}, nil

	case *bus.HideAlertCommand:
		c.alerts.Hide(ctx, cmd.TabID)
		return Ack{OK: true}, nil

	case *bus.AlertDismissCommand:
		c.alerts.Dismiss(cmd.TabID, cmd.URL)
		return Ack{OK: true}, nil

	case *bus.SetNotifyPrefCommand:
		effective, err := c.notify.SetPreference(ctx, cmd.Enabled, cmd.PermissionGranted)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"enabled": effective}, nil

	case *bus.RecentScansCommand:
		scans, err := c.store.Recent(ctx)
		if err != nil {
			return nil, err
		}
		return scans, nil

	case *bus.LiveSignalsCommand:
		dom := domain.Normalize(cmd.URL)
		if dom == "" {
			return Ack{OK: false}, nil
		}
		if err := c.store.SaveSignals(ctx, redisstore.SignalEntry{
			Domain:   dom,
			Payload:  cmd.Signals,
			StoredAt: time.Now(),
		}); err != nil {
			c.logger.Warn("failed to store live signals",
				logger.String("domain", dom),
				logger.Error(err))
		}
		return Ack{OK: true}, nil

	case *bus.TabsSnapshotCommand:
		c.registry.Replace(cmd.Tabs)
		return Ack{OK: true}, nil

	case *bus.TabUpdatedCommand:
		c.registry.Upsert(cmd.Tab)
		return Ack{OK: true}, nil

	case *bus.TabRemovedCommand:
		c.registry.Remove(cmd.TabID)
		c.sessions.Drop(cmd.TabID)
		return Ack{OK: true}, nil

	case *bus.NavigationDoneCommand:
		c.onPageEvent(ctx, cmd.Tab, true)
		return Ack{OK: true}, nil

	case *bus.TabActivatedCommand:
		c.onPageEvent(ctx, cmd.Tab, false)
		return Ack{OK: true}, nil

	default:
		return nil, errors.New("unhandled command")
	}
}

// handleScanURL serves a manual scan from the popup. The TLD pre-flight is
// a cheap gate only; the scan boundary stays the validation authority.
func (c *Coordinator) handleScanURL(ctx context.Context, cmd *bus.ScanURLCommand) ScanResponse {
	dom := domain.Normalize(cmd.URL)
	if dom == "" || !domain.HasRegistrableTLD(dom) {
		return ScanResponse{
			Error:   true,
			Message: "enter a valid domain, like example.com",
		}
	}

	assessment, err := c.cache.GetOrFetch(ctx, dom)
	if err != nil {
		c.logger.Warn("manual scan failed",
			logger.String("domain", dom),
			logger.Error(err))
		return ScanResponse{Error: true, Message: "could not scan this site right now"}
	}

	c.recordScan(ctx, assessment)
	return ScanResponse{
		SafetyScore: assessment.SafetyScore,
		Indicators:  assessment.Indicators,
		Timestamp:   assessment.ComputedAt,
	}
}

// handleGetCurrentTab picks the assessable page of the requesting window.
// With a fresh cached assessment the answer is immediate (fast path).
// Otherwise, when the caller supplied a requestId, the assessment runs in
// the background and comes back as an independent correlated message; a
// caller without a requestId just gets the tab with no security data.
func (c *Coordinator) handleGetCurrentTab(ctx context.Context, cmd *bus.GetCurrentTabCommand) interface{} {
	tab := tabs.SelectAssessable(c.registry, cmd.WindowID)
	if tab == nil {
		// No assessable page is a legitimate empty answer, delivered
		// synchronously even when the caller expected a correlated one.
		return struct{}{}
	}

	resp := CurrentTabResponse{URL: tab.URL, Title: tab.Title}
	if cached := c.cache.Peek(ctx, tab.URL); cached != nil {
		resp.SecurityData = cached
		return resp
	}

	if cmd.RequestID == "" {
		return resp
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		assessment, err := c.cache.GetOrFetch(bg, tab.URL)
		if err != nil {
			c.logger.Warn("deferred tab assessment failed",
				logger.String("url", tab.URL),
				logger.Error(err))
		} else {
			resp.SecurityData = assessment
			c.recordScan(bg, assessment)
		}
		// New independent message, never a reply on the original channel.
		// Nobody may be listening anymore; that is fine.
		c.bus.Publish(bus.NewEnvelope(bus.ActionCurrentTabResult, cmd.RequestID, resp))
	}()
	return nil
}

// onPageEvent runs the full pipeline for a navigation or activation.
func (c *Coordinator) onPageEvent(ctx context.Context, tab *tabs.Tab, navigated bool) {
	if tab == nil {
		return
	}
	c.registry.Upsert(tab)
	if navigated {
		c.sessions.Navigated(tab.ID, tab.URL)
	}
	if !tab.Assessable() {
		return
	}

	bg := context.WithoutCancel(ctx)
	go c.assessPage(bg, tab)
}

// assessPage is the navigation-driven pipeline: assess, then fan out to
// icon, overlay, notification and the recent-scans list.
func (c *Coordinator) assessPage(ctx context.Context, tab *tabs.Tab) {
	assessment, err := c.cache.GetOrFetch(ctx, tab.URL)
	if err != nil {
		c.logger.Warn("page assessment failed",
			logger.String("url", tab.URL),
			logger.Int("tab", tab.ID),
			logger.Error(err))
		return
	}

	c.icons.Apply(assessment)
	c.alerts.NotifyPage(ctx, tab.ID, assessment.SafetyScore, tab.URL)
	c.notify.Notify(ctx, assessment)
	c.recordScan(ctx, assessment)
}

// recordScan pushes an assessment onto the recent-scans list, best effort.
func (c *Coordinator) recordScan(ctx context.Context, a *domain.Assessment) {
	err := c.store.PushRecent(ctx, domain.RecentScan{
		Domain:    a.Domain,
		Score:     a.SafetyScore,
		Tier:      domain.TierForScore(a.SafetyScore),
		ScannedAt: a.ComputedAt,
	}, c.recentCap)
	if err != nil {
		c.logger.Warn("failed to update recent scans",
			logger.String("domain", a.Domain),
			logger.Error(err))
	}
}
