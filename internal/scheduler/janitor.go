package scheduler

import (
	"context"
	"time"

	"github.com/netstar-dev/advisor/internal/gateway"
	"github.com/netstar-dev/advisor/internal/logger"
)

const (
	// DefaultSignalMaxAge is the duration after which stored page signals
	// are considered stale and deleted
	DefaultSignalMaxAge = 5 * time.Minute

	// DefaultSessionMaxIdle is the duration after which an untouched
	// per-tab alert session is dropped
	DefaultSessionMaxIdle = 12 * time.Hour
)

// SignalPruner is the slice of the store the janitor needs.
type SignalPruner interface {
	PruneSignals(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)
}

// Janitor handles periodic cleanup of expired page signals and idle
// alert sessions
type Janitor struct {
	store      SignalPruner
	sessions   *gateway.SessionTracker
	logger     logger.Logger
	interval   time.Duration
	signalAge  time.Duration
	sessionAge time.Duration
	stopCh     chan struct{}
}

// NewJanitor creates a new janitor
func NewJanitor(
	store SignalPruner,
	sessions *gateway.SessionTracker,
	log logger.Logger,
	interval time.Duration,
	signalAge time.Duration,
) *Janitor {
	if signalAge == 0 {
		signalAge = DefaultSignalMaxAge
	}

	return &Janitor{
		store:      store,
		sessions:   sessions,
		logger:     log,
		interval:   interval,
		signalAge:  signalAge,
		sessionAge: DefaultSessionMaxIdle,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup process
func (j *Janitor) Start(ctx context.Context) error {
	// Run immediately on start
	if err := j.Sweep(ctx); err != nil {
		j.logger.Warn("initial janitor sweep failed",
			logger.Error(err))
	}

	// Start periodic cleanup
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := j.Sweep(ctx); err != nil {
					j.logger.Error("janitor sweep failed",
						logger.Error(err))
				}
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor
func (j *Janitor) Stop() {
	close(j.stopCh)
}

// Sweep deletes page signals older than the signal age and drops alert
// sessions idle for longer than the session age
func (j *Janitor) Sweep(ctx context.Context) error {
	now := time.Now()

	signalsDeleted := 0
	if j.store != nil {
		n, err := j.store.PruneSignals(ctx, now, j.signalAge)
		if err != nil {
			return err
		}
		signalsDeleted = n
	}

	sessionsDropped := 0
	if j.sessions != nil {
		sessionsDropped = j.sessions.Prune(now, j.sessionAge)
	}

	if signalsDeleted > 0 || sessionsDropped > 0 {
		j.logger.Info("janitor sweep completed",
			logger.Int("signals_deleted", signalsDeleted),
			logger.Int("sessions_dropped", sessionsDropped))
	} else {
		j.logger.Debug("nothing to clean up")
	}

	return nil
}
