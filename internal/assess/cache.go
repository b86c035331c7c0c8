package assess

import (
	"context"
	"encoding/json"
	"time"

	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/logger"
	redisstore "github.com/netstar-dev/advisor/internal/store/redis"
)

// Storage is the slice of the persistent store the cache needs.
// *redisstore.Store satisfies it; tests plug in an in-memory fake.
type Storage interface {
	GetScan(ctx context.Context, dom string) (*redisstore.CacheEntry, error)
	SaveScan(ctx context.Context, entry redisstore.CacheEntry) error
	DeleteScan(ctx context.Context, dom string) error
	GetSignals(ctx context.Context, dom string) (*redisstore.SignalEntry, error)
}

// Fetcher is the scan boundary as the cache sees it.
type Fetcher interface {
	Fetch(ctx context.Context, dom string, signals json.RawMessage) (*domain.Assessment, error)
}

// Cache is the TTL-keyed domain-to-assessment store and its cache-or-fetch
// orchestration. Expiry is lazy: an entry is deleted when a lookup finds it
// stale, never by a background sweep. Two concurrent misses for the same
// domain may both reach the fetcher; the last write wins, which is fine
// because results inside one freshness window are equivalent.
type Cache struct {
	storage   Storage
	fetcher   Fetcher
	ttl       time.Duration
	signalTTL time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// NewCache creates an assessment cache. now is injectable for tests and
// defaults to time.Now.
func NewCache(storage Storage, fetcher Fetcher, ttl, signalTTL time.Duration, log logger.Logger, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		storage:   storage,
		fetcher:   fetcher,
		ttl:       ttl,
		signalTTL: signalTTL,
		logger:    log,
		now:       now,
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// GetOrFetch returns the assessment for a raw target, serving a fresh
// cached entry unchanged or fetching and storing a new one. Fetch errors
// come back as *domain.ScanFailure; an unusable target is a
// *domain.ValidationError.
func (c *Cache) GetOrFetch(ctx context.Context, rawTarget string) (*domain.Assessment, error) {
	dom := domain.Normalize(rawTarget)
	if dom == "" {
		return nil, &domain.ValidationError{Input: rawTarget, Reason: "no usable hostname"}
	}

	entry, err := c.storage.GetScan(ctx, dom)
	if err != nil {
		// A degraded store reads as a miss; the fetch below still works.
		c.logger.Warn("cache lookup failed, treating as miss",
			logger.String("domain", dom),
			logger.Error(err))
	}
	if entry != nil {
		age := c.now().Sub(entry.StoredAt)
		if age < c.ttl {
			c.logger.Debug("cache hit",
				logger.String("domain", dom),
				logger.Duration("age", age))
			value := entry.Value
			return &value, nil
		}
		// Stale entry: lazy expiry, best effort
		if err := c.storage.DeleteScan(ctx, dom); err != nil {
			c.logger.Warn("failed to delete expired entry",
				logger.String("domain", dom),
				logger.Error(err))
		}
	}

	assessment, err := c.fetcher.Fetch(ctx, dom, c.freshSignals(ctx, dom))
	if err != nil {
		return nil, err
	}
	if !assessment.Valid() {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "scan produced a malformed assessment"}
	}

	// StoredAt is the post-fetch time: the window measures data freshness,
	// not request age.
	if err := c.storage.SaveScan(ctx, redisstore.CacheEntry{
		Value:    *assessment,
		StoredAt: c.now(),
	}); err != nil {
		c.logger.Warn("failed to store assessment",
			logger.String("domain", dom),
			logger.Error(err))
	}

	return assessment, nil
}

// Peek returns the cached assessment for a raw target when one is still
// fresh, without ever reaching the fetcher. Used by the fast path of
// correlated queries; a miss, stale entry or unusable target all yield nil.
func (c *Cache) Peek(ctx context.Context, rawTarget string) *domain.Assessment {
	dom := domain.Normalize(rawTarget)
	if dom == "" {
		return nil
	}

	entry, err := c.storage.GetScan(ctx, dom)
	if err != nil || entry == nil {
		return nil
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		return nil
	}
	value := entry.Value
	return &value
}

// freshSignals returns the live-signal hint for a domain when one exists
// and is still inside the signal freshness window. Enrichment only; any
// failure yields nil.
func (c *Cache) freshSignals(ctx context.Context, dom string) json.RawMessage {
	entry, err := c.storage.GetSignals(ctx, dom)
	if err != nil || entry == nil {
		return nil
	}
	if c.now().Sub(entry.StoredAt) >= c.signalTTL {
		return nil
	}
	return entry.Payload
}
