package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netstar-dev/advisor/internal/domain"
)

const (
	// BackstopTTL caps how long any entry may sit in Redis regardless of
	// the cache's own freshness window. Expiry decisions belong to the
	// assess.Cache (lazy, storedAt-based); this only bounds storage growth.
	BackstopTTL = 24 * time.Hour
)

// CacheEntry wraps a cached assessment with its storage timestamp.
// StoredAt is the post-fetch time, so the freshness window measures the
// age of the data rather than of the request.
type CacheEntry struct {
	Value    domain.Assessment `json:"value"`
	StoredAt time.Time         `json:"storedAt"`
}

// Store handles Redis operations for assessments, recent scans,
// preferences and live-signal hints.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveScan stores an assessment entry keyed by canonical domain.
// The write is unconditional; concurrent writers race and the last one
// wins, which is acceptable for equivalent results within the window.
func (s *Store) SaveScan(ctx context.Context, entry CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal scan entry: %w", err)
	}

	if err := s.client.Set(ctx, ScanKey(entry.Value.Domain), data, BackstopTTL).Err(); err != nil {
		return fmt.Errorf("failed to save scan entry: %w", err)
	}
	return nil
}

// GetScan retrieves a cached assessment entry. A miss returns (nil, nil).
func (s *Store) GetScan(ctx context.Context, dom string) (*CacheEntry, error) {
	data, err := s.client.Get(ctx, ScanKey(dom)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, fmt.Errorf("failed to get scan entry: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan entry: %w", err)
	}
	return &entry, nil
}

// DeleteScan removes a cached assessment entry.
func (s *Store) DeleteScan(ctx context.Context, dom string) error {
	if err := s.client.Del(ctx, ScanKey(dom)).Err(); err != nil {
		return fmt.Errorf("failed to delete scan entry: %w", err)
	}
	return nil
}

// FlushScans removes all cached assessment entries.
func (s *Store) FlushScans(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixScan+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete scan key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush scans: %w", err)
	}
	return nil
}
