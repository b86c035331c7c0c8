package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SignalEntry wraps the live-signal blob produced by the content inspector
// for one domain. The blob is opaque to the advisor; it is forwarded to the
// scan boundary as an optional enrichment when still fresh.
type SignalEntry struct {
	Domain   string          `json:"domain"`
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
}

// SaveSignals stores a live-signal hint for a domain.
func (s *Store) SaveSignals(ctx context.Context, entry SignalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal signal entry: %w", err)
	}

	if err := s.client.Set(ctx, SignalKey(entry.Domain), data, BackstopTTL).Err(); err != nil {
		return fmt.Errorf("failed to save signal entry: %w", err)
	}
	return nil
}

// GetSignals retrieves the live-signal hint for a domain. A miss returns
// (nil, nil).
func (s *Store) GetSignals(ctx context.Context, dom string) (*SignalEntry, error) {
	data, err := s.client.Get(ctx, SignalKey(dom)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signal entry: %w", err)
	}

	var entry SignalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal entry: %w", err)
	}
	return &entry, nil
}

// DeleteSignals removes the live-signal hint for a domain.
func (s *Store) DeleteSignals(ctx context.Context, dom string) error {
	if err := s.client.Del(ctx, SignalKey(dom)).Err(); err != nil {
		return fmt.Errorf("failed to delete signal entry: %w", err)
	}
	return nil
}

// PruneSignals deletes live-signal hints older than maxAge and returns how
// many were removed.
func (s *Store) PruneSignals(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixSignal+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var entry SignalEntry
		if err := json.Unmarshal(data, &entry); err != nil || now.Sub(entry.StoredAt) >= maxAge {
			if err := s.client.Del(ctx, key).Err(); err == nil {
				deleted++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to prune signals: %w", err)
	}
	return deleted, nil
}
