package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/netstar-dev/advisor/internal/domain"
)

// PushRecent prepends a scan to the recent-scans list, deduplicated by
// domain (a re-scan moves the domain to the front) and capped at capacity.
// Read-then-write races are tolerated: the list is advisory UI state and
// a lost update is repaired by the next scan.
func (s *Store) PushRecent(ctx context.Context, scan domain.RecentScan, capacity int) error {
	current, err := s.Recent(ctx)
	if err != nil {
		return err
	}

	next := make([]domain.RecentScan, 0, capacity)
	next = append(next, scan)
	for _, existing := range current {
		if existing.Domain == scan.Domain {
			continue
		}
		next = append(next, existing)
		if len(next) == capacity {
			break
		}
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, KeyRecentScans)
	for _, entry := range next {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal recent scan: %w", err)
		}
		pipe.RPush(ctx, KeyRecentScans, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save recent scans: %w", err)
	}
	return nil
}

// Recent returns the recent-scans list, most recent first.
func (s *Store) Recent(ctx context.Context) ([]domain.RecentScan, error) {
	raw, err := s.client.LRange(ctx, KeyRecentScans, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent scans: %w", err)
	}

	scans := make([]domain.RecentScan, 0, len(raw))
	for _, item := range raw {
		var scan domain.RecentScan
		if err := json.Unmarshal([]byte(item), &scan); err != nil {
			// Skip entries that couldn't be decoded
			continue
		}
		scans = append(scans, scan)
	}
	return scans, nil
}
