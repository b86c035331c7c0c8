package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// NotificationPref returns the soft in-app notification toggle.
// An unset preference reads as false.
func (s *Store) NotificationPref(ctx context.Context) (bool, error) {
	val, err := s.client.Get(ctx, KeyNotifyPref).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get notification preference: %w", err)
	}

	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("corrupt notification preference %q: %w", val, err)
	}
	return enabled, nil
}

// SetNotificationPref persists the soft notification toggle. No TTL:
// preferences survive until explicitly changed.
func (s *Store) SetNotificationPref(ctx context.Context, enabled bool) error {
	if err := s.client.Set(ctx, KeyNotifyPref, strconv.FormatBool(enabled), 0).Err(); err != nil {
		return fmt.Errorf("failed to set notification preference: %w", err)
	}
	return nil
}
