// Package prefs holds the small durable per-user display state: the
// cookie/privacy banner acknowledgement and the dashboard clock preference.
package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Preferences struct {
	CookieBannerAck bool   `json:"cookieBannerAck"`
	ClockFormat24h  bool   `json:"clockFormat24h"`
	ClockTimezone   string `json:"clockTimezone"`
}

func defaults() Preferences {
	return Preferences{
		ClockFormat24h: true,
		ClockTimezone:  "Local",
	}
}

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID string) string {
	return "prefs:" + userID
}

func (s *Store) Get(ctx context.Context, userID string) (Preferences, error) {
	fields, err := s.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	p := defaults()
	if v, ok := fields["cookie_banner_ack"]; ok {
		p.CookieBannerAck, _ = strconv.ParseBool(v)
	}
	if v, ok := fields["clock_format_24h"]; ok {
		p.ClockFormat24h, _ = strconv.ParseBool(v)
	}
	if v, ok := fields["clock_timezone"]; ok && v != "" {
		p.ClockTimezone = v
	}
	return p, nil
}

func (s *Store) Set(ctx context.Context, userID string, p Preferences) error {
	fields := map[string]any{
		"cookie_banner_ack": strconv.FormatBool(p.CookieBannerAck),
		"clock_format_24h":  strconv.FormatBool(p.ClockFormat24h),
		"clock_timezone":    p.ClockTimezone,
	}
	if err := s.client.HSet(ctx, key(userID), fields).Err(); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
