package store

import (
	"context"
	"fmt"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

// ListActiveSubscribers returns every subscriber delivery can reach.
// Blocked subscribers stay in the table but are excluded until the
// subscriber-facing bot clears the flag on re-subscription.
func (s *Store) ListActiveSubscribers(ctx context.Context) ([]domain.SubscriberState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subscriber_id, tier, is_admin, poll_interval_seconds, last_check,
			quiet_enabled, quiet_start_seconds, quiet_end_seconds,
			sound_enabled, blocked
		FROM subscribers
		WHERE NOT blocked
		ORDER BY subscriber_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.SubscriberState
	for rows.Next() {
		var sub domain.SubscriberState
		var pollSeconds, quietStart, quietEnd int64
		err := rows.Scan(
			&sub.SubscriberID, &sub.Tier, &sub.Admin, &pollSeconds, &sub.LastCheck,
			&sub.Quiet.Enabled, &quietStart, &quietEnd,
			&sub.SoundEnabled, &sub.Blocked)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.PollInterval = time.Duration(pollSeconds) * time.Second
		sub.Quiet.Start = time.Duration(quietStart) * time.Second
		sub.Quiet.End = time.Duration(quietEnd) * time.Second
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListTrackedAddresses returns the addresses one subscriber watches.
func (s *Store) ListTrackedAddresses(ctx context.Context, subscriberID int64) ([]domain.TrackedAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subscriber_id, region, street
		FROM tracked_addresses
		WHERE subscriber_id = $1`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list addresses for %d: %w", subscriberID, err)
	}
	defer rows.Close()

	var addrs []domain.TrackedAddress
	for rows.Next() {
		var a domain.TrackedAddress
		if err := rows.Scan(&a.SubscriberID, &a.Region, &a.Street); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// UpdateLastCheck records the completion time of a subscriber's cycle.
// It is only called after the cycle finished, so a crashed cycle gets
// retried on the next tick.
func (s *Store) UpdateLastCheck(ctx context.Context, subscriberID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscribers SET last_check = $2 WHERE subscriber_id = $1`,
		subscriberID, at)
	if err != nil {
		return fmt.Errorf("update last_check for %d: %w", subscriberID, err)
	}
	return nil
}

// CountActiveSubscribers returns the number of subscribers delivery can
// currently reach.
func (s *Store) CountActiveSubscribers(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM subscribers WHERE NOT blocked`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// MarkBlocked flags a subscriber the transport reported as unreachable.
func (s *Store) MarkBlocked(ctx context.Context, subscriberID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscribers SET blocked = TRUE WHERE subscriber_id = $1`,
		subscriberID)
	if err != nil {
		return fmt.Errorf("mark subscriber %d blocked: %w", subscriberID, err)
	}
	s.logger.Info("subscriber marked blocked", "subscriber_id", subscriberID)
	return nil
}
