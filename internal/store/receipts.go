package store

import (
	"context"
	"fmt"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

// ReceiptExists reports whether a notification for this (subscriber,
// event key) pair was already handed to the transport.
func (s *Store) ReceiptExists(ctx context.Context, subscriberID int64, eventKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_receipts
			WHERE subscriber_id = $1 AND event_key = $2
		)`, subscriberID, eventKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("receipt lookup: %w", err)
	}
	return exists, nil
}

// CountReceipts returns the total number of recorded deliveries.
func (s *Store) CountReceipts(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM delivery_receipts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}
	return n, nil
}

// InsertReceiptIfAbsent records a delivery. The primary key makes the
// insert a no-op when a receipt already exists, so two overlapping
// cycles cannot both claim first delivery; it reports whether this call
// created the row.
func (s *Store) InsertReceiptIfAbsent(ctx context.Context, r domain.DeliveryReceipt) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_receipts (subscriber_id, event_key, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscriber_id, event_key) DO NOTHING`,
		r.SubscriberID, r.EventKey, r.SentAt)
	if err != nil {
		return false, fmt.Errorf("insert receipt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
