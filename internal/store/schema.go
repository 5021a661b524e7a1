package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. The engine owns outages
// and delivery_receipts; subscribers and tracked_addresses are shared
// with the subscriber-facing bot, which writes them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS outages (
		fingerprint      TEXT PRIMARY KEY,
		utility          TEXT NOT NULL,
		source_url       TEXT NOT NULL,
		status           TEXT NOT NULL,
		start_time       TIMESTAMPTZ,
		end_time         TIMESTAMPTZ,
		regions          TEXT[] NOT NULL DEFAULT '{}',
		streets          TEXT[] NOT NULL DEFAULT '{}',
		raw_text         TEXT NOT NULL,
		translated_text  TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS outages_created_at_idx ON outages (created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS subscribers (
		subscriber_id          BIGINT PRIMARY KEY,
		tier                   TEXT NOT NULL DEFAULT 'free',
		is_admin               BOOLEAN NOT NULL DEFAULT FALSE,
		poll_interval_seconds  BIGINT NOT NULL DEFAULT 0,
		last_check             TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
		quiet_enabled          BOOLEAN NOT NULL DEFAULT FALSE,
		quiet_start_seconds    BIGINT NOT NULL DEFAULT 0,
		quiet_end_seconds      BIGINT NOT NULL DEFAULT 0,
		sound_enabled          BOOLEAN NOT NULL DEFAULT TRUE,
		blocked                BOOLEAN NOT NULL DEFAULT FALSE
	)`,

	`CREATE TABLE IF NOT EXISTS tracked_addresses (
		subscriber_id  BIGINT NOT NULL REFERENCES subscribers (subscriber_id) ON DELETE CASCADE,
		region         TEXT NOT NULL DEFAULT '',
		street         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (subscriber_id, region, street)
	)`,

	`CREATE TABLE IF NOT EXISTS delivery_receipts (
		subscriber_id  BIGINT NOT NULL,
		event_key      TEXT NOT NULL,
		sent_at        TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (subscriber_id, event_key)
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	s.logger.Debug("schema ensured")
	return nil
}
