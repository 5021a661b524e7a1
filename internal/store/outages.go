package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

// InsertOutageIfAbsent stores a record unless one with the same
// fingerprint already exists. It reports whether this call created the
// row, which is how the pipeline tells new announcements from repeats.
func (s *Store) InsertOutageIfAbsent(ctx context.Context, rec domain.OutageRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO outages (
			fingerprint, utility, source_url, status, start_time, end_time,
			regions, streets, raw_text, translated_text, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fingerprint) DO NOTHING`,
		rec.Fingerprint, rec.Utility, rec.SourceURL, rec.Status,
		nullableTime(rec.StartTime), nullableTime(rec.EndTime),
		rec.Regions, rec.Streets, rec.RawText, rec.TranslatedText, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert outage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetOutageByFingerprint loads one record. The second return value is
// false when no record exists.
func (s *Store) GetOutageByFingerprint(ctx context.Context, fingerprint string) (domain.OutageRecord, bool, error) {
	rec, err := scanOutage(s.pool.QueryRow(ctx, `
		SELECT `+outageColumns+`
		FROM outages
		WHERE fingerprint = $1`, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutageRecord{}, false, nil
	}
	if err != nil {
		return domain.OutageRecord{}, false, fmt.Errorf("get outage %s: %w", fingerprint, err)
	}
	return rec, true, nil
}

// ListRecentOutages returns the newest records, newest first.
func (s *Store) ListRecentOutages(ctx context.Context, limit int) ([]domain.OutageRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+outageColumns+`
		FROM outages
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent outages: %w", err)
	}
	defer rows.Close()

	var recs []domain.OutageRecord
	for rows.Next() {
		rec, err := scanOutage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outage: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// OutageStats is a per-utility breakdown of stored records.
type OutageStats struct {
	Utility   domain.Utility `json:"utility"`
	Total     int64          `json:"total"`
	Planned   int64          `json:"planned"`
	Emergency int64          `json:"emergency"`
}

// GetOutageStats aggregates record counts per utility.
func (s *Store) GetOutageStats(ctx context.Context) ([]OutageStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT utility,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'planned'),
			COUNT(*) FILTER (WHERE status = 'emergency')
		FROM outages
		GROUP BY utility
		ORDER BY utility`)
	if err != nil {
		return nil, fmt.Errorf("outage stats: %w", err)
	}
	defer rows.Close()

	var stats []OutageStats
	for rows.Next() {
		var st OutageStats
		if err := rows.Scan(&st.Utility, &st.Total, &st.Planned, &st.Emergency); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

const outageColumns = `fingerprint, utility, source_url, status, start_time, end_time,
	regions, streets, raw_text, translated_text, created_at`

func scanOutage(row pgx.Row) (domain.OutageRecord, error) {
	var rec domain.OutageRecord
	var start, end *time.Time
	err := row.Scan(
		&rec.Fingerprint, &rec.Utility, &rec.SourceURL, &rec.Status,
		&start, &end,
		&rec.Regions, &rec.Streets, &rec.RawText, &rec.TranslatedText, &rec.CreatedAt)
	if err != nil {
		return domain.OutageRecord{}, err
	}
	if start != nil {
		rec.StartTime = *start
	}
	if end != nil {
		rec.EndTime = *end
	}
	return rec, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
