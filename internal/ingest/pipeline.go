// Package ingest orchestrates the fetch-translate-structure cycle that
// turns provider announcements into stored outage records.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
	"github.com/utilitywatch/outage-sentinel/internal/observability"
)

// Fetcher retrieves the current announcements of one utility.
type Fetcher interface {
	Utility() domain.Utility
	Fetch(ctx context.Context) ([]domain.RawAnnouncement, error)
}

// Translator converts source-language text to English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Extractor finds named entities in translated text. Available reports
// whether the backend can serve requests right now; extraction is
// mandatory for structuring, so an unavailable backend pauses intake.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]domain.Entity, error)
	Available(ctx context.Context) bool
}

// OutageStore is the persistence surface the pipeline needs.
type OutageStore interface {
	InsertOutageIfAbsent(ctx context.Context, rec domain.OutageRecord) (bool, error)
	GetOutageByFingerprint(ctx context.Context, fingerprint string) (domain.OutageRecord, bool, error)
}

// RecordPublisher exports newly created records, e.g. to Kafka.
type RecordPublisher interface {
	PublishRecords(ctx context.Context, records []domain.OutageRecord) error
}

// Result is one record surfaced by a cycle. Created distinguishes
// records stored by this cycle from repeats of known announcements;
// both matter downstream, because a new subscriber must be matched
// against records that predate them.
type Result struct {
	Record  domain.OutageRecord
	Created bool
}

// Pipeline runs the ingestion cycle over every configured utility.
type Pipeline struct {
	fetchers   []Fetcher
	translator Translator
	extractor  Extractor
	store      OutageStore
	publisher  RecordPublisher // nil when export is disabled
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline. publisher may be nil.
func New(fetchers []Fetcher, tr Translator, ex Extractor, store OutageStore, publisher RecordPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetchers:   fetchers,
		translator: tr,
		extractor:  ex,
		store:      store,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RunCycle fetches and processes every utility concurrently and returns
// all records current in this cycle. A utility whose source, or whose
// processing, fails contributes nothing but never blocks the others.
func (p *Pipeline) RunCycle(ctx context.Context) []Result {
	start := time.Now()

	var (
		mu      sync.Mutex
		results []Result
		created []domain.OutageRecord
	)

	var wg sync.WaitGroup
	for _, f := range p.fetchers {
		wg.Add(1)
		go func(f Fetcher) {
			defer wg.Done()
			utilResults := p.processUtility(ctx, f)

			mu.Lock()
			defer mu.Unlock()
			for _, r := range utilResults {
				results = append(results, r)
				if r.Created {
					created = append(created, r.Record)
				}
			}
		}(f)
	}
	wg.Wait()

	if p.publisher != nil && len(created) > 0 {
		if err := p.publisher.PublishRecords(ctx, created); err != nil {
			// Export is best-effort; records are already persisted.
			p.logger.Error("publish records failed", "error", err, "count", len(created))
		}
	}

	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("ingest cycle complete",
		"records", len(results), "created", len(created),
		"duration", time.Since(start))
	return results
}

// processUtility runs one utility's announcements through the full
// fetch-dedup-translate-extract-structure chain.
func (p *Pipeline) processUtility(ctx context.Context, f Fetcher) []Result {
	utility := string(f.Utility())

	anns, err := f.Fetch(ctx)
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues(utility).Inc()
		p.logger.Error("fetch failed", "utility", utility, "error", err)
		if len(anns) == 0 {
			return nil
		}
		// Partial results (e.g. one of two gas pages) are still processed.
	}
	p.metrics.AnnouncementsFetched.WithLabelValues(utility).Add(float64(len(anns)))
	if len(anns) == 0 {
		return nil
	}

	// The extractor gate sits after dedup so known announcements are
	// still surfaced while the model is cold.
	extractorChecked := false
	extractorUp := false

	var results []Result
	for _, ann := range anns {
		fingerprint := domain.Fingerprint(ann.Text)

		existing, found, err := p.store.GetOutageByFingerprint(ctx, fingerprint)
		if err != nil {
			p.logger.Error("dedup lookup failed", "utility", utility, "error", err)
			continue
		}
		if found {
			p.metrics.DuplicatesSkipped.WithLabelValues(utility).Inc()
			results = append(results, Result{Record: existing})
			continue
		}

		if !extractorChecked {
			extractorChecked = true
			extractorUp = p.extractor.Available(ctx)
			if !extractorUp {
				p.metrics.ExtractionUnavailable.Inc()
				p.logger.Warn("entity extraction unavailable, deferring new announcements", "utility", utility)
			}
		}
		if !extractorUp {
			// Not stored, so the announcement is retried next cycle.
			continue
		}

		rec, ok := p.processAnnouncement(ctx, ann, fingerprint)
		if !ok {
			continue
		}

		createdNow, err := p.store.InsertOutageIfAbsent(ctx, rec)
		if err != nil {
			p.logger.Error("store record failed", "utility", utility, "error", err)
			continue
		}
		if createdNow {
			p.metrics.RecordsCreated.WithLabelValues(utility, string(rec.Status)).Inc()
			p.logger.Info("outage record created",
				"utility", utility, "status", rec.Status,
				"fingerprint", rec.Fingerprint, "regions", len(rec.Regions))
		} else {
			// A concurrent cycle stored it first.
			p.metrics.DuplicatesSkipped.WithLabelValues(utility).Inc()
		}
		results = append(results, Result{Record: rec, Created: createdNow})
	}
	return results
}

// processAnnouncement translates, extracts, and structures one new
// announcement. A failure skips just this announcement.
func (p *Pipeline) processAnnouncement(ctx context.Context, ann domain.RawAnnouncement, fingerprint string) (domain.OutageRecord, bool) {
	translated, err := p.translator.Translate(ctx, ann.Text)
	if err != nil {
		p.metrics.TranslationErrors.Inc()
		p.logger.Warn("translation failed, skipping announcement",
			"utility", ann.Utility, "fingerprint", fingerprint, "error", err)
		return domain.OutageRecord{}, false
	}

	entities, err := p.extractor.Extract(ctx, translated)
	if err != nil {
		p.logger.Warn("entity extraction failed, skipping announcement",
			"utility", ann.Utility, "fingerprint", fingerprint, "error", err)
		return domain.OutageRecord{}, false
	}

	return domain.StructureAnnouncement(ann, translated, entities), true
}

// ErrNoFetchers is returned by Validate on an empty fetcher set.
var ErrNoFetchers = errors.New("no fetchers configured")

// Validate checks the pipeline wiring at startup.
func (p *Pipeline) Validate() error {
	if len(p.fetchers) == 0 {
		return ErrNoFetchers
	}
	return nil
}
