// Package scheduler drives per-subscriber outage checks. Each tick it
// finds subscribers whose poll interval has elapsed, runs the ingestion
// cycle for them, matches records against their tracked addresses, and
// delivers notifications at most once per (subscriber, event) pair.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/utilitywatch/outage-sentinel/internal/adapter/telegram"
	"github.com/utilitywatch/outage-sentinel/internal/domain"
	"github.com/utilitywatch/outage-sentinel/internal/ingest"
	"github.com/utilitywatch/outage-sentinel/internal/observability"
)

// CycleRunner produces the current outage records. Repeat runs are
// cheap: the pipeline answers known announcements from the store
// without re-translating.
type CycleRunner interface {
	RunCycle(ctx context.Context) []ingest.Result
}

// SubscriberStore is the subscriber-state surface the scheduler needs.
type SubscriberStore interface {
	ListActiveSubscribers(ctx context.Context) ([]domain.SubscriberState, error)
	ListTrackedAddresses(ctx context.Context, subscriberID int64) ([]domain.TrackedAddress, error)
	UpdateLastCheck(ctx context.Context, subscriberID int64, at time.Time) error
	MarkBlocked(ctx context.Context, subscriberID int64) error
}

// ReceiptStore records deliveries.
type ReceiptStore interface {
	ReceiptExists(ctx context.Context, subscriberID int64, eventKey string) (bool, error)
	InsertReceiptIfAbsent(ctx context.Context, r domain.DeliveryReceipt) (bool, error)
}

// Sender delivers one notification message.
type Sender interface {
	Send(ctx context.Context, subscriberID int64, text string, silent bool) error
}

// Scheduler fans due subscribers out over a bounded worker pool.
type Scheduler struct {
	pipeline CycleRunner
	subs     SubscriberStore
	receipts ReceiptStore
	sender   Sender
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int

	mu       sync.Mutex
	inFlight map[int64]bool
}

// New creates a Scheduler with the given worker pool size.
func New(pipeline CycleRunner, subs SubscriberStore, receipts ReceiptStore, sender Sender, workers int, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		subs:     subs,
		receipts: receipts,
		sender:   sender,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
		inFlight: make(map[int64]bool),
	}
}

// Tick processes every currently due subscriber and returns when all of
// them finished. A subscriber whose previous cycle is still running is
// skipped, never queued twice.
func (s *Scheduler) Tick(ctx context.Context) error {
	subs, err := s.subs.ListActiveSubscribers(ctx)
	if err != nil {
		return err
	}

	now := clock.Now()
	var due []domain.SubscriberState
	for _, sub := range subs {
		if sub.Due(now) && s.claim(sub.SubscriberID) {
			due = append(due, sub)
		}
	}
	s.metrics.SubscribersDue.Observe(float64(len(due)))
	if len(due) == 0 {
		return nil
	}
	s.logger.Debug("tick", "subscribers_due", len(due))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, sub := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub domain.SubscriberState) {
			defer wg.Done()
			defer func() { <-sem }()
			defer s.release(sub.SubscriberID)
			s.runSubscriberCycle(ctx, sub)
		}(sub)
	}
	wg.Wait()
	return nil
}

// claim marks a subscriber's cycle as running. It reports false when a
// previous cycle still holds the claim.
func (s *Scheduler) claim(subscriberID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[subscriberID] {
		s.metrics.SubscriberCycleSkips.Inc()
		return false
	}
	s.inFlight[subscriberID] = true
	return true
}

func (s *Scheduler) release(subscriberID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, subscriberID)
}

// runSubscriberCycle runs one complete check for one subscriber.
// LastCheck advances only when the cycle ran to completion; a cycle cut
// short by a persistence or delivery failure is retried on the next
// tick, which the receipt table makes safe.
func (s *Scheduler) runSubscriberCycle(ctx context.Context, sub domain.SubscriberState) {
	results := s.pipeline.RunCycle(ctx)

	addrs, err := s.subs.ListTrackedAddresses(ctx, sub.SubscriberID)
	if err != nil {
		s.logger.Error("list addresses failed", "subscriber_id", sub.SubscriberID, "error", err)
		return
	}
	if len(addrs) == 0 {
		s.finishCycle(ctx, sub)
		return
	}

	now := clock.Now()
	silent := !sub.SoundEnabled || sub.Quiet.Contains(now.In(domain.ServiceLocation()))

	complete := true
	for _, res := range results {
		for _, addr := range addrs {
			if !domain.AddressMatches(addr, res.Record) {
				continue
			}
			switch s.deliver(ctx, sub, addr, res.Record, silent) {
			case deliveryOK, deliverySkipped:
			case deliveryBlocked:
				return
			case deliveryFailed:
				complete = false
			}
		}
	}

	if complete {
		s.finishCycle(ctx, sub)
	}
}

type deliveryOutcome int

const (
	deliveryOK deliveryOutcome = iota
	deliverySkipped
	deliveryFailed
	deliveryBlocked
)

// deliver sends one notification unless a receipt already exists. The
// receipt is written only after a successful hand-off to the transport,
// so a failed send is retried by a later cycle, never dropped with a
// phantom receipt.
func (s *Scheduler) deliver(ctx context.Context, sub domain.SubscriberState, addr domain.TrackedAddress, rec domain.OutageRecord, silent bool) deliveryOutcome {
	key := domain.EventKey(rec.Utility, rec.Fingerprint, addr)

	exists, err := s.receipts.ReceiptExists(ctx, sub.SubscriberID, key)
	if err != nil {
		s.logger.Error("receipt lookup failed", "subscriber_id", sub.SubscriberID, "error", err)
		return deliveryFailed
	}
	if exists {
		return deliverySkipped
	}

	text := FormatNotification(rec, addr)
	if err := s.sender.Send(ctx, sub.SubscriberID, text, silent); err != nil {
		switch {
		case errors.Is(err, telegram.ErrForbidden):
			s.metrics.DeliveryErrors.WithLabelValues("forbidden").Inc()
			if err := s.subs.MarkBlocked(ctx, sub.SubscriberID); err != nil {
				s.logger.Error("mark blocked failed", "subscriber_id", sub.SubscriberID, "error", err)
			}
			return deliveryBlocked
		case errors.Is(err, telegram.ErrRateLimited):
			s.metrics.DeliveryErrors.WithLabelValues("rate_limited").Inc()
		default:
			s.metrics.DeliveryErrors.WithLabelValues("network").Inc()
		}
		s.logger.Warn("send failed", "subscriber_id", sub.SubscriberID, "error", err)
		return deliveryFailed
	}

	s.metrics.NotificationsSent.Inc()
	if silent {
		s.metrics.NotificationsSilent.Inc()
	}

	created, err := s.receipts.InsertReceiptIfAbsent(ctx, domain.DeliveryReceipt{
		SubscriberID: sub.SubscriberID,
		EventKey:     key,
		SentAt:       clock.Now(),
	})
	if err != nil {
		// The message is out but unrecorded; a repeat on the next cycle is
		// the accepted failure mode here.
		s.logger.Error("record receipt failed", "subscriber_id", sub.SubscriberID, "event_key", key, "error", err)
		return deliveryFailed
	}
	if !created {
		s.logger.Warn("receipt already recorded by concurrent cycle",
			"subscriber_id", sub.SubscriberID, "event_key", key)
	}
	return deliveryOK
}

func (s *Scheduler) finishCycle(ctx context.Context, sub domain.SubscriberState) {
	if err := s.subs.UpdateLastCheck(ctx, sub.SubscriberID, clock.Now()); err != nil {
		s.logger.Error("update last_check failed", "subscriber_id", sub.SubscriberID, "error", err)
	}
}
