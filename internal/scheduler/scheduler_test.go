package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitywatch/outage-sentinel/internal/adapter/telegram"
	"github.com/utilitywatch/outage-sentinel/internal/domain"
	"github.com/utilitywatch/outage-sentinel/internal/ingest"
	"github.com/utilitywatch/outage-sentinel/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type mockRunner struct {
	mu      sync.Mutex
	calls   int
	results []ingest.Result
}

func (m *mockRunner) RunCycle(context.Context) []ingest.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.results
}

type mockSubStore struct {
	mu         sync.Mutex
	subs       []domain.SubscriberState
	addrs      map[int64][]domain.TrackedAddress
	lastChecks map[int64]time.Time
	blocked    []int64
}

func (m *mockSubStore) ListActiveSubscribers(context.Context) ([]domain.SubscriberState, error) {
	return m.subs, nil
}

func (m *mockSubStore) ListTrackedAddresses(_ context.Context, id int64) ([]domain.TrackedAddress, error) {
	return m.addrs[id], nil
}

func (m *mockSubStore) UpdateLastCheck(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastChecks == nil {
		m.lastChecks = make(map[int64]time.Time)
	}
	m.lastChecks[id] = at
	return nil
}

func (m *mockSubStore) MarkBlocked(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = append(m.blocked, id)
	return nil
}

type mockReceipts struct {
	mu       sync.Mutex
	existing map[string]bool
}

func receiptKey(id int64, eventKey string) string {
	return fmt.Sprintf("%d|%s", id, eventKey)
}

func (m *mockReceipts) ReceiptExists(_ context.Context, id int64, eventKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[receiptKey(id, eventKey)], nil
}

func (m *mockReceipts) InsertReceiptIfAbsent(_ context.Context, r domain.DeliveryReceipt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	k := receiptKey(r.SubscriberID, r.EventKey)
	if m.existing[k] {
		return false, nil
	}
	m.existing[k] = true
	return true, nil
}

type sentMessage struct {
	subscriberID int64
	text         string
	silent       bool
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockSender) Send(_ context.Context, id int64, text string, silent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{id, text, silent})
	return nil
}

func yerevanRecord() domain.OutageRecord {
	return domain.OutageRecord{
		Fingerprint:    domain.Fingerprint("test announcement"),
		Utility:        domain.UtilityWater,
		Status:         domain.StatusPlanned,
		Regions:        []string{"Yerevan"},
		Streets:        []string{"Abovyan street"},
		TranslatedText: "Planned water outage in Yerevan, Abovyan street",
	}
}

func subscriber(id int64) domain.SubscriberState {
	return domain.SubscriberState{
		SubscriberID: id,
		Tier:         domain.TierUltra,
		SoundEnabled: true,
	}
}

func abovyanAddr(id int64) domain.TrackedAddress {
	return domain.TrackedAddress{SubscriberID: id, Region: "Yerevan", Street: "Abovyan street"}
}

func newTestScheduler(runner *mockRunner, subs *mockSubStore, receipts *mockReceipts, sender *mockSender) *Scheduler {
	return New(runner, subs, receipts, sender, 4, testLogger(), observability.NewMetricsForTesting())
}

func TestTick_DeliversMatchingOutage(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord(), Created: true}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	receipts := &mockReceipts{}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, receipts, sender)

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1), sender.sent[0].subscriberID)
	assert.Contains(t, sender.sent[0].text, "Water outage")
	assert.Contains(t, sender.sent[0].text, "Yerevan, Abovyan street")
	assert.False(t, sender.sent[0].silent)
	assert.Equal(t, fake.Now(), subs.lastChecks[1])
	assert.Equal(t, 1, runner.calls)
}

func TestTick_NotDueSubscriberSkipped(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	sub := subscriber(1)
	sub.LastCheck = fake.Now().Add(-5 * time.Minute) // ultra tier needs 15m
	runner := &mockRunner{}
	subs := &mockSubStore{subs: []domain.SubscriberState{sub}}
	s := newTestScheduler(runner, subs, &mockReceipts{}, &mockSender{})

	require.NoError(t, s.Tick(context.Background()))

	assert.Zero(t, runner.calls)
	assert.Empty(t, subs.lastChecks)
}

func TestTick_AtMostOncePerEvent(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	receipts := &mockReceipts{}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, receipts, sender)

	require.NoError(t, s.Tick(context.Background()))
	require.Len(t, sender.sent, 1)

	// The same record surfaces again on the next due cycle.
	fake.Advance(16 * time.Minute)
	subs.subs[0].LastCheck = subs.lastChecks[1]
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, sender.sent, 1)
	assert.Equal(t, fake.Now(), subs.lastChecks[1])
}

func TestTick_TwoMatchingAddressesTwoNotifications(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	rec := yerevanRecord()
	rec.Streets = []string{"Abovyan street", "Mashtots avenue"}
	runner := &mockRunner{results: []ingest.Result{{Record: rec}}}
	subs := &mockSubStore{
		subs: []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {
			{SubscriberID: 1, Region: "Yerevan", Street: "Abovyan street"},
			{SubscriberID: 1, Region: "Yerevan", Street: "Mashtots avenue"},
		}},
	}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, &mockReceipts{}, sender)

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, sender.sent, 2)
}

func TestTick_QuietHoursSilent(t *testing.T) {
	// 23:30 in Asia/Yerevan (UTC+4) is 19:30 UTC.
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 19, 30, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	sub := subscriber(1)
	sub.Quiet = domain.QuietWindow{Enabled: true, Start: 23 * time.Hour, End: 7 * time.Hour}
	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{sub},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, &mockReceipts{}, sender)

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.True(t, sender.sent[0].silent)
}

func TestTick_SoundDisabledAlwaysSilent(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	sub := subscriber(1)
	sub.SoundEnabled = false
	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{sub},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, &mockReceipts{}, sender)

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.True(t, sender.sent[0].silent)
}

func TestTick_ForbiddenMarksBlocked(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	receipts := &mockReceipts{}
	sender := &mockSender{err: telegram.ErrForbidden}
	s := newTestScheduler(runner, subs, receipts, sender)

	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, []int64{1}, subs.blocked)
	assert.Empty(t, receipts.existing)
	assert.Empty(t, subs.lastChecks, "an aborted cycle must not advance last_check")
}

func TestTick_NetworkFailureRetriesNextTick(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {abovyanAddr(1)}},
	}
	receipts := &mockReceipts{}
	sender := &mockSender{err: telegram.ErrNetwork}
	s := newTestScheduler(runner, subs, receipts, sender)

	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, receipts.existing)
	assert.Empty(t, subs.lastChecks)

	// Transport recovers; the subscriber is still due and gets the message.
	sender.err = nil
	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, fake.Now(), subs.lastChecks[1])
}

func TestTick_NoMatchStillAdvancesLastCheck(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	runner := &mockRunner{results: []ingest.Result{{Record: yerevanRecord()}}}
	subs := &mockSubStore{
		subs:  []domain.SubscriberState{subscriber(1)},
		addrs: map[int64][]domain.TrackedAddress{1: {{SubscriberID: 1, Region: "Gyumri"}}},
	}
	sender := &mockSender{}
	s := newTestScheduler(runner, subs, &mockReceipts{}, sender)

	require.NoError(t, s.Tick(context.Background()))

	assert.Empty(t, sender.sent)
	assert.Equal(t, fake.Now(), subs.lastChecks[1])
}

func TestClaimPreventsOverlap(t *testing.T) {
	s := newTestScheduler(&mockRunner{}, &mockSubStore{}, &mockReceipts{}, &mockSender{})

	assert.True(t, s.claim(7))
	assert.False(t, s.claim(7))
	s.release(7)
	assert.True(t, s.claim(7))
}
