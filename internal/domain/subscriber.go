package domain

import "time"

// Tier is a subscription level. Tiers are ordered; higher tiers unlock
// shorter poll intervals.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierUltra   Tier = "ultra"
)

// tierIntervals maps each tier to the minimum poll interval it allows.
var tierIntervals = map[Tier]time.Duration{
	TierFree:    6 * time.Hour,
	TierBasic:   time.Hour,
	TierPremium: 30 * time.Minute,
	TierUltra:   15 * time.Minute,
}

// MinInterval returns the shortest poll interval a tier permits.
// Unrecognized tiers fall back to the free interval.
func (t Tier) MinInterval() time.Duration {
	if d, ok := tierIntervals[t]; ok {
		return d
	}
	return tierIntervals[TierFree]
}

// AdminInterval is the interval administrators always get, regardless of
// tier: the shortest one offered.
func AdminInterval() time.Duration { return tierIntervals[TierUltra] }

// QuietWindow is a daily local-time window during which notifications are
// delivered without sound. Start after End means the window wraps
// midnight (e.g. 23:00 to 07:00).
type QuietWindow struct {
	Enabled bool
	Start   time.Duration // offset from local midnight
	End     time.Duration
}

// Contains reports whether the local wall-clock time of t falls inside
// the window. A disabled window contains nothing.
func (w QuietWindow) Contains(t time.Time) bool {
	if !w.Enabled {
		return false
	}
	day := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	if w.Start <= w.End {
		return day >= w.Start && day < w.End
	}
	// Wrapped window spans 00:00.
	return day >= w.Start || day < w.End
}

// SubscriberState is the engine's view of one subscriber: poll cadence,
// quiet hours, and delivery eligibility. The scheduler owns LastCheck;
// the subscriber-facing layer owns everything else.
type SubscriberState struct {
	SubscriberID int64
	Tier         Tier
	Admin        bool
	PollInterval time.Duration
	LastCheck    time.Time
	Quiet        QuietWindow
	SoundEnabled bool
	// Blocked is set when the transport reports the subscriber has blocked
	// the bot; blocked subscribers are skipped until re-subscription.
	Blocked bool
}

// EffectiveInterval resolves the poll interval actually used for gating:
// the subscriber's chosen interval clamped to what their tier allows,
// with administrators always on the shortest interval.
func (s SubscriberState) EffectiveInterval() time.Duration {
	if s.Admin {
		return AdminInterval()
	}
	min := s.Tier.MinInterval()
	if s.PollInterval < min {
		return min
	}
	return s.PollInterval
}

// Due reports whether enough time has passed since the last completed
// check for the subscriber to be polled again.
func (s SubscriberState) Due(now time.Time) bool {
	return now.Sub(s.LastCheck) >= s.EffectiveInterval()
}
