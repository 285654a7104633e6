// Package status tracks whether ordering is open. It polls the remote
// service, detects closed-to-open transitions, runs the deadline countdown
// while a window is open, and wakes itself up when a closed window is due
// to reopen. All timing flows through one timer registry so that teardown
// is a single call and no slot can hold a duplicate timer.
package status

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/timer"
)

// ClosedLabel is the countdown display once the deadline has passed.
const ClosedLabel = "Gesloten"

// Timer slot names. One concern per slot; scheduling into a slot replaces
// whatever was pending there.
const (
	slotPoll          = "poll"
	slotTick          = "deadline-tick"
	slotExpiryRefetch = "expiry-refetch"
	slotNextOpening   = "next-opening"
	slotOpenedTTL     = "opened-dismiss"
	slotWarningTTL    = "warning-dismiss"
)

// Fetcher retrieves the current order-window status.
// Satisfied by *api.Client; narrow interface for testability.
type Fetcher interface {
	FetchStatus(ctx context.Context) (*api.Status, error)
}

// Options are the tracker's timing knobs, normally taken from config.
type Options struct {
	PollInterval  time.Duration
	WarnThreshold time.Duration
	OpenedTTL     time.Duration
	WarningTTL    time.Duration
	SettleDelay   time.Duration
	OpeningBuffer time.Duration
}

// Snapshot is the tracker state handed to the presentation layer. A value
// copy; safe to hold across updates.
type Snapshot struct {
	Status      *api.Status
	Countdown   string // "12m 3s", "45s", ClosedLabel, or "" when no deadline
	Imminent    bool
	ShowOpened  bool // "ordering just opened" notice visible
	ShowWarning bool // imminent-deadline warning visible
	Checking    bool // a showLoading poll is in flight
}

// Tracker polls order status and drives the countdown subsystems.
type Tracker struct {
	fetcher Fetcher
	opts    Options
	timers  *timer.Registry
	now     func() time.Time

	mu          sync.Mutex
	status      *api.Status
	countdown   string
	wasImminent bool
	showOpened  bool
	showWarning bool
	checking    bool
	onChange    func(Snapshot)
	closed      bool
}

func NewTracker(fetcher Fetcher, opts Options) *Tracker {
	return &Tracker{
		fetcher: fetcher,
		opts:    opts,
		timers:  timer.NewRegistry(),
		now:     time.Now,
	}
}

// OnChange registers the single listener notified after every state
// change. Must be set before Start. The listener runs with the tracker
// lock held: it must work from the snapshot it receives and never call
// back into the tracker (Snapshot, Poll, Close would deadlock).
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Start performs the initial poll (with the checking indicator) and arms
// the recurring poll.
func (t *Tracker) Start(ctx context.Context) {
	t.Poll(ctx, true)
	t.timers.Repeat(slotPoll, t.opts.PollInterval, func() {
		t.Poll(context.Background(), false)
	})
}

// Close tears every timer down. No callback fires afterwards.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.timers.Stop()
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Poll fetches the status once and applies it. Failures are swallowed:
// the previous status is kept, the caller gets nil, and the availability
// display simply goes stale. showLoading toggles the checking indicator
// for polls the user explicitly asked for.
func (t *Tracker) Poll(ctx context.Context, showLoading bool) *api.Status {
	if showLoading {
		t.mu.Lock()
		t.checking = true
		t.notifyLocked()
		t.mu.Unlock()
	}

	st, err := t.fetcher.FetchStatus(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if showLoading {
		t.checking = false
	}
	if t.closed {
		return nil
	}
	if err != nil {
		log.Printf("status poll failed (keeping previous): %v", err)
		t.notifyLocked()
		return nil
	}
	t.applyLocked(st)
	t.notifyLocked()
	return st
}

// applyLocked replaces the status wholesale and re-arms the subsystems
// that depend on it.
func (t *Tracker) applyLocked(st *api.Status) {
	prev := t.status
	t.status = st

	// Closed before, open now: one-shot notification, auto-dismissed.
	// A pending dismissal is superseded, not stacked.
	if prev != nil && !prev.IsOpen && st.IsOpen {
		t.showOpened = true
		t.timers.Schedule(slotOpenedTTL, t.opts.OpenedTTL, func() {
			t.mu.Lock()
			t.showOpened = false
			t.notifyLocked()
			t.mu.Unlock()
		})
	}

	// Deadline countdown only runs while open with a known deadline. An
	// already-past deadline settles in one tickLocked call; re-arming the
	// tick for it would just produce a self-canceling tick per poll.
	if st.IsOpen && st.Deadline != nil {
		deadline := *st.Deadline
		t.tickLocked(deadline)
		if deadline.After(t.now()) {
			t.timers.Repeat(slotTick, time.Second, func() {
				t.mu.Lock()
				t.tickLocked(deadline)
				t.notifyLocked()
				t.mu.Unlock()
			})
		}
	} else {
		t.timers.Cancel(slotTick)
		t.countdown = ""
		t.wasImminent = false
		t.showWarning = false
	}

	// Next-opening wake only while closed with a known opening time.
	// Rescheduled wholesale on every status change.
	if !st.IsOpen && st.NextOpening != nil && st.NextOpening.After(t.now()) {
		until := st.NextOpening.Sub(t.now())
		t.timers.Schedule(slotNextOpening, until+t.opts.OpeningBuffer, func() {
			t.Poll(context.Background(), false)
		})
	} else {
		t.timers.Cancel(slotNextOpening)
	}
}

// tickLocked recomputes the countdown display for the given deadline.
// Called once on status apply and then every second.
func (t *Tracker) tickLocked(deadline time.Time) {
	remaining := deadline.Sub(t.now())

	if remaining <= 0 {
		t.countdown = ClosedLabel
		t.wasImminent = false
		t.showWarning = false

		// The tick must stop permanently; later ticks would keep
		// rewriting state and could double-schedule the refetch.
		t.timers.Cancel(slotTick)

		// Exactly one follow-up refetch, after a settle delay. Pending
		// guards the case where several expiry paths race here.
		if !t.timers.Pending(slotExpiryRefetch) {
			t.timers.Schedule(slotExpiryRefetch, t.opts.SettleDelay, func() {
				t.Poll(context.Background(), false)
			})
		}
		return
	}

	imminent := remaining < t.opts.WarnThreshold
	// Edge-triggered against the previous confirmed state: the warning
	// fires the instant the threshold is crossed, not on every tick.
	if imminent && !t.wasImminent {
		t.showWarning = true
		t.timers.Schedule(slotWarningTTL, t.opts.WarningTTL, func() {
			t.mu.Lock()
			t.showWarning = false
			t.notifyLocked()
			t.mu.Unlock()
		})
	}
	t.wasImminent = imminent
	t.countdown = FormatCountdown(remaining)
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Status:      t.status,
		Countdown:   t.countdown,
		Imminent:    t.wasImminent,
		ShowOpened:  t.showOpened,
		ShowWarning: t.showWarning,
		Checking:    t.checking,
	}
}

func (t *Tracker) notifyLocked() {
	if t.onChange != nil && !t.closed {
		t.onChange(t.snapshotLocked())
	}
}

// FormatCountdown renders a remaining duration as "12m 3s", or "45s" once
// under a minute.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(remaining.Minutes())
	seconds := int(remaining.Seconds()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatUntil renders the wait until a future moment in the words the rest
// of the product uses: "enkele ogenblikken" under a minute, "N minuten"
// under an hour, "H uur en M minuten" beyond that. A nil moment reads as
// indefinite.
func FormatUntil(now time.Time, at *time.Time) string {
	if at == nil {
		return "onbepaalde tijd"
	}
	until := at.Sub(now)
	if until < time.Minute {
		return "enkele ogenblikken"
	}

	minutes := int(until.Minutes())
	hours := minutes / 60
	rem := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%d uur en %d %s", hours, rem, minutesWord(rem))
	}
	return fmt.Sprintf("%d %s", minutes, minutesWord(minutes))
}

func minutesWord(n int) string {
	if n == 1 {
		return "minuut"
	}
	return "minuten"
}
