// Package timer provides a registry of named timer slots. Scheduling into
// a slot atomically cancels whatever was pending there, which is the
// discipline the status tracker relies on: one timer per concern, never a
// leaked duplicate, nothing firing after teardown.
package timer

import (
	"sync"
	"time"
)

// Registry owns a set of named one-shot and repeating timers. Callbacks
// run on timer goroutines; holders guard their own state. A callback may
// safely reschedule its own or other slots.
type Registry struct {
	mu       sync.Mutex
	slots    map[string]*time.Timer
	tickers  map[string]*time.Ticker
	done     map[string]chan struct{}
	inFlight sync.WaitGroup
	stopped  bool
}

func NewRegistry() *Registry {
	return &Registry{
		slots:   make(map[string]*time.Timer),
		tickers: make(map[string]*time.Ticker),
		done:    make(map[string]chan struct{}),
	}
}

// Schedule arms a one-shot timer in the named slot, canceling any timer
// (one-shot or repeating) already occupying it. fn does not fire after
// Stop or after the slot is rescheduled.
func (r *Registry) Schedule(slot string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.cancelLocked(slot)

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		// Rescheduled or stopped between firing and acquiring the lock.
		if r.stopped || r.slots[slot] != t {
			r.mu.Unlock()
			return
		}
		delete(r.slots, slot)
		r.inFlight.Add(1)
		r.mu.Unlock()
		fn()
		r.inFlight.Done()
	})
	r.slots[slot] = t
}

// Repeat arms a repeating timer in the named slot with the same
// cancel-then-set semantics as Schedule.
func (r *Registry) Repeat(slot string, every time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.cancelLocked(slot)

	ticker := time.NewTicker(every)
	done := make(chan struct{})
	r.tickers[slot] = ticker
	r.done[slot] = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// A tick can sit buffered in the channel while the slot is
				// canceled or the registry stops; re-check ownership under
				// the lock before invoking, same as the one-shot path.
				r.mu.Lock()
				if r.stopped || r.tickers[slot] != ticker {
					r.mu.Unlock()
					return
				}
				r.inFlight.Add(1)
				r.mu.Unlock()
				fn()
				r.inFlight.Done()
			}
		}
	}()
}

// Cancel clears the named slot. A no-op for empty slots.
func (r *Registry) Cancel(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(slot)
}

// Pending reports whether the named slot currently holds a timer.
func (r *Registry) Pending(slot string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[slot] != nil || r.tickers[slot] != nil
}

// CancelAll clears every slot without shutting the registry down.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slot := range r.slots {
		r.cancelLocked(slot)
	}
	for slot := range r.tickers {
		r.cancelLocked(slot)
	}
}

// Stop cancels every slot and marks the registry terminal: once Stop
// returns no callback runs or will run, and further Schedule/Repeat calls
// are ignored. Blocks until in-flight callbacks finish, so it must not be
// called from inside a callback.
func (r *Registry) Stop() {
	r.mu.Lock()
	for slot := range r.slots {
		r.cancelLocked(slot)
	}
	for slot := range r.tickers {
		r.cancelLocked(slot)
	}
	r.stopped = true
	r.mu.Unlock()
	r.inFlight.Wait()
}

func (r *Registry) cancelLocked(slot string) {
	if t := r.slots[slot]; t != nil {
		t.Stop()
		delete(r.slots, slot)
	}
	if tk := r.tickers[slot]; tk != nil {
		tk.Stop()
		close(r.done[slot])
		delete(r.tickers, slot)
		delete(r.done, slot)
	}
}
