// Package progress tracks completion of pipeline steps and notifies observers.
//
// Totals grow while a chain runs because prerequisite steps are discovered
// lazily, so the ratio is an approximation that may temporarily regress.
package progress

import (
	"errors"
	"sync"
)

// ErrNilObserver is returned when registering a nil observer.
var ErrNilObserver = errors.New("observer must be a non-nil function")

// Snapshot is the value passed to observers after every update.
type Snapshot struct {
	Completed int
	Total     int
	Ratio     float64
	Stage     string
}

// Observer receives progress snapshots synchronously.
type Observer func(Snapshot)

// Tracker holds progress counters, the current stage label and observers.
// It is safe for concurrent use. Observers are called outside the lock.
type Tracker struct {
	mu        sync.Mutex
	completed int
	total     int
	stage     string
	stack     []string
	observers []Observer
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Listen registers an observer. Observers are notified in registration order.
func (t *Tracker) Listen(fn Observer) error {
	if fn == nil {
		return ErrNilObserver
	}
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
	return nil
}

// AdvanceCompleted adds n to the completed counter. Negative values are ignored.
func (t *Tracker) AdvanceCompleted(n int) {
	t.update(func() {
		if n > 0 {
			t.completed += n
		}
	})
}

// AdvanceTotal adds n to the total counter. Negative values are ignored.
func (t *Tracker) AdvanceTotal(n int) {
	t.update(func() {
		if n > 0 {
			t.total += n
		}
	})
}

// SetStage changes the current stage label.
func (t *Tracker) SetStage(label string) {
	t.update(func() {
		t.stage = label
	})
}

// Push records a newly queued step: its name goes on the replay stack
// and the total grows by one.
func (t *Tracker) Push(name string) {
	t.update(func() {
		t.stack = append(t.stack, name)
		t.total++
	})
}

// Snapshot returns the current state without notifying observers.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Stack returns a copy of the names of every step queued so far.
func (t *Tracker) Stack() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stack...)
}

func (t *Tracker) update(mutate func()) {
	t.mu.Lock()
	mutate()
	snap := t.snapshotLocked()
	observers := append([]Observer(nil), t.observers...)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Completed: t.completed,
		Total:     t.total,
		Ratio:     Ratio(t.completed, t.total),
		Stage:     t.stage,
	}
}

// Ratio returns completed/total, or 0 when total is 0.
func Ratio(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total)
}
