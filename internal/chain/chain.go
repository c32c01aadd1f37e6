// Package chain implements a sequential, lazily growing step queue.
//
// A Chain holds one current value and, once a step fails, one rejection.
// Steps appended with Then run in order when the chain is drained. A step
// may return Defer to splice more steps in front of the remaining queue,
// which is how prerequisite stages are discovered at run time. Every queued
// step is reported to a progress.Tracker: queuing grows the total, starting
// sets the stage label, finishing successfully grows the completed count.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alnah/go-html2pdf/internal/progress"
)

// Func is the body of a step. It receives the value produced by the
// previous step.
type Func func(ctx context.Context, prev any) (any, error)

// RecoverFunc handles a rejection. Returning a nil error clears it.
type RecoverFunc func(ctx context.Context, err error) (any, error)

// Step is one named unit of work.
// A step with only Do is skipped while the chain is rejected.
// A step with only Recover passes the current value through while the
// chain is fulfilled.
type Step struct {
	Name    string
	Do      Func
	Recover RecoverFunc
}

// Deferral is returned by a step body to splice steps into the queue.
type Deferral struct {
	steps []Step
}

// Defer builds a step result that inserts steps before whatever is
// still queued. The spliced steps receive the value the deferring
// step received.
func Defer(steps ...Step) (any, error) {
	return &Deferral{steps: steps}, nil
}

const anonymous = "anonymous"

// ErrStepPanic rejects the chain when a step body or handler panics.
var ErrStepPanic = errors.New("step panicked")

// Chain is a growable queue of steps. Then may be called concurrently
// with Run; drains are serialized.
type Chain struct {
	tracker *progress.Tracker

	mu    sync.Mutex
	queue []Step
	value any
	err   error

	run sync.Mutex
}

// New creates an empty chain reporting to tracker.
// A nil tracker gets a private one.
func New(tracker *progress.Tracker) *Chain {
	if tracker == nil {
		tracker = progress.New()
	}
	return &Chain{tracker: tracker}
}

// Tracker returns the progress tracker of the chain.
func (c *Chain) Tracker() *progress.Tracker {
	return c.tracker
}

// Then appends steps in order and returns the chain.
func (c *Chain) Then(steps ...Step) *Chain {
	for i := range steps {
		if steps[i].Name == "" {
			steps[i].Name = anonymous
		}
	}

	c.mu.Lock()
	c.queue = append(c.queue, steps...)
	c.mu.Unlock()

	for _, s := range steps {
		c.tracker.Push(s.Name)
	}
	return c
}

// Pending returns the number of queued steps not yet started.
func (c *Chain) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Err returns the current rejection, if any.
func (c *Chain) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run drains the queue and returns the settled value and rejection.
// Cancellation of ctx is observed between steps and becomes a rejection.
func (c *Chain) Run(ctx context.Context) (any, error) {
	c.run.Lock()
	defer c.run.Unlock()

	for {
		step, ok := c.pop()
		if !ok {
			break
		}
		c.invoke(ctx, step)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}

// Future drains the queue in the background. The returned Future carries
// only the settled outcome.
func (c *Chain) Future(ctx context.Context) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		f.value, f.err = c.Run(ctx)
		close(f.done)
	}()
	return f
}

func (c *Chain) pop() (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Step{}, false
	}
	s := c.queue[0]
	c.queue[0] = Step{}
	c.queue = c.queue[1:]
	return s, true
}

func (c *Chain) invoke(ctx context.Context, s Step) {
	c.mu.Lock()
	prev, rejection := c.value, c.err
	if rejection == nil {
		if err := ctx.Err(); err != nil {
			c.err = err
			rejection = err
		}
	}
	c.mu.Unlock()

	var (
		value any
		err   error
	)
	switch {
	case rejection != nil && s.Recover == nil:
		return
	case rejection == nil && s.Do == nil:
		c.tracker.SetStage(s.Name)
		c.tracker.AdvanceCompleted(1)
		return
	case rejection != nil:
		c.tracker.SetStage(s.Name)
		value, err = guard(s.Name, func() (any, error) { return s.Recover(ctx, rejection) })
	default:
		c.tracker.SetStage(s.Name)
		value, err = guard(s.Name, func() (any, error) { return s.Do(ctx, prev) })
	}

	if err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return
	}

	if d, ok := value.(*Deferral); ok {
		c.splice(d.steps)
		value = prev
	}

	c.mu.Lock()
	c.value, c.err = value, nil
	c.mu.Unlock()
	c.tracker.AdvanceCompleted(1)
}

// guard runs fn and turns a panic into an ErrStepPanic rejection.
func guard(name string, fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("%w: %s: %v", ErrStepPanic, name, r)
		}
	}()
	return fn()
}

func (c *Chain) splice(steps []Step) {
	if len(steps) == 0 {
		return
	}
	for i := range steps {
		if steps[i].Name == "" {
			steps[i].Name = anonymous
		}
	}

	c.mu.Lock()
	queue := make([]Step, 0, len(steps)+len(c.queue))
	queue = append(queue, steps...)
	queue = append(queue, c.queue...)
	c.queue = queue
	c.mu.Unlock()

	for _, s := range steps {
		c.tracker.Push(s.Name)
	}
}

// Future is the settled outcome of a drained chain, stripped of every
// pipeline capability.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Done is closed once the chain settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the chain settles or ctx ends.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
