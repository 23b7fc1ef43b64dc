// Package restore runs the per-annotation polling loops that re-anchor
// stored annotations against a freshly loaded page. Each annotation
// gets an independent, cancellable loop with a bounded attempt budget;
// one annotation failing to anchor never blocks the others.
//
// Typical usage:
//
//	g := restore.NewGroup(restore.Options{})
//	for _, ann := range anns {
//		g.Go(ctx, ann.ID, attemptFor(ann))
//	}
//	g.Wait()
//	results := g.Results()
package restore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Verdict is the outcome of one restoration attempt.
type Verdict int

const (
	// Retry means the page is not ready for this annotation yet
	// (quote absent or resolver exhausted); poll again.
	Retry Verdict = iota
	// Restored means markers were rendered this attempt.
	Restored
	// AlreadyDone means the idempotency guard found the annotation's
	// markers already present; nothing was mutated.
	AlreadyDone
)

// Attempt runs one restoration try for one annotation. Implementations
// take the session lock themselves; the loop only schedules.
type Attempt func(ctx context.Context) Verdict

// Status of one annotation after its loop finished.
type Status string

const (
	StatusRestored  Status = "restored"
	StatusAlready   Status = "already_present"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Result is the terminal outcome of one annotation's loop.
type Result struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`
}

// Options tunes the polling loops.
type Options struct {
	// Interval between attempts. Default: 500ms.
	Interval time.Duration
	// Attempts is the budget per annotation. Default: 20.
	Attempts int
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Attempts <= 0 {
		o.Attempts = 20
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Group tracks a set of restoration loops. Safe for concurrent use.
type Group struct {
	opts Options
	wg   sync.WaitGroup

	scheduled atomic.Int64
	restored  atomic.Int64
	already   atomic.Int64
	timedOut  atomic.Int64

	mu      sync.Mutex
	results []Result
}

// Stats are point-in-time counters. Scheduled minus the other three is
// the number of loops still running or cancelled.
type Stats struct {
	Scheduled   int64 `json:"scheduled"`
	Restored    int64 `json:"restored"`
	AlreadyDone int64 `json:"already_done"`
	TimedOut    int64 `json:"timed_out"`
}

// NewGroup creates a Group. Call Go per annotation, then Wait.
func NewGroup(opts Options) *Group {
	opts.defaults()
	return &Group{opts: opts}
}

// Stats returns the current counters.
func (g *Group) Stats() Stats {
	return Stats{
		Scheduled:   g.scheduled.Load(),
		Restored:    g.restored.Load(),
		AlreadyDone: g.already.Load(),
		TimedOut:    g.timedOut.Load(),
	}
}

// Results returns the terminal outcomes collected so far, in completion
// order.
func (g *Group) Results() []Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Result, len(g.results))
	copy(out, g.results)
	return out
}

// Go spawns one polling loop for an annotation. The first attempt runs
// immediately; subsequent attempts tick at Interval until the verdict
// is terminal, the budget is exhausted, or ctx is cancelled.
func (g *Group) Go(ctx context.Context, id string, attempt Attempt) {
	g.scheduled.Add(1)
	g.wg.Add(1)
	go g.loop(ctx, id, attempt)
}

// Wait blocks until every spawned loop has finished.
func (g *Group) Wait() {
	g.wg.Wait()
}

func (g *Group) loop(ctx context.Context, id string, attempt Attempt) {
	defer g.wg.Done()
	log := g.opts.Logger

	ticker := time.NewTicker(g.opts.Interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		switch attempt(ctx) {
		case Restored:
			g.restored.Add(1)
			g.finish(Result{ID: id, Status: StatusRestored, Attempts: n})
			log.Debug("restore: annotation restored", "id", id, "attempts", n)
			return
		case AlreadyDone:
			g.already.Add(1)
			g.finish(Result{ID: id, Status: StatusAlready, Attempts: n})
			log.Debug("restore: annotation already present", "id", id)
			return
		}

		if n >= g.opts.Attempts {
			g.timedOut.Add(1)
			g.finish(Result{ID: id, Status: StatusTimedOut, Attempts: n})
			log.Warn("restore: attempts exhausted", "id", id, "attempts", n)
			return
		}

		select {
		case <-ctx.Done():
			g.finish(Result{ID: id, Status: StatusCancelled, Attempts: n})
			log.Debug("restore: cancelled", "id", id, "attempts", n)
			return
		case <-ticker.C:
		}
	}
}

func (g *Group) finish(r Result) {
	g.mu.Lock()
	g.results = append(g.results, r)
	g.mu.Unlock()
}
