package reconcile

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cachedReport is the last report produced for one mode (dry run or apply).
type cachedReport struct {
	report *Report
	built  time.Time
}

// Runner serializes passes triggered from several callers (HTTP requests, the
// CLI) and keeps the most recent report per mode.
//
// Concurrent requests for the same mode share one pass through singleflight.
// A dry-run report younger than TTL is served without running a new pass;
// apply passes always run. A dry-run report is only kept when no apply pass
// started or finished while it was being built.
type Runner struct {
	engine *Engine
	ttl    time.Duration

	mu      sync.RWMutex
	reports map[bool]cachedReport
	applies uint64
	sf      singleflight.Group
}

// NewRunner creates a runner for engine. A zero ttl disables report reuse.
func NewRunner(engine *Engine, ttl time.Duration) *Runner {
	return &Runner{
		engine:  engine,
		ttl:     ttl,
		reports: make(map[bool]cachedReport),
	}
}

// Engine returns the wrapped engine.
func (r *Runner) Engine() *Engine {
	return r.engine
}

// Run executes a pass, or joins one already in flight for the same mode.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*Report, error) {
	if dryRun {
		if rep, ok := r.fresh(dryRun); ok {
			return rep, nil
		}
	}

	res, err, _ := r.sf.Do(strconv.FormatBool(dryRun), func() (any, error) {
		if dryRun {
			gen := r.generation()
			rep, err := r.engine.Reconcile(ctx, true)
			r.storeDryRun(gen, rep)
			return rep, err
		}

		// Applied changes make any dry-run report stale, including one
		// still being built.
		r.bump()
		rep, err := r.engine.Reconcile(ctx, false)
		r.store(false, rep)
		r.bump()
		return rep, err
	})
	rep, _ := res.(*Report)
	return rep, err
}

// Last returns the most recent report for the mode, if any.
func (r *Runner) Last(dryRun bool) (*Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.reports[dryRun]
	return c.report, ok
}

func (r *Runner) fresh(dryRun bool) (*Report, bool) {
	if r.ttl == 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.reports[dryRun]
	if !ok || c.report.Error != "" || time.Since(c.built) > r.ttl {
		return nil, false
	}
	return c.report, true
}

func (r *Runner) store(dryRun bool, rep *Report) {
	if rep == nil {
		return
	}
	r.mu.Lock()
	r.reports[dryRun] = cachedReport{report: rep, built: time.Now()}
	r.mu.Unlock()
}

// storeDryRun keeps rep unless an apply pass ran since gen was read.
func (r *Runner) storeDryRun(gen uint64, rep *Report) {
	if rep == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applies != gen {
		return
	}
	r.reports[true] = cachedReport{report: rep, built: time.Now()}
}

func (r *Runner) generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applies
}

// bump marks an apply pass boundary and drops the dry-run report.
func (r *Runner) bump() {
	r.mu.Lock()
	r.applies++
	delete(r.reports, true)
	r.mu.Unlock()
}
