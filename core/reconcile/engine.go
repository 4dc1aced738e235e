package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine reconciles the source user set against a target directory.
type Engine struct {
	source    Source
	target    Target
	mapping   *FieldMapping
	selector  Selector
	logger    *zap.Logger
	observers []Observer
	opts      Options

	newPassID func() string
	now       func() time.Time
}

// NewEngine creates an engine. A nil logger discards log output; a nil
// mapping compares no fields.
func NewEngine(source Source, target Target, mapping *FieldMapping, selector Selector, logger *zap.Logger, opts Options, observers ...Observer) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mapping == nil {
		mapping = &FieldMapping{}
	}
	return &Engine{
		source:    source,
		target:    target,
		mapping:   mapping,
		selector:  selector,
		logger:    logger,
		observers: observers,
		opts:      opts,
		newPassID: uuid.NewString,
		now:       time.Now,
	}
}

// ResolveIdentifier returns the lookup key of user. It never fails: an unknown
// selector or an absent value yields "".
func (e *Engine) ResolveIdentifier(user User) string {
	return e.selector.Identifier(user)
}

// NeedsUpdate reports whether target is stale relative to source on any mapped field.
func (e *Engine) NeedsUpdate(source, target User) bool {
	return e.mapping.NeedsUpdate(source, target)
}

// Mapping returns the compiled field mapping.
func (e *Engine) Mapping() *FieldMapping {
	return e.mapping
}

// Reconcile runs one full pass. With dryRun set, decisions are made and reported
// but nothing is persisted.
//
// A source fetch failure aborts before any target call. Resolve and persist
// failures abort the remaining pass as well unless Options.IsolateFailures is set.
// Updates persisted before an abort stay in effect. The returned report is
// non-nil even on failure and holds the decisions made up to that point.
func (e *Engine) Reconcile(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{
		PassID:    e.newPassID(),
		DryRun:    dryRun,
		StartedAt: e.now(),
		Decisions: []Event{},
	}
	log := e.logger.With(zap.String("pass_id", report.PassID), zap.Bool("dry_run", dryRun))

	users, err := e.source.FetchAll(ctx)
	if err != nil {
		return e.fail(log, report, newSyncError(ErrSourceFetch, "", err))
	}
	report.Summary.Total = len(users)
	log.Info("Retrieved users from source", zap.Int("count", len(users)))

	rec := &recorder{engine: e, log: log, report: report}
	if e.opts.Workers > 1 {
		err = e.runConcurrent(ctx, users, dryRun, rec)
	} else {
		err = e.runSequential(ctx, users, dryRun, rec)
	}
	if err != nil {
		return e.fail(log, report, err)
	}

	report.FinishedAt = e.now()
	s := report.Summary
	log.Info("Synchronization pass completed",
		zap.Int("total", s.Total),
		zap.Int("not_found", s.NotFound),
		zap.Int("updated", s.Updated),
		zap.Int("would_update", s.WouldUpdate),
		zap.Int("up_to_date", s.UpToDate),
		zap.Int("failed", s.Failed),
	)
	return report, nil
}

func (e *Engine) runSequential(ctx context.Context, users []User, dryRun bool, rec *recorder) error {
	for _, user := range users {
		if err := e.process(ctx, user, dryRun, rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runConcurrent(ctx context.Context, users []User, dryRun bool, rec *recorder) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, user := range users {
		// Stop handing out work once a record has aborted the pass.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return e.process(gctx, user, dryRun, rec)
		})
	}
	return g.Wait()
}

// process reconciles a single user and records its decision.
func (e *Engine) process(ctx context.Context, user User, dryRun bool, rec *recorder) error {
	ev, err := e.decide(ctx, user, dryRun)
	if err != nil {
		var syncErr *SyncError
		if e.opts.IsolateFailures && errors.As(err, &syncErr) {
			rec.record(Event{Identifier: syncErr.Identifier, Outcome: OutcomeFailed, Err: err})
			return nil
		}
		return err
	}
	rec.record(ev)
	return nil
}

func (e *Engine) decide(ctx context.Context, user User, dryRun bool) (Event, error) {
	id := e.ResolveIdentifier(user)

	target, err := e.target.Resolve(ctx, id)
	if err != nil {
		return Event{}, newSyncError(ErrTargetResolve, id, err)
	}
	if target == nil {
		return Event{Identifier: id, Outcome: OutcomeNotFound}, nil
	}

	if !e.NeedsUpdate(user, *target) {
		return Event{Identifier: id, Outcome: OutcomeUpToDate}, nil
	}

	changed := e.mapping.Diff(user, *target)
	if dryRun {
		return Event{Identifier: id, Outcome: OutcomeWouldUpdate, Changed: changed}, nil
	}
	if err := e.target.Persist(ctx, user); err != nil {
		return Event{}, newSyncError(ErrTargetPersist, id, err)
	}
	return Event{Identifier: id, Outcome: OutcomeUpdated, Changed: changed}, nil
}

func (e *Engine) fail(log *zap.Logger, report *Report, err error) (*Report, error) {
	report.FinishedAt = e.now()
	report.Error = err.Error()
	log.Error("Error during user synchronization",
		zap.String("outcome", string(OutcomePassFailed)), zap.Error(err))
	e.notify(Event{PassID: report.PassID, Outcome: OutcomePassFailed, DryRun: report.DryRun, Err: err, Reason: err.Error()})
	return report, err
}

func (e *Engine) notify(ev Event) {
	for _, o := range e.observers {
		o.Observe(ev)
	}
}

// recorder appends decisions to the report and fans them out to the log and
// observers. Recording is serialized so each event is delivered whole.
type recorder struct {
	mu     sync.Mutex
	engine *Engine
	log    *zap.Logger
	report *Report
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.PassID = r.report.PassID
	ev.DryRun = r.report.DryRun
	if ev.Err != nil {
		ev.Reason = ev.Err.Error()
	}
	r.report.Decisions = append(r.report.Decisions, ev)
	r.report.Summary.add(ev.Outcome)

	logDecision(r.log, ev)
	r.engine.notify(ev)
}

func logDecision(log *zap.Logger, ev Event) {
	fields := []zap.Field{
		zap.String("identifier", ev.Identifier),
		zap.String("outcome", string(ev.Outcome)),
	}
	switch ev.Outcome {
	case OutcomeNotFound:
		log.Warn("User not found in target system", fields...)
	case OutcomeUpdated, OutcomeWouldUpdate:
		log.Info("User needs update", append(fields, zap.Strings("changed", ev.Changed))...)
	case OutcomeUpToDate:
		log.Info("User is up-to-date in target, no update required", fields...)
	case OutcomeFailed:
		log.Error("User synchronization failed", append(fields, zap.Error(ev.Err))...)
	}
}
