package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"directory-sync/core/audit"
	"directory-sync/core/reconcile"

	"go.uber.org/zap"
)

// ErrUnknownIdentifier is returned by Inspect when the configured identifier
// field cannot be resolved.
var ErrUnknownIdentifier = errors.New("identifier field is not a user field")

// SourceRepository is the source store with single-user lookup.
type SourceRepository interface {
	reconcile.Source
	Find(ctx context.Context, field reconcile.Field, value string) (*reconcile.User, error)
}

// Verifier checks that a store has the expected layout.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Inspection compares one user between source and target.
type Inspection struct {
	Identifier  string          `json:"identifier"`
	Source      *reconcile.User `json:"source"`
	Target      *reconcile.User `json:"target"`
	NeedsUpdate bool            `json:"needs_update"`
	Changed     []string        `json:"changed,omitempty"`
}

// Service runs user synchronization passes.
type Service struct {
	source SourceRepository
	target reconcile.Target
	runner *reconcile.Runner
	audit  *audit.Writer
	logger *zap.Logger
	cfg    reconcile.Config

	mu       sync.Mutex
	archived map[bool]string
}

// NewService compiles the sync configuration and builds the engine.
// auditWriter may be nil to disable report archiving.
func NewService(source SourceRepository, target reconcile.Target, cfg reconcile.Config, auditWriter *audit.Writer, logger *zap.Logger, observers ...reconcile.Observer) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mapping, selector, unresolved, err := cfg.Compile()
	if err != nil {
		return nil, err
	}
	for _, entry := range unresolved {
		logger.Warn("Ignoring field mapping with unknown user field", zap.String("mapping", entry))
	}
	if !selector.Resolvable() {
		logger.Warn("Identifier field is not a user field, every user resolves to an empty identifier",
			zap.String("identifier", selector.Name()))
	}

	engine := reconcile.NewEngine(source, target, mapping, selector, logger, cfg.Options(), observers...)
	return &Service{
		source:   source,
		target:   target,
		runner:   reconcile.NewRunner(engine, cfg.ReportTTL()),
		audit:    auditWriter,
		logger:   logger,
		cfg:      cfg,
		archived: make(map[bool]string),
	}, nil
}

// DefaultDryRun is the mode used when a caller does not choose one.
func (s *Service) DefaultDryRun() bool {
	return s.cfg.DryRun
}

// Verify checks the layout of every store that supports it.
func (s *Service) Verify(ctx context.Context) error {
	if v, ok := s.source.(Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}
	if v, ok := s.target.(Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	return nil
}

// Sync runs a pass and archives its report when auditing is enabled.
// The report is returned even when the pass failed.
func (s *Service) Sync(ctx context.Context, dryRun bool) (*reconcile.Report, error) {
	report, err := s.runner.Run(ctx, dryRun)
	s.archive(ctx, report)
	return report, err
}

// LastReport returns the most recent report for the mode.
func (s *Service) LastReport(dryRun bool) (*reconcile.Report, bool) {
	return s.runner.Last(dryRun)
}

// Inspect looks identifier up in source and target and reports the difference.
// It returns a nil Inspection when the source has no such user.
func (s *Service) Inspect(ctx context.Context, identifier string) (*Inspection, error) {
	engine := s.runner.Engine()
	selector := reconcile.NewSelector(s.cfg.Identifier)
	if !selector.Resolvable() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentifier, selector.Name())
	}

	src, err := s.source.Find(ctx, selector.Field(), identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s in source: %w", identifier, err)
	}
	if src == nil {
		return nil, nil
	}

	tgt, err := s.target.Resolve(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s in target: %w", identifier, err)
	}

	result := &Inspection{Identifier: identifier, Source: src, Target: tgt}
	if tgt != nil {
		result.NeedsUpdate = engine.NeedsUpdate(*src, *tgt)
		result.Changed = engine.Mapping().Diff(*src, *tgt)
	}
	return result, nil
}

// archive uploads report. Failures are logged; they do not fail the pass.
func (s *Service) archive(ctx context.Context, report *reconcile.Report) {
	if s.audit == nil || report == nil {
		return
	}
	// Reused and shared reports are archived once.
	s.mu.Lock()
	if s.archived[report.DryRun] == report.PassID {
		s.mu.Unlock()
		return
	}
	s.archived[report.DryRun] = report.PassID
	s.mu.Unlock()

	key, err := s.audit.Write(ctx, report)
	if err != nil {
		s.logger.Error("Failed to archive sync report", zap.String("pass_id", report.PassID), zap.Error(err))
		return
	}
	s.logger.Info("Archived sync report", zap.String("pass_id", report.PassID), zap.String("key", key))
}
