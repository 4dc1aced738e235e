package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrSynchronization is the kind of every error returned by Engine.Reconcile.
	ErrSynchronization = errors.New("failed to synchronize users")

	// ErrSourceFetch marks a failure while obtaining the source record set.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrTargetResolve marks a failure while looking a user up in the target.
	ErrTargetResolve = errors.New("target resolve failed")

	// ErrTargetPersist marks a failure while writing a user to the target.
	ErrTargetPersist = errors.New("target persist failed")

	// ErrInvalidMapping is returned by strict mapping validation.
	ErrInvalidMapping = errors.New("invalid field mapping")
)

// SyncError wraps a collaborator failure that aborted (or, with isolation,
// skipped) reconciliation. errors.Is matches ErrSynchronization, the Stage
// sentinel and anything in the Cause chain.
type SyncError struct {
	// Stage is one of ErrSourceFetch, ErrTargetResolve or ErrTargetPersist.
	Stage error
	// Identifier is the user being processed; empty for source fetch failures.
	Identifier string
	// Cause is the original collaborator error.
	Cause error
}

func (e *SyncError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s: %s for %q: %v", ErrSynchronization, e.Stage, e.Identifier, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", ErrSynchronization, e.Stage, e.Cause)
}

func (e *SyncError) Is(target error) bool {
	return target == ErrSynchronization || (e.Stage != nil && target == e.Stage)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// IsSourceFetch reports whether err is a synchronization failure caused by the source fetch.
func IsSourceFetch(err error) bool { return errors.Is(err, ErrSourceFetch) }

func newSyncError(stage error, identifier string, cause error) *SyncError {
	return &SyncError{Stage: stage, Identifier: identifier, Cause: cause}
}
