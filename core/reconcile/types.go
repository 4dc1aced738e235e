package reconcile

import "time"

// Outcome is the decision reached for one record, or for the pass as a whole.
type Outcome string

const (
	// OutcomeNotFound means the source user has no counterpart in the target.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeUpdated means the target was overwritten with the source values.
	OutcomeUpdated Outcome = "updated"
	// OutcomeWouldUpdate means the target is stale but the pass is a dry run.
	OutcomeWouldUpdate Outcome = "would_update"
	// OutcomeUpToDate means every mapped field already matches.
	OutcomeUpToDate Outcome = "up_to_date"
	// OutcomeFailed means resolve or persist failed and the record was skipped.
	// Only emitted when failures are isolated per record.
	OutcomeFailed Outcome = "failed"
	// OutcomePassFailed means the pass aborted.
	OutcomePassFailed Outcome = "pass_failed"
)

// Event is one entry of the decision trail.
type Event struct {
	// PassID identifies the reconciliation pass.
	PassID string `json:"pass_id"`

	// Identifier is the lookup key of the record; empty for pass events.
	Identifier string `json:"identifier,omitempty"`

	// Outcome is the decision.
	Outcome Outcome `json:"outcome"`

	// DryRun is set when the pass does not persist changes.
	DryRun bool `json:"dry_run"`

	// Changed lists the mapping keys that differ. Only set for
	// updated and would_update events.
	Changed []string `json:"changed,omitempty"`

	// Err is the cause for failed and pass_failed events.
	Err error `json:"-"`

	// Reason is Err's message, kept for serialized audit records.
	Reason string `json:"reason,omitempty"`
}

// Summary provides aggregate counts for a pass.
type Summary struct {
	Total       int `json:"total"`
	NotFound    int `json:"not_found"`
	Updated     int `json:"updated"`
	WouldUpdate int `json:"would_update"`
	UpToDate    int `json:"up_to_date"`
	Failed      int `json:"failed"`
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeNotFound:
		s.NotFound++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeWouldUpdate:
		s.WouldUpdate++
	case OutcomeUpToDate:
		s.UpToDate++
	case OutcomeFailed:
		s.Failed++
	}
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	// PassID identifies the pass in logs and audit records.
	PassID string `json:"pass_id"`

	// DryRun is set when no change was persisted.
	DryRun bool `json:"dry_run"`

	// StartedAt and FinishedAt bound the pass.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Decisions holds one event per processed record, in processing order.
	Decisions []Event `json:"decisions"`

	// Summary counts Decisions by outcome. Total is the number of source records
	// fetched, which exceeds the processed count when the pass aborted.
	Summary Summary `json:"summary"`

	// Error is the failure message of an aborted pass.
	Error string `json:"error,omitempty"`
}

// Options controls engine behaviour.
type Options struct {
	// Workers is the number of records reconciled concurrently.
	// Values below 2 keep strictly sequential processing.
	Workers int

	// IsolateFailures keeps the pass going when resolving or persisting a single
	// record fails; the record is reported as failed instead of aborting the pass.
	IsolateFailures bool
}
