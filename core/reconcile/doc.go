// Package reconcile reconciles user records from an authoritative source store
// against a target directory store.
//
// # Architecture
//
// The package consists of four parts:
//
// 1. Record model: User is an immutable snapshot with a fixed, ordered set of
//    optional string fields (Value distinguishes absent from empty).
//
// 2. Field mapping: CompileMapping turns configured key -> field name pairs into
//    a dispatch table of accessors. Unknown field names are dropped and reported,
//    so a misconfigured key never differs. NewSelector does the same for the
//    identifier field; an unknown selector resolves every user to "".
//
// 3. Engine: Reconcile fetches the source set once, then for every user resolves
//    its identifier in the target, compares the mapped fields and, unless the pass
//    is a dry run, persists the source values. Each record yields one Event
//    (not_found, updated, would_update or up_to_date).
//
// 4. Runner: collapses concurrent passes of the same mode and keeps the last
//    report of each mode.
//
// # Failures
//
// Any collaborator error aborts the pass with a *SyncError (errors.Is matches
// ErrSynchronization and the stage sentinel). Records already updated stay
// updated. Options.IsolateFailures turns resolve and persist errors into
// per-record failed events instead.
//
// # Usage
//
//	mapping, unresolved := reconcile.CompileMapping(map[string]string{
//	    "givenName": "first_name",
//	    "sn":        "last_name",
//	    "mail":      "email",
//	})
//	engine := reconcile.NewEngine(source, target, mapping,
//	    reconcile.NewSelector("sam_account_name"), logger, reconcile.Options{})
//
//	report, err := engine.Reconcile(ctx, true) // dry run
package reconcile
