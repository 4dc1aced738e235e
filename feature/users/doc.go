// Package users wires user synchronization into the application.
//
// Service builds the reconciliation engine from the sync configuration,
// runs passes through a reconcile.Runner and archives reports when auditing
// is enabled. Handler exposes it over HTTP:
//
//	POST /sync?dry_run=true       run a pass
//	GET  /sync/report?dry_run=... last report for the mode
//	GET  /sync/users/:identifier  compare one user between source and target
//
// The source store lives in the source sub-package and the target
// directories in the directory sub-package.
package users
