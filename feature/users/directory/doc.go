// Package directory provides the target directories a reconciliation pass
// writes to: a database table (DBRepository) or one JSON object per user in
// object storage (StorageRepository). Both implement reconcile.Target.
package directory
