// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small Client interface, supporting both
// AWS S3 and self-hosted MinIO. The directory-sync service uses object storage for
// two things: the object-backed target directory (one JSON document per user)
// and the archive of reconciliation reports.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider so storage
// interactions can be mocked in unit tests (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: used by EnsureBucket at startup.
//   - PutObject: uploads content (with size and options).
//   - GetObject: retrieves content as a stream.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
