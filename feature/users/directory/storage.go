package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"directory-sync/core/reconcile"
	"directory-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// StorageRepository is a directory kept as one JSON object per user.
type StorageRepository struct {
	client storage.Client
	bucket string
	prefix string
	key    reconcile.Field
}

// NewStorageRepository creates a directory storing entries in bucket under prefix.
// Entries are named after the key field of the user.
func NewStorageRepository(client storage.Client, bucket, prefix string, key reconcile.Field) *StorageRepository {
	return &StorageRepository{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		key:    key,
	}
}

// ObjectKey returns the object holding the entry for identifier.
func (r *StorageRepository) ObjectKey(identifier string) string {
	return path.Join(r.prefix, url.PathEscape(identifier)+".json")
}

// Resolve reads the entry for identifier. A missing object yields nil.
func (r *StorageRepository) Resolve(ctx context.Context, identifier string) (*reconcile.User, error) {
	if identifier == "" {
		return nil, nil
	}
	key := r.ObjectKey(identifier)

	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	// minio reports a missing object on first read, not on GetObject.
	data, err := io.ReadAll(obj)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var u reconcile.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return &u, nil
}

// Persist writes user to the object named after its key field.
func (r *StorageRepository) Persist(ctx context.Context, user reconcile.User) error {
	id, _ := user.Get(r.key)
	if !id.Valid || id.String == "" {
		return fmt.Errorf("user has no %s", r.key)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", id.String, err)
	}

	key := r.ObjectKey(id.String)
	_, err = r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
