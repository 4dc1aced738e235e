package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"directory-sync/core/reconcile"
	"directory-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// Writer archives reconciliation reports as JSON objects.
type Writer struct {
	client storage.Client
	bucket string
	prefix string
}

// NewWriter creates a writer storing reports in bucket under prefix.
func NewWriter(client storage.Client, bucket, prefix string) *Writer {
	return &Writer{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the key a report is stored under:
// <prefix>/<yyyy>/<mm>/<dd>/<started>-<pass_id>.json
func (w *Writer) ObjectKey(report *reconcile.Report) string {
	started := report.StartedAt.UTC()
	name := fmt.Sprintf("%s-%s.json", started.Format("20060102T150405Z"), report.PassID)
	return path.Join(w.prefix, started.Format("2006/01/02"), name)
}

// Write uploads report and returns its object key.
func (w *Writer) Write(ctx context.Context, report *reconcile.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("nil report")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	key := w.ObjectKey(report)
	_, err = w.client.PutObject(ctx, w.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to write audit report %s: %w", key, err)
	}
	return key, nil
}
