package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader stores local email files in a bucket the same way the mail service does,
// which fires the object-created trigger.
type Uploader struct {
	client *storage.Client
}

// NewUploader wraps an existing storage client. The caller owns the client.
func NewUploader(client *storage.Client) *Uploader {
	return &Uploader{client: client}
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func (u *Uploader) UploadFile(ctx context.Context, ref ObjectRef, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(ref.Bucket).Object(ref.Key).NewWriter(ctx)
	w.ContentType = "message/rfc822"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload of %s: %w", ref.URI(), err)
	}

	return nil
}
