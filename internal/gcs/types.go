package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrMissingBody is returned when the store hands back an object with no content.
var ErrMissingBody = errors.New("no object body found")

// ObjectRef identifies a stored email. It is the payload of a storage event.
type ObjectRef struct {
	Bucket string
	Key    string
	Region string
}

// URI renders the reference as "gs://bucket/key".
func (r ObjectRef) URI() string {
	return "gs://" + r.Bucket + "/" + r.Key
}

// HasPrefix reports whether the object key is under prefix. An empty prefix matches everything.
func (r ObjectRef) HasPrefix(prefix string) bool {
	return strings.HasPrefix(r.Key, prefix)
}

// Fetcher retrieves the raw content of a stored message.
// This interface enables mocking and testing of storage functionality.
type Fetcher interface {
	// Fetch downloads the object body. A single attempt is made.
	Fetch(ctx context.Context, ref ObjectRef) ([]byte, error)
}

// ParseURI splits a "gs://bucket/key" URI into an ObjectRef.
func ParseURI(uri string) (ObjectRef, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return ObjectRef{}, fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ObjectRef{}, fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return ObjectRef{Bucket: parts[0], Key: parts[1]}, nil
}

// Filename extracts the last path element of a GCS URI.
// e.g., "gs://bucket/emails/abc123" → "abc123"
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}
