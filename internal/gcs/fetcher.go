package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// StorageFetcher is the Cloud Storage implementation of Fetcher.
type StorageFetcher struct {
	client *storage.Client
}

// NewStorageFetcher wraps an existing storage client. The caller owns the client.
func NewStorageFetcher(client *storage.Client) *StorageFetcher {
	return &StorageFetcher{client: client}
}

// Fetch downloads the object bytes for ref.
func (f *StorageFetcher) Fetch(ctx context.Context, ref ObjectRef) ([]byte, error) {
	rc, err := f.client.Bucket(ref.Bucket).Object(ref.Key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("Fetch: %s: %w", ref.URI(), ErrMissingBody)
		}
		return nil, fmt.Errorf("Fetch: reading object %s: %w", ref.URI(), err)
	}
	defer rc.Close()

	return readBody(rc, ref)
}

func readBody(r io.Reader, ref ObjectRef) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes of %s: %w", ref.URI(), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("Fetch: %s: %w", ref.URI(), ErrMissingBody)
	}
	return data, nil
}
