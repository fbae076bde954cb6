package storage

import "context"

// ObjectStore abstracts the blob store that holds uploaded file content,
// signature images and profile pictures. Upload returns the delivery URL that
// gets persisted on the owning document; Download fetches by that URL.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
