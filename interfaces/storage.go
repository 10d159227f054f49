package interfaces

import "context"

// StorageService is the attachment byte store. Backends are opaque to
// callers; local filesystem and S3-compatible object storage both
// implement it.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
