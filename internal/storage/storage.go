// Package storage provides the shared local artifact cache for generated
// clips, with optional S3 upload for final delivery. It defines the Cache
// interface (port) and implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Cache defines the interface for the project artifact cache shared across
// concurrent jobs. Writes go to a temp name first and are renamed into place
// on completion, so concurrent readers never observe a partial file.
type Cache interface {
	// Store atomically writes data under key and returns the final path.
	// Re-storing the same key overwrites deterministically.
	Store(ctx context.Context, key string, data io.Reader) (path string, err error)

	// StoreFunc opens a staged writer for key. Closing the writer commits
	// the file (atomic rename); Abort discards the partial write.
	StoreFunc(ctx context.Context, key string) (*StagedFile, error)

	// Open reads a cached artifact. The caller closes the ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes cached artifacts, continuing past individual failures.
	Remove(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured when S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
