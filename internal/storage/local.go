package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrS3NotConfigured is returned when S3 operations are attempted without
// proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalCache implements the Cache interface using local disk. Each artifact
// is written to a unique temp name and atomically renamed into place, so no
// locking is needed between concurrent jobs sharing the directory.
type LocalCache struct {
	dir string
}

// NewLocalCache creates a LocalCache rooted at dir. If dir is empty, a
// directory under os.TempDir() is used. The directory is created if missing.
func NewLocalCache(dir string) (*LocalCache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "beatframe")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &LocalCache{dir: dir}, nil
}

// Dir returns the cache directory path.
func (c *LocalCache) Dir() string {
	return c.dir
}

// StagedFile is a partially written cache entry. Close commits it under its
// final name; Abort discards it.
type StagedFile struct {
	f         *os.File
	finalPath string
	committed bool
}

// Write implements io.Writer.
func (s *StagedFile) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Path returns the final path the file will occupy after Close.
func (s *StagedFile) Path() string {
	return s.finalPath
}

// Close flushes the staged file and renames it into place.
func (s *StagedFile) Close() error {
	if err := s.f.Close(); err != nil {
		_ = os.Remove(s.f.Name())
		return fmt.Errorf("close staged file: %w", err)
	}
	if err := os.Rename(s.f.Name(), s.finalPath); err != nil {
		_ = os.Remove(s.f.Name())
		return fmt.Errorf("commit staged file: %w", err)
	}
	s.committed = true
	return nil
}

// Abort discards the staged file. Safe to call after Close.
func (s *StagedFile) Abort() {
	if s.committed {
		return
	}
	_ = s.f.Close()
	_ = os.Remove(s.f.Name())
}

// StoreFunc opens a staged writer for key.
func (c *LocalCache) StoreFunc(ctx context.Context, key string) (*StagedFile, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	finalPath := filepath.Join(c.dir, sanitizeKey(key))
	f, err := os.CreateTemp(c.dir, "."+sanitizeKey(key)+".tmp*")
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	return &StagedFile{f: f, finalPath: finalPath}, nil
}

// Store atomically writes data under key and returns the final path.
func (c *LocalCache) Store(ctx context.Context, key string, data io.Reader) (string, error) {
	staged, err := c.StoreFunc(ctx, key)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(staged, data); err != nil {
		staged.Abort()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := staged.Close(); err != nil {
		return "", err
	}

	return staged.Path(), nil
}

// Open reads a cached artifact.
func (c *LocalCache) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return f, nil
}

// Remove deletes cached artifacts, continuing past individual failures and
// returning the first error encountered.
func (c *LocalCache) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove artifact %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalCache and returns ErrS3NotConfigured.
func (c *LocalCache) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// sanitizeKey strips path separators so keys cannot escape the cache dir.
func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return strings.ReplaceAll(key, "..", "_")
}

// Compile-time check that LocalCache implements Cache.
var _ Cache = (*LocalCache)(nil)
