package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fpylas/mailsync/interfaces"
)

// LocalStorageService implements StorageService on a filename-addressed
// directory tree. This is the default attachment backend for
// single-instance deployments.
type LocalStorageService struct {
	rootDir string
}

func NewLocalStorageService(rootDir string) interfaces.StorageService {
	return &LocalStorageService{rootDir: rootDir}
}

func (s *LocalStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	path := filepath.Join(s.rootDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create storage directory")
	}

	// Concurrent writers for the same key overwrite each other; the
	// source bytes are immutable so the result is identical either way.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write attachment file")
	}

	return nil
}

func (s *LocalStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	path := filepath.Join(s.rootDir, filepath.FromSlash(key))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read attachment file")
	}

	return data, nil
}

func (s *LocalStorageService) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.rootDir, filepath.FromSlash(key))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete attachment file")
	}

	return nil
}

func (s *LocalStorageService) GetPublicURL(key string) string {
	return ""
}
