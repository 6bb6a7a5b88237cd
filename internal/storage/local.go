package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// localStorage implements FileStorage on a directory tree rooted at a
// configured path. This is the primary driver: every object key maps to
// a file under the root via ResolveWithin.
type localStorage struct {
	root   string
	logger *zap.Logger
}

// NewLocalStorage creates a local-disk storage service rooted at root,
// creating the directory if needed.
func NewLocalStorage(root string, logger *zap.Logger) (FileStorage, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, err
	}
	logger.Info("local storage initialized", zap.String("root", absRoot))
	return &localStorage{root: absRoot, logger: logger}, nil
}

func (s *localStorage) Save(ctx context.Context, objectKey string, r io.Reader) (int64, error) {
	full, err := ResolveWithin(s.root, objectKey)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(full)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// A half-written file is useless; best effort removal.
		if rmErr := os.Remove(full); rmErr != nil {
			s.logger.Warn("failed to remove partial file",
				zap.String("key", objectKey), zap.Error(rmErr))
		}
		return 0, err
	}
	return n, nil
}

func (s *localStorage) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	full, err := ResolveWithin(s.root, objectKey)
	if err != nil {
		// Callers treat unsafe paths the same as missing objects so
		// nothing about the filesystem layout leaks.
		return nil, ErrObjectNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

func (s *localStorage) Delete(ctx context.Context, objectKey string) error {
	full, err := ResolveWithin(s.root, objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
