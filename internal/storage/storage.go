// Package storage keeps document bytes and thumbnails on the local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go-notes-workspace/pkg/apierror"
)

var ErrTooLarge = apierror.New("FILE_TOO_LARGE", "file exceeds the maximum upload size", "", http.StatusRequestEntityTooLarge)

type Storage struct {
	validator *KeyValidator
}

func New(root string) (*Storage, error) {
	validator, err := NewKeyValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{validator: validator}, nil
}

func (s *Storage) RootAbs() string {
	return s.validator.RootAbs()
}

// Put copies r into key. The blob only appears once fully written; more than
// limit bytes (when limit > 0) fails with ErrTooLarge and leaves nothing behind.
func (s *Storage) Put(key string, r io.Reader, limit int64) (int64, error) {
	resolved, err := s.validator.Resolve(key)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	written, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write blob %q: %w", key, err)
	}
	if limit > 0 && written > limit {
		return 0, ErrTooLarge
	}

	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return 0, fmt.Errorf("commit blob %q: %w", key, err)
	}
	return written, nil
}

func (s *Storage) Open(key string) (*os.File, error) {
	resolved, err := s.validator.Resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(resolved)
}

// Remove deletes every key; keys that do not exist are skipped.
func (s *Storage) Remove(keys ...string) error {
	var errs []error
	for _, key := range keys {
		resolved, err := s.validator.Resolve(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
