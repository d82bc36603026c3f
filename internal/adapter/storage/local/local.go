// Package local stores uploaded documents on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	"github.com/fairyhunter13/ai-credit-assessor/pkg/textx"
)

// Store implements domain.FileStorage under a single directory.
type Store struct {
	dir string
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("op=storage.New: %w: upload dir required", domain.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("op=storage.New: %w: %v", domain.ErrStorage, err)
	}
	return &Store{dir: dir}, nil
}

// Dir is the root directory.
func (s *Store) Dir() string { return s.dir }

// Save writes r under a fresh collision-free name that keeps the original extension.
func (s *Store) Save(ctx context.Context, originalName string, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", fmt.Errorf("op=storage.Save: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(textx.SafeFilename(originalName)))
	storedName := uuid.NewString() + ext
	path := filepath.Join(s.dir, storedName)

	// #nosec G304 -- path is built from a generated name under the upload dir
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", "", fmt.Errorf("op=storage.Save: %w: %v", domain.ErrStorage, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", "", fmt.Errorf("op=storage.Save: %w: %v", domain.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("op=storage.Save: %w: %v", domain.ErrStorage, err)
	}
	return storedName, path, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("op=storage.Remove: %w: %v", domain.ErrStorage, err)
	}
	return nil
}
