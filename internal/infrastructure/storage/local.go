package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	catalogapp "github.com/shop/backend/internal/application/catalog"
)

var _ catalogapp.MediaStorage = (*LocalStorage)(nil)

// LocalStorage keeps media files below a root directory
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates the root directory if needed
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("media root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media/"
	}
	return &LocalStorage{root: abs, baseURL: baseURL}, nil
}

// Root returns the absolute media directory
func (s *LocalStorage) Root() string {
	return s.root
}

// Path maps key to its file path
func (s *LocalStorage) Path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Save writes r under key, or under a suffixed variant if key is taken.
// It returns the key actually used.
func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	candidate := cleaned
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := filepath.Join(s.root, filepath.FromSlash(candidate))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			candidate = alternativeKey(cleaned)
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(p)
			return "", fmt.Errorf("writing %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(p)
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", cleaned, maxKeyAttempts)
}

// Open returns catalogapp.ErrMediaNotFound for missing files
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", catalogapp.ErrMediaNotFound, key)
	}
	return f, err
}

// Delete removes key; deleting a missing file is not an error
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.Path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}
