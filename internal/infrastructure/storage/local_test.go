package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "media")
	s, err := NewLocalStorage(root, "/media")
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	key, err := s.Save(ctx, "images/products/2024/01/a.jpg", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "images/products/2024/01/a.jpg", key)

	onDisk, err := os.ReadFile(filepath.Join(root, "images", "products", "2024", "01", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(onDisk))

	t.Run("collision gets suffixed key", func(t *testing.T) {
		second, err := s.Save(ctx, key, strings.NewReader("second"))
		require.NoError(t, err)
		assert.NotEqual(t, key, second)
		assert.Regexp(t, `^images/products/2024/01/a_[0-9a-f]{7}\.jpg$`, second)

		rc, err := s.Open(ctx, second)
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "second", string(data))
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := s.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists(ctx, "images/nope.jpg")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Exists(ctx, "images")
		require.NoError(t, err)
		assert.False(t, ok, "directories are not media")
	})

	t.Run("missing file maps to ErrMediaNotFound", func(t *testing.T) {
		_, err := s.Open(ctx, "images/nope.jpg")
		require.ErrorIs(t, err, catalogapp.ErrMediaNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key))
		ok, err := s.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("url", func(t *testing.T) {
		assert.Equal(t, "/media/images/a.jpg", s.URL("images/a.jpg"))
	})
}

func TestLocalStorage_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside.jpg", "images/../../outside.jpg", "."} {
		t.Run(key, func(t *testing.T) {
			_, err := s.Save(ctx, key, strings.NewReader("x"))
			require.ErrorIs(t, err, ErrInvalidKey)
			_, err = s.Path(key)
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}

	t.Run("backslashes are separators", func(t *testing.T) {
		p, err := s.Path(`images\a.jpg`)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(s.Root(), "images", "a.jpg"), p)
	})

	t.Run("default url prefix", func(t *testing.T) {
		assert.Equal(t, "/media/x.png", s.URL("x.png"))
	})
}

func TestNewLocalStorage_RequiresRoot(t *testing.T) {
	_, err := NewLocalStorage("", "")
	require.Error(t, err)
}

func TestNewMediaStorage(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	t.Run("local by default", func(t *testing.T) {
		s, err := NewMediaStorage(ctx, config.StorageConfig{MediaRoot: t.TempDir()}, logger)
		require.NoError(t, err)
		assert.IsType(t, &LocalStorage{}, s)
	})

	t.Run("s3", func(t *testing.T) {
		cfg := config.StorageConfig{Backend: config.StorageS3, S3: s3Config("http://localhost:9000")}
		s, err := NewMediaStorage(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &S3Storage{}, s)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewMediaStorage(ctx, config.StorageConfig{Backend: "ftp"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})
}
