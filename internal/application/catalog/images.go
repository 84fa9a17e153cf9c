package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/shop/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// AllowedImageExtensions lists the file extensions the importer picks up
var AllowedImageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".gif":  true,
	".png":  true,
}

// ImageKeyPrefix is the storage prefix of imported product images
const ImageKeyPrefix = "images/products"

// ImageImportError aborts an import: the file is not a readable image
type ImageImportError struct {
	File string
	Err  error
}

func (e *ImageImportError) Error() string {
	return fmt.Sprintf("%s is not a valid image: %v", e.File, e.Err)
}

func (e *ImageImportError) Unwrap() error {
	return e.Err
}

// ImageImportResult counts the outcome per file
type ImageImportResult struct {
	Imported     int `json:"imported"`
	Identical    int `json:"identical"`
	Unmatched    int `json:"unmatched"`
	Ambiguous    int `json:"ambiguous"`
	StaleRemoved int `json:"stale_removed"`
}

// ImageImporter attaches image files to the products they are named after
type ImageImporter struct {
	scope   TransactionScope
	storage MediaStorage
	field   catalog.LookupField
	logger  *zap.Logger
	now     func() time.Time
}

// NewImageImporter creates an importer matching file names against field,
// which must be "upc" or "title".
func NewImageImporter(scope TransactionScope, storage MediaStorage, field string, logger *zap.Logger) (*ImageImporter, error) {
	f, err := catalog.ParseLookupField(field)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageImporter{
		scope:   scope,
		storage: storage,
		field:   f,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Handle imports every image file directly inside dir. Database writes are
// atomic; on failure the files stored by this run are removed again.
func (i *ImageImporter) Handle(ctx context.Context, dir string) (*ImageImportResult, error) {
	files, err := imageFiles(dir)
	if err != nil {
		return nil, err
	}

	var stored []string
	result := &ImageImportResult{}
	err = i.scope.Execute(ctx, func(repos Repositories) error {
		for _, name := range files {
			key, err := i.process(ctx, repos, dir, name, result)
			if err != nil {
				return err
			}
			if key != "" {
				stored = append(stored, key)
			}
		}
		return nil
	})
	if err != nil {
		i.removeStored(stored)
		return nil, err
	}

	i.logger.Info("Images imported",
		zap.Int("files", len(files)),
		zap.Int("imported", result.Imported),
		zap.Int("identical", result.Identical),
		zap.Int("unmatched", result.Unmatched),
		zap.Int("ambiguous", result.Ambiguous),
		zap.Int("stale_removed", result.StaleRemoved))
	return result, nil
}

// process imports one file and returns the storage key it was saved under,
// or "" when the file was skipped.
func (i *ImageImporter) process(ctx context.Context, repos Repositories, dir, name string, result *ImageImportResult) (string, error) {
	lookup := strings.TrimSuffix(name, filepath.Ext(name))
	logger := i.logger.With(zap.String("file", name), zap.String(string(i.field), lookup))

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", &ImageImportError{File: name, Err: err}
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", &ImageImportError{File: name, Err: err}
	}

	products, err := repos.Products().FindByField(ctx, i.field, lookup, 2)
	if err != nil {
		return "", err
	}
	switch len(products) {
	case 0:
		logger.Warn("No item matching image")
		result.Unmatched++
		return "", nil
	case 1:
	default:
		logger.Warn("Multiple products matching image, skipping")
		result.Ambiguous++
		return "", nil
	}
	product := products[0]

	existing, err := repos.Images().FindByProduct(ctx, product.ID)
	if err != nil {
		return "", err
	}
	next := 0
	for _, img := range existing {
		next = img.DisplayOrder + 1
		same, err := i.sameContent(ctx, img.Original, data)
		if errors.Is(err, ErrMediaNotFound) {
			if err := repos.Images().Delete(ctx, img.ID); err != nil {
				return "", err
			}
			logger.Info("Removed stale image", zap.String("original", img.Original))
			result.StaleRemoved++
			continue
		}
		if err != nil {
			return "", err
		}
		if same {
			logger.Warn("Identical image already exists, skipping")
			result.Identical++
			return "", nil
		}
	}

	key := path.Join(ImageKeyPrefix, i.now().Format("2006/01"), name)
	storedKey, err := i.storage.Save(ctx, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", name, err)
	}

	img, err := catalog.NewProductImage(product.ID, storedKey, next)
	if err == nil {
		err = repos.Images().Save(ctx, img)
	}
	if err != nil {
		return storedKey, err
	}

	result.Imported++
	return storedKey, nil
}

func (i *ImageImporter) sameContent(ctx context.Context, key string, data []byte) (bool, error) {
	rc, err := i.storage.Open(ctx, key)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	current, err := io.ReadAll(rc)
	if err != nil {
		return false, err
	}
	return bytes.Equal(current, data), nil
}

func (i *ImageImporter) removeStored(keys []string) {
	// The request context may already be cancelled.
	ctx := context.Background()
	for _, key := range keys {
		if err := i.storage.Delete(ctx, key); err != nil {
			i.logger.Error("Failed to remove stored image", zap.String("key", key), zap.Error(err))
		}
	}
}

func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if AllowedImageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
