package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/infrastructure/fetch"
	"github.com/shop/backend/internal/infrastructure/fixture"
	"go.uber.org/zap"
)

// ArchiveDownloader fetches a remote archive into a temporary file
type ArchiveDownloader interface {
	DownloadToTemp(ctx context.Context, src, pattern string) (string, error)
}

// ImportOptions controls ImportCatalogue
type ImportOptions struct {
	// ImageField is the product field image file names are matched against
	ImageField string
	// Clear empties the catalogue before loading
	Clear bool
	// ImageArchive is the URL or path of the .tar.gz image archive
	ImageArchive string
	// ImagesDir imports from an already extracted directory instead of ImageArchive
	ImagesDir  string
	SkipImages bool
}

// ImportResult summarises a catalogue import
type ImportResult struct {
	Load   *LoadResult        `json:"load"`
	Images *ImageImportResult `json:"images,omitempty"`
}

// ImportService loads the fixture file and the product images
type ImportService struct {
	scope      TransactionScope
	storage    MediaStorage
	loader     *Loader
	downloader ArchiveDownloader
	logger     *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(
	scope TransactionScope,
	storage MediaStorage,
	loader *Loader,
	downloader ArchiveDownloader,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		scope:      scope,
		storage:    storage,
		loader:     loader,
		downloader: downloader,
		logger:     logger,
	}
}

// ImportCatalogue clears the catalogue if asked, loads the fixture at path and
// imports the product images. Fixture parse and validation errors are fatal.
func (s *ImportService) ImportCatalogue(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	if opts.ImageField == "" {
		opts.ImageField = string(catalog.LookupByUPC)
	}
	// Fail before touching the database.
	if _, err := catalog.ParseLookupField(opts.ImageField); err != nil {
		return nil, err
	}

	doc, err := fixture.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if opts.Clear {
		s.logger.Info("Clearing catalogue")
		if err := s.loader.ClearCatalogue(ctx); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Loading fixtures", zap.String("path", path))
	loaded, err := s.loader.LoadFixture(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("loading fixture: %w", err)
	}
	result := &ImportResult{Load: loaded}

	if opts.SkipImages {
		s.logger.Info("Catalogue import complete", zap.Bool("images", false))
		return result, nil
	}

	dir := opts.ImagesDir
	if dir == "" {
		extracted, cleanup, err := s.fetchImages(ctx, opts.ImageArchive)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		dir = extracted
	}

	s.logger.Info("Importing images", zap.String("dir", dir))
	importer, err := NewImageImporter(s.scope, s.storage, opts.ImageField, s.logger)
	if err != nil {
		return nil, err
	}
	if result.Images, err = importer.Handle(ctx, dir); err != nil {
		return nil, err
	}

	s.logger.Info("Catalogue import complete")
	return result, nil
}

// fetchImages downloads and unpacks the archive into a temporary directory.
// cleanup removes both the archive and the directory.
func (s *ImportService) fetchImages(ctx context.Context, archive string) (string, func(), error) {
	if archive == "" {
		return "", nil, errors.New("no image archive configured")
	}

	s.logger.Info("Downloading image archive", zap.String("source", archive))
	archivePath, err := s.downloader.DownloadToTemp(ctx, archive, "images-*.tar.gz")
	if err != nil {
		return "", nil, fmt.Errorf("downloading image archive: %w", err)
	}

	dir, err := os.MkdirTemp("", "images-")
	if err != nil {
		os.Remove(archivePath)
		return "", nil, err
	}
	cleanup := func() {
		os.Remove(archivePath)
		os.RemoveAll(dir)
	}

	n, err := fetch.ExtractTarGz(archivePath, dir)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extracting image archive: %w", err)
	}
	s.logger.Debug("Image archive extracted", zap.Int("files", n))
	return archiveRoot(dir), cleanup, nil
}

// archiveRoot descends into the single top-level directory of an archive
// that wraps its files in one.
func archiveRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}
