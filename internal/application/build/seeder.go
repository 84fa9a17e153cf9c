package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/application/reference"
	"github.com/shop/backend/internal/domain/shared/valueobject"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/fetch"
	"github.com/shop/backend/internal/infrastructure/logger"
	"github.com/shop/backend/internal/infrastructure/migration"
	"github.com/shop/backend/internal/infrastructure/persistence"
	"github.com/shop/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

var _ DatabaseSeeder = (*Seeder)(nil)

// Seeder opens the database on first use and runs the seed steps against it
type Seeder struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *persistence.Database
	storage catalogapp.MediaStorage
}

// NewSeeder creates a new Seeder. Nothing is opened until a step runs.
func NewSeeder(cfg *config.Config, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{cfg: cfg, logger: logger}
}

// Migrate applies every pending embedded migration
func (s *Seeder) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Database.IsSQLite() {
		if dir := filepath.Dir(s.cfg.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	m, err := migration.NewEmbedded(s.cfg.Database.MigrationURL(), s.cfg.Database.Driver, s.logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// Database returns the open database, connecting on first call
func (s *Seeder) Database() (*persistence.Database, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := persistence.NewDatabaseWithLogger(&s.cfg.Database, s.logger,
		logger.MapGormLogLevel(s.cfg.Log.Level))
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *Seeder) mediaStorage(ctx context.Context) (catalogapp.MediaStorage, error) {
	if s.storage != nil {
		return s.storage, nil
	}
	st, err := storage.NewMediaStorage(ctx, s.cfg.Storage, s.logger)
	if err != nil {
		return nil, err
	}
	s.storage = st
	return st, nil
}

// PopulateCountries fills the empty countries table
func (s *Seeder) PopulateCountries(ctx context.Context, opts reference.PopulateOptions) (int, error) {
	db, err := s.Database()
	if err != nil {
		return 0, err
	}
	svc := reference.NewCountryService(persistence.NewGormCountryRepository(db.DB), s.logger)
	return svc.PopulateCountries(ctx, opts)
}

// ImportCatalogue loads the fixture at path and its product images
func (s *Seeder) ImportCatalogue(ctx context.Context, path string, opts catalogapp.ImportOptions) (*catalogapp.ImportResult, error) {
	currency, err := valueobject.ParseCurrency(s.cfg.Catalogue.Currency)
	if err != nil {
		return nil, err
	}
	db, err := s.Database()
	if err != nil {
		return nil, err
	}
	media, err := s.mediaStorage(ctx)
	if err != nil {
		return nil, err
	}

	scope := persistence.NewGormCatalogueScope(db.DB)
	svc := catalogapp.NewImportService(
		scope,
		media,
		catalogapp.NewLoader(scope, currency, s.logger),
		fetch.NewDownloader(s.cfg.Catalogue.DownloadTimeout, s.logger),
		s.logger,
	)
	return svc.ImportCatalogue(ctx, path, opts)
}

// Close releases the database connection if one was opened
func (s *Seeder) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
