package catalog

import (
	"context"
	"errors"
	"io"

	"github.com/shop/backend/internal/domain/catalog"
	"github.com/shop/backend/internal/domain/partner"
)

// Repositories gives access to the catalogue repositories. Inside
// TransactionScope.Execute they all share one database transaction.
type Repositories interface {
	ProductClasses() catalog.ProductClassRepository
	Categories() catalog.CategoryRepository
	Products() catalog.ProductRepository
	Images() catalog.ProductImageRepository
	Partners() partner.PartnerRepository
	StockRecords() partner.StockRecordRepository
}

// TransactionScope runs catalogue writes atomically.
type TransactionScope interface {
	Repositories
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// ErrMediaNotFound is returned by MediaStorage when no file is stored under a key
var ErrMediaNotFound = errors.New("media file not found")

// MediaStorage stores product image files.
// This interface is implemented by the infrastructure layer (local disk, S3).
type MediaStorage interface {
	// Save stores r under key and returns the key actually used. An existing
	// file is never overwritten; a suffix is added to the name instead.
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	// Open returns ErrMediaNotFound when the key does not exist
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the public URL of a stored file
	URL(key string) string
}
