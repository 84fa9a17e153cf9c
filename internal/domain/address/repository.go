package address

import "context"

// CountryRepository defines persistence for countries
type CountryRepository interface {
	Count(ctx context.Context) (int64, error)
	// FindAll returns countries ordered by display order then printable name
	FindAll(ctx context.Context, shippingOnly bool) ([]Country, error)
	SaveAll(ctx context.Context, countries []Country) error
}
