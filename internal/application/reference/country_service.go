// Package reference populates and serves read-mostly reference data.
package reference

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/shop/backend/internal/domain/address"
	csvimport "github.com/shop/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

//go:embed iso3166.csv
var iso3166 []byte

// ErrCountriesExist is returned when the countries table is already populated
var ErrCountriesExist = errors.New("you already have countries in your database; this command only works with an empty countries table")

// PopulateOptions controls PopulateCountries
type PopulateOptions struct {
	// Shipping marks every country as a shipping country
	Shipping bool
}

// CountryService manages the countries table
type CountryService struct {
	repo   address.CountryRepository
	logger *zap.Logger
}

// NewCountryService creates a new CountryService
func NewCountryService(repo address.CountryRepository, logger *zap.Logger) *CountryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountryService{repo: repo, logger: logger}
}

// PopulateCountries fills an empty countries table with every ISO 3166-1
// country and returns how many were inserted.
func (s *CountryService) PopulateCountries(ctx context.Context, opts PopulateOptions) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, ErrCountriesExist
	}

	countries, err := ISOCountries(opts.Shipping)
	if err != nil {
		return 0, err
	}
	if err := s.repo.SaveAll(ctx, countries); err != nil {
		return 0, fmt.Errorf("saving countries: %w", err)
	}

	s.logger.Info("Countries populated",
		zap.Int("count", len(countries)),
		zap.Bool("shipping", opts.Shipping))
	return len(countries), nil
}

// ListCountries returns the stored countries, optionally only shipping ones
func (s *CountryService) ListCountries(ctx context.Context, shippingOnly bool) ([]address.Country, error) {
	return s.repo.FindAll(ctx, shippingOnly)
}

// ISOCountries returns the ISO 3166-1 list with English display names
func ISOCountries(shipping bool) ([]address.Country, error) {
	parser, err := csvimport.ParseFromBytes(iso3166, csvimport.WithColumns("alpha2", "alpha3", "numeric"))
	if err != nil {
		return nil, err
	}

	names := display.English.Regions()
	var countries []address.Country
	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("country list line %d: %w", parser.CurrentRow(), err)
		}

		alpha2 := strings.TrimSpace(row.Get("alpha2"))
		region, err := language.ParseRegion(alpha2)
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", alpha2, err)
		}
		name := names.Name(region)
		if name == "" {
			name = alpha2
		}

		c, err := address.NewCountry(alpha2, row.Get("alpha3"), row.Get("numeric"), name, shipping)
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", alpha2, err)
		}
		countries = append(countries, *c)
	}
	return countries, nil
}
