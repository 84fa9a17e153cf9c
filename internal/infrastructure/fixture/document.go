// Package fixture reads and writes the YAML catalogue fixture and converts
// the header-less stock CSV files it is built from.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrFixtureNotFound is returned when the fixture file does not exist
	ErrFixtureNotFound = errors.New("fixture file not found")

	// ErrInvalidFixture wraps parse and validation failures
	ErrInvalidFixture = errors.New("invalid fixture")
)

// NamedRef is a `{name: ...}` mapping. For categories the name is a
// `>`-separated breadcrumb.
type NamedRef struct {
	Name string `yaml:"name" validate:"required"`
}

// ProductItem is the product part of a stock entry.
type ProductItem struct {
	UPC          string     `yaml:"upc" validate:"required,max=64"`
	Title        string     `yaml:"title" validate:"max=255"`
	Description  string     `yaml:"description"`
	ProductClass NamedRef   `yaml:"product_class"`
	Categories   []NamedRef `yaml:"categories" validate:"dive"`
}

// StockItem is one stock record with the product and partner it belongs to.
type StockItem struct {
	Product    ProductItem `yaml:"product"`
	Partner    NamedRef    `yaml:"partner"`
	PartnerSKU string      `yaml:"partner_sku" validate:"required,max=128"`
	Price      string      `yaml:"price" validate:"required,price"`
	NumInStock int         `yaml:"num_in_stock" validate:"gte=0"`
}

// Document is the fixture file. Field order is the key order on disk.
type Document struct {
	Stock          []StockItem `yaml:"stock" validate:"dive"`
	ProductClasses []NamedRef  `yaml:"product_classes" validate:"dive"`
	Categories     []NamedRef  `yaml:"categories" validate:"dive"`
	Partners       []NamedRef  `yaml:"partners" validate:"dive"`
}

// NewDocument returns a document with every list present and empty.
func NewDocument() *Document {
	return &Document{
		Stock:          []StockItem{},
		ProductClasses: []NamedRef{},
		Categories:     []NamedRef{},
		Partners:       []NamedRef{},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	})
	return v
}

// Validate checks required fields and value ranges.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", strings.TrimPrefix(fe.Namespace(), "Document."), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidFixture, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return nil
}

// Append adds the stock entries of other to d.
func (d *Document) Append(other *Document) {
	d.Stock = append(d.Stock, other.Stock...)
}

// Decode parses and validates a fixture document.
func Decode(r io.Reader) (*Document, error) {
	doc := NewDocument()
	if err := yaml.NewDecoder(r).Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, fmt.Errorf("%w: could not parse yaml: %v", ErrInvalidFixture, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadFile reads the fixture at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, path)
		}
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes d as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}
	return enc.Close()
}

// WriteFile writes d to path, creating parent directories. The file is
// written next to its destination and renamed into place so a failed build
// never leaves a truncated fixture behind.
func (d *Document) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating fixture directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fixture-*.yaml")
	if err != nil {
		return fmt.Errorf("creating fixture file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing fixture file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing fixture file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing fixture file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
