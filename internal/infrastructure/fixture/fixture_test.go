package fixture

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	csvimport "github.com/shop/backend/internal/infrastructure/import"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Book,Books > Fiction > Classics,9780140449136,The Odyssey,"An epic poem, attributed to Homer",Penguin,P-001,9.99,12
Book,Books > Non-Fiction,9780262033848,Introduction to Algorithms,"The \"CLRS\" book",MIT Press,M-042,85.00,0
`

func TestParseStockCSV(t *testing.T) {
	doc, err := ParseStockCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, doc.Stock, 2)

	first := doc.Stock[0]
	assert.Equal(t, "9780140449136", first.Product.UPC)
	assert.Equal(t, "The Odyssey", first.Product.Title)
	assert.Equal(t, "An epic poem, attributed to Homer", first.Product.Description)
	assert.Equal(t, "Book", first.Product.ProductClass.Name)
	assert.Equal(t, []NamedRef{{Name: "Books > Fiction > Classics"}}, first.Product.Categories)
	assert.Equal(t, "Penguin", first.Partner.Name)
	assert.Equal(t, "P-001", first.PartnerSKU)
	assert.Equal(t, "9.99", first.Price)
	assert.Equal(t, 12, first.NumInStock)

	assert.Equal(t, `The "CLRS" book`, doc.Stock[1].Product.Description)
	assert.Equal(t, 0, doc.Stock[1].NumInStock)

	assert.Empty(t, doc.ProductClasses)
	assert.Empty(t, doc.Categories)
	assert.Empty(t, doc.Partners)
}

func TestParseStockCSVErrors(t *testing.T) {
	input := "Book,Fiction,1,T,D,P,S1,9.99,many\n" +
		"Book,Fiction,2,T,D\n" +
		"Book,Fiction,3,T,D,P,S3,-1,4\n" +
		"Book,Fiction,4,T,D,P,S4,1.00,4\n"

	doc, err := ParseStockCSV(strings.NewReader(input))

	assert.Nil(t, doc)
	var ec *csvimport.ErrorCollection
	require.True(t, errors.As(err, &ec))
	require.Equal(t, 3, ec.Count())

	got := ec.Errors()
	assert.Equal(t, 1, got[0].Row)
	assert.Equal(t, "num_in_stock", got[0].Column)
	assert.Equal(t, csvimport.ErrCodeImportInvalidType, got[0].Code)
	assert.Equal(t, 2, got[1].Row)
	assert.Equal(t, csvimport.ErrCodeImportMalformedRow, got[1].Code)
	assert.Equal(t, 3, got[2].Row)
	assert.Equal(t, csvimport.ErrCodeImportInvalidRange, got[2].Code)
}

func TestParseStockCSVEmpty(t *testing.T) {
	_, err := ParseStockCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, csvimport.ErrEmptyFile)
}

func TestEncodeKeyOrder(t *testing.T) {
	doc, err := ParseStockCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	out := buf.String()

	stock := strings.Index(out, "stock:")
	classes := strings.Index(out, "product_classes: []")
	categories := strings.Index(out, "\ncategories: []")
	partners := strings.Index(out, "partners: []")
	require.True(t, stock >= 0 && classes > 0 && categories > 0 && partners > 0, out)
	assert.Less(t, stock, classes)
	assert.Less(t, classes, categories)
	assert.Less(t, categories, partners)

	// Prices stay strings so they survive a round trip without float rounding.
	assert.Contains(t, out, `price: "85.00"`)
	assert.Contains(t, out, "num_in_stock: 12")
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		doc, err := ParseStockCSV(strings.NewReader(sampleCSV))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, doc.Encode(&buf))

		decoded, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, doc, decoded)
	})

	t.Run("missing lists default to empty", func(t *testing.T) {
		doc, err := Decode(strings.NewReader("partners:\n  - name: Penguin\n"))
		require.NoError(t, err)
		assert.Empty(t, doc.Stock)
		assert.Equal(t, []NamedRef{{Name: "Penguin"}}, doc.Partners)
	})

	t.Run("unquoted price accepted", func(t *testing.T) {
		doc, err := Decode(strings.NewReader(`stock:
  - product: {upc: "1", title: T, product_class: {name: Book}}
    partner: {name: P}
    partner_sku: S
    price: 12.50
    num_in_stock: 1
`))
		require.NoError(t, err)
		assert.Equal(t, "12.50", doc.Stock[0].Price)
	})

	t.Run("validation failures", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`stock:
  - product: {upc: "", title: T}
    partner: {name: P}
    partner_sku: S
    price: "-3"
    num_in_stock: -1
categories:
  - name: ""
`))
		require.ErrorIs(t, err, ErrInvalidFixture)
		assert.Contains(t, err.Error(), "Stock[0].Product.UPC failed 'required'")
		assert.Contains(t, err.Error(), "Stock[0].Price failed 'price'")
		assert.Contains(t, err.Error(), "Stock[0].NumInStock failed 'gte'")
		assert.Contains(t, err.Error(), "Categories[0].Name failed 'required'")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Decode(strings.NewReader("stock: [unclosed"))
		assert.ErrorIs(t, err, ErrInvalidFixture)
	})
}

func TestWriteAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "fixtures", "catalogue.yaml")

	doc, err := ParseStockCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, doc.WriteFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Stock, 2)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestAppend(t *testing.T) {
	a, err := ParseStockCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	b, err := ParseStockCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	a.Append(b)
	assert.Len(t, a.Stock, 4)
}
