package fixture

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	csvimport "github.com/shop/backend/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// StockColumns are the positional columns of a stock CSV file.
var StockColumns = []string{
	"product_class", "category", "upc", "title", "description",
	"partner_name", "partner_sku", "price", "num_in_stock",
}

const maxRowErrors = 50

var stockRules = []csvimport.FieldRule{
	csvimport.Field("upc").Required().MaxLength(64).Build(),
	csvimport.Field("partner_sku").Required().MaxLength(128).Build(),
	csvimport.Field("price").Required().Decimal().MinValue(decimal.Zero).Build(),
	csvimport.Field("num_in_stock").Required().Int().MinValue(decimal.Zero).Build(),
}

// ParseStockCSV converts a stock CSV into a document holding only stock
// entries. Every bad row is reported; the returned error is a
// *csvimport.ErrorCollection when rows were rejected.
func ParseStockCSV(r io.Reader) (*Document, error) {
	parser, err := csvimport.NewCSVParser(r,
		csvimport.WithColumns(StockColumns...),
		csvimport.WithBackslashEscapes(),
		csvimport.WithTrimSpace(false),
	)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	fields := csvimport.NewFieldValidator(stockRules, maxRowErrors)
	errs := fields.Errors()

	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs.Add(csvimport.NewRowError(parser.CurrentRow(), "", csvimport.ErrCodeImportCSVParsing, err.Error()))
			// encoding/csv cannot resync after a quoting error.
			break
		}
		if row.IsEmpty() {
			continue
		}
		if len(row.RawFields) != len(StockColumns) {
			errs.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportMalformedRow,
				fmt.Sprintf("expected %d fields, got %d", len(StockColumns), len(row.RawFields))))
			continue
		}
		if !fields.ValidateRow(row) {
			continue
		}
		doc.Stock = append(doc.Stock, stockItem(row))
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseStockFile converts the stock CSV at path.
func ParseStockFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ParseStockCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func stockItem(row *csvimport.Row) StockItem {
	// Validated as an integer above.
	n, _ := strconv.Atoi(strings.TrimSpace(row.Get("num_in_stock")))
	return StockItem{
		Product: ProductItem{
			UPC:          row.Get("upc"),
			Title:        row.Get("title"),
			Description:  row.Get("description"),
			ProductClass: NamedRef{Name: row.Get("product_class")},
			Categories:   []NamedRef{{Name: row.Get("category")}},
		},
		Partner:    NamedRef{Name: row.Get("partner_name")},
		PartnerSKU: row.Get("partner_sku"),
		Price:      row.Get("price"),
		NumInStock: n,
	}
}
