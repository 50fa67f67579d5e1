package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"price-delta/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// table is a header plus the raw rows of a tabular source.
type table struct {
	header []string
	rows   [][]string
}

func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	t := &table{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// readWorkbook reads the first sheet with raw (unformatted) cell values.
func readWorkbook(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty sheet %s", path, sheets[0])
	}
	return &table{header: rows[0], rows: rows[1:]}, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// parsePrice reads a purchase price. ok is false for an empty cell.
func parsePrice(raw string) (price decimal.Decimal, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false, nil
	}
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	price, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid price %q", raw)
	}
	if price.IsNegative() {
		return decimal.Zero, false, fmt.Errorf("negative price %q", raw)
	}
	return price, true, nil
}

// rowStats counts rows that were dropped while reading one source.
type rowStats struct {
	Empty   int
	Invalid int
}

func parseBaseline(t *table) ([]models.BaselineRecord, rowStats, error) {
	idx, err := indexColumns(t.header, ColProductID, ColBaselinePrice)
	if err != nil {
		return nil, rowStats{}, err
	}
	var stats rowStats
	records := make([]models.BaselineRecord, 0, len(t.rows))
	for _, row := range t.rows {
		rawID := cell(row, idx[ColProductID])
		price, ok, err := parsePrice(cell(row, idx[ColBaselinePrice]))
		if rawID == "" || (!ok && err == nil) {
			stats.Empty++
			continue
		}
		if err != nil {
			stats.Invalid++
			continue
		}
		id, err := models.ParseProductID(rawID)
		if err != nil {
			stats.Invalid++
			continue
		}
		records = append(records, models.BaselineRecord{ID: id, OldPurchasePrice: price})
	}
	return records, stats, nil
}

func parseDescriptions(t *table) ([]models.Description, error) {
	idx, err := indexColumns(t.header, ColProductID, ColEAN, ColEANManual, ColDescription)
	if err != nil {
		return nil, err
	}
	out := make([]models.Description, 0, len(t.rows))
	for _, row := range t.rows {
		id, err := models.ParseProductID(cell(row, idx[ColProductID]))
		if err != nil {
			continue
		}
		out = append(out, models.Description{
			ID:        id,
			EAN:       cell(row, idx[ColEAN]),
			EANManual: cell(row, idx[ColEANManual]),
			Text:      cell(row, idx[ColDescription]),
		})
	}
	return out, nil
}

func parseSupplier(code string, schema Schema, t *table) ([]models.SupplierRecord, rowStats, error) {
	idx, err := indexColumns(t.header, schema.Columns()...)
	if err != nil {
		return nil, rowStats{}, err
	}
	var stats rowStats
	records := make([]models.SupplierRecord, 0, len(t.rows))
	for _, row := range t.rows {
		sku := cell(row, idx[schema.SKU])
		price, ok, err := parsePrice(cell(row, idx[schema.Price]))
		if sku == "" || (!ok && err == nil) {
			stats.Empty++
			continue
		}
		if err != nil {
			stats.Invalid++
			continue
		}
		rec := models.SupplierRecord{ID: models.NewProductID(code, sku), NewPurchasePrice: price}
		if schema.PromoEnd != "" {
			rec.PromoEnd = cell(row, idx[schema.PromoEnd])
		}
		records = append(records, rec)
	}
	return records, stats, nil
}

// Enrich left-joins descriptions onto the baseline by product id.
// The first description row for an id wins.
func Enrich(baseline []models.BaselineRecord, descriptions []models.Description) {
	byID := make(map[models.ProductID]models.Description, len(descriptions))
	for _, d := range descriptions {
		if _, seen := byID[d.ID]; !seen {
			byID[d.ID] = d
		}
	}
	for i := range baseline {
		if d, ok := byID[baseline[i].ID]; ok {
			baseline[i].EAN = d.EAN
			baseline[i].EANManual = d.EANManual
			baseline[i].Description = d.Text
		}
	}
}
