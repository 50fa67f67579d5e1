package loader

import (
	"fmt"
	"strings"
)

// Baseline and description column names as exported by the shop backend.
const (
	ColProductID     = "Product ID eigen"
	ColBaselinePrice = "Inkoopprijs (excl. BTW)"
	ColEAN           = "EAN"
	ColEANManual     = "EAN (handmatig)"
	ColDescription   = "Omschrijving"
)

// File name patterns, matched against base names.
const (
	BaselinePattern    = "basis_sorted_PriceList_bol*.csv"
	DescriptionPattern = "basis_*.xlsm"
	supplierPatternFmt = "%s_Vendit*.csv"
	reservedDir        = "tmp"
)

// SupplierPattern is the file name pattern for a supplier's price export.
func SupplierPattern(code string) string {
	return fmt.Sprintf(supplierPatternFmt, code)
}

// Schema declares the columns read from a supplier export.
type Schema struct {
	SKU      string
	Price    string
	PromoEnd string // optional; empty when the supplier has no promo column
}

// Columns lists every column that must be present in the header.
func (s Schema) Columns() []string {
	cols := []string{s.SKU, s.Price}
	if s.PromoEnd != "" {
		cols = append(cols, s.PromoEnd)
	}
	return cols
}

// Schemas maps supplier codes to their declared columns.
type Schemas struct {
	Default   Schema
	Overrides map[string]Schema
}

// For returns the schema declared for a supplier code.
func (s Schemas) For(code string) Schema {
	if schema, ok := s.Overrides[code]; ok {
		return schema
	}
	return s.Default
}

// DefaultSchemas is the Vendit export layout; EXL also exposes its promo end date.
func DefaultSchemas() Schemas {
	base := Schema{SKU: "sku", Price: "Inkoopprijs exclusief"}
	exl := base
	exl.PromoEnd = "promo_tot"
	return Schemas{
		Default:   base,
		Overrides: map[string]Schema{"EXL": exl},
	}
}

// indexColumns maps each wanted column to its position in header.
func indexColumns(header []string, want ...string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := make(map[string]int, len(want))
	var missing []string
	for _, w := range want {
		i, ok := pos[w]
		if !ok {
			missing = append(missing, w)
			continue
		}
		idx[w] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}
