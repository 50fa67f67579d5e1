package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SupplierCodeLength is the fixed width of the supplier prefix in a product id.
const SupplierCodeLength = 3

// ProductID namespaces a supplier SKU under its supplier code.
// "ABC"+"123" and "AB"+"C123" render the same string but are different keys.
type ProductID struct {
	Supplier string `json:"supplier"`
	SKU      string `json:"sku"`
}

// NewProductID builds the key used by supplier sources.
func NewProductID(supplier, sku string) ProductID {
	return ProductID{Supplier: supplier, SKU: sku}
}

// ParseProductID splits a baseline identifier into supplier prefix and SKU.
func ParseProductID(raw string) (ProductID, error) {
	if len(raw) <= SupplierCodeLength {
		return ProductID{}, fmt.Errorf("product id %q shorter than supplier prefix", raw)
	}
	return ProductID{Supplier: raw[:SupplierCodeLength], SKU: raw[SupplierCodeLength:]}, nil
}

func (p ProductID) String() string {
	return p.Supplier + p.SKU
}

// GroupKey is the report grouping key (the supplier prefix).
func (p ProductID) GroupKey() string {
	return p.Supplier
}

// BaselineRecord is one row of the previously recorded price list
type BaselineRecord struct {
	ID               ProductID       `json:"product_id"`
	OldPurchasePrice decimal.Decimal `json:"old_purchase_price"`
	EAN              string          `json:"ean"`
	EANManual        string          `json:"ean_manual"`
	Description      string          `json:"description"`
}

// SupplierRecord is one row of a supplier's current price export
type SupplierRecord struct {
	ID               ProductID       `json:"product_id"`
	NewPurchasePrice decimal.Decimal `json:"new_purchase_price"`
	PromoEnd         string          `json:"promo_end,omitempty"` // only filled for suppliers exposing a promo column
}

// Description carries the enrichment fields read from the EAN workbook
type Description struct {
	ID        ProductID
	EAN       string
	EANManual string
	Text      string
}

// JoinedRecord pairs a baseline price with the supplier's current price.
type JoinedRecord struct {
	ID               ProductID       `json:"product_id"`
	OldPurchasePrice decimal.Decimal `json:"old_purchase_price"`
	NewPurchasePrice decimal.Decimal `json:"new_purchase_price"`
	EAN              string          `json:"ean"`
	EANManual        string          `json:"ean_manual"`
	Description      string          `json:"description"`
	PromoEnd         string          `json:"promo_end,omitempty"`
}

// PriceDelta is a joined record with its derived differences attached.
type PriceDelta struct {
	JoinedRecord
	PriceDifference      decimal.Decimal `json:"price_difference"`
	PercentageDifference decimal.Decimal `json:"percentage_difference"`
}

// Rejection records a joined record that could not be evaluated.
type Rejection struct {
	Record JoinedRecord
	Reason error
}
