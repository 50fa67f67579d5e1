package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRun is the archived header of one pipeline execution
type ReportRun struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	RunID            string          `json:"run_id" gorm:"size:36;uniqueIndex;not null"`
	ReportFile       string          `json:"report_file"`
	BaselineFile     string          `json:"baseline_file"`
	FilterMode       string          `json:"filter_mode" gorm:"size:16"`
	ThresholdRatio   decimal.Decimal `json:"threshold_ratio" gorm:"type:decimal(8,4)"`
	BenignDifference decimal.Decimal `json:"benign_difference" gorm:"type:decimal(12,2)"`
	SupplierCount    int             `json:"supplier_count"`
	SkippedCount     int             `json:"skipped_count"`
	RecordCount      int             `json:"record_count"`
	CreatedAt        time.Time       `json:"created_at" gorm:"index"`
}

// PriceDeltaRow is one retained delta of an archived run
type PriceDeltaRow struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	RunID                string          `json:"run_id" gorm:"size:36;index;not null"`
	Position             int             `json:"position"` // order in the sorted report
	ProductID            string          `json:"product_id" gorm:"size:64;index;not null"`
	SupplierCode         string          `json:"supplier_code" gorm:"size:3;index"`
	OldPurchasePrice     decimal.Decimal `json:"old_purchase_price" gorm:"type:decimal(12,2)"`
	NewPurchasePrice     decimal.Decimal `json:"new_purchase_price" gorm:"type:decimal(12,2)"`
	PriceDifference      decimal.Decimal `json:"price_difference" gorm:"type:decimal(12,2)"`
	PercentageDifference decimal.Decimal `json:"percentage_difference" gorm:"type:decimal(10,2)"`
	EAN                  string          `json:"ean"`
	Description          string          `json:"description" gorm:"type:text"`
	PromoEnd             string          `json:"promo_end"`
	CreatedAt            time.Time       `json:"created_at"`
}

// NewPriceDeltaRows flattens sorted deltas into archive rows for one run.
func NewPriceDeltaRows(runID string, deltas []PriceDelta) []PriceDeltaRow {
	rows := make([]PriceDeltaRow, 0, len(deltas))
	for i, d := range deltas {
		ean := d.EAN
		if ean == "" {
			ean = d.EANManual
		}
		rows = append(rows, PriceDeltaRow{
			RunID:                runID,
			Position:             i + 1,
			ProductID:            d.ID.String(),
			SupplierCode:         d.ID.GroupKey(),
			OldPurchasePrice:     d.OldPurchasePrice,
			NewPurchasePrice:     d.NewPurchasePrice,
			PriceDifference:      d.PriceDifference,
			PercentageDifference: d.PercentageDifference,
			EAN:                  ean,
			Description:          d.Description,
			PromoEnd:             d.PromoEnd,
		})
	}
	return rows
}
