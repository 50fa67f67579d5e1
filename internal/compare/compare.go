// Package compare joins baseline and supplier prices, derives the price
// differences and keeps the ones worth reviewing.
package compare

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"price-delta/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUndefinedPercentage marks a record whose baseline price is zero.
var ErrUndefinedPercentage = errors.New("undefined percentage: baseline price is zero")

var hundred = decimal.NewFromInt(100)

// FilterMode selects how the price difference is compared against the threshold.
type FilterMode string

const (
	// FilterAbsolute reports increases and decreases.
	FilterAbsolute FilterMode = "absolute"
	// FilterSigned only reports positive differences (baseline above current price).
	FilterSigned FilterMode = "signed"
)

// ParseFilterMode accepts "absolute" or "signed", case-insensitive.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case FilterAbsolute:
		return FilterAbsolute, nil
	case FilterSigned:
		return FilterSigned, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want absolute or signed)", s)
	}
}

// FilterConfig holds the significance settings.
type FilterConfig struct {
	ThresholdRatio   decimal.Decimal
	BenignDifference decimal.Decimal // zero disables the exclusion
	Mode             FilterMode
}

// Merge inner-joins baseline and supplier records on product id.
// Duplicate keys yield every pairing, in baseline order then supplier order.
func Merge(baseline []models.BaselineRecord, suppliers []models.SupplierRecord) []models.JoinedRecord {
	byID := make(map[models.ProductID][]models.SupplierRecord, len(suppliers))
	for _, s := range suppliers {
		byID[s.ID] = append(byID[s.ID], s)
	}

	joined := make([]models.JoinedRecord, 0, len(baseline))
	for _, b := range baseline {
		for _, s := range byID[b.ID] {
			joined = append(joined, models.JoinedRecord{
				ID:               b.ID,
				OldPurchasePrice: b.OldPurchasePrice,
				NewPurchasePrice: s.NewPurchasePrice,
				EAN:              b.EAN,
				EANManual:        b.EANManual,
				Description:      b.Description,
				PromoEnd:         s.PromoEnd,
			})
		}
	}
	return joined
}

// Calculate attaches price and percentage differences to every record.
// Records with a zero baseline price are returned as rejections.
func Calculate(joined []models.JoinedRecord) ([]models.PriceDelta, []models.Rejection) {
	deltas := make([]models.PriceDelta, 0, len(joined))
	var rejected []models.Rejection
	for _, r := range joined {
		d, err := Delta(r)
		if err != nil {
			rejected = append(rejected, models.Rejection{Record: r, Reason: err})
			continue
		}
		deltas = append(deltas, d)
	}
	return deltas, rejected
}

// Delta computes the differences for a single record.
func Delta(r models.JoinedRecord) (models.PriceDelta, error) {
	if r.OldPurchasePrice.IsZero() {
		return models.PriceDelta{}, fmt.Errorf("%s: %w", r.ID, ErrUndefinedPercentage)
	}
	diff := r.OldPurchasePrice.Sub(r.NewPurchasePrice).RoundBank(2)
	pct := diff.Div(r.OldPurchasePrice).Mul(hundred).RoundBank(2)
	return models.PriceDelta{
		JoinedRecord:         r,
		PriceDifference:      diff,
		PercentageDifference: pct,
	}, nil
}

// Filter keeps the deltas whose difference exceeds the configured share of
// the baseline price, minus the known benign difference.
func Filter(deltas []models.PriceDelta, cfg FilterConfig) []models.PriceDelta {
	benign := cfg.BenignDifference.RoundBank(2)
	kept := make([]models.PriceDelta, 0, len(deltas))
	for _, d := range deltas {
		if !Significant(d, cfg.ThresholdRatio, cfg.Mode) {
			continue
		}
		if !benign.IsZero() && d.PriceDifference.Equal(benign) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// Significant reports whether a single delta passes the threshold.
func Significant(d models.PriceDelta, ratio decimal.Decimal, mode FilterMode) bool {
	limit := d.OldPurchasePrice.Mul(ratio)
	diff := d.PriceDifference
	if mode != FilterSigned {
		diff = diff.Abs()
	}
	return diff.GreaterThan(limit)
}

// Sort orders deltas by supplier prefix, then by descending percentage.
// The sort is stable; ties keep their input order.
func Sort(deltas []models.PriceDelta) {
	sort.SliceStable(deltas, func(i, j int) bool {
		gi, gj := deltas[i].ID.GroupKey(), deltas[j].ID.GroupKey()
		if gi != gj {
			return gi < gj
		}
		return deltas[i].PercentageDifference.GreaterThan(deltas[j].PercentageDifference)
	})
}
