// Package report writes the sorted price deltas to a timestamped file.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"price-delta/internal/models"

	"github.com/shopspring/decimal"
)

// TimestampLayout is embedded in report names; it sorts chronologically and is safe on every filesystem.
const TimestampLayout = "2006-01-02_15-04-05"

// Header is the column order of every report.
var Header = []string{
	"product_id",
	"old_purchase_price",
	"ean",
	"ean_manual",
	"description",
	"new_purchase_price",
	"promo_end",
	"price_difference",
	"percentage_difference",
}

// FileName builds "<prefix>_<timestamp>.<format>".
func FileName(prefix string, now time.Time, format string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format(TimestampLayout), format)
}

type Emitter struct {
	Dir    string
	Prefix string
	Format string // "csv" or "xlsx"
	Now    func() time.Time
}

// Emit writes deltas to a new report file and returns its path.
func (e *Emitter) Emit(deltas []models.PriceDelta) (string, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.Dir, FileName(e.Prefix, now(), e.Format))
	if err := Write(path, e.Format, deltas); err != nil {
		return "", err
	}
	return path, nil
}

// Write serializes deltas to path in the given format.
func Write(path, format string, deltas []models.PriceDelta) error {
	switch format {
	case "csv":
		return writeCSV(path, deltas)
	case "xlsx":
		return writeXLSX(path, deltas)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// Row renders one delta in Header order.
func Row(d models.PriceDelta) []string {
	return []string{
		d.ID.String(),
		money(d.OldPurchasePrice),
		d.EAN,
		d.EANManual,
		d.Description,
		money(d.NewPurchasePrice),
		d.PromoEnd,
		money(d.PriceDifference),
		money(d.PercentageDifference),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func writeCSV(path string, deltas []models.PriceDelta) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, d := range deltas {
		if err := w.Write(Row(d)); err != nil {
			return fmt.Errorf("write report row %s: %w", d.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Latest returns the most recently modified report in dir for prefix.
func Latest(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		if ext := filepath.Ext(name); ext != ".csv" && ext != ".xlsx" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{path: filepath.Join(dir, name), mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no %s_* report in %s", prefix, dir)
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].mod.Equal(found[j].mod) {
			return found[i].mod.After(found[j].mod)
		}
		return found[i].path > found[j].path
	})
	return found[0].path, nil
}
