package report

import (
	"fmt"

	"price-delta/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the report.
const SheetName = "price_delta"

var columnWidths = map[string]float64{
	"A": 16, // product_id
	"B": 12,
	"C": 16,
	"D": 16,
	"E": 48, // description
	"F": 12,
	"G": 12,
	"H": 12,
	"I": 12,
}

// numeric columns are stored as numbers so they sort and sum in Excel
var numericColumns = map[int]bool{1: true, 5: true, 7: true, 8: true}

func writeXLSX(path string, deltas []models.PriceDelta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return fmt.Errorf("number style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, d := range deltas {
		text := Row(d)
		row := make([]interface{}, len(text))
		for c, v := range text {
			row[c] = v
		}
		for c := range numericColumns {
			row[c] = numericValue(d, c)
		}
		ref, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, ref, &row); err != nil {
			return fmt.Errorf("write row %s: %w", d.ID, err)
		}
	}

	if n := len(deltas); n > 0 {
		for c := range numericColumns {
			col, _ := excelize.ColumnNumberToName(c + 1)
			if err := f.SetCellStyle(SheetName, col+"2", fmt.Sprintf("%s%d", col, n+1), moneyStyle); err != nil {
				return fmt.Errorf("style column %s: %w", col, err)
			}
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("column width %s: %w", col, err)
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func numericValue(d models.PriceDelta, col int) float64 {
	switch col {
	case 1:
		return d.OldPurchasePrice.InexactFloat64()
	case 5:
		return d.NewPurchasePrice.InexactFloat64()
	case 7:
		return d.PriceDifference.InexactFloat64()
	default:
		return d.PercentageDifference.InexactFloat64()
	}
}
