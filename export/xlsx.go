/*
xlsx.go - Quote workbook

Three sheets: Summary (how category bases became the sell price),
Openings (one row per opening), Lines (the full priced line detail, the
same flattening the price-run audit trail stores).
*/
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/quote-engine/quote"
)

// WorkbookData is a freshly priced project ready for the workbook.
type WorkbookData struct {
	Project  quote.Project
	Openings []quote.OpeningGraph
	Quote    *quote.ProjectQuote
	Now      time.Time
}

// QuoteXLSX renders the quote workbook to w.
func QuoteXLSX(w io.Writer, data WorkbookData) error {
	if data.Quote == nil {
		return fmt.Errorf("nothing priced to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Summary")
	if _, err := f.NewSheet("Openings"); err != nil {
		return err
	}
	if _, err := f.NewSheet("Lines"); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	writeSummarySheet(f, data, headerStyle, totalStyle)
	writeOpeningsSheet(f, data, headerStyle)
	writeLinesSheet(f, data, headerStyle)

	return f.Write(w)
}

// =============================================================================
// SUMMARY SHEET
// =============================================================================

func writeSummarySheet(f *excelize.File, data WorkbookData, headerStyle, totalStyle int) {
	sheet := "Summary"
	q := data.Quote

	info := []struct {
		label string
		value any
	}{
		{"Project", data.Project.Name},
		{"Customer", data.Project.Customer},
		{"Date", data.Now.Format("2006-01-02")},
		{"Markup Profile", q.Profile.Name},
	}
	for i, item := range info {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), item.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), item.value)
		cell := fmt.Sprintf("A%d", i+1)
		f.SetCellStyle(sheet, cell, cell, totalStyle)
	}

	headers := []string{"Category", "Base Cost", "Markup %", "Marked Up", "Pass-Through"}
	headerRow := len(info) + 2
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	row := headerRow + 1
	for _, cp := range q.Result.Categories {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(cp.Category))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), money(cp.Base))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), money(cp.Markup))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), money(cp.Marked))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), money(cp.PassThrough))
		row++
	}

	row++
	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal (base)", q.Result.SubtotalBase},
		{"Subtotal (sell)", q.Result.SubtotalMarkedUp},
		{"Installation", q.Result.Installation},
		{"Tax", q.Result.TaxAmount},
		{"Grand Total", q.Result.GrandTotal},
	}
	for _, item := range totals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), money(item.value))
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), totalStyle)
		row++
	}

	colWidths := []float64{18, 14, 12, 14, 14}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// =============================================================================
// OPENINGS SHEET
// =============================================================================

func writeOpeningsSheet(f *excelize.File, data WorkbookData, headerStyle int) {
	sheet := "Openings"

	headers := []string{"Mark", "Size", "Panels", "Components", "Base Cost"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	graphs := make(map[string]quote.OpeningGraph, len(data.Openings))
	for _, og := range data.Openings {
		graphs[og.Opening.ID] = og
	}

	// Quote openings are already in position order.
	for i, oq := range data.Quote.Openings {
		row := i + 2
		og := graphs[oq.OpeningID]

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), oq.Mark)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), openingSizeText(og.Opening, panelsOf(og)))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), len(og.Panels))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), len(oq.Components))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), money(oq.Summary.Total))
	}

	colWidths := []float64{12, 24, 8, 12, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// =============================================================================
// LINES SHEET
// =============================================================================

func writeLinesSheet(f *excelize.File, data WorkbookData, headerStyle int) {
	sheet := "Lines"

	headers := []string{"Opening", "Component", "Part", "Method", "Details", "Unit Cost", "Total Cost", "Category"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	marks := make(map[string]string, len(data.Openings))
	for _, og := range data.Openings {
		marks[og.Opening.ID] = og.Opening.Mark
	}

	// The audit-trail flattening is also the export flattening.
	_, lines := quote.NewPriceRun(data.Quote, "", data.Now)
	for i, line := range lines {
		row := i + 2
		opening := line.OpeningID
		if mark, ok := marks[line.OpeningID]; ok && mark != "" {
			opening = mark
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), opening)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.ComponentID)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.PartNumber)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.Method)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.Details)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), money(line.UnitCost))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), money(line.TotalCost))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), string(line.Category))
	}

	colWidths := []float64{12, 16, 14, 20, 44, 11, 11, 11}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// money rounds for display cells. Exports are presentation; stored runs
// keep exact decimals.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
