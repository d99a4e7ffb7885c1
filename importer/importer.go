/*
Package importer loads master-part catalogs from spreadsheet files.

PURPOSE:
  Dealers maintain their part lists in Excel or CSV exports from other
  systems, so the importer meets them where they are: delimiter
  auto-detection, case-insensitive header aliases, and tolerant row
  parsing. A bad row never aborts the import; it lands in the report
  and the rest of the file still loads.

BEHAVIOR:
  - Rows upsert by part number: existing parts keep their rule sets
    unless the row carries a base price or formula, which replaces the
    pricing rules with a single imported rule.
  - Empty cells never blank existing values, so a price-update sheet
    with just part numbers and prices leaves names and types alone.
  - XLSX reads the first sheet; CSV detects comma, semicolon, tab, or
    pipe delimiters.

SEE ALSO:
  - factory/: the JSON shape the REST catalog endpoints accept
  - store/sqlite: the PartStore implementation behind the API
*/
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/quote-engine/pricing"
)

// PartStore is the slice of the store the importer writes through.
type PartStore interface {
	GetPart(ctx context.Context, partNumber string) (*pricing.MasterPart, error)
	SavePart(ctx context.Context, part pricing.MasterPart) error
}

// Report summarizes one import run.
type Report struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ColumnMapping maps semantic column roles to their indices in the data.
// -1 means the column is absent.
type ColumnMapping struct {
	PartNumber int
	Name       int
	PartType   int
	Cost       int
	BasePrice  int
	Formula    int
	Active     int
}

// headerAliases maps canonical column roles to their accepted header
// spellings (all lowercase).
var headerAliases = map[string][]string{
	"part_number": {"part number", "part#", "part #", "pn", "sku", "part no", "number"},
	"name":        {"name", "part name", "description", "desc"},
	"part_type":   {"type", "part type", "category"},
	"cost":        {"cost", "direct cost", "price", "unit cost"},
	"base_price":  {"base price", "baseprice", "rule price"},
	"formula":     {"formula", "pricing formula"},
	"active":      {"active", "enabled"},
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Import sniffs the payload and dispatches: XLSX files open with a zip
// header ("PK"), everything else parses as CSV.
func Import(ctx context.Context, store PartStore, filename string, data []byte) Report {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") || bytes.HasPrefix(data, []byte("PK")) {
		return ImportXLSX(ctx, store, data)
	}
	return ImportCSV(ctx, store, data)
}

// ImportCSV imports master parts from CSV data, auto-detecting the
// delimiter.
func ImportCSV(ctx context.Context, store PartStore, data []byte) Report {
	var report Report

	if len(bytes.TrimSpace(data)) == 0 {
		report.Errors = append(report.Errors, "file is empty")
		return report
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		report.Warnings = append(report.Warnings, fmt.Sprintf("detected %s delimiter", name))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("cannot read CSV: %v", err))
		return report
	}

	return importRows(ctx, store, records, "line", report.Warnings)
}

// ImportXLSX imports master parts from the first sheet of a workbook.
func ImportXLSX(ctx context.Context, store PartStore, data []byte) Report {
	var report Report

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("cannot open workbook: %v", err))
		return report
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		report.Errors = append(report.Errors, "workbook has no sheets")
		return report
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err))
		return report
	}

	return importRows(ctx, store, rows, "row", nil)
}

// =============================================================================
// DETECTION
// =============================================================================

// DetectCSVDelimiter tries comma, semicolon, tab, and pipe; the
// delimiter producing the most consistent multi-column split wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			best = delim
		}
	}

	return best
}

// DetectColumns matches a header row against the alias table. When no
// alias matches, it falls back to positional columns (part number,
// name, type, cost) and reports that no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{
		PartNumber: -1, Name: -1, PartType: -1, Cost: -1,
		BasePrice: -1, Formula: -1, Active: -1,
	}

	assign := func(role string, i int) {
		switch role {
		case "part_number":
			if mapping.PartNumber == -1 {
				mapping.PartNumber = i
			}
		case "name":
			if mapping.Name == -1 {
				mapping.Name = i
			}
		case "part_type":
			if mapping.PartType == -1 {
				mapping.PartType = i
			}
		case "cost":
			if mapping.Cost == -1 {
				mapping.Cost = i
			}
		case "base_price":
			if mapping.BasePrice == -1 {
				mapping.BasePrice = i
			}
		case "formula":
			if mapping.Formula == -1 {
				mapping.Formula = i
			}
		case "active":
			if mapping.Active == -1 {
				mapping.Active = i
			}
		}
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					isHeader = true
					assign(role, i)
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{
			PartNumber: 0, Name: 1, PartType: 2, Cost: 3,
			BasePrice: -1, Formula: -1, Active: -1,
		}, false
	}
	return mapping, true
}

// =============================================================================
// ROW PARSING
// =============================================================================

// getCell safely retrieves a trimmed cell by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parsedRow is one row's catalog payload before the upsert merge. The
// has* flags record which cells the row actually carried so that empty
// cells never blank existing values.
type parsedRow struct {
	part      pricing.MasterPart
	hasCost   bool
	hasActive bool
	hasRule   bool
	basePrice *decimal.Decimal
	formula   string
}

func parseRow(row []string, mapping ColumnMapping, rowLabel string) (parsedRow, string, string) {
	var warning string

	partNumber := getCell(row, mapping.PartNumber)
	if partNumber == "" {
		return parsedRow{}, fmt.Sprintf("%s: missing part number", rowLabel), ""
	}

	part := pricing.MasterPart{
		PartNumber: partNumber,
		PartName:   getCell(row, mapping.Name),
		PartType:   pricing.ParsePartType(getCell(row, mapping.PartType)),
		IsActive:   true,
	}

	out := parsedRow{}

	if costStr := getCell(row, mapping.Cost); costStr != "" {
		cost, err := decimal.NewFromString(costStr)
		if err != nil {
			return parsedRow{}, fmt.Sprintf("%s: invalid cost %q", rowLabel, costStr), ""
		}
		part.DirectCost = cost
		out.hasCost = true
	}

	if activeStr := getCell(row, mapping.Active); activeStr != "" {
		active, ok := parseActive(activeStr)
		if !ok {
			warning = fmt.Sprintf("%s: unknown active value %q, ignoring", rowLabel, activeStr)
		} else {
			part.IsActive = active
			out.hasActive = true
		}
	}

	out.part = part

	if priceStr := getCell(row, mapping.BasePrice); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return parsedRow{}, fmt.Sprintf("%s: invalid base price %q", rowLabel, priceStr), ""
		}
		out.basePrice = &price
		out.hasRule = true
	}
	if formula := getCell(row, mapping.Formula); formula != "" {
		out.formula = formula
		out.hasRule = true
	}

	return out, "", warning
}

func parseActive(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1", "active":
		return true, true
	case "no", "n", "false", "0", "inactive":
		return false, true
	}
	return true, false
}

// =============================================================================
// UPSERT
// =============================================================================

// importRows is the shared loader for CSV and XLSX data.
func importRows(ctx context.Context, store PartStore, rows [][]string, rowPrefix string, warnings []string) Report {
	report := Report{Warnings: warnings}

	if len(rows) == 0 {
		report.Errors = append(report.Errors, "no data rows found")
		return report
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		if mapping.PartNumber == -1 {
			report.Errors = append(report.Errors, "required column not found in header: part number")
			return report
		}
	} else if len(rows[0]) >= 4 {
		// No recognized header. If the cost column of the first row is
		// not numeric, treat it as an unknown header and skip it.
		if _, err := decimal.NewFromString(strings.TrimSpace(rows[0][3])); err != nil {
			startRow = 1
			report.Warnings = append(report.Warnings, "skipping unrecognized header row")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		parsed, errMsg, warning := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			report.Errors = append(report.Errors, errMsg)
			report.Skipped++
			continue
		}
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}

		if err := upsertPart(ctx, store, parsed, &report); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rowLabel, err))
			report.Skipped++
		}
	}

	return report
}

// upsertPart merges a parsed row into the catalog. Existing parts keep
// their rule sets unless the row carries rule columns, and empty cells
// keep the existing value so a price-update sheet with only part
// numbers and prices does not wipe names or deactivate parts.
func upsertPart(ctx context.Context, store PartStore, parsed parsedRow, report *Report) error {
	existing, err := store.GetPart(ctx, parsed.part.PartNumber)
	if err != nil {
		return err
	}

	part := parsed.part
	if existing != nil {
		part.StockLengthRules = existing.StockLengthRules
		part.PricingRules = existing.PricingRules
		if part.PartName == "" {
			part.PartName = existing.PartName
		}
		if part.PartType == "" {
			part.PartType = existing.PartType
		}
		if !parsed.hasCost {
			part.DirectCost = existing.DirectCost
		}
		if !parsed.hasActive {
			part.IsActive = existing.IsActive
		}
	}

	if parsed.hasRule {
		part.PricingRules = []pricing.PricingRule{{
			ID:        part.PartNumber + "-import-1",
			BasePrice: parsed.basePrice,
			Formula:   parsed.formula,
			IsActive:  true,
		}}
	}

	if err := store.SavePart(ctx, part); err != nil {
		return err
	}

	if existing != nil {
		report.Updated++
	} else {
		report.Created++
	}
	return nil
}
