/*
pdf.go - Shop-drawing package

Landscape A4: a cover sheet with the project summary and opening index,
then one page per opening with a scaled elevation, dimension
annotations, and the door schedule table.
*/
package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/quote"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	scheduleRowH = 6.0
)

// DrawingData is everything the drawing package needs, preloaded by the
// caller. Run is the latest price run; nil when the project has never
// been priced, and the cover says so instead of showing a total.
type DrawingData struct {
	Project  quote.Project
	Openings []quote.OpeningGraph
	Catalog  catalog.Source
	Run      *quote.PriceRun
	Now      time.Time
}

// DrawingPDF renders the shop-drawing package to w.
func DrawingPDF(w io.Writer, data DrawingData) error {
	if len(data.Openings) == 0 {
		return fmt.Errorf("no openings to draw")
	}

	openings := append([]quote.OpeningGraph{}, data.Openings...)
	sort.SliceStable(openings, func(i, j int) bool {
		if openings[i].Opening.Position != openings[j].Opening.Position {
			return openings[i].Opening.Position < openings[j].Opening.Position
		}
		return openings[i].Opening.ID < openings[j].Opening.ID
	})

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	pdf.AddPage()
	renderCoverPage(pdf, data, openings)

	for _, og := range openings {
		pdf.AddPage()
		renderOpeningPage(pdf, og, data.Catalog)
	}

	return pdf.Output(w)
}

// =============================================================================
// COVER SHEET
// =============================================================================

func renderCoverPage(pdf *fpdf.Fpdf, data DrawingData, openings []quote.OpeningGraph) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, "Shop Drawing Package", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+headerHeight+2, pageWidth-marginRight, marginTop+headerHeight+2)

	panelCount := 0
	for _, og := range openings {
		panelCount += len(og.Panels)
	}

	total := "not priced"
	if data.Run != nil {
		total = "$" + data.Run.GrandTotal.StringFixed(2)
	}

	infoItems := []struct {
		label string
		value string
	}{
		{"Project", data.Project.Name},
		{"Customer", data.Project.Customer},
		{"Date", data.Now.Format("January 2, 2006")},
		{"Openings", fmt.Sprintf("%d", len(openings))},
		{"Panels", fmt.Sprintf("%d", panelCount)},
		{"Quote Total", total},
	}

	y := marginTop + headerHeight + 8
	for _, item := range infoItems {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(40, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(120, 6, item.value, "", 0, "L", false, 0, "")
		y += 7
	}

	// Opening index
	y += 6
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Opening Index", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{30, 55, 25, 130}
	headers := []string{"Mark", "Size", "Panels", "Products"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], scheduleRowH, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += scheduleRowH

	pdf.SetFont("Helvetica", "", 9)
	for i, og := range openings {
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		rowData := []string{
			og.Opening.Mark,
			openingSizeText(og.Opening, panelsOf(og)),
			fmt.Sprintf("%d", len(og.Panels)),
			openingProductNames(og, data.Catalog),
		}
		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], scheduleRowH, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += scheduleRowH
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Shop drawing package - for fabrication reference only", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// =============================================================================
// OPENING ELEVATION PAGES
// =============================================================================

func renderOpeningPage(pdf *fpdf.Fpdf, og quote.OpeningGraph, src catalog.Source) {
	panels := panelsOf(og)
	elev := BuildElevation(og.Opening, panels)

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Opening %s (%s)", og.Opening.Mark, openingSizeText(og.Opening, panels))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	// Drawing area above the schedule table
	scheduleHeight := scheduleRowH * float64(len(elev.Panels)+1)
	drawTop := marginTop + headerHeight + 5
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawTop - marginBottom - scheduleHeight - 14

	if elev.Width > 0 && elev.Height > 0 && drawHeight > 0 {
		scale := math.Min(drawWidth/elev.Width, drawHeight/elev.Height)
		canvasW := elev.Width * scale
		canvasH := elev.Height * scale
		offsetX := marginLeft + (drawWidth-canvasW)/2
		offsetY := drawTop

		renderElevation(pdf, elev, scale, offsetX, offsetY)
		drawDimensionAnnotations(pdf, elev, offsetX, offsetY, canvasW, canvasH)
	}

	renderDoorSchedule(pdf, og, elev, src, pageHeight-marginBottom-scheduleHeight-4)
}

func renderElevation(pdf *fpdf.Fpdf, elev OpeningElevation, scale, offsetX, offsetY float64) {
	place := func(r Rect) (float64, float64, float64, float64) {
		return offsetX + r.X*scale, offsetY + r.Y*scale, r.W * scale, r.H * scale
	}

	for _, pe := range elev.Panels {
		// Frame members in light gray
		pdf.SetFillColor(225, 225, 225)
		pdf.SetDrawColor(60, 60, 60)
		pdf.SetLineWidth(0.3)
		for _, r := range pe.Stiles {
			x, y, w, h := place(r)
			pdf.Rect(x, y, w, h, "FD")
		}
		for _, r := range pe.Rails {
			x, y, w, h := place(r)
			pdf.Rect(x, y, w, h, "FD")
		}

		// Daylight glass in light blue
		if pe.Glass.W > 0 && pe.Glass.H > 0 {
			gx, gy, gw, gh := place(pe.Glass)
			pdf.SetFillColor(214, 232, 245)
			pdf.Rect(gx, gy, gw, gh, "FD")
		}

		// Panel outline on top
		x, y, w, h := place(pe.Outline)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, w, h, "D")

		// Direction marks, dashed
		if len(pe.Marks) > 0 {
			pdf.SetDrawColor(90, 90, 90)
			pdf.SetLineWidth(0.25)
			pdf.SetDashPattern([]float64{1.5, 1.5}, 0)
			for _, m := range pe.Marks {
				pdf.Line(offsetX+m.X1*scale, offsetY+m.Y1*scale, offsetX+m.X2*scale, offsetY+m.Y2*scale)
			}
			pdf.SetDashPattern([]float64{}, 0)
		}

		// Panel number centered in the glass
		if gw, gh := pe.Glass.W*scale, pe.Glass.H*scale; gw > 10 && gh > 8 {
			label := fmt.Sprintf("%d", pe.Number)
			pdf.SetFont("Helvetica", "B", 10)
			pdf.SetTextColor(60, 60, 60)
			labelW := pdf.GetStringWidth(label)
			pdf.SetXY(offsetX+(pe.Glass.X+pe.Glass.W/2)*scale-labelW/2, offsetY+(pe.Glass.Y+pe.Glass.H/2)*scale-2)
			pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
	}
}

// drawDimensionAnnotations adds overall width and height labels outside
// the elevation rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, elev OpeningElevation, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := formatInches(elev.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := formatInches(elev.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// =============================================================================
// DOOR SCHEDULE
// =============================================================================

func renderDoorSchedule(pdf *fpdf.Fpdf, og quote.OpeningGraph, elev OpeningElevation, src catalog.Source, y float64) {
	colWidths := []float64{18, 25, 30, 35, 35, 124}
	headers := []string{"Panel #", "Type", "Width", "Direction", "Glass", "Hardware"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], scheduleRowH, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += scheduleRowH

	// Panel graphs keyed by panel ID for the hardware column
	byPanel := make(map[string]quote.PanelGraph, len(og.Panels))
	for _, pg := range og.Panels {
		byPanel[pg.Panel.ID] = pg
	}

	pdf.SetFont("Helvetica", "", 9)
	for i, pe := range elev.Panels {
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		glass := "-"
		if pe.Glass.W > 0 && pe.Glass.H > 0 {
			glass = fmt.Sprintf("%.0f x %.0f", pe.Glass.W, pe.Glass.H)
		}

		rowData := []string{
			fmt.Sprintf("%d", pe.Number),
			string(pe.PanelType),
			formatInches(pe.Outline.W),
			directionLabel(pe.Direction),
			glass,
			panelHardware(byPanel[pe.PanelID], src),
		}
		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], scheduleRowH, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += scheduleRowH
	}
}

// panelHardware lists the panel's selected hardware by name, categories
// in sorted order so the schedule is stable.
func panelHardware(pg quote.PanelGraph, src catalog.Source) string {
	var names []string
	for _, comp := range pg.Components {
		categories := make([]string, 0, len(comp.OptionSelections))
		for category := range comp.OptionSelections {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			optionID := comp.OptionSelections[category]
			if option, ok := src.Option(optionID); ok {
				names = append(names, option.Name)
			} else {
				names = append(names, optionID)
			}
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

func panelsOf(og quote.OpeningGraph) []quote.Panel {
	panels := make([]quote.Panel, 0, len(og.Panels))
	for _, pg := range og.Panels {
		panels = append(panels, pg.Panel)
	}
	return panels
}

func directionLabel(d quote.Direction) string {
	switch d {
	case quote.SwingLeftIn:
		return "LH in-swing"
	case quote.SwingRightIn:
		return "RH in-swing"
	case quote.SwingLeftOut:
		return "LH out-swing"
	case quote.SwingRightOut:
		return "RH out-swing"
	case quote.SlideLeft:
		return "slides left"
	case quote.SlideRight:
		return "slides right"
	}
	return "-"
}

// openingSizeText prefers field-measured finished dimensions, then plan
// rough dimensions, then the panel extents.
func openingSizeText(o quote.Opening, panels []quote.Panel) string {
	if o.FinishedWidth != nil && o.FinishedHeight != nil {
		return fmt.Sprintf("%s x %s in (finished)", o.FinishedWidth.String(), o.FinishedHeight.String())
	}
	if o.RoughWidth != nil && o.RoughHeight != nil {
		return fmt.Sprintf("%s x %s in (rough)", o.RoughWidth.String(), o.RoughHeight.String())
	}

	width := decimal.Zero
	height := decimal.Zero
	for _, p := range panels {
		width = width.Add(p.Width)
		if p.Height.GreaterThan(height) {
			height = p.Height
		}
	}
	if width.IsZero() && height.IsZero() {
		return "unsized"
	}
	return fmt.Sprintf("%s x %s in", width.String(), height.String())
}

func openingProductNames(og quote.OpeningGraph, src catalog.Source) string {
	var names []string
	seen := make(map[string]bool)
	for _, pg := range og.Panels {
		for _, comp := range pg.Components {
			if seen[comp.ProductID] {
				continue
			}
			seen[comp.ProductID] = true
			if product, ok := src.Product(comp.ProductID); ok {
				names = append(names, product.Name)
			} else {
				names = append(names, comp.ProductID)
			}
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// formatInches trims trailing zeros so 36.00 prints as 36" and 47.25
// stays 47.25".
func formatInches(v float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + `"`
}
