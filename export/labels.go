/*
labels.go - Opening label sheets

One QR-coded label per opening on Avery 5160 stock (3 columns x 10 rows
on US Letter). The QR payload carries enough JSON for a shop scanner to
pull the opening up: project, opening, mark, finished size.
*/
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/warp/quote-engine/quote"
)

// LabelPayload is the JSON encoded into each label's QR code.
type LabelPayload struct {
	ProjectID string `json:"project_id"`
	OpeningID string `json:"opening_id"`
	Mark      string `json:"mark"`
	Width     string `json:"width_in,omitempty"`
	Height    string `json:"height_in,omitempty"`
}

// Label layout constants for Avery 5160-compatible sheets. Each label
// cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelPageWidth  = 215.9 // US Letter width in mm
	labelPageHeight = 279.4 // US Letter height in mm
	labelMarginTop  = 12.7
	labelMarginLeft = 4.8
	labelWidth      = 66.7
	labelHeight     = 25.4
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0
	labelPadding    = 2.0
)

// LabelsPDF renders one label per opening to w, in position order.
func LabelsPDF(w io.Writer, project quote.Project, openings []quote.OpeningGraph) error {
	if len(openings) == 0 {
		return fmt.Errorf("no openings to label")
	}

	ordered := append([]quote.OpeningGraph{}, openings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Opening.Position != ordered[j].Opening.Position {
			return ordered[i].Opening.Position < ordered[j].Opening.Position
		}
		return ordered[i].Opening.ID < ordered[j].Opening.ID
	})

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, og := range ordered {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderOpeningLabel(pdf, x, y, project, og); err != nil {
			return fmt.Errorf("failed to render label for opening %q: %w", og.Opening.Mark, err)
		}
	}

	return pdf.Output(w)
}

// renderOpeningLabel draws a single label at the given position.
func renderOpeningLabel(pdf *fpdf.Fpdf, x, y float64, project quote.Project, og quote.OpeningGraph) error {
	// Light border as a cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	payload := LabelPayload{
		ProjectID: project.ID,
		OpeningID: og.Opening.ID,
		Mark:      og.Opening.Mark,
	}
	payload.Width, payload.Height = labelDims(og.Opening)

	qrData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal label payload: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := "qr_" + og.Opening.ID
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	// Text area on the left
	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	mark := og.Opening.Mark
	if mark == "" {
		mark = og.Opening.ID
	}
	if pdf.GetStringWidth(mark) > textW {
		for len(mark) > 0 && pdf.GetStringWidth(mark+"...") > textW {
			mark = mark[:len(mark)-1]
		}
		mark += "..."
	}
	pdf.CellFormat(textW, 5, mark, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+6)
	pdf.CellFormat(textW, 3.5, openingSizeText(og.Opening, panelsOf(og)), "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+10)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("%d panel(s)", len(og.Panels)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+14)
	pdf.CellFormat(textW, 3, project.Name, "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// labelDims picks the dimensions the shop cares about: finished when the
// opening is measured, rough otherwise, empty strings when unsized.
func labelDims(o quote.Opening) (width, height string) {
	if o.FinishedWidth != nil && o.FinishedHeight != nil {
		return o.FinishedWidth.String(), o.FinishedHeight.String()
	}
	if o.RoughWidth != nil && o.RoughHeight != nil {
		return o.RoughWidth.String(), o.RoughHeight.String()
	}
	return "", ""
}
