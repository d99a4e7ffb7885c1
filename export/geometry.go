/*
Package export renders quoting projects into deliverable artifacts: the
shop-drawing PDF package, opening label sheets, and the quote workbook.

PURPOSE:
  Everything here consumes a loaded project graph plus a catalog source
  and writes to an io.Writer; nothing reads storage and nothing mutates.
  The API layer streams these straight into HTTP responses.

FILES:
  - geometry.go: pure elevation geometry (this file)
  - pdf.go:      shop-drawing package (cover, elevations, door schedule)
  - labels.go:   QR opening labels on Avery 5160 sheets
  - xlsx.go:     quote workbook (summary, openings, line detail)
*/
package export

import (
	"sort"

	"github.com/warp/quote-engine/quote"
)

// =============================================================================
// FRAME PROFILES
// =============================================================================

// Standard frame member sizes in inches. Elevations draw these regardless
// of the BOM; the drawing shows intent, the BOM prices metal.
const (
	swingHeaderIn = 5.0
	swingBottomIn = 10.0 // kick rail
	swingStileIn  = 4.0

	slidingHeaderIn = 5.0
	slidingBottomIn = 5.0
	// The lock-side vertical member; shop drawings call it the lock rail.
	slidingLockRailIn   = 4.0
	slidingOuterStileIn = 2.0

	fixedHeaderIn = 5.0
	fixedBottomIn = 5.0
	fixedStopIn   = 1.0 // glass stop between adjacent lites
	// Terminating stile where a fixed run meets the end of the opening.
	fixedTerminatingIn = 4.0
)

// =============================================================================
// GEOMETRY TYPES
// =============================================================================

// Rect is a drawing rectangle in inches. The origin is the top-left of
// the opening elevation; Y grows downward, matching PDF coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Line is a straight annotation segment in the same coordinate space.
type Line struct {
	X1, Y1, X2, Y2 float64
}

// PanelElevation is one panel's drawable geometry: the outline, the
// frame members, the remaining daylight glass, and direction marks.
type PanelElevation struct {
	PanelID   string
	Number    int // 1-based, left to right
	PanelType quote.PanelType
	Direction quote.Direction

	Outline Rect
	Glass   Rect
	Rails   []Rect // horizontal members, top to bottom
	Stiles  []Rect // vertical members, left to right

	// Marks are direction indicators (swing V, slide arrow), drawn
	// dashed by the renderer.
	Marks []Line
}

// OpeningElevation is a whole opening laid out panel by panel on a
// shared sill line.
type OpeningElevation struct {
	OpeningID string
	Mark      string
	Width     float64 // sum of panel widths, inches
	Height    float64 // tallest panel, inches
	Panels    []PanelElevation
}

// =============================================================================
// ELEVATION BUILD
// =============================================================================

// BuildElevation lays the opening's panels out left to right in position
// order. Panels of different heights share the sill line, so a shorter
// panel hangs from Y = tallest - own height.
func BuildElevation(opening quote.Opening, panels []quote.Panel) OpeningElevation {
	ordered := append([]quote.Panel{}, panels...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	elev := OpeningElevation{OpeningID: opening.ID, Mark: opening.Mark}
	for _, p := range ordered {
		elev.Width += p.Width.InexactFloat64()
		if h := p.Height.InexactFloat64(); h > elev.Height {
			elev.Height = h
		}
	}

	x := 0.0
	for i, p := range ordered {
		pe := panelElevation(p, x, elev.Height, i == 0, i == len(ordered)-1)
		pe.Number = i + 1
		elev.Panels = append(elev.Panels, pe)
		x += p.Width.InexactFloat64()
	}
	return elev
}

func panelElevation(p quote.Panel, x, openingHeight float64, first, last bool) PanelElevation {
	w := p.Width.InexactFloat64()
	h := p.Height.InexactFloat64()
	y := openingHeight - h

	pe := PanelElevation{
		PanelID:   p.ID,
		PanelType: p.PanelType,
		Direction: p.Direction,
		Outline:   Rect{X: x, Y: y, W: w, H: h},
	}

	var top, bottom, left, right float64
	switch p.PanelType {
	case quote.PanelSwing:
		top, bottom = swingHeaderIn, swingBottomIn
		left, right = swingStileIn, swingStileIn

	case quote.PanelSliding:
		top, bottom = slidingHeaderIn, slidingBottomIn
		// The lock rail sits on the side the panel closes against.
		if p.Direction == quote.SlideLeft {
			left, right = slidingLockRailIn, slidingOuterStileIn
		} else {
			left, right = slidingOuterStileIn, slidingLockRailIn
		}

	default: // fixed
		top, bottom = fixedHeaderIn, fixedBottomIn
		left, right = fixedStopIn, fixedStopIn
		if first {
			left = fixedTerminatingIn
		}
		if last {
			right = fixedTerminatingIn
		}
	}

	// Degenerate panels collapse to zero glass rather than inverting.
	if left+right > w {
		scale := w / (left + right)
		left, right = left*scale, right*scale
	}
	if top+bottom > h {
		scale := h / (top + bottom)
		top, bottom = top*scale, bottom*scale
	}

	pe.Stiles = []Rect{
		{X: x, Y: y, W: left, H: h},
		{X: x + w - right, Y: y, W: right, H: h},
	}
	pe.Rails = []Rect{
		{X: x + left, Y: y, W: w - left - right, H: top},
		{X: x + left, Y: y + h - bottom, W: w - left - right, H: bottom},
	}
	pe.Glass = Rect{
		X: x + left,
		Y: y + top,
		W: w - left - right,
		H: h - top - bottom,
	}

	pe.Marks = directionMarks(pe)
	return pe
}

// directionMarks builds the dashed indicator for a panel: the swing V
// from the hinge-side glass corners to the strike-side mid-edge, or a
// slide arrow across the glass.
func directionMarks(pe PanelElevation) []Line {
	g := pe.Glass
	if g.W <= 0 || g.H <= 0 {
		return nil
	}

	switch pe.PanelType {
	case quote.PanelSwing:
		hingeLeft := pe.Direction == quote.SwingLeftIn || pe.Direction == quote.SwingLeftOut
		hingeX, strikeX := g.X, g.X+g.W
		if !hingeLeft {
			hingeX, strikeX = g.X+g.W, g.X
		}
		midY := g.Y + g.H/2
		return []Line{
			{X1: hingeX, Y1: g.Y, X2: strikeX, Y2: midY},
			{X1: hingeX, Y1: g.Y + g.H, X2: strikeX, Y2: midY},
		}

	case quote.PanelSliding:
		midY := g.Y + g.H/2
		tail, head := g.X+g.W*0.75, g.X+g.W*0.25
		if pe.Direction == quote.SlideRight {
			tail, head = g.X+g.W*0.25, g.X+g.W*0.75
		}
		barb := g.W * 0.08
		barbY := g.H * 0.08
		dir := 1.0
		if head < tail {
			dir = -1.0
		}
		return []Line{
			{X1: tail, Y1: midY, X2: head, Y2: midY},
			{X1: head, Y1: midY, X2: head - dir*barb, Y2: midY - barbY},
			{X1: head, Y1: midY, X2: head - dir*barb, Y2: midY + barbY},
		}
	}
	return nil
}
