/*
Package quote models quoting projects and turns them into priced quotes.

PURPOSE:
  A project is a tree: Project -> Openings (wall cutouts) -> Panels
  (divisions of an opening) -> ComponentInstances (a catalog product
  placed on a panel, with option selections and glass). This package owns
  that entity graph plus the Calculator that walks it: every BOM line of
  every placed product goes through the pricing engine, component results
  roll up through openings to a project base, and the project's markup
  profile turns the base into sell pricing.

KEY CONCEPTS:
  - Opening tolerance: a finished opening deducts an installation
    tolerance from its rough dimensions. Exactly one tolerance-eligible
    product owns the deduction; ownership moves when components come and
    go (pricing.ToleranceResolver decides, this package applies it to
    the Opening).
  - PriceRun: an append-only audit record of one calculation. Reruns
    append, never rewrite.

SEE ALSO:
  - calculator.go: the pricing walk
  - validate.go: input validation for the entity graph
  - catalog/: products, options, markup profiles
*/
package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
)

// =============================================================================
// PROJECT GRAPH
// =============================================================================

// Project is a quoting job for one customer.
type Project struct {
	ID        string
	Name      string
	Customer  string
	ProfileID string

	// Job-level pricing inputs. When set they override the markup
	// profile's own tax rate / installation amount.
	TaxRate      decimal.Decimal
	Installation decimal.Decimal

	// NeedsReprice marks the project stale after catalog edits; the
	// scheduler sweeps flagged projects.
	NeedsReprice bool
	CreatedAt    time.Time
}

// Opening is a wall cutout identified by its mark on the plans.
type Opening struct {
	ID        string
	ProjectID string
	Mark      string
	Position  int

	// Rough dimensions come off the plans; nil until measured.
	RoughWidth  *decimal.Decimal
	RoughHeight *decimal.Decimal

	// IsFinished marks the opening as field-measured: finished openings
	// deduct an installation tolerance, rough ones are quoted as-is.
	IsFinished bool

	ToleranceProductID   string
	WidthToleranceTotal  decimal.Decimal
	HeightToleranceTotal decimal.Decimal
	FinishedWidth        *decimal.Decimal
	FinishedHeight       *decimal.Decimal
}

// ToleranceState projects the opening's tolerance fields into the
// resolver's state type.
func (o Opening) ToleranceState() pricing.ToleranceState {
	return pricing.ToleranceState{
		RoughWidth:           o.RoughWidth,
		RoughHeight:          o.RoughHeight,
		IsFinished:           o.IsFinished,
		OwnerProductID:       o.ToleranceProductID,
		WidthToleranceTotal:  o.WidthToleranceTotal,
		HeightToleranceTotal: o.HeightToleranceTotal,
		FinishedWidth:        o.FinishedWidth,
		FinishedHeight:       o.FinishedHeight,
	}
}

// SetToleranceState writes a resolver result back onto the opening.
func (o *Opening) SetToleranceState(s pricing.ToleranceState) {
	o.ToleranceProductID = s.OwnerProductID
	o.WidthToleranceTotal = s.WidthToleranceTotal
	o.HeightToleranceTotal = s.HeightToleranceTotal
	o.FinishedWidth = s.FinishedWidth
	o.FinishedHeight = s.FinishedHeight
}

// AttachTolerance runs the resolver for a product being placed on this
// opening and applies the result. Reports whether the opening changed.
func (o *Opening) AttachTolerance(r pricing.ToleranceResolver, product catalog.Product) bool {
	next, changed := r.Attach(o.ToleranceState(), product.ToleranceView())
	if changed {
		o.SetToleranceState(next)
	}
	return changed
}

// DetachTolerance runs the resolver for a product being removed.
// remaining is the opening's still-placed products in panel order.
func (o *Opening) DetachTolerance(r pricing.ToleranceResolver, productID string, remaining []catalog.Product) bool {
	views := make([]pricing.ToleranceProduct, len(remaining))
	for i, p := range remaining {
		views[i] = p.ToleranceView()
	}
	next, changed := r.Detach(o.ToleranceState(), productID, views)
	if changed {
		o.SetToleranceState(next)
	}
	return changed
}

// =============================================================================
// PANELS AND COMPONENTS
// =============================================================================

type PanelType string

const (
	PanelFixed   PanelType = "fixed"
	PanelSwing   PanelType = "swing"
	PanelSliding PanelType = "sliding"
)

// Direction encodes hinge side + swing sense for swing panels and slide
// side for sliding panels. Fixed panels carry no direction.
type Direction string

const (
	SwingLeftIn   Direction = "left-in"
	SwingRightIn  Direction = "right-in"
	SwingLeftOut  Direction = "left-out"
	SwingRightOut Direction = "right-out"
	SlideLeft     Direction = "left"
	SlideRight    Direction = "right"
)

// Panel is one division of an opening, with its own daylight dimensions.
// Panel dimensions (not opening dimensions) drive BOM pricing.
type Panel struct {
	ID        string
	OpeningID string
	Position  int
	Width     decimal.Decimal
	Height    decimal.Decimal
	PanelType PanelType
	Direction Direction
}

// ComponentInstance places a catalog product on a panel.
type ComponentInstance struct {
	ID        string
	PanelID   string
	ProductID string

	// Quantity is the number of identical units (>= 1). The BOM is
	// priced once per unit and the component contribution scales.
	Quantity int

	// OptionSelections maps option category -> selected option ID.
	OptionSelections map[string]string

	// GlassCost is the quoted glass price per unit for this placement.
	GlassCost decimal.Decimal
}

// =============================================================================
// LOADED GRAPH
// =============================================================================

// ProjectGraph is a fully loaded project tree, the Calculator's input.
// Stores load it; nothing in this package does I/O.
type ProjectGraph struct {
	Project  Project
	Openings []OpeningGraph
}

type OpeningGraph struct {
	Opening Opening
	Panels  []PanelGraph
}

type PanelGraph struct {
	Panel      Panel
	Components []ComponentInstance
}

// =============================================================================
// PRICE RUNS (append-only audit)
// =============================================================================

// PriceRun records one completed calculation for a project.
type PriceRun struct {
	ID        string
	ProjectID string
	RunAt     time.Time

	SubtotalBase     decimal.Decimal
	SubtotalMarkedUp decimal.Decimal
	Installation     decimal.Decimal
	TaxAmount        decimal.Decimal
	GrandTotal       decimal.Decimal
}

// PriceRunLine is one priced entry of a run: a BOM line, an option
// selection, or a glass charge.
type PriceRunLine struct {
	RunID       string
	OpeningID   string
	ComponentID string
	PartNumber  string
	Method      string
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
	Details     string
	Category    pricing.CostCategory
}
