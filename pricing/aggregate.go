/*
aggregate.go - Cost-category bucketing and rollup

PURPOSE:
  Turns priced BOM lines, hardware-option selections, and glass cost into
  per-component category subtotals, then rolls components into openings
  and openings into a project base. Every value here is a BASE
  (pre-markup) cost: the markup calculator needs the per-category bases
  intact, so nothing in this file applies margin or rounds.

BUCKETING:
  extrusion   lines whose part type maps to the extrusion category
  hardware    Hardware/Fastener lines + paid hardware-option selections
  glass       the component's glass cost
  packaging   Packaging lines
  other       everything else, including zero-priced "included" options
              (they stay visible on the quote at zero charge)

SEE ALSO:
  - parttype.go: CategoryOf decides the line buckets
  - markup.go: Consumes the per-category bases
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY TOTALS
// =============================================================================

// CategoryTotals maps cost categories to base (pre-markup) totals.
type CategoryTotals map[CostCategory]decimal.Decimal

// NewCategoryTotals returns a zeroed bucket set covering every category.
func NewCategoryTotals() CategoryTotals {
	totals := make(CategoryTotals, len(Categories()))
	for _, cat := range Categories() {
		totals[cat] = decimal.Zero
	}
	return totals
}

// Add accumulates an amount into a category bucket.
func (ct CategoryTotals) Add(cat CostCategory, amount decimal.Decimal) {
	ct[cat] = ct[cat].Add(amount)
}

// Merge accumulates another bucket set into this one.
func (ct CategoryTotals) Merge(other CategoryTotals) {
	for cat, amount := range other {
		ct.Add(cat, amount)
	}
}

// Total sums the buckets in stable category order.
func (ct CategoryTotals) Total() decimal.Decimal {
	total := decimal.Zero
	for _, cat := range Categories() {
		total = total.Add(ct[cat])
	}
	return total
}

// Clone returns an independent copy.
func (ct CategoryTotals) Clone() CategoryTotals {
	clone := make(CategoryTotals, len(ct))
	for cat, amount := range ct {
		clone[cat] = amount
	}
	return clone
}

// =============================================================================
// SUMMARIES
// =============================================================================

// ComponentSummary is one configured product's cost picture: category
// bases plus the line/option detail that produced them.
type ComponentSummary struct {
	Categories CategoryTotals
	Total      decimal.Decimal
	Lines      []LineResult
	Options    []OptionCost
	GlassCost  decimal.Decimal
}

// OpeningSummary sums a wall cutout's components.
type OpeningSummary struct {
	Categories CategoryTotals
	Total      decimal.Decimal
	Components []ComponentSummary
}

// ProjectBase is the pre-markup cost picture across all openings. The
// markup calculator turns this into sell pricing.
type ProjectBase struct {
	Categories CategoryTotals
	Total      decimal.Decimal
}

// =============================================================================
// AGGREGATION
// =============================================================================

// AggregateComponent buckets priced lines, option selections, and glass
// cost for a single component.
func AggregateComponent(lines []LineResult, options []OptionCost, glassCost decimal.Decimal) ComponentSummary {
	totals := NewCategoryTotals()

	for _, line := range lines {
		totals.Add(CategoryOf(line.PartType), line.Cost)
	}

	for _, opt := range options {
		if opt.Included {
			// No-charge selections ride along in "other" at zero so the
			// quote still lists them.
			totals.Add(CategoryOther, decimal.Zero)
			continue
		}
		totals.Add(CategoryHardware, opt.Price)
	}

	totals.Add(CategoryGlass, glassCost)

	return ComponentSummary{
		Categories: totals,
		Total:      totals.Total(),
		Lines:      lines,
		Options:    options,
		GlassCost:  glassCost,
	}
}

// AggregateOpening sums component summaries into an opening total.
func AggregateOpening(components []ComponentSummary) OpeningSummary {
	totals := NewCategoryTotals()
	for _, c := range components {
		totals.Merge(c.Categories)
	}
	return OpeningSummary{
		Categories: totals,
		Total:      totals.Total(),
		Components: components,
	}
}

// AggregateProject sums opening summaries into the project base.
func AggregateProject(openings []OpeningSummary) ProjectBase {
	totals := NewCategoryTotals()
	for _, o := range openings {
		totals.Merge(o.Categories)
	}
	return ProjectBase{
		Categories: totals,
		Total:      totals.Total(),
	}
}
