/*
Package catalog holds the sellable-goods side of the quoting system: master
parts, configurable products with their bills of materials, hardware
options, and markup profiles.

The pricing engine never fetches data itself; it works over a Source
snapshot handed to it. Source is implemented by the in-memory catalog in
this package (tests, demo scenarios) and by the sqlite store (production).

KEY CONCEPTS:
  - Product: a configurable unit (swing door, sliding panel, fixed lite)
    whose BOM template is priced against the panel's dimensions.
  - HardwareOption: a per-category selectable (handle, closer, lock). An
    "included" option lists on the quote at no charge.
  - ToleranceView: the slice of a product the tolerance resolver needs.

SEE ALSO:
  - memory.go: in-memory Source
  - builders.go: JSON fixture builders for demos and tests
*/
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/pricing"
)

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// Product is a configurable catalog unit. Its BOM lines are templates:
// quantities and formulas are fixed, dimensions come from the panel the
// product is placed on.
type Product struct {
	ID     string
	Name   string
	Series string

	// AppliesTolerance marks the product as eligible to own an opening's
	// installation tolerance. Tolerance values are optional per axis; a
	// nil value falls back to the resolver default.
	AppliesTolerance bool
	WidthTolerance   *decimal.Decimal
	HeightTolerance  *decimal.Decimal

	BOM []pricing.BOMLine
}

// ToleranceView adapts the product for the tolerance resolver.
func (p Product) ToleranceView() pricing.ToleranceProduct {
	return pricing.ToleranceProduct{
		ProductID:       p.ID,
		Eligible:        p.AppliesTolerance,
		WidthTolerance:  p.WidthTolerance,
		HeightTolerance: p.HeightTolerance,
	}
}

// HardwareOption is a selectable upgrade grouped by category. One option
// per category may be selected on a component.
type HardwareOption struct {
	ID       string
	Category string
	Name     string
	Price    decimal.Decimal
	Included bool
}

// Cost adapts the option for the aggregator.
func (o HardwareOption) Cost() pricing.OptionCost {
	return pricing.OptionCost{
		Category: o.Category,
		OptionID: o.ID,
		Name:     o.Name,
		Price:    o.Price,
		Included: o.Included,
	}
}

// =============================================================================
// SOURCE
// =============================================================================

// Source is the read surface the quote calculator and API work against.
// Implementations must be safe for concurrent readers.
type Source interface {
	pricing.PartSource

	Product(id string) (Product, bool)
	Products() []Product

	Option(id string) (HardwareOption, bool)
	Options() []HardwareOption

	Profile(id string) (pricing.MarkupProfile, bool)
	Profiles() []pricing.MarkupProfile
}
