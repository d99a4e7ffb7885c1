/*
Package pricing provides the core price resolution engine.

PURPOSE:
  This package contains the pure computation that turns a component's
  geometry (width, height, quantity) and a part's pricing configuration
  (direct cost, stock-length rules, formulas, pricing rules) into a line
  cost with a structured explanation, then rolls line costs up into
  category subtotals, marked-up totals, and a grand total.

KEY CONCEPTS IN THIS FILE (types.go):
  - DimensionContext: The geometry a component is priced against
  - BOMLine: One bill-of-materials entry on a product
  - MasterPart: The catalog record a BOM line may resolve through
  - CostBreakdown: How a line's cost was derived (method + details)

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no goroutines - same inputs, same outputs
  2. Precision: decimal.Decimal everywhere; rounding only at presentation
  3. Fail-soft: A bad formula or missing part prices to zero with an
     explanation, never an abort - one bad line must not kill a quote
  4. Auditability: Every cost carries the method and reasoning that
     produced it

USAGE:
  pricer := &pricing.LinePricer{Parts: source}
  res := pricer.PriceLine(line, pricing.DimensionContext{
      Width:    pricing.MustParseDecimal("36"),
      Height:   pricing.MustParseDecimal("96"),
      Quantity: 1,
  })
  fmt.Println(res.Breakdown.Method, res.Cost)

SEE ALSO:
  - formula.go: Restricted arithmetic formula evaluation
  - rules.go: Stock-length and pricing rule selection
  - line.go: The per-line resolution chain
  - aggregate.go: Category bucketing and rollup
  - markup.go: Markup, discount, tax, installation
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSION CONTEXT - Geometry a component is priced against
// =============================================================================

// DimensionContext is the per-component pricing input. Width and height are
// inches; Quantity is the number of identical units and is at least 1.
// Callers validate before pricing (see ValidateDimensions).
type DimensionContext struct {
	Width    decimal.Decimal
	Height   decimal.Decimal
	Quantity int
}

// QuantityDecimal returns the quantity as a decimal for cost arithmetic.
func (d DimensionContext) QuantityDecimal() decimal.Decimal {
	return decimal.NewFromInt(int64(d.Quantity))
}

// ValidateDimensions rejects geometry the engine must never see: negative
// width/height or a non-positive quantity. A zero dimension is allowed
// (some openings are priced before field measurement).
func ValidateDimensions(d DimensionContext) error {
	if d.Width.IsNegative() || d.Height.IsNegative() {
		return &InvalidDimensionsError{Context: d, Reason: "negative dimension"}
	}
	if d.Quantity < 1 {
		return &InvalidDimensionsError{Context: d, Reason: "quantity below 1"}
	}
	return nil
}

// =============================================================================
// BOM LINE - One bill-of-materials entry on a product
// =============================================================================

// BOMLine is immutable during pricing. DirectCost of zero means "not set";
// only a positive direct cost short-circuits the resolution chain.
// Quantity is a decimal because real BOMs carry fractional quantities
// (gasket footage, sealant tubes); it defaults to 1 and must be positive.
type BOMLine struct {
	PartNumber string
	PartName   string
	PartType   PartType
	Quantity   decimal.Decimal
	DirectCost decimal.Decimal
	Formula    string
}

// EffectiveQuantity treats a missing/invalid quantity as 1 so unit-cost
// division is always defined.
func (l BOMLine) EffectiveQuantity() decimal.Decimal {
	if l.Quantity.IsPositive() {
		return l.Quantity
	}
	return decimal.NewFromInt(1)
}

// =============================================================================
// MASTER PART - Catalog record resolved by part number
// =============================================================================

// MasterPart is the catalog entry for a physical part. The part number is
// a lookup key, not an ownership link: a BOM line referencing an unknown
// part number is not an error, it just prices through "no cost found".
type MasterPart struct {
	PartNumber       string
	PartName         string
	PartType         PartType
	DirectCost       decimal.Decimal
	StockLengthRules []StockLengthRule
	PricingRules     []PricingRule
	IsActive         bool
}

// PartSource supplies pre-fetched master parts to the line pricer.
// Lookup is exact and case-sensitive; ok=false is a normal outcome.
type PartSource interface {
	MasterPart(partNumber string) (MasterPart, bool)
}

// =============================================================================
// COST BREAKDOWN - How a line's cost was derived
// =============================================================================

// CostMethod names the resolution path that produced a cost.
type CostMethod string

const (
	MethodDirectBOMCost        CostMethod = "direct_bom_cost"
	MethodBOMFormula           CostMethod = "bom_formula"
	MethodMasterPartHardware   CostMethod = "master_part_hardware"
	MethodExtrusionRuleFormula CostMethod = "extrusion_rule_formula"
	MethodExtrusionRuleBase    CostMethod = "extrusion_rule_base"
	MethodPricingRuleFormula   CostMethod = "pricing_rule_formula"
	MethodPricingRuleBase      CostMethod = "pricing_rule_base"
	MethodMasterPartDirect     CostMethod = "master_part_direct"
	MethodNoCostFound          CostMethod = "no_cost_found"
)

// CostBreakdown explains one line's cost for audit and operator review.
// TotalCost is never negative. Details carries the human-readable trail,
// including the reason for any swallowed formula failure.
type CostBreakdown struct {
	PartNumber string
	PartName   string
	Method     CostMethod
	UnitCost   decimal.Decimal
	TotalCost  decimal.Decimal
	Details    string
}

// LineResult pairs a line's cost with its breakdown.
type LineResult struct {
	PartType  PartType
	Cost      decimal.Decimal
	Breakdown CostBreakdown
}

// =============================================================================
// HARDWARE OPTION COST - Selection priced outside the BOM
// =============================================================================

// OptionCost is one selected hardware option. Included options are
// no-charge: they stay on the quote at zero so the customer sees them.
type OptionCost struct {
	Category string
	OptionID string
	Name     string
	Price    decimal.Decimal
	Included bool
}

// Charge returns the amount this selection adds to the hardware bucket.
func (o OptionCost) Charge() decimal.Decimal {
	if o.Included {
		return decimal.Zero
	}
	return o.Price
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses s, returning zero on any failure. Used for
// constants and fixtures where a parse error means a typo, not a runtime
// condition.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampNonNegative floors a cost at zero. Negative prices are not
// representable anywhere in the engine.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds to cents. Presentation boundaries only (DTOs, PDF,
// XLSX) - intermediate engine math never rounds.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
