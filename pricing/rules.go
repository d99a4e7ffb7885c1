/*
rules.go - Stock-length and pricing rule selection

PURPOSE:
  Master parts carry two kinds of rules and they deliberately select
  differently:

  StockLengthRule (extrusions only):
    Dimension-range scoped. Several rules can cover the same component,
    so selection is ranked: the rule binding the MOST of its four range
    fields wins. Ties break to the lowest rule ID so the result never
    depends on the order rows came out of the store.

  PricingRule (generic fallback):
    NOT ranked. The first active rule in list order wins. This asymmetry
    is intentional and load-bearing: catalogs are authored against it
    (a part's pricing rules are an ordered fallback chain, not a range
    table). Do not unify the two without a product decision.

SEE ALSO:
  - line.go: Calls SelectBestStockRule / FirstActivePricingRule
  - types.go: MasterPart holds both rule lists
*/
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STOCK LENGTH RULE - Dimension-ranged extrusion pricing
// =============================================================================

// StockLengthRule prices an extrusion cut from a manufactured stock
// length, scoped to a dimension range. A nil bound is unconstrained;
// a zero bound is a real constraint and counts toward specificity.
type StockLengthRule struct {
	ID            string
	MinWidth      *decimal.Decimal
	MaxWidth      *decimal.Decimal
	MinHeight     *decimal.Decimal
	MaxHeight     *decimal.Decimal
	StockLength   decimal.Decimal
	PiecesPerUnit decimal.Decimal
	BasePrice     *decimal.Decimal
	Formula       string
	IsActive      bool
}

// Applies reports whether the rule covers the given dimensions.
// Every set bound must hold; unset bounds are unconstrained.
func (r StockLengthRule) Applies(width, height decimal.Decimal) bool {
	if !r.IsActive {
		return false
	}
	if r.MinWidth != nil && width.LessThan(*r.MinWidth) {
		return false
	}
	if r.MaxWidth != nil && width.GreaterThan(*r.MaxWidth) {
		return false
	}
	if r.MinHeight != nil && height.LessThan(*r.MinHeight) {
		return false
	}
	if r.MaxHeight != nil && height.GreaterThan(*r.MaxHeight) {
		return false
	}
	return true
}

// Specificity counts the set range bounds (0-4). A rule constraining
// three sides beats a rule constraining one.
func (r StockLengthRule) Specificity() int {
	n := 0
	if r.MinWidth != nil {
		n++
	}
	if r.MaxWidth != nil {
		n++
	}
	if r.MinHeight != nil {
		n++
	}
	if r.MaxHeight != nil {
		n++
	}
	return n
}

// Vars returns the extra variables a stock rule formula may reference,
// on top of the dimension context's width/height/quantity.
func (r StockLengthRule) Vars() Variables {
	vars := Variables{
		"stockLength":   r.StockLength,
		"piecesPerUnit": r.PiecesPerUnit,
	}
	if r.BasePrice != nil {
		vars["basePrice"] = *r.BasePrice
	} else {
		vars["basePrice"] = decimal.Zero
	}
	return vars
}

// SelectBestStockRule returns the most specific applicable rule, or nil
// when none applies (the caller falls through to the next pricing method).
//
// Selection is deterministic for identical inputs regardless of the order
// rules arrive in: candidates are stable-sorted by specificity descending,
// then by rule ID ascending as the tie-break.
func SelectBestStockRule(rules []StockLengthRule, width, height decimal.Decimal) *StockLengthRule {
	var applicable []StockLengthRule
	for _, r := range rules {
		if r.Applies(width, height) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		si, sj := applicable[i].Specificity(), applicable[j].Specificity()
		if si != sj {
			return si > sj
		}
		return applicable[i].ID < applicable[j].ID
	})

	best := applicable[0]
	return &best
}

// =============================================================================
// PRICING RULE - Ordered generic fallback
// =============================================================================

// PricingRule is the generic fallback for parts without dimension-ranged
// pricing. Rules form an ordered list; position in the list IS the
// precedence.
type PricingRule struct {
	ID        string
	BasePrice *decimal.Decimal
	Formula   string
	IsActive  bool
}

// Vars returns the variables a pricing rule formula may reference beyond
// the dimension context.
func (r PricingRule) Vars() Variables {
	if r.BasePrice != nil {
		return Variables{"basePrice": *r.BasePrice}
	}
	return Variables{"basePrice": decimal.Zero}
}

// FirstActivePricingRule returns the first active rule in list order, or
// nil when none is active. Intentionally not specificity-ranked - see the
// file comment.
func FirstActivePricingRule(rules []PricingRule) *PricingRule {
	for _, r := range rules {
		if r.IsActive {
			rule := r
			return &rule
		}
	}
	return nil
}
