/*
markup.go - Markup, discount, tax, and installation

PURPOSE:
  Converts per-category BASE costs into sell pricing. The order of
  operations is fixed and multiplicative:

    1. Each category base is marked up independently:
         marked = base x (1 + categoryMarkup/100)
    2. Categories flagged "no markup" - and, in hybrid mode, the
       pass-through share of extrusion cost - bypass markup entirely
       and are added back at base AFTER step 3.
    3. Global markup then discount apply to the marked total:
         final = marked x (1 + global/100) x (1 - discount/100)
    4. subtotal = final + passThrough + installation
       tax      = subtotal x taxRate/100
       grand    = subtotal + tax

  Nothing here rounds. Rounding to cents happens only where a number is
  shown to a human (DTOs, PDF, XLSX).

PRICING MODES:
  standard  every category's full base is markable
  hybrid    only HybridExtrusionShare percent of the extrusion base is
            markable; the remainder passes through at cost. Used when
            extrusion stock is quoted as a cost-plus pass-through.

SEE ALSO:
  - aggregate.go: Produces the category bases
  - factory/: Parses profiles from JSON
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// PricingMode selects how the extrusion base is treated.
type PricingMode string

const (
	ModeStandard PricingMode = "standard"
	ModeHybrid   PricingMode = "hybrid"
)

// =============================================================================
// MARKUP PROFILE
// =============================================================================

// MarkupProfile is the pricing configuration applied to a project's base
// costs. All percent fields are whole percents (25 means 25%).
type MarkupProfile struct {
	ID   string
	Name string
	Mode PricingMode

	// Per-category markup percents. A missing category marks up by 0%.
	CategoryMarkups map[CostCategory]decimal.Decimal

	// Categories that bypass markup entirely and pass through at base.
	NoMarkup map[CostCategory]bool

	// Percent of the extrusion base that is markable in hybrid mode.
	// The remainder passes through at cost. Ignored in standard mode.
	HybridExtrusionShare decimal.Decimal

	GlobalMarkup decimal.Decimal // percent, applied after category markups
	Discount     decimal.Decimal // percent, applied after global markup

	TaxRate      decimal.Decimal // percent, applied to the final subtotal
	Installation decimal.Decimal // flat amount added before tax
}

// CategoryMarkup returns the markup percent for a category (0 if unset).
func (p MarkupProfile) CategoryMarkup(cat CostCategory) decimal.Decimal {
	if p.CategoryMarkups == nil {
		return decimal.Zero
	}
	return p.CategoryMarkups[cat]
}

// IsNoMarkup reports whether a category passes through at base cost.
func (p MarkupProfile) IsNoMarkup(cat CostCategory) bool {
	return p.NoMarkup != nil && p.NoMarkup[cat]
}

// =============================================================================
// PRICE RESULT
// =============================================================================

// CategoryPricing records how one category's base became sell price,
// retained for quote exports and operator review.
type CategoryPricing struct {
	Category    CostCategory
	Base        decimal.Decimal
	Markup      decimal.Decimal // percent applied
	Marked      decimal.Decimal // markable portion after category markup
	PassThrough decimal.Decimal // portion added back at base
}

// PriceResult is the project-level pricing outcome.
type PriceResult struct {
	SubtotalBase     decimal.Decimal
	SubtotalMarkedUp decimal.Decimal // post-markup/discount, pre-installation
	Installation     decimal.Decimal
	TaxAmount        decimal.Decimal
	GrandTotal       decimal.Decimal
	Categories       []CategoryPricing
}

// =============================================================================
// APPLICATION
// =============================================================================

var oneHundred = decimal.NewFromInt(100)

// percentMultiplier converts a whole percent into (1 + p/100).
func percentMultiplier(p decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(p.Div(oneHundred))
}

// Apply prices a set of category bases under this profile.
func (p MarkupProfile) Apply(bases CategoryTotals) PriceResult {
	markedTotal := decimal.Zero
	passThrough := decimal.Zero
	baseTotal := decimal.Zero
	categories := make([]CategoryPricing, 0, len(Categories()))

	for _, cat := range Categories() {
		base := bases[cat]
		baseTotal = baseTotal.Add(base)

		cp := CategoryPricing{Category: cat, Base: base}
		switch {
		case p.IsNoMarkup(cat):
			cp.PassThrough = base

		case p.Mode == ModeHybrid && cat == CategoryExtrusion:
			markable := base.Mul(p.HybridExtrusionShare.Div(oneHundred))
			cp.Markup = p.CategoryMarkup(cat)
			cp.Marked = markable.Mul(percentMultiplier(cp.Markup))
			cp.PassThrough = base.Sub(markable)

		default:
			cp.Markup = p.CategoryMarkup(cat)
			cp.Marked = base.Mul(percentMultiplier(cp.Markup))
		}

		markedTotal = markedTotal.Add(cp.Marked)
		passThrough = passThrough.Add(cp.PassThrough)
		categories = append(categories, cp)
	}

	// Global markup then discount, multiplicative, in that order.
	final := markedTotal.
		Mul(percentMultiplier(p.GlobalMarkup)).
		Mul(decimal.NewFromInt(1).Sub(p.Discount.Div(oneHundred)))
	final = ClampNonNegative(final.Add(passThrough))

	subtotal := final.Add(p.Installation)
	tax := subtotal.Mul(p.TaxRate.Div(oneHundred))

	return PriceResult{
		SubtotalBase:     baseTotal,
		SubtotalMarkedUp: final,
		Installation:     p.Installation,
		TaxAmount:        tax,
		GrandTotal:       subtotal.Add(tax),
		Categories:       categories,
	}
}
