/*
line.go - Per-line cost resolution

PURPOSE:
  Prices one bill-of-materials line by walking a fixed priority chain,
  short-circuiting at the first applicable method:

    1. direct_bom_cost        line's own direct cost (positive)
    2. bom_formula            line's own formula (TOTAL cost, not per-unit)
    3. master part lookup, then by the master part's type:
         master_part_hardware   hardware with a positive direct cost
         extrusion_rule_*       extrusion via the stock-rule matcher
         pricing_rule_*         first active generic pricing rule
         master_part_direct     the part's own direct cost
    4. no_cost_found          zero - a valid outcome, not an error

  The quantity that multiplies unit prices, and the "quantity" variable
  formulas see, is the BOM line's own quantity (how many of the part one
  component consumes). The component count lives on DimensionContext and
  scales the component total in the quote layer.

FAILURE SEMANTICS:
  Nothing here aborts a price run. Formula failures price to zero with
  the reason appended to Details. A missing or inactive master part falls
  through. A panic anywhere in the chain is recovered into a
  no_cost_found breakdown carrying the panic text, so one corrupt line
  cannot block the rest of a component.

EXAMPLE:
  pricer := &LinePricer{Parts: source}
  res := pricer.PriceLine(line, dims)
  // res.Breakdown.Method tells you which path fired
  // res.Breakdown.Details tells you why, including swallowed failures

SEE ALSO:
  - formula.go: Evaluate
  - rules.go: SelectBestStockRule, FirstActivePricingRule
  - aggregate.go: Consumes []LineResult
*/
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LinePricer resolves BOM line costs against a pre-fetched part catalog.
type LinePricer struct {
	Parts PartSource
}

// PriceLine prices a single BOM line. It never returns an error and never
// panics; every failure mode resolves to a zero-cost breakdown whose
// Details explain what happened.
func (lp *LinePricer) PriceLine(line BOMLine, dims DimensionContext) (result LineResult) {
	defer func() {
		if r := recover(); r != nil {
			result = lp.noCost(line, fmt.Sprintf("pricing panic recovered: %v", r))
		}
	}()

	qty := line.EffectiveQuantity()
	vars := Variables{
		"width":    dims.Width,
		"height":   dims.Height,
		"quantity": qty,
	}

	// 1. Direct cost on the line itself.
	if line.DirectCost.IsPositive() {
		total := line.DirectCost.Mul(qty)
		return lp.result(line, MethodDirectBOMCost, total,
			fmt.Sprintf("direct cost %s x %s", line.DirectCost, qty))
	}

	// 2. Formula on the line itself. The formula yields the TOTAL line
	// cost, not a per-unit cost.
	if strings.TrimSpace(line.Formula) != "" {
		total, err := Evaluate(line.Formula, vars)
		details := fmt.Sprintf("formula %q", line.Formula)
		if err != nil {
			details += "; evaluation failed: " + err.Error()
		}
		return lp.result(line, MethodBOMFormula, total, details)
	}

	// 3. Master part lookup. An unknown part number is a normal miss.
	var notes []string
	part, ok := lp.lookup(line.PartNumber)
	switch {
	case line.PartNumber == "":
		notes = append(notes, "no part number on line")
	case !ok:
		notes = append(notes, fmt.Sprintf("no master part for %q", line.PartNumber))
	default:
		if res, ok := lp.priceFromMasterPart(line, part, dims, vars, qty, &notes); ok {
			return res
		}
	}

	// 4. Terminal: nothing priced this line. Valid outcome surfaced for
	// operator review.
	return lp.noCost(line, strings.Join(notes, "; "))
}

// lookup resolves a part number exactly and case-sensitively. Inactive
// catalog entries behave like misses.
func (lp *LinePricer) lookup(partNumber string) (MasterPart, bool) {
	if lp.Parts == nil || partNumber == "" {
		return MasterPart{}, false
	}
	part, ok := lp.Parts.MasterPart(partNumber)
	if !ok || !part.IsActive {
		return MasterPart{}, false
	}
	return part, true
}

// priceFromMasterPart walks the master-part branches. ok=false means the
// whole chain fell through and the caller should emit no_cost_found.
func (lp *LinePricer) priceFromMasterPart(
	line BOMLine,
	part MasterPart,
	dims DimensionContext,
	vars Variables,
	qty decimal.Decimal,
	notes *[]string,
) (LineResult, bool) {
	// Hardware with a positive direct cost.
	if part.PartType == PartHardware && part.DirectCost.IsPositive() {
		total := part.DirectCost.Mul(qty)
		return lp.result(line, MethodMasterPartHardware, total,
			fmt.Sprintf("hardware %s direct cost %s x %s", part.PartNumber, part.DirectCost, qty)), true
	}

	// Extrusion through the stock-length rule matcher.
	if part.PartType == PartExtrusion && hasActiveStockRule(part.StockLengthRules) {
		if rule := SelectBestStockRule(part.StockLengthRules, dims.Width, dims.Height); rule != nil {
			if res, ok := lp.priceFromStockRule(line, *rule, vars); ok {
				return res, true
			}
			*notes = append(*notes,
				fmt.Sprintf("stock rule %s matched but has no formula or base price", rule.ID))
		} else {
			*notes = append(*notes,
				fmt.Sprintf("no stock rule matched %sx%s (%d rules)", dims.Width, dims.Height, len(part.StockLengthRules)))
		}
	}

	// Generic pricing rules: first active wins, by design.
	if rule := FirstActivePricingRule(part.PricingRules); rule != nil {
		if res, ok := lp.priceFromPricingRule(line, *rule, vars, qty); ok {
			return res, true
		}
		*notes = append(*notes,
			fmt.Sprintf("pricing rule %s has no formula or base price", rule.ID))
	}

	// The master part's own direct cost.
	if part.DirectCost.IsPositive() {
		total := part.DirectCost.Mul(qty)
		return lp.result(line, MethodMasterPartDirect, total,
			fmt.Sprintf("master part %s direct cost %s x %s", part.PartNumber, part.DirectCost, qty)), true
	}

	*notes = append(*notes, fmt.Sprintf("master part %s has no applicable pricing", part.PartNumber))
	return LineResult{}, false
}

func (lp *LinePricer) priceFromStockRule(line BOMLine, rule StockLengthRule, vars Variables) (LineResult, bool) {
	merged := mergeVars(vars, rule.Vars())

	if strings.TrimSpace(rule.Formula) != "" {
		total, err := Evaluate(rule.Formula, merged)
		details := fmt.Sprintf("stock rule %s formula %q (stock length %s)", rule.ID, rule.Formula, rule.StockLength)
		if err != nil {
			details += "; evaluation failed: " + err.Error()
		}
		return lp.result(line, MethodExtrusionRuleFormula, total, details), true
	}

	if rule.BasePrice != nil {
		total := rule.BasePrice.Mul(merged["quantity"])
		return lp.result(line, MethodExtrusionRuleBase, total,
			fmt.Sprintf("stock rule %s base price %s x %s", rule.ID, rule.BasePrice, merged["quantity"])), true
	}

	return LineResult{}, false
}

func (lp *LinePricer) priceFromPricingRule(line BOMLine, rule PricingRule, vars Variables, qty decimal.Decimal) (LineResult, bool) {
	merged := mergeVars(vars, rule.Vars())

	if strings.TrimSpace(rule.Formula) != "" {
		total, err := Evaluate(rule.Formula, merged)
		details := fmt.Sprintf("pricing rule %s formula %q", rule.ID, rule.Formula)
		if err != nil {
			details += "; evaluation failed: " + err.Error()
		}
		return lp.result(line, MethodPricingRuleFormula, total, details), true
	}

	if rule.BasePrice != nil {
		total := rule.BasePrice.Mul(qty)
		return lp.result(line, MethodPricingRuleBase, total,
			fmt.Sprintf("pricing rule %s base price %s x %s", rule.ID, rule.BasePrice, qty)), true
	}

	return LineResult{}, false
}

// =============================================================================
// RESULT CONSTRUCTION
// =============================================================================

// result clamps the total, derives the unit cost, and fills the breakdown.
func (lp *LinePricer) result(line BOMLine, method CostMethod, total decimal.Decimal, details string) LineResult {
	total = ClampNonNegative(total)
	return LineResult{
		PartType: line.PartType,
		Cost:     total,
		Breakdown: CostBreakdown{
			PartNumber: line.PartNumber,
			PartName:   line.PartName,
			Method:     method,
			UnitCost:   total.Div(line.EffectiveQuantity()),
			TotalCost:  total,
			Details:    details,
		},
	}
}

func (lp *LinePricer) noCost(line BOMLine, details string) LineResult {
	if details == "" {
		details = "no pricing source applied"
	}
	return LineResult{
		PartType: line.PartType,
		Cost:     decimal.Zero,
		Breakdown: CostBreakdown{
			PartNumber: line.PartNumber,
			PartName:   line.PartName,
			Method:     MethodNoCostFound,
			UnitCost:   decimal.Zero,
			TotalCost:  decimal.Zero,
			Details:    details,
		},
	}
}

func hasActiveStockRule(rules []StockLengthRule) bool {
	for _, r := range rules {
		if r.IsActive {
			return true
		}
	}
	return false
}

func mergeVars(base, extra Variables) Variables {
	merged := make(Variables, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
