package quote_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return pricing.MustParseDecimal(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// storefrontCatalog seeds the hand-priced storefront entry fixture: a
// channel priced by stock rule ($15 under 48" wide) and an entry door
// product whose trim line prices by formula.
func storefrontCatalog() *catalog.Memory {
	mem := catalog.NewMemory()

	mem.PutPart(pricing.MasterPart{
		PartNumber: "CHAN-100",
		PartName:   "Bottom Channel",
		PartType:   pricing.PartExtrusion,
		IsActive:   true,
		StockLengthRules: []pricing.StockLengthRule{{
			ID:        "CHAN-100-rule-1",
			MaxWidth:  decPtr("48"),
			BasePrice: decPtr("15"),
			IsActive:  true,
		}},
	})

	mem.PutProduct(catalog.Product{
		ID:               "prod-entry",
		Name:             "Storefront Entry Door",
		Series:           "SF-100",
		AppliesTolerance: true,
		WidthTolerance:   decPtr("0.75"),
		HeightTolerance:  decPtr("0.75"),
		BOM: []pricing.BOMLine{
			{PartNumber: "CHAN-100", PartName: "Bottom Channel", PartType: pricing.PartExtrusion, Quantity: dec("1")},
			{PartNumber: "TRIM-200", PartName: "Top Trim", PartType: pricing.PartExtrusion, Quantity: dec("1"), Formula: "width-10"},
		},
	})

	mem.PutOption(catalog.HardwareOption{
		ID:       "opt-closer",
		Category: "closer",
		Name:     "Overhead Closer",
		Price:    dec("59"),
	})
	mem.PutOption(catalog.HardwareOption{
		ID:       "opt-handle-std",
		Category: "handle",
		Name:     "Standard Pull",
		Price:    dec("25"),
		Included: true,
	})

	mem.PutProfile(pricing.MarkupProfile{
		ID:   "prof-std",
		Name: "Standard Dealer",
		Mode: pricing.ModeStandard,
		CategoryMarkups: map[pricing.CostCategory]decimal.Decimal{
			pricing.CategoryExtrusion: dec("100"),
		},
		TaxRate: dec("10"),
	})

	return mem
}

func storefrontGraph(profileID string) quote.ProjectGraph {
	return quote.ProjectGraph{
		Project: quote.Project{ID: "proj-1", Name: "Main St Storefront", ProfileID: profileID},
		Openings: []quote.OpeningGraph{{
			Opening: quote.Opening{ID: "op-1", ProjectID: "proj-1", Mark: "A1", Position: 1},
			Panels: []quote.PanelGraph{{
				Panel: quote.Panel{
					ID: "panel-1", OpeningID: "op-1", Position: 1,
					Width: dec("36"), Height: dec("96"),
					PanelType: quote.PanelSwing, Direction: quote.SwingLeftIn,
				},
				Components: []quote.ComponentInstance{{
					ID: "comp-1", PanelID: "panel-1", ProductID: "prod-entry", Quantity: 1,
				}},
			}},
		}},
	}
}

// =============================================================================
// PRICING WALK
// =============================================================================

func TestPriceProject_StorefrontEntry(t *testing.T) {
	// GIVEN: the hand-priced storefront fixture, no markup profile
	// WHEN: the project is priced
	// THEN: the two BOM lines resolve to $15 + $26 = $41 at cost

	calc := quote.NewCalculator(storefrontCatalog())

	q, err := calc.PriceProject(storefrontGraph(""))
	require.NoError(t, err)

	assert.True(t, q.Base.Total.Equal(dec("41")), "base total: got %s", q.Base.Total)
	assert.True(t, q.Result.GrandTotal.Equal(dec("41")), "grand total: got %s", q.Result.GrandTotal)

	require.Len(t, q.Openings, 1)
	require.Len(t, q.Openings[0].Components, 1)
	comp := q.Openings[0].Components[0]
	assert.Equal(t, "Storefront Entry Door", comp.ProductName)
	require.Len(t, comp.Summary.Lines, 2)
	assert.Equal(t, pricing.MethodExtrusionRuleBase, comp.Summary.Lines[0].Breakdown.Method)
	assert.Equal(t, pricing.MethodBOMFormula, comp.Summary.Lines[1].Breakdown.Method)
}

func TestPriceProject_WidthMovesFormulaLineOnly(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	graph := storefrontGraph("")
	graph.Openings[0].Panels[0].Panel.Width = dec("35")

	q, err := calc.PriceProject(graph)
	require.NoError(t, err)

	assert.True(t, q.Base.Total.Equal(dec("40")), "base total at width 35: got %s", q.Base.Total)
}

func TestPriceProject_AppliesMarkupProfile(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())

	q, err := calc.PriceProject(storefrontGraph("prof-std"))
	require.NoError(t, err)

	// 41 doubled to 82, then 10% tax.
	assert.True(t, q.Result.SubtotalMarkedUp.Equal(dec("82")), "marked up: got %s", q.Result.SubtotalMarkedUp)
	assert.True(t, q.Result.GrandTotal.Equal(dec("90.2")), "grand total: got %s", q.Result.GrandTotal)
}

func TestPriceProject_JobInputsOverrideProfile(t *testing.T) {
	// GIVEN: a profile with 10% tax, a project that sets its own tax and
	//        installation
	calc := quote.NewCalculator(storefrontCatalog())
	graph := storefrontGraph("prof-std")
	graph.Project.TaxRate = dec("5")
	graph.Project.Installation = dec("100")

	// WHEN
	q, err := calc.PriceProject(graph)
	require.NoError(t, err)

	// THEN: subtotal 82 + 100 installation, then 5% tax, not 10%
	assert.True(t, q.Result.Installation.Equal(dec("100")))
	assert.True(t, q.Result.TaxAmount.Equal(dec("9.1")), "tax: got %s", q.Result.TaxAmount)
	assert.True(t, q.Result.GrandTotal.Equal(dec("191.1")), "grand total: got %s", q.Result.GrandTotal)
}

func TestPriceProject_UnknownProfile(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())

	_, err := calc.PriceProject(storefrontGraph("prof-ghost"))

	assert.ErrorIs(t, err, pricing.ErrProfileNotFound)
}

func TestPriceProject_OpeningsPriceInPositionOrder(t *testing.T) {
	// GIVEN: openings provided out of position order
	calc := quote.NewCalculator(storefrontCatalog())
	graph := storefrontGraph("")
	second := graph.Openings[0]
	second.Opening = quote.Opening{ID: "op-2", ProjectID: "proj-1", Mark: "A2", Position: 2}
	graph.Openings = []quote.OpeningGraph{second, graph.Openings[0]}

	// WHEN
	q, err := calc.PriceProject(graph)
	require.NoError(t, err)

	// THEN: the quote lists them by position
	require.Len(t, q.Openings, 2)
	assert.Equal(t, "A1", q.Openings[0].Mark)
	assert.Equal(t, "A2", q.Openings[1].Mark)
	assert.True(t, q.Base.Total.Equal(dec("82")), "both openings price: got %s", q.Base.Total)
}

// =============================================================================
// COMPONENT PRICING
// =============================================================================

func TestPriceComponent_MultiUnitScales(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	panel := storefrontGraph("").Openings[0].Panels[0].Panel
	comp := quote.ComponentInstance{ID: "comp-1", PanelID: panel.ID, ProductID: "prod-entry", Quantity: 2}

	cq, err := calc.PriceComponent(comp, panel)
	require.NoError(t, err)

	assert.Equal(t, 2, cq.Units)
	assert.True(t, cq.Summary.Total.Equal(dec("82")), "2 units of $41: got %s", cq.Summary.Total)
	require.Len(t, cq.Summary.Lines, 2)
	assert.True(t, cq.Summary.Lines[0].Cost.Equal(dec("30")), "channel doubled: got %s", cq.Summary.Lines[0].Cost)
	assert.Contains(t, cq.Summary.Lines[0].Breakdown.Details, "x 2 units")
	// Per-piece cost is untouched by unit scaling.
	assert.True(t, cq.Summary.Lines[0].Breakdown.UnitCost.Equal(dec("15")))
}

func TestPriceComponent_OptionsAndGlass(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	panel := storefrontGraph("").Openings[0].Panels[0].Panel
	comp := quote.ComponentInstance{
		ID: "comp-1", PanelID: panel.ID, ProductID: "prod-entry", Quantity: 1,
		OptionSelections: map[string]string{
			"closer": "opt-closer",     // paid $59
			"handle": "opt-handle-std", // included
		},
		GlassCost: dec("120"),
	}

	cq, err := calc.PriceComponent(comp, panel)
	require.NoError(t, err)

	// 41 BOM + 59 closer + 120 glass; included handle at zero.
	assert.True(t, cq.Summary.Total.Equal(dec("220")), "total: got %s", cq.Summary.Total)
	assert.True(t, cq.Summary.Categories[pricing.CategoryHardware].Equal(dec("59")))
	assert.True(t, cq.Summary.Categories[pricing.CategoryGlass].Equal(dec("120")))
	require.Len(t, cq.Summary.Options, 2)
}

func TestPriceComponent_UnknownProduct(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	panel := storefrontGraph("").Openings[0].Panels[0].Panel
	comp := quote.ComponentInstance{ID: "comp-1", ProductID: "prod-ghost", Quantity: 1}

	_, err := calc.PriceComponent(comp, panel)

	assert.ErrorIs(t, err, pricing.ErrProductNotFound)
	assert.True(t, pricing.IsNotFound(err))
}

func TestPriceComponent_UnknownOption(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	panel := storefrontGraph("").Openings[0].Panels[0].Panel
	comp := quote.ComponentInstance{
		ID: "comp-1", ProductID: "prod-entry", Quantity: 1,
		OptionSelections: map[string]string{"closer": "opt-ghost"},
	}

	_, err := calc.PriceComponent(comp, panel)

	assert.ErrorIs(t, err, pricing.ErrOptionNotFound)
}

func TestPriceComponent_BadQuantity(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	panel := storefrontGraph("").Openings[0].Panels[0].Panel
	comp := quote.ComponentInstance{ID: "comp-1", ProductID: "prod-entry", Quantity: 0}

	_, err := calc.PriceComponent(comp, panel)

	assert.ErrorIs(t, err, pricing.ErrInvalidDimensions)
	assert.True(t, pricing.IsClientError(err))
}

// =============================================================================
// TOLERANCE GLUE
// =============================================================================

func TestOpening_ToleranceLifecycle(t *testing.T) {
	// GIVEN: a finished 48x96 opening and the tolerance-eligible entry door
	resolver := pricing.NewToleranceResolver()
	mem := storefrontCatalog()
	product, _ := mem.Product("prod-entry")
	opening := quote.Opening{
		ID: "op-1", Mark: "A1",
		RoughWidth: decPtr("48"), RoughHeight: decPtr("96"),
		IsFinished: true,
	}

	// WHEN: the product attaches
	changed := opening.AttachTolerance(resolver, product)

	// THEN: it owns the tolerance and finished dims shrink by 3/4"
	require.True(t, changed)
	assert.Equal(t, "prod-entry", opening.ToleranceProductID)
	require.NotNil(t, opening.FinishedWidth)
	assert.True(t, opening.FinishedWidth.Equal(dec("47.25")), "finished width: got %s", opening.FinishedWidth)

	// WHEN: the product detaches with nothing left
	changed = opening.DetachTolerance(resolver, "prod-entry", nil)

	// THEN: ownership clears and finished dims collapse to rough
	require.True(t, changed)
	assert.Empty(t, opening.ToleranceProductID)
	assert.True(t, opening.FinishedWidth.Equal(dec("48")))
}

func TestOpening_RoughOpeningIgnoresTolerance(t *testing.T) {
	resolver := pricing.NewToleranceResolver()
	mem := storefrontCatalog()
	product, _ := mem.Product("prod-entry")
	opening := quote.Opening{ID: "op-1", RoughWidth: decPtr("48"), RoughHeight: decPtr("96")}

	changed := opening.AttachTolerance(resolver, product)

	assert.False(t, changed)
	assert.Empty(t, opening.ToleranceProductID)
}

// =============================================================================
// RUN ASSEMBLY
// =============================================================================

func TestNewPriceRun_FlattensQuote(t *testing.T) {
	calc := quote.NewCalculator(storefrontCatalog())
	graph := storefrontGraph("prof-std")
	graph.Openings[0].Panels[0].Components[0].OptionSelections = map[string]string{"closer": "opt-closer"}
	graph.Openings[0].Panels[0].Components[0].GlassCost = dec("120")

	q, err := calc.PriceProject(graph)
	require.NoError(t, err)

	at := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	run, lines := quote.NewPriceRun(q, "run-1", at)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "proj-1", run.ProjectID)
	assert.True(t, run.GrandTotal.Equal(q.Result.GrandTotal))

	// 2 BOM lines + 1 option + 1 glass entry.
	require.Len(t, lines, 4)

	// Run lines must reproduce the base cost picture exactly.
	sum := decimal.Zero
	for _, line := range lines {
		assert.Equal(t, "run-1", line.RunID)
		assert.Equal(t, "op-1", line.OpeningID)
		sum = sum.Add(line.TotalCost)
	}
	assert.True(t, sum.Equal(q.Base.Total), "run lines sum %s, base %s", sum, q.Base.Total)

	methods := make([]string, len(lines))
	for i, line := range lines {
		methods[i] = line.Method
	}
	assert.Contains(t, strings.Join(methods, ","), "hardware_option")
	assert.Contains(t, strings.Join(methods, ","), "glass")
}
