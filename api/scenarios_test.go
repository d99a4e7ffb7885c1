/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Catalog records (parts, products, options, profiles) are created
	- The project graph is created with openings, panels, and components
	- Tolerance ownership lands where the placement order says it should
	- An initial price run is stored with the expected totals

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/warp/quote-engine/quote"
	"github.com/warp/quote-engine/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewHandler(store, zap.NewNop())
}

func TestScenario_Storefront(t *testing.T) {
	// GIVEN: The storefront-entry scenario
	// WHEN: Loading it
	// THEN: Catalog, project graph, and a stored run with hand-checkable
	//       totals should all exist

	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadStorefrontScenario(ctx); err != nil {
		t.Fatalf("Failed to load storefront-entry scenario: %v", err)
	}

	parts, err := handler.Store.ListParts(ctx)
	if err != nil {
		t.Fatalf("Failed to list parts: %v", err)
	}
	if len(parts) != 3 {
		t.Errorf("Expected 3 master parts, got %d", len(parts))
	}

	products, err := handler.Store.ListProducts(ctx)
	if err != nil {
		t.Fatalf("Failed to list products: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("Expected 1 product, got %d", len(products))
	}

	project, err := handler.Store.GetProject(ctx, "proj-storefront")
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if project == nil {
		t.Fatal("Project 'proj-storefront' not found")
	}
	if project.NeedsReprice {
		t.Error("Freshly priced project should not be flagged for reprice")
	}

	// The totals are hand-checkable: opening A1 prices $15 channel plus
	// $26 trim (width 36 - 10), opening A2 the same channel plus $25 trim
	// at width 35, so the base subtotal is $81. The standard profile marks
	// extrusion up 100% and taxes the result at 10%.
	run, err := handler.Store.LatestPriceRun(ctx, "proj-storefront")
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if run == nil {
		t.Fatal("Scenario should store an initial price run")
	}
	if got := run.SubtotalBase.String(); got != "81" {
		t.Errorf("Expected base subtotal 81, got %s", got)
	}
	if got := run.SubtotalMarkedUp.String(); got != "162" {
		t.Errorf("Expected marked-up subtotal 162, got %s", got)
	}
	if got := run.GrandTotal.StringFixed(2); got != "178.20" {
		t.Errorf("Expected grand total 178.20, got %s", got)
	}

	// Per-opening audit lines pin the single-inch sensitivity.
	a1, err := handler.Store.ListRunLinesForOpening(ctx, run.ID, "op-a1")
	if err != nil {
		t.Fatalf("Failed to list run lines for op-a1: %v", err)
	}
	a2, err := handler.Store.ListRunLinesForOpening(ctx, run.ID, "op-a2")
	if err != nil {
		t.Fatalf("Failed to list run lines for op-a2: %v", err)
	}
	if len(a1) != 2 || len(a2) != 2 {
		t.Fatalf("Expected 2 lines per opening, got %d and %d", len(a1), len(a2))
	}

	checkRunLine(t, a1, "CHAN-100", "extrusion_rule_base", "15")
	checkRunLine(t, a1, "TRIM-200", "bom_formula", "26")
	checkRunLine(t, a2, "TRIM-200", "bom_formula", "25")
}

func checkRunLine(t *testing.T, lines []quote.PriceRunLine, partNumber, method, total string) {
	t.Helper()
	for _, l := range lines {
		if l.PartNumber != partNumber {
			continue
		}
		if l.Method != method {
			t.Errorf("Part %s: expected method %s, got %s", partNumber, method, l.Method)
		}
		if l.TotalCost.String() != total {
			t.Errorf("Part %s: expected total %s, got %s", partNumber, total, l.TotalCost)
		}
		return
	}
	t.Errorf("No run line for part %s", partNumber)
}

func TestScenario_Residential(t *testing.T) {
	// GIVEN: The residential-sliding scenario with two finished openings
	// WHEN: Loading it
	// THEN: The slider should own B1's tolerance; B2 holds only a fixed
	//       lite, which never claims

	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadResidentialScenario(ctx); err != nil {
		t.Fatalf("Failed to load residential-sliding scenario: %v", err)
	}

	b1, err := handler.Store.GetOpening(ctx, "op-b1")
	if err != nil || b1 == nil {
		t.Fatalf("Failed to get opening op-b1: %v", err)
	}
	if b1.ToleranceProductID != "prod-slider" {
		t.Errorf("Expected op-b1 tolerance owner 'prod-slider', got %q", b1.ToleranceProductID)
	}
	// The slider defines no tolerances of its own, so the 1/2" system
	// default applies per axis: 72 - 0.5 and 80 - 0.5.
	if b1.FinishedWidth == nil || b1.FinishedWidth.String() != "71.5" {
		t.Errorf("Expected op-b1 finished width 71.5, got %v", b1.FinishedWidth)
	}
	if b1.FinishedHeight == nil || b1.FinishedHeight.String() != "79.5" {
		t.Errorf("Expected op-b1 finished height 79.5, got %v", b1.FinishedHeight)
	}

	b2, err := handler.Store.GetOpening(ctx, "op-b2")
	if err != nil || b2 == nil {
		t.Fatalf("Failed to get opening op-b2: %v", err)
	}
	if b2.ToleranceProductID != "" {
		t.Errorf("Expected op-b2 to have no tolerance owner, got %q", b2.ToleranceProductID)
	}
	if !b2.WidthToleranceTotal.IsZero() {
		t.Errorf("Expected op-b2 width tolerance 0, got %s", b2.WidthToleranceTotal)
	}

	run, err := handler.Store.LatestPriceRun(ctx, "proj-lakeside")
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if run == nil {
		t.Fatal("Scenario should store an initial price run")
	}
	// The project carries a $450 installation override.
	if got := run.Installation.String(); got != "450" {
		t.Errorf("Expected installation 450, got %s", got)
	}
	if !run.GrandTotal.IsPositive() {
		t.Errorf("Expected positive grand total, got %s", run.GrandTotal)
	}
}

func TestScenario_Showcase_CoversEveryCostMethod(t *testing.T) {
	// GIVEN: The catalog-showcase scenario with one deliberately broad BOM
	// WHEN: Loading it
	// THEN: The stored run's lines should cover every cost resolution
	//       method, including no_cost_found for the missing part

	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadShowcaseScenario(ctx); err != nil {
		t.Fatalf("Failed to load catalog-showcase scenario: %v", err)
	}

	run, err := handler.Store.LatestPriceRun(ctx, "proj-showcase")
	if err != nil || run == nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	lines, err := handler.Store.ListRunLines(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to list run lines: %v", err)
	}

	methods := make(map[string]bool)
	for _, l := range lines {
		methods[l.Method] = true
	}

	expected := []string{
		"direct_bom_cost",
		"bom_formula",
		"master_part_hardware",
		"extrusion_rule_formula",
		"extrusion_rule_base",
		"pricing_rule_formula",
		"pricing_rule_base",
		"master_part_direct",
		"no_cost_found",
		"glass",
	}
	for _, m := range expected {
		if !methods[m] {
			t.Errorf("Expected a run line with method %q, none found", m)
		}
	}

	// The missing part surfaces for operator review, not as an error.
	for _, l := range lines {
		if l.PartNumber == "GHOST-999" {
			if l.Method != "no_cost_found" {
				t.Errorf("Expected GHOST-999 method no_cost_found, got %s", l.Method)
			}
			if !l.TotalCost.IsZero() {
				t.Errorf("Expected GHOST-999 total 0, got %s", l.TotalCost)
			}
		}
	}
}

func TestLoadScenario_TracksCurrent(t *testing.T) {
	// GIVEN: A handler with no scenario loaded
	// WHEN: Loading storefront-entry
	// THEN: The scenario list should know exactly that one as loaded

	handler := setupTestHandler(t)
	ctx := context.Background()

	if handler.currentScenario != "" {
		t.Fatalf("Expected no current scenario, got %q", handler.currentScenario)
	}

	if err := handler.loadStorefrontScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	handler.currentScenario = "storefront-entry"

	found := false
	for _, s := range scenarios {
		if s.ID == handler.currentScenario {
			found = true
		}
	}
	if !found {
		t.Errorf("Current scenario %q not in the scenario list", handler.currentScenario)
	}
}
