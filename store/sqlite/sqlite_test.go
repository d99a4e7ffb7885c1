/*
sqlite_test.go - Store tests against an in-memory database

Covers:
- Catalog roundtrips (parts with rules, products with BOMs, options, profiles)
- Rule replacement on part re-save
- Project graph loading in position order
- Append-only price runs and the needs_reprice lifecycle
- Reprice flagging from catalog mutations
- Transactional attach/detach writes
*/
package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/factory"
	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
	"github.com/warp/quote-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return pricing.MustParseDecimal(s)
}

// seedCatalog loads the storefront fixtures through the JSON factory, the
// same path the import and scenario endpoints use.
func seedCatalog(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	f := factory.NewCatalogFactory()

	channel, err := f.ParseMasterPart(catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15))
	if err != nil {
		t.Fatalf("Failed to parse channel: %v", err)
	}
	if err := store.SavePart(ctx, channel); err != nil {
		t.Fatalf("Failed to save channel: %v", err)
	}

	hinge, err := f.ParseMasterPart(catalog.HardwarePartJSON("HING-300", "Butt Hinge", 12.50))
	if err != nil {
		t.Fatalf("Failed to parse hinge: %v", err)
	}
	if err := store.SavePart(ctx, hinge); err != nil {
		t.Fatalf("Failed to save hinge: %v", err)
	}

	door, err := f.ParseProduct(catalog.SwingDoorJSON("prod-entry", "Storefront Entry", "450", "CHAN-100", "TRIM-200"))
	if err != nil {
		t.Fatalf("Failed to parse door: %v", err)
	}
	if err := store.SaveProduct(ctx, door); err != nil {
		t.Fatalf("Failed to save door: %v", err)
	}

	profile, err := f.ParseProfile(catalog.StandardMarkupJSON("prof-std", "Standard Dealer", 100, 50, 10))
	if err != nil {
		t.Fatalf("Failed to parse profile: %v", err)
	}
	if err := store.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	closer, err := f.ParseOption(catalog.HardwareOptionJSON("opt-closer", "closer", "Overhead Closer", 59, false))
	if err != nil {
		t.Fatalf("Failed to parse option: %v", err)
	}
	if err := store.SaveOption(ctx, closer); err != nil {
		t.Fatalf("Failed to save option: %v", err)
	}
}

// seedProject creates one project with an opening, a panel, and a placed
// component selecting the closer option.
func seedProject(t *testing.T, store *sqlite.Store, projectID string) {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveProject(ctx, quote.Project{
		ID:        projectID,
		Name:      "Main St Storefront",
		Customer:  "Acme Glazing",
		ProfileID: "prof-std",
	}); err != nil {
		t.Fatalf("Failed to save project: %v", err)
	}

	w, h := dec("48"), dec("96")
	if err := store.SaveOpening(ctx, quote.Opening{
		ID:          projectID + "-op-1",
		ProjectID:   projectID,
		Mark:        "A1",
		Position:    1,
		RoughWidth:  &w,
		RoughHeight: &h,
	}); err != nil {
		t.Fatalf("Failed to save opening: %v", err)
	}

	if err := store.SavePanel(ctx, quote.Panel{
		ID:        projectID + "-pn-1",
		OpeningID: projectID + "-op-1",
		Position:  1,
		Width:     dec("36"),
		Height:    dec("84"),
		PanelType: quote.PanelSwing,
		Direction: quote.SwingLeftIn,
	}); err != nil {
		t.Fatalf("Failed to save panel: %v", err)
	}

	if err := store.SaveComponent(ctx, quote.ComponentInstance{
		ID:               projectID + "-cp-1",
		PanelID:          projectID + "-pn-1",
		ProductID:        "prod-entry",
		Quantity:         1,
		OptionSelections: map[string]string{"closer": "opt-closer"},
		GlassCost:        dec("120"),
	}); err != nil {
		t.Fatalf("Failed to save component: %v", err)
	}
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestStore_PartRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	part, err := store.GetPart(ctx, "CHAN-100")
	if err != nil {
		t.Fatalf("Failed to get part: %v", err)
	}
	if part == nil {
		t.Fatal("Part not found")
	}
	if part.PartName != "Bottom Channel" {
		t.Errorf("Expected 'Bottom Channel', got %q", part.PartName)
	}
	if part.PartType != pricing.PartExtrusion {
		t.Errorf("Expected extrusion type, got %v", part.PartType)
	}
	if !part.IsActive {
		t.Error("Part should be active")
	}
	if len(part.StockLengthRules) != 1 {
		t.Fatalf("Expected 1 stock rule, got %d", len(part.StockLengthRules))
	}

	rule := part.StockLengthRules[0]
	if rule.MinWidth != nil {
		t.Error("Unset min_width should load as nil")
	}
	if rule.MaxWidth == nil || !rule.MaxWidth.Equal(dec("48")) {
		t.Errorf("Expected max_width 48, got %v", rule.MaxWidth)
	}
	if rule.BasePrice == nil || !rule.BasePrice.Equal(dec("15")) {
		t.Errorf("Expected base_price 15, got %v", rule.BasePrice)
	}

	// Missing part reads as nil, not an error
	missing, err := store.GetPart(ctx, "GHOST-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("Missing part should be nil")
	}
}

func TestStore_ResaveReplacesRules(t *testing.T) {
	// GIVEN a part with one stock rule
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	// WHEN re-saving it with a pricing rule instead
	five := dec("5")
	if err := store.SavePart(ctx, pricing.MasterPart{
		PartNumber: "CHAN-100",
		PartName:   "Bottom Channel v2",
		PartType:   pricing.PartExtrusion,
		IsActive:   true,
		PricingRules: []pricing.PricingRule{
			{ID: "CHAN-100-flat-1", BasePrice: &five, IsActive: true},
		},
	}); err != nil {
		t.Fatalf("Failed to re-save part: %v", err)
	}

	// THEN the old rules are gone and the new list is the truth
	part, _ := store.GetPart(ctx, "CHAN-100")
	if part.PartName != "Bottom Channel v2" {
		t.Errorf("Expected updated name, got %q", part.PartName)
	}
	if len(part.StockLengthRules) != 0 {
		t.Errorf("Expected stock rules replaced away, got %d", len(part.StockLengthRules))
	}
	if len(part.PricingRules) != 1 {
		t.Fatalf("Expected 1 pricing rule, got %d", len(part.PricingRules))
	}
}

func TestStore_PricingRulePositionIsPrecedence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ten, twenty := dec("10"), dec("20")
	if err := store.SavePart(ctx, pricing.MasterPart{
		PartNumber: "PACK-400",
		PartType:   pricing.PartPackaging,
		IsActive:   true,
		PricingRules: []pricing.PricingRule{
			{ID: "rule-b", BasePrice: &twenty, IsActive: true},
			{ID: "rule-a", BasePrice: &ten, IsActive: true},
		},
	}); err != nil {
		t.Fatalf("Failed to save part: %v", err)
	}

	// List order survives storage; rule-b stays first despite its ID
	// sorting last.
	part, _ := store.GetPart(ctx, "PACK-400")
	if len(part.PricingRules) != 2 {
		t.Fatalf("Expected 2 pricing rules, got %d", len(part.PricingRules))
	}
	if part.PricingRules[0].ID != "rule-b" {
		t.Errorf("Expected rule-b first, got %s", part.PricingRules[0].ID)
	}
}

func TestStore_ListPartsSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	parts, err := store.ListParts(ctx)
	if err != nil {
		t.Fatalf("Failed to list parts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	if parts[0].PartNumber != "CHAN-100" || parts[1].PartNumber != "HING-300" {
		t.Errorf("Parts out of order: %s, %s", parts[0].PartNumber, parts[1].PartNumber)
	}
	if len(parts[0].StockLengthRules) != 1 {
		t.Error("Listed parts should carry their rules")
	}
}

func TestStore_DeletePartCascadesRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	if err := store.DeletePart(ctx, "CHAN-100"); err != nil {
		t.Fatalf("Failed to delete part: %v", err)
	}

	part, _ := store.GetPart(ctx, "CHAN-100")
	if part != nil {
		t.Error("Part should be gone")
	}

	// The cascaded rule ID is free for reuse
	f := factory.NewCatalogFactory()
	channel, _ := f.ParseMasterPart(catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15))
	if err := store.SavePart(ctx, channel); err != nil {
		t.Fatalf("Rule ID should have been freed by the cascade: %v", err)
	}
}

func TestStore_ProductRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	product, err := store.GetProduct(ctx, "prod-entry")
	if err != nil {
		t.Fatalf("Failed to get product: %v", err)
	}
	if product == nil {
		t.Fatal("Product not found")
	}
	if !product.AppliesTolerance {
		t.Error("Product should be tolerance-eligible")
	}
	if product.WidthTolerance == nil || !product.WidthTolerance.Equal(dec("0.75")) {
		t.Errorf("Expected width tolerance 0.75, got %v", product.WidthTolerance)
	}
	if len(product.BOM) != 2 {
		t.Fatalf("Expected 2 BOM lines, got %d", len(product.BOM))
	}
	// BOM order is position order
	if product.BOM[0].PartNumber != "CHAN-100" {
		t.Errorf("Expected CHAN-100 first, got %s", product.BOM[0].PartNumber)
	}
	if product.BOM[1].Formula != "width-10" {
		t.Errorf("Expected trim formula, got %q", product.BOM[1].Formula)
	}
}

func TestStore_OptionAndProfileRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)

	option, err := store.GetOption(ctx, "opt-closer")
	if err != nil {
		t.Fatalf("Failed to get option: %v", err)
	}
	if option == nil || !option.Price.Equal(dec("59")) {
		t.Fatalf("Expected closer at 59, got %+v", option)
	}

	profile, err := store.GetProfile(ctx, "prof-std")
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if profile == nil {
		t.Fatal("Profile not found")
	}
	if profile.Mode != pricing.ModeStandard {
		t.Errorf("Expected standard mode, got %v", profile.Mode)
	}
	if !profile.CategoryMarkup(pricing.CategoryExtrusion).Equal(dec("100")) {
		t.Errorf("Expected extrusion markup 100, got %v", profile.CategoryMarkup(pricing.CategoryExtrusion))
	}
	if !profile.IsNoMarkup(pricing.CategoryGlass) {
		t.Error("Glass should pass through unmarked")
	}
	if !profile.TaxRate.Equal(dec("10")) {
		t.Errorf("Expected tax rate 10, got %v", profile.TaxRate)
	}
}

func TestStore_CatalogSourceView(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)

	// The store doubles as the calculator's catalog source
	var src catalog.Source = store

	part, ok := src.MasterPart("CHAN-100")
	if !ok {
		t.Fatal("Expected part through the source view")
	}
	if len(part.StockLengthRules) != 1 {
		t.Error("Source view should include rules")
	}

	if _, ok := src.MasterPart("GHOST-1"); ok {
		t.Error("Missing part should read as a miss")
	}

	if _, ok := src.Product("prod-entry"); !ok {
		t.Error("Expected product through the source view")
	}
	if _, ok := src.Profile("prof-std"); !ok {
		t.Error("Expected profile through the source view")
	}
	if options := src.Options(); len(options) != 1 {
		t.Errorf("Expected 1 option, got %d", len(options))
	}
}

// =============================================================================
// PROJECT GRAPH TESTS
// =============================================================================

func TestStore_LoadProjectGraph(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	// Add a second opening out of position order
	if err := store.SaveOpening(ctx, quote.Opening{
		ID: "prj-1-op-0", ProjectID: "prj-1", Mark: "A0", Position: 0,
	}); err != nil {
		t.Fatalf("Failed to save opening: %v", err)
	}

	graph, err := store.LoadProjectGraph(ctx, "prj-1")
	if err != nil {
		t.Fatalf("Failed to load graph: %v", err)
	}
	if graph == nil {
		t.Fatal("Graph not found")
	}
	if graph.Project.Customer != "Acme Glazing" {
		t.Errorf("Expected customer, got %q", graph.Project.Customer)
	}
	if len(graph.Openings) != 2 {
		t.Fatalf("Expected 2 openings, got %d", len(graph.Openings))
	}
	// Openings come back in position order
	if graph.Openings[0].Opening.Mark != "A0" || graph.Openings[1].Opening.Mark != "A1" {
		t.Errorf("Openings out of order: %s, %s",
			graph.Openings[0].Opening.Mark, graph.Openings[1].Opening.Mark)
	}

	a1 := graph.Openings[1]
	if a1.Opening.RoughWidth == nil || !a1.Opening.RoughWidth.Equal(dec("48")) {
		t.Errorf("Expected rough width 48, got %v", a1.Opening.RoughWidth)
	}
	if len(a1.Panels) != 1 {
		t.Fatalf("Expected 1 panel, got %d", len(a1.Panels))
	}
	panel := a1.Panels[0]
	if panel.Panel.PanelType != quote.PanelSwing || panel.Panel.Direction != quote.SwingLeftIn {
		t.Errorf("Panel type/direction lost: %v %v", panel.Panel.PanelType, panel.Panel.Direction)
	}
	if len(panel.Components) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(panel.Components))
	}
	comp := panel.Components[0]
	if comp.OptionSelections["closer"] != "opt-closer" {
		t.Errorf("Option selections lost: %v", comp.OptionSelections)
	}
	if !comp.GlassCost.Equal(dec("120")) {
		t.Errorf("Expected glass cost 120, got %v", comp.GlassCost)
	}

	// Missing project loads as nil
	missing, err := store.LoadProjectGraph(ctx, "prj-ghost")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("Missing project graph should be nil")
	}
}

func TestStore_OpeningToleranceFieldsPersist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	opening, _ := store.GetOpening(ctx, "prj-1-op-1")
	opening.IsFinished = true
	opening.ToleranceProductID = "prod-entry"
	opening.WidthToleranceTotal = dec("0.75")
	opening.HeightToleranceTotal = dec("0.75")
	fw, fh := dec("47.25"), dec("95.25")
	opening.FinishedWidth = &fw
	opening.FinishedHeight = &fh

	if err := store.SaveOpening(ctx, *opening); err != nil {
		t.Fatalf("Failed to update opening: %v", err)
	}

	loaded, _ := store.GetOpening(ctx, "prj-1-op-1")
	if !loaded.IsFinished {
		t.Error("IsFinished lost")
	}
	if loaded.ToleranceProductID != "prod-entry" {
		t.Errorf("Tolerance owner lost: %q", loaded.ToleranceProductID)
	}
	if loaded.FinishedWidth == nil || !loaded.FinishedWidth.Equal(dec("47.25")) {
		t.Errorf("Finished width lost: %v", loaded.FinishedWidth)
	}
}

func TestStore_DeleteProjectCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	if err := store.DeleteProject(ctx, "prj-1"); err != nil {
		t.Fatalf("Failed to delete project: %v", err)
	}

	if opening, _ := store.GetOpening(ctx, "prj-1-op-1"); opening != nil {
		t.Error("Opening should cascade away with the project")
	}
	if panel, _ := store.GetPanel(ctx, "prj-1-pn-1"); panel != nil {
		t.Error("Panel should cascade away with the project")
	}
	if comp, _ := store.GetComponent(ctx, "prj-1-cp-1"); comp != nil {
		t.Error("Component should cascade away with the project")
	}
}

func TestStore_ListOpeningProductIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	// Second panel placed before the first by position
	if err := store.SavePanel(ctx, quote.Panel{
		ID: "prj-1-pn-0", OpeningID: "prj-1-op-1", Position: 0,
		Width: dec("12"), Height: dec("84"), PanelType: quote.PanelFixed,
	}); err != nil {
		t.Fatalf("Failed to save panel: %v", err)
	}
	if err := store.SaveComponent(ctx, quote.ComponentInstance{
		ID: "prj-1-cp-0", PanelID: "prj-1-pn-0", ProductID: "prod-lite", Quantity: 1,
	}); err != nil {
		t.Fatalf("Failed to save component: %v", err)
	}

	ids, err := store.ListOpeningProductIDs(ctx, "prj-1-op-1")
	if err != nil {
		t.Fatalf("Failed to list product IDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 product IDs, got %d", len(ids))
	}
	// Panel order, not insert order
	if ids[0] != "prod-lite" || ids[1] != "prod-entry" {
		t.Errorf("Product IDs out of panel order: %v", ids)
	}
}

// =============================================================================
// PRICE RUN TESTS
// =============================================================================

func TestStore_PriceRunsAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	runAt := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	run1 := quote.PriceRun{
		ID: "run-1", ProjectID: "prj-1", RunAt: runAt,
		SubtotalBase: dec("100"), SubtotalMarkedUp: dec("170.50"),
		Installation: dec("0"), TaxAmount: dec("17.05"), GrandTotal: dec("187.55"),
	}
	lines1 := []quote.PriceRunLine{
		{OpeningID: "prj-1-op-1", ComponentID: "prj-1-cp-1", PartNumber: "CHAN-100",
			Method: "extrusion_rule_base", UnitCost: dec("15"), TotalCost: dec("15"),
			Category: pricing.CategoryExtrusion},
		{OpeningID: "prj-1-op-1", ComponentID: "prj-1-cp-1", PartNumber: "",
			Method: "glass", UnitCost: dec("120"), TotalCost: dec("120"),
			Details: "quoted glass", Category: pricing.CategoryGlass},
	}
	if err := store.SavePriceRun(ctx, run1, lines1); err != nil {
		t.Fatalf("Failed to save run 1: %v", err)
	}

	run2 := run1
	run2.ID = "run-2"
	run2.RunAt = runAt.Add(time.Hour)
	run2.GrandTotal = dec("190")
	if err := store.SavePriceRun(ctx, run2, nil); err != nil {
		t.Fatalf("Failed to save run 2: %v", err)
	}

	// Latest is the newest by run time
	latest, err := store.LatestPriceRun(ctx, "prj-1")
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if latest == nil || latest.ID != "run-2" {
		t.Fatalf("Expected run-2 latest, got %+v", latest)
	}
	if !latest.GrandTotal.Equal(dec("190")) {
		t.Errorf("Expected grand total 190, got %v", latest.GrandTotal)
	}

	// History keeps both, newest first
	runs, _ := store.ListPriceRuns(ctx, "prj-1")
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("Unexpected run history: %+v", runs)
	}

	// Lines come back in priced order
	lines, err := store.ListRunLines(ctx, "run-1")
	if err != nil {
		t.Fatalf("Failed to list lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0].PartNumber != "CHAN-100" || lines[1].Method != "glass" {
		t.Errorf("Lines out of order: %+v", lines)
	}
	if lines[0].RunID != "run-1" {
		t.Errorf("Line run ID not stamped: %q", lines[0].RunID)
	}

	byOpening, _ := store.ListRunLinesForOpening(ctx, "run-1", "prj-1-op-1")
	if len(byOpening) != 2 {
		t.Errorf("Expected 2 lines for opening, got %d", len(byOpening))
	}
	if none, _ := store.ListRunLinesForOpening(ctx, "run-1", "prj-1-op-9"); len(none) != 0 {
		t.Errorf("Expected no lines for unknown opening, got %d", len(none))
	}
}

func TestStore_RepriceLifecycle(t *testing.T) {
	// GIVEN a priced project referencing CHAN-100 through its product
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	// And an unrelated project
	if err := store.SaveProject(ctx, quote.Project{ID: "prj-other", Name: "Other Job"}); err != nil {
		t.Fatalf("Failed to save project: %v", err)
	}

	// WHEN the part changes
	flagged, err := store.FlagReferencingPart(ctx, "CHAN-100")
	if err != nil {
		t.Fatalf("Failed to flag: %v", err)
	}

	// THEN only the project using it is flagged
	if flagged != 1 {
		t.Errorf("Expected 1 project flagged, got %d", flagged)
	}
	stale, _ := store.ListProjectsNeedingReprice(ctx)
	if len(stale) != 1 || stale[0].ID != "prj-1" {
		t.Fatalf("Unexpected sweep set: %+v", stale)
	}

	// AND a fresh price run clears the flag
	run := quote.PriceRun{
		ID: "run-1", ProjectID: "prj-1", RunAt: time.Now().UTC(),
		SubtotalBase: dec("100"), SubtotalMarkedUp: dec("170.50"),
		Installation: dec("0"), TaxAmount: dec("17.05"), GrandTotal: dec("187.55"),
	}
	if err := store.SavePriceRun(ctx, run, nil); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	stale, _ = store.ListProjectsNeedingReprice(ctx)
	if len(stale) != 0 {
		t.Errorf("Expected empty sweep set after reprice, got %+v", stale)
	}
}

func TestStore_FlagReferencingProductOptionProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	if flagged, _ := store.FlagReferencingProduct(ctx, "prod-entry"); flagged != 1 {
		t.Errorf("Expected product flag to hit 1 project, got %d", flagged)
	}
	if flagged, _ := store.FlagReferencingOption(ctx, "opt-closer"); flagged != 1 {
		t.Errorf("Expected option flag to hit 1 project, got %d", flagged)
	}
	if flagged, _ := store.FlagReferencingProfile(ctx, "prof-std"); flagged != 1 {
		t.Errorf("Expected profile flag to hit 1 project, got %d", flagged)
	}

	// Nothing references these
	if flagged, _ := store.FlagReferencingProduct(ctx, "prod-ghost"); flagged != 0 {
		t.Errorf("Expected no projects flagged, got %d", flagged)
	}
	if flagged, _ := store.FlagReferencingOption(ctx, "opt-ghost"); flagged != 0 {
		t.Errorf("Expected no projects flagged, got %d", flagged)
	}
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestStore_WithTxCommitsTogether(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	// Attach-style write: new component plus updated opening tolerance.
	// Reads happen before the transaction; WithTx holds the write lock.
	opening, _ := store.GetOpening(ctx, "prj-1-op-1")
	opening.ToleranceProductID = "prod-entry"

	err := store.WithTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.SaveComponent(ctx, quote.ComponentInstance{
			ID: "prj-1-cp-2", PanelID: "prj-1-pn-1", ProductID: "prod-entry", Quantity: 1,
		}); err != nil {
			return err
		}
		return tx.SaveOpening(ctx, *opening)
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	comp, _ := store.GetComponent(ctx, "prj-1-cp-2")
	if comp == nil {
		t.Fatal("Component should have committed")
	}
	reloaded, _ := store.GetOpening(ctx, "prj-1-op-1")
	if reloaded.ToleranceProductID != "prod-entry" {
		t.Error("Opening update should have committed")
	}
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedCatalog(t, store)
	seedProject(t, store, "prj-1")

	wantErr := fmt.Errorf("validation failed downstream")
	err := store.WithTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.SaveComponent(ctx, quote.ComponentInstance{
			ID: "prj-1-cp-3", PanelID: "prj-1-pn-1", ProductID: "prod-entry", Quantity: 1,
		}); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Expected the callback error, got %v", err)
	}

	comp, _ := store.GetComponent(ctx, "prj-1-cp-3")
	if comp != nil {
		t.Error("Component write should have rolled back")
	}
}
