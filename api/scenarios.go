/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates master parts,
	products, markup profiles, and a project graph, then stores an initial
	price run so every read endpoint has data.

AVAILABLE SCENARIOS:

	storefront-entry:    Two swing-door openings, hand-checkable totals
	residential-sliding: Finished openings exercising tolerance ownership
	catalog-showcase:    One product whose BOM walks every cost method

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create parts, products, options, profiles via the catalog builders
 3. Create the project with openings, panels, and placed components
 4. Run pricing and store the run

USAGE VIA API:

	POST /api/scenarios/storefront-entry/load

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - catalog/builders.go: Preset catalog JSON builders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/factory"
	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "storefront-entry",
		Name:        "Storefront Entry",
		Description: "Two aluminum entry doors priced by stock rule and width formula",
	},
	{
		ID:          "residential-sliding",
		Name:        "Residential Sliding",
		Description: "Finished openings with tolerance deductions, hybrid markup, installation",
	},
	{
		ID:          "catalog-showcase",
		Name:        "Catalog Showcase",
		Description: "One BOM that exercises every cost resolution method, including a missing part",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		s.Loaded = s.ID == h.currentScenario
		out[i] = s
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			s.Loaded = true
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:     h.currentScenario,
		Name:   h.currentScenario,
		Loaded: true,
	})
}

// LoadScenario resets the database and loads the scenario named in the
// path.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "id")
	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch scenarioID {
	case "storefront-entry":
		err = h.loadStorefrontScenario(ctx)
	case "residential-sliding":
		err = h.loadResidentialScenario(ctx)
	case "catalog-showcase":
		err = h.loadShowcaseScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = scenarioID
	h.Log.Info("scenario loaded", zap.String("scenario", scenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": scenarioID})
}

// ResetDatabase clears all data without loading anything.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

// seed pairs one builder JSON string with the catalog table it loads into.
type seed struct {
	kind string
	json string
}

func (h *Handler) seedPart(ctx context.Context, jsonStr string) error {
	part, err := h.Factory.ParseMasterPart(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SavePart(ctx, part)
}

func (h *Handler) seedProduct(ctx context.Context, jsonStr string) error {
	product, err := h.Factory.ParseProduct(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveProduct(ctx, product)
}

func (h *Handler) seedOption(ctx context.Context, jsonStr string) error {
	option, err := h.Factory.ParseOption(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveOption(ctx, option)
}

func (h *Handler) seedProfile(ctx context.Context, jsonStr string) error {
	profile, err := h.Factory.ParseProfile(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveProfile(ctx, profile)
}

// placeComponent saves a component and resolves tolerance ownership the
// same way the attach endpoint does.
func (h *Handler) placeComponent(ctx context.Context, opening *quote.Opening, comp quote.ComponentInstance) error {
	product, ok := h.Store.Product(comp.ProductID)
	if !ok {
		return fmt.Errorf("%w: %q", pricing.ErrProductNotFound, comp.ProductID)
	}

	if err := h.Store.SaveComponent(ctx, comp); err != nil {
		return err
	}
	if opening.AttachTolerance(h.Resolver, product) {
		return h.Store.SaveOpening(ctx, *opening)
	}
	return nil
}

// priceNow runs the engine over a freshly seeded project and stores the
// run, so GET price endpoints work straight after loading.
func (h *Handler) priceNow(ctx context.Context, projectID string) error {
	graph, err := h.Store.LoadProjectGraph(ctx, projectID)
	if err != nil {
		return err
	}
	if graph == nil {
		return fmt.Errorf("%w: %q", pricing.ErrProjectNotFound, projectID)
	}

	started := time.Now()
	q, err := quote.NewCalculator(h.Store).PriceProject(*graph)
	if err != nil {
		return err
	}

	run, lines := quote.NewPriceRun(q, uuid.NewString(), time.Now().UTC())
	if err := h.Store.SavePriceRun(ctx, run, lines); err != nil {
		return err
	}
	recordRun(triggerScenario, lines, time.Since(started))
	return nil
}

func dec(v string) decimal.Decimal {
	return pricing.MustParseDecimal(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadStorefrontScenario seeds two swing-door openings whose totals are
// hand-checkable: $15 channel + (width-10) trim gives $41 at 36" wide
// and $40 at 35", so the stored run's base subtotal is $81.
func (h *Handler) loadStorefrontScenario(ctx context.Context) error {
	seeds := []seed{
		{"part", catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15)},
		{"part", catalog.DirectCostPartJSON("TRIM-200", "Top Trim", "extrusion", 3.50)},
		{"part", catalog.HardwarePartJSON("HING-300", "Butt Hinge", 12.50)},
		{"product", catalog.SwingDoorJSON("prod-entry", "Storefront Entry Door", "SF-100", "CHAN-100", "TRIM-200")},
		{"option", catalog.HardwareOptionJSON("opt-closer", "closer", "Overhead Closer", 59, false)},
		{"option", catalog.HardwareOptionJSON("opt-handle-std", "handle", "Standard Pull", 25, true)},
		{"profile", catalog.StandardMarkupJSON("prof-std", "Standard Dealer", 100, 50, 10)},
	}
	if err := h.seedAll(ctx, seeds); err != nil {
		return err
	}

	project := quote.Project{
		ID:        "proj-storefront",
		Name:      "Main St Storefront",
		Customer:  "Morrison Retail Group",
		ProfileID: "prof-std",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveProject(ctx, project); err != nil {
		return err
	}

	openings := []struct {
		opening quote.Opening
		panel   quote.Panel
	}{
		{
			quote.Opening{ID: "op-a1", ProjectID: project.ID, Mark: "A1", Position: 1,
				RoughWidth: decPtr("38"), RoughHeight: decPtr("98")},
			quote.Panel{ID: "panel-a1", OpeningID: "op-a1", Position: 1,
				Width: dec("36"), Height: dec("96"),
				PanelType: quote.PanelSwing, Direction: quote.SwingLeftIn},
		},
		{
			quote.Opening{ID: "op-a2", ProjectID: project.ID, Mark: "A2", Position: 2,
				RoughWidth: decPtr("37"), RoughHeight: decPtr("98")},
			quote.Panel{ID: "panel-a2", OpeningID: "op-a2", Position: 1,
				Width: dec("35"), Height: dec("96"),
				PanelType: quote.PanelSwing, Direction: quote.SwingRightIn},
		},
	}
	for _, o := range openings {
		if err := h.Store.SaveOpening(ctx, o.opening); err != nil {
			return err
		}
		if err := h.Store.SavePanel(ctx, o.panel); err != nil {
			return err
		}
		comp := quote.ComponentInstance{
			ID:        "comp-" + o.panel.ID,
			PanelID:   o.panel.ID,
			ProductID: "prod-entry",
			Quantity:  1,
		}
		if err := h.placeComponent(ctx, &o.opening, comp); err != nil {
			return err
		}
	}

	return h.priceNow(ctx, project.ID)
}

// loadResidentialScenario seeds a patio package with finished openings.
// The slider claims B1's tolerance deduction; B2 holds only a fixed lite,
// which never claims, so its finished size stays at the rough size.
func (h *Handler) loadResidentialScenario(ctx context.Context) error {
	seeds := []seed{
		{"part", catalog.RunningFootExtrusionJSON("RAIL-400", "Slider Rail", 144, 1, 36)},
		{"part", catalog.HardwarePartJSON("LOCK-500", "Interlock Latch", 8.75)},
		{"part", catalog.StockedExtrusionJSON("STOP-600", "Glass Stop", 120, 4)},
		{"part", catalog.PerimeterPartJSON("GASK-700", "Bulb Gasket", "fastener", 0.05)},
		{"product", catalog.SlidingPanelJSON("prod-slider", "Glide 200 Slider Panel", "RS-200", "RAIL-400", "LOCK-500")},
		{"product", catalog.FixedLiteJSON("prod-lite", "Glide 200 Fixed Lite", "RS-200", "STOP-600")},
		{"option", catalog.HardwareOptionJSON("opt-screen", "screen", "Sliding Screen", 45, false)},
		{"option", catalog.HardwareOptionJSON("opt-keyed", "lock", "Keyed Lock Upgrade", 18, false)},
		{"profile", catalog.HybridMarkupJSON("prof-hybrid", "Installed Systems", 80, 60, 8.25)},
	}
	if err := h.seedAll(ctx, seeds); err != nil {
		return err
	}

	project := quote.Project{
		ID:           "proj-lakeside",
		Name:         "Lakeside Residence",
		Customer:     "Alvarez Family",
		ProfileID:    "prof-hybrid",
		Installation: dec("450"),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.SaveProject(ctx, project); err != nil {
		return err
	}

	// B1: slider plus fixed lite, measured and finished.
	b1 := quote.Opening{ID: "op-b1", ProjectID: project.ID, Mark: "B1", Position: 1,
		RoughWidth: decPtr("72"), RoughHeight: decPtr("80"), IsFinished: true}
	if err := h.Store.SaveOpening(ctx, b1); err != nil {
		return err
	}
	b1Panels := []quote.Panel{
		{ID: "panel-b1-1", OpeningID: b1.ID, Position: 1,
			Width: dec("35"), Height: dec("78"),
			PanelType: quote.PanelSliding, Direction: quote.SlideLeft},
		{ID: "panel-b1-2", OpeningID: b1.ID, Position: 2,
			Width: dec("35"), Height: dec("78"),
			PanelType: quote.PanelFixed},
	}
	for _, p := range b1Panels {
		if err := h.Store.SavePanel(ctx, p); err != nil {
			return err
		}
	}
	if err := h.placeComponent(ctx, &b1, quote.ComponentInstance{
		ID: "comp-b1-slider", PanelID: "panel-b1-1", ProductID: "prod-slider", Quantity: 1,
		OptionSelections: map[string]string{"screen": "opt-screen"},
	}); err != nil {
		return err
	}
	if err := h.placeComponent(ctx, &b1, quote.ComponentInstance{
		ID: "comp-b1-lite", PanelID: "panel-b1-2", ProductID: "prod-lite", Quantity: 1,
		GlassCost: dec("95"),
	}); err != nil {
		return err
	}

	// B2: fixed lite only. No product is tolerance-eligible here.
	b2 := quote.Opening{ID: "op-b2", ProjectID: project.ID, Mark: "B2", Position: 2,
		RoughWidth: decPtr("48"), RoughHeight: decPtr("60"), IsFinished: true}
	if err := h.Store.SaveOpening(ctx, b2); err != nil {
		return err
	}
	if err := h.Store.SavePanel(ctx, quote.Panel{
		ID: "panel-b2-1", OpeningID: b2.ID, Position: 1,
		Width: dec("46"), Height: dec("58"), PanelType: quote.PanelFixed,
	}); err != nil {
		return err
	}
	if err := h.placeComponent(ctx, &b2, quote.ComponentInstance{
		ID: "comp-b2-lite", PanelID: "panel-b2-1", ProductID: "prod-lite", Quantity: 1,
		GlassCost: dec("60"),
	}); err != nil {
		return err
	}

	return h.priceNow(ctx, project.ID)
}

// loadShowcaseScenario seeds one product whose BOM resolves through every
// cost method, including a deliberate reference to a part that does not
// exist, so the breakdown endpoint shows a no_cost_found line.
func (h *Handler) loadShowcaseScenario(ctx context.Context) error {
	seeds := []seed{
		{"part", catalog.StockedExtrusionJSON("EXT-801", "Frame Head", 96, 22)},
		{"part", catalog.RunningFootExtrusionJSON("EXT-802", "Frame Jamb", 288, 2, 48)},
		{"part", catalog.HardwarePartJSON("HDW-803", "Pivot Set", 31.40)},
		{"part", catalog.DirectCostPartJSON("PKG-804", "Corner Pads", "packaging", 2.25)},
		{"part", catalog.FlatRatePartJSON("FLT-805", "Setting Block Kit", "hardware", 6)},
		{"part", catalog.PerimeterPartJSON("GSK-806", "Wool Pile", "fastener", 0.04)},
		{"profile", catalog.StandardMarkupJSON("prof-shop", "Shop Rate", 65, 35, 7)},
	}
	if err := h.seedAll(ctx, seeds); err != nil {
		return err
	}

	// GHOST-999 is intentionally absent from the parts table.
	product, err := h.Factory.FromProductJSON(factory.ProductJSON{
		ID:     "prod-showcase",
		Name:   "Method Showcase Frame",
		Series: "QA-900",
		BOM: []factory.BOMLineJSON{
			{PartNumber: "EXT-801", PartName: "Frame Head", PartType: "extrusion", Quantity: dec("1")},
			{PartNumber: "EXT-802", PartName: "Frame Jamb", PartType: "extrusion", Quantity: dec("2")},
			{PartNumber: "HDW-803", PartName: "Pivot Set", PartType: "hardware", Quantity: dec("1")},
			{PartNumber: "PKG-804", PartName: "Corner Pads", PartType: "packaging", Quantity: dec("4")},
			{PartNumber: "FLT-805", PartName: "Setting Block Kit", PartType: "hardware", Quantity: dec("1")},
			{PartNumber: "GSK-806", PartName: "Wool Pile", PartType: "fastener", Quantity: dec("1")},
			{PartName: "Shop Labor", PartType: "other", Quantity: dec("1"), DirectCost: dec("35")},
			{PartName: "Cut Charge", PartType: "other", Quantity: dec("1"), Formula: "quantity*4"},
			{PartNumber: "GHOST-999", PartName: "Legacy Astragal", PartType: "extrusion", Quantity: dec("1")},
		},
	})
	if err != nil {
		return err
	}
	if err := h.Store.SaveProduct(ctx, product); err != nil {
		return err
	}

	project := quote.Project{
		ID:        "proj-showcase",
		Name:      "Cost Method Showcase",
		Customer:  "Internal QA",
		ProfileID: "prof-shop",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveProject(ctx, project); err != nil {
		return err
	}

	opening := quote.Opening{ID: "op-c1", ProjectID: project.ID, Mark: "C1", Position: 1,
		RoughWidth: decPtr("50"), RoughHeight: decPtr("86")}
	if err := h.Store.SaveOpening(ctx, opening); err != nil {
		return err
	}
	if err := h.Store.SavePanel(ctx, quote.Panel{
		ID: "panel-c1", OpeningID: opening.ID, Position: 1,
		Width: dec("48"), Height: dec("84"),
		PanelType: quote.PanelSwing, Direction: quote.SwingLeftOut,
	}); err != nil {
		return err
	}
	if err := h.placeComponent(ctx, &opening, quote.ComponentInstance{
		ID: "comp-c1", PanelID: "panel-c1", ProductID: "prod-showcase", Quantity: 1,
		GlassCost: dec("140"),
	}); err != nil {
		return err
	}

	return h.priceNow(ctx, project.ID)
}

// seedAll pushes builder JSON through the factory into the store.
func (h *Handler) seedAll(ctx context.Context, seeds []seed) error {
	for _, s := range seeds {
		var err error
		switch s.kind {
		case "part":
			err = h.seedPart(ctx, s.json)
		case "product":
			err = h.seedProduct(ctx, s.json)
		case "option":
			err = h.seedOption(ctx, s.json)
		case "profile":
			err = h.seedProfile(ctx, s.json)
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.kind, err)
		}
	}
	return nil
}
