/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Project/opening/panel creation and validation mapping (400/404)
- Component placement and the tolerance ownership it triggers
- Catalog part lifecycle including CSV import
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/quote"
)

// perform runs one JSON request through the full router.
func perform(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func setupTestRouter(t *testing.T) (*Handler, http.Handler) {
	handler := setupTestHandler(t)
	return handler, NewRouter(handler, nil)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func TestCreateProject_GeneratesID(t *testing.T) {
	// GIVEN: A create request without an explicit ID
	// WHEN: POSTing it
	// THEN: The project is created with a generated ID and no reprice flag

	_, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/projects",
		`{"name": "Harbor Offices", "customer": "Pier 9 LLC"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var dto ProjectDTO
	decodeBody(t, rec, &dto)
	if dto.ID == "" {
		t.Error("Expected a generated project ID")
	}
	if dto.Name != "Harbor Offices" {
		t.Errorf("Expected name 'Harbor Offices', got %q", dto.Name)
	}
	if dto.NeedsReprice {
		t.Error("New project should not need repricing")
	}
}

func TestCreateProject_UnknownProfile(t *testing.T) {
	// GIVEN: A create request naming a profile that does not exist
	// WHEN: POSTing it
	// THEN: 400, and nothing is stored

	handler, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/projects",
		`{"name": "Bad", "profile_id": "prof-missing"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	projects, err := handler.Store.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("Failed to list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("Expected no stored projects, got %d", len(projects))
	}
}

func TestCreateProject_InvalidBody(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/projects", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", rec.Code)
	}

	// A nameless project fails validation, not JSON parsing.
	rec = perform(t, router, http.MethodPost, "/api/projects", `{"customer": "anon"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", rec.Code)
	}
}

func TestCreateOpening_ProjectNotFound(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/projects/nope/openings",
		`{"mark": "A1", "position": 1}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePanel_RejectsBadDirection(t *testing.T) {
	// GIVEN: A project with one opening
	// WHEN: Adding a swing panel with a sliding direction
	// THEN: 400 with a validation message

	handler, router := setupTestRouter(t)
	ctx := context.Background()

	project := quote.Project{ID: "proj-1", Name: "Test"}
	if err := handler.Store.SaveProject(ctx, project); err != nil {
		t.Fatalf("Failed to save project: %v", err)
	}
	opening := quote.Opening{ID: "op-1", ProjectID: "proj-1", Mark: "A1", Position: 1}
	if err := handler.Store.SaveOpening(ctx, opening); err != nil {
		t.Fatalf("Failed to save opening: %v", err)
	}

	rec := perform(t, router, http.MethodPost, "/api/openings/op-1/panels",
		`{"position": 1, "width": 36, "height": 96, "panel_type": "swing", "direction": "left"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = perform(t, router, http.MethodPost, "/api/openings/op-1/panels",
		`{"position": 1, "width": 36, "height": 96, "panel_type": "swing", "direction": "left-in"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected 201 for a legal direction, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// COMPONENT PLACEMENT AND TOLERANCE OWNERSHIP
// =============================================================================

// seedPlacementFixture builds a finished opening with two panels and two
// tolerance-eligible products: a swing door with explicit 3/4" tolerances
// and a slider that falls back to the 1/2" system default.
func seedPlacementFixture(t *testing.T, h *Handler) {
	t.Helper()
	ctx := context.Background()

	seeds := []seed{
		{"part", catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15)},
		{"part", catalog.DirectCostPartJSON("TRIM-200", "Top Trim", "extrusion", 3.50)},
		{"part", catalog.RunningFootExtrusionJSON("RAIL-400", "Slider Rail", 144, 1, 36)},
		{"part", catalog.HardwarePartJSON("LOCK-500", "Interlock Latch", 8.75)},
		{"product", catalog.SwingDoorJSON("prod-entry", "Entry Door", "SF-100", "CHAN-100", "TRIM-200")},
		{"product", catalog.SlidingPanelJSON("prod-slider", "Slider Panel", "RS-200", "RAIL-400", "LOCK-500")},
	}
	if err := h.seedAll(ctx, seeds); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}

	if err := h.Store.SaveProject(ctx, quote.Project{ID: "proj-1", Name: "Placement"}); err != nil {
		t.Fatalf("Failed to save project: %v", err)
	}
	rw, rh := dec("38"), dec("98")
	if err := h.Store.SaveOpening(ctx, quote.Opening{
		ID: "op-1", ProjectID: "proj-1", Mark: "A1", Position: 1,
		RoughWidth: &rw, RoughHeight: &rh, IsFinished: true,
	}); err != nil {
		t.Fatalf("Failed to save opening: %v", err)
	}
	panels := []quote.Panel{
		{ID: "panel-1", OpeningID: "op-1", Position: 1,
			Width: dec("36"), Height: dec("96"),
			PanelType: quote.PanelSwing, Direction: quote.SwingLeftIn},
		{ID: "panel-2", OpeningID: "op-1", Position: 2,
			Width: dec("35"), Height: dec("96"),
			PanelType: quote.PanelSliding, Direction: quote.SlideLeft},
	}
	for _, p := range panels {
		if err := h.Store.SavePanel(ctx, p); err != nil {
			t.Fatalf("Failed to save panel: %v", err)
		}
	}
}

func TestAttachComponent_FirstProductWinsTolerance(t *testing.T) {
	// GIVEN: A finished opening with two panels and no tolerance owner
	// WHEN: Placing the swing door, then the slider
	// THEN: The swing door claims the tolerance and the slider cannot
	//       override it

	handler, router := setupTestRouter(t)
	seedPlacementFixture(t, handler)

	rec := perform(t, router, http.MethodPost, "/api/panels/panel-1/component",
		`{"id": "comp-door", "product_id": "prod-entry"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AttachComponentResponse
	decodeBody(t, rec, &resp)
	if resp.Opening.ToleranceProductID != "prod-entry" {
		t.Errorf("Expected tolerance owner prod-entry, got %q", resp.Opening.ToleranceProductID)
	}
	// The swing door defines 3/4" per axis: 38 - 0.75 = 37.25.
	if resp.Opening.FinishedWidth == nil || *resp.Opening.FinishedWidth != 37.25 {
		t.Errorf("Expected finished width 37.25, got %v", resp.Opening.FinishedWidth)
	}

	rec = perform(t, router, http.MethodPost, "/api/panels/panel-2/component",
		`{"id": "comp-slider", "product_id": "prod-slider"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &resp)
	if resp.Opening.ToleranceProductID != "prod-entry" {
		t.Errorf("First product wins: expected owner prod-entry, got %q", resp.Opening.ToleranceProductID)
	}
}

func TestDetachComponent_TransfersOwnership(t *testing.T) {
	// GIVEN: An opening where the swing door owns the tolerance and a
	//        slider is also placed
	// WHEN: Removing the swing door's component
	// THEN: Ownership transfers to the slider with ITS tolerance values

	handler, router := setupTestRouter(t)
	seedPlacementFixture(t, handler)

	for _, call := range []struct{ panel, body string }{
		{"panel-1", `{"id": "comp-door", "product_id": "prod-entry"}`},
		{"panel-2", `{"id": "comp-slider", "product_id": "prod-slider"}`},
	} {
		rec := perform(t, router, http.MethodPost, "/api/panels/"+call.panel+"/component", call.body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Failed to place component: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := perform(t, router, http.MethodDelete, "/api/components/comp-door", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	opening, err := handler.Store.GetOpening(context.Background(), "op-1")
	if err != nil || opening == nil {
		t.Fatalf("Failed to get opening: %v", err)
	}
	if opening.ToleranceProductID != "prod-slider" {
		t.Errorf("Expected ownership transfer to prod-slider, got %q", opening.ToleranceProductID)
	}
	// The slider has no tolerances of its own, so the 1/2" default applies.
	if opening.FinishedWidth == nil || opening.FinishedWidth.String() != "37.5" {
		t.Errorf("Expected finished width 37.5 under default tolerance, got %v", opening.FinishedWidth)
	}

	// Removing the slider too clears ownership and resets tolerances.
	rec = perform(t, router, http.MethodDelete, "/api/components/comp-slider", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	opening, err = handler.Store.GetOpening(context.Background(), "op-1")
	if err != nil || opening == nil {
		t.Fatalf("Failed to get opening: %v", err)
	}
	if opening.ToleranceProductID != "" {
		t.Errorf("Expected no owner after last detach, got %q", opening.ToleranceProductID)
	}
	if opening.FinishedWidth == nil || opening.FinishedWidth.String() != "38" {
		t.Errorf("Expected finished width back at rough 38, got %v", opening.FinishedWidth)
	}
}

func TestAttachComponent_UnknownProduct(t *testing.T) {
	handler, router := setupTestRouter(t)
	seedPlacementFixture(t, handler)

	rec := perform(t, router, http.MethodPost, "/api/panels/panel-1/component",
		`{"product_id": "prod-ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown product, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// CATALOG PART LIFECYCLE
// =============================================================================

func TestPartLifecycle(t *testing.T) {
	// GIVEN: An empty catalog
	// WHEN: Creating, reading, extending, and deleting a part
	// THEN: Each step round-trips through the factory JSON contract

	_, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/catalog/parts",
		catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = perform(t, router, http.MethodGet, "/api/catalog/parts/CHAN-100", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	// A wider stock bracket appended through the rule endpoint.
	rec = perform(t, router, http.MethodPost, "/api/catalog/parts/CHAN-100/stock-rules",
		`{"min_width": 48, "max_width": 96, "base_price": 24, "active": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var withRules map[string]any
	decodeBody(t, rec, &withRules)
	if rules, ok := withRules["stock_length_rules"].([]any); !ok || len(rules) != 2 {
		t.Errorf("Expected 2 stock rules after append, got %v", withRules["stock_length_rules"])
	}

	rec = perform(t, router, http.MethodDelete, "/api/catalog/parts/CHAN-100", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = perform(t, router, http.MethodGet, "/api/catalog/parts/CHAN-100", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestImportCatalog_CSVRawBody(t *testing.T) {
	// GIVEN: A CSV price sheet sent as the raw request body
	// WHEN: POSTing to the import endpoint
	// THEN: Parts are created and the report comes back with counts

	handler, router := setupTestRouter(t)

	csvBody := "part number,name,type,cost\n" +
		"HNG-1,Butt Hinge,hardware,12.50\n" +
		"TRM-2,Side Trim,extrusion,4.25\n"
	rec := perform(t, router, http.MethodPost, "/api/catalog/import?filename=parts.csv", csvBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
		Skipped int `json:"skipped"`
	}
	decodeBody(t, rec, &report)
	if report.Created != 2 {
		t.Errorf("Expected 2 created, got %d (updated %d, skipped %d)",
			report.Created, report.Updated, report.Skipped)
	}

	part, err := handler.Store.GetPart(context.Background(), "HNG-1")
	if err != nil || part == nil {
		t.Fatalf("Imported part HNG-1 not found: %v", err)
	}
	if part.DirectCost.String() != "12.5" {
		t.Errorf("Expected direct cost 12.5, got %s", part.DirectCost)
	}
}

func TestImportCatalog_EmptyBody(t *testing.T) {
	_, router := setupTestRouter(t)

	rec := perform(t, router, http.MethodPost, "/api/catalog/import?filename=parts.csv", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty upload, got %d", rec.Code)
	}
}
