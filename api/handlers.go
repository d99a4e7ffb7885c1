/*
handlers.go - HTTP API handlers for the quoting engine

PURPOSE:
  Exposes the catalog, project graph, and pricing engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Catalog:
    GET    /api/catalog/parts                     List master parts
    POST   /api/catalog/parts                     Create/replace a master part
    GET    /api/catalog/parts/{partNumber}        Get one master part
    PUT    /api/catalog/parts/{partNumber}        Update a master part
    DELETE /api/catalog/parts/{partNumber}        Delete a master part
    POST   /api/catalog/parts/{pn}/stock-rules    Append a stock length rule
    POST   /api/catalog/parts/{pn}/pricing-rules  Append a pricing rule
    POST   /api/catalog/import                    Import parts from CSV/XLSX
    GET    /api/catalog/products                  List products
    POST   /api/catalog/products                  Create/replace a product
    GET    /api/catalog/products/{id}             Get one product
    GET    /api/catalog/options                   List hardware options
    POST   /api/catalog/options                   Create/replace an option
    GET    /api/profiles                          List markup profiles
    POST   /api/profiles                          Create/replace a profile
    GET    /api/profiles/{id}                     Get one profile

  Projects:
    GET    /api/projects                          List projects
    POST   /api/projects                          Create a project
    GET    /api/projects/{id}                     Project with openings
    DELETE /api/projects/{id}                     Delete a project
    POST   /api/projects/{id}/openings            Add an opening
    GET    /api/openings/{id}                     Opening with panels/components
    POST   /api/openings/{id}/panels              Add a panel
    POST   /api/panels/{id}/component             Place a product on a panel
    DELETE /api/components/{id}                   Remove a placed product

  Pricing:
    POST   /api/projects/{id}/price               Run pricing, store the run
    GET    /api/projects/{id}/price               Latest stored run with lines
    GET    /api/projects/{id}/price/history       All stored runs
    GET    /api/openings/{id}/breakdown           Latest per-line audit

  Exports:
    GET    /api/projects/{id}/drawings.pdf        Shop drawing package
    GET    /api/projects/{id}/labels.pdf          QR install labels
    GET    /api/projects/{id}/quote.xlsx          Quote workbook

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (also serves as the catalog view for pricing)
  - Factory: Catalog JSON conversion; its JSON types are the API bodies
  - Resolver: Tolerance defaults for finished openings

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (calculator, tolerance resolver, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Engine sentinels map through statusFor, so a calculator failure
  surfaces with the same status the write path would have used.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/export"
	"github.com/warp/quote-engine/factory"
	"github.com/warp/quote-engine/importer"
	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
	"github.com/warp/quote-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.CatalogFactory

	// Tolerance defaults applied when components land on finished openings
	Resolver pricing.ToleranceResolver

	Log *zap.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Factory:  factory.NewCatalogFactory(),
		Resolver: pricing.NewToleranceResolver(),
		Log:      log,
	}
}

// statusFor maps engine sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case pricing.IsNotFound(err):
		return http.StatusNotFound
	case pricing.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// markStale records that stored prices no longer reflect the project's
// structure. The next price run clears the flag.
func (h *Handler) markStale(ctx context.Context, projectID string) {
	p, err := h.Store.GetProject(ctx, projectID)
	if err != nil || p == nil || p.NeedsReprice {
		return
	}
	p.NeedsReprice = true
	if err := h.Store.SaveProject(ctx, *p); err != nil {
		h.Log.Warn("failed to flag project for reprice",
			zap.String("project", projectID), zap.Error(err))
	}
}

// =============================================================================
// MASTER PART HANDLERS
// =============================================================================

// ListParts returns all master parts.
func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.Store.ListParts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list parts", err)
		return
	}

	dtos := make([]factory.MasterPartJSON, len(parts))
	for i, p := range parts {
		dtos[i] = h.Factory.ToMasterPartJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPart returns a single master part.
func (h *Handler) GetPart(w http.ResponseWriter, r *http.Request) {
	partNumber := chi.URLParam(r, "partNumber")

	part, err := h.Store.GetPart(r.Context(), partNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get part", err)
		return
	}
	if part == nil {
		writeError(w, http.StatusNotFound, "Part not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.Factory.ToMasterPartJSON(*part))
}

// CreatePart creates or replaces a master part from catalog JSON.
func (h *Handler) CreatePart(w http.ResponseWriter, r *http.Request) {
	h.savePart(w, r, "")
}

// UpdatePart replaces the part named in the path, ignoring any part
// number in the body.
func (h *Handler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	h.savePart(w, r, chi.URLParam(r, "partNumber"))
}

func (h *Handler) savePart(w http.ResponseWriter, r *http.Request, partNumber string) {
	var pj factory.MasterPartJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if partNumber != "" {
		pj.PartNumber = partNumber
	}

	part, err := h.Factory.FromMasterPartJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid part definition", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SavePart(ctx, part); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save part", err)
		return
	}

	// Any project already quoting this part now holds stale prices.
	flagged, err := h.Store.FlagReferencingPart(ctx, part.PartNumber)
	if err != nil {
		h.Log.Warn("failed to flag projects after part change",
			zap.String("part", part.PartNumber), zap.Error(err))
	} else if flagged > 0 {
		h.Log.Info("flagged projects for reprice",
			zap.String("part", part.PartNumber), zap.Int64("projects", flagged))
	}

	status := http.StatusCreated
	if partNumber != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, h.Factory.ToMasterPartJSON(part))
}

// DeletePart removes a master part. Components keep quoting products
// whose BOM names the part; those lines fall back to no_cost_found on
// the next run, so referencing projects get flagged first.
func (h *Handler) DeletePart(w http.ResponseWriter, r *http.Request) {
	partNumber := chi.URLParam(r, "partNumber")
	ctx := r.Context()

	part, err := h.Store.GetPart(ctx, partNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get part", err)
		return
	}
	if part == nil {
		writeError(w, http.StatusNotFound, "Part not found", nil)
		return
	}

	flagged, err := h.Store.FlagReferencingPart(ctx, partNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to flag referencing projects", err)
		return
	}

	if err := h.Store.DeletePart(ctx, partNumber); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete part", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":          partNumber,
		"flagged_projects": flagged,
	})
}

// AddStockRule appends a stock length rule to a part.
func (h *Handler) AddStockRule(w http.ResponseWriter, r *http.Request) {
	var rule factory.StockRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.appendRule(w, r, func(pj *factory.MasterPartJSON) {
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("%s-rule-%d", pj.PartNumber, len(pj.StockLengthRules)+1)
		}
		pj.StockLengthRules = append(pj.StockLengthRules, rule)
	})
}

// AddPricingRule appends a pricing rule to a part.
func (h *Handler) AddPricingRule(w http.ResponseWriter, r *http.Request) {
	var rule factory.PricingRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.appendRule(w, r, func(pj *factory.MasterPartJSON) {
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("%s-price-%d", pj.PartNumber, len(pj.PricingRules)+1)
		}
		pj.PricingRules = append(pj.PricingRules, rule)
	})
}

// appendRule loads a part, lets mutate extend its rule set in JSON form,
// and saves the result. Round-tripping through the factory keeps rule
// validation in one place.
func (h *Handler) appendRule(w http.ResponseWriter, r *http.Request, mutate func(*factory.MasterPartJSON)) {
	partNumber := chi.URLParam(r, "partNumber")
	ctx := r.Context()

	part, err := h.Store.GetPart(ctx, partNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get part", err)
		return
	}
	if part == nil {
		writeError(w, http.StatusNotFound, "Part not found", nil)
		return
	}

	pj := h.Factory.ToMasterPartJSON(*part)
	mutate(&pj)

	updated, err := h.Factory.FromMasterPartJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule", err)
		return
	}

	if err := h.Store.SavePart(ctx, updated); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save part", err)
		return
	}
	if _, err := h.Store.FlagReferencingPart(ctx, partNumber); err != nil {
		h.Log.Warn("failed to flag projects after rule change",
			zap.String("part", partNumber), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, h.Factory.ToMasterPartJSON(updated))
}

// =============================================================================
// CATALOG IMPORT
// =============================================================================

// recordingPartStore wraps the store so the import handler knows which
// parts the importer touched and can flag referencing projects.
type recordingPartStore struct {
	importer.PartStore
	touched []string
}

func (r *recordingPartStore) SavePart(ctx context.Context, part pricing.MasterPart) error {
	if err := r.PartStore.SavePart(ctx, part); err != nil {
		return err
	}
	r.touched = append(r.touched, part.PartNumber)
	return nil
}

// ImportCatalog ingests a CSV or XLSX part list. The file arrives as a
// multipart "file" field, or as the raw body with ?filename= naming it.
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Upload is empty", nil)
		return
	}

	ctx := r.Context()
	recording := &recordingPartStore{PartStore: h.Store}
	report := importer.Import(ctx, recording, filename, data)

	var flagged int64
	for _, partNumber := range recording.touched {
		n, err := h.Store.FlagReferencingPart(ctx, partNumber)
		if err != nil {
			h.Log.Warn("failed to flag projects after import",
				zap.String("part", partNumber), zap.Error(err))
			continue
		}
		flagged += n
	}

	h.Log.Info("catalog import finished",
		zap.String("file", filename),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int64("flagged_projects", flagged))

	writeJSON(w, http.StatusOK, struct {
		importer.Report
		FlaggedProjects int64 `json:"flagged_projects"`
	}{report, flagged})
}

func readUpload(r *http.Request) (string, []byte, error) {
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return r.URL.Query().Get("filename"), data, nil
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]factory.ProductJSON, len(products))
	for i, p := range products {
		dtos[i] = h.Factory.ToProductJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.Factory.ToProductJSON(*product))
}

// CreateProduct creates or replaces a product from catalog JSON.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var pj factory.ProductJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.Factory.FromProductJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product definition", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveProduct(ctx, product); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	if _, err := h.Store.FlagReferencingProduct(ctx, product.ID); err != nil {
		h.Log.Warn("failed to flag projects after product change",
			zap.String("product", product.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, h.Factory.ToProductJSON(product))
}

// =============================================================================
// HARDWARE OPTION HANDLERS
// =============================================================================

// ListOptions returns all hardware options.
func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Store.ListOptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list options", err)
		return
	}

	dtos := make([]factory.OptionJSON, len(options))
	for i, o := range options {
		dtos[i] = h.Factory.ToOptionJSON(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOption creates or replaces a hardware option.
func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	var oj factory.OptionJSON
	if err := json.NewDecoder(r.Body).Decode(&oj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	option, err := h.Factory.FromOptionJSON(oj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid option definition", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveOption(ctx, option); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save option", err)
		return
	}
	if _, err := h.Store.FlagReferencingOption(ctx, option.ID); err != nil {
		h.Log.Warn("failed to flag projects after option change",
			zap.String("option", option.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, h.Factory.ToOptionJSON(option))
}

// =============================================================================
// MARKUP PROFILE HANDLERS
// =============================================================================

// ListProfiles returns all markup profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles", err)
		return
	}

	dtos := make([]factory.ProfileJSON, len(profiles))
	for i, p := range profiles {
		dtos[i] = h.Factory.ToProfileJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProfile returns a single markup profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profile not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.Factory.ToProfileJSON(*profile))
}

// CreateProfile creates or replaces a markup profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var pj factory.ProfileJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile, err := h.Factory.FromProfileJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile definition", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveProfile(ctx, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile", err)
		return
	}
	if _, err := h.Store.FlagReferencingProfile(ctx, profile.ID); err != nil {
		h.Log.Warn("failed to flag projects after profile change",
			zap.String("profile", profile.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, h.Factory.ToProfileJSON(profile))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates a new project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := quote.Project{
		ID:           req.ID,
		Name:         req.Name,
		Customer:     req.Customer,
		ProfileID:    req.ProfileID,
		TaxRate:      req.TaxRate,
		Installation: req.Installation,
		CreatedAt:    time.Now().UTC(),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if err := quote.ValidateProject(p); err != nil {
		writeError(w, statusFor(err), "Invalid project", err)
		return
	}
	if p.ProfileID != "" {
		if _, ok := h.Store.Profile(p.ProfileID); !ok {
			writeError(w, http.StatusBadRequest, "Unknown pricing profile", pricing.ErrProfileNotFound)
			return
		}
	}

	if err := h.Store.SaveProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create project", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectDTO(p))
}

// GetProject returns a project with its openings.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	project, err := h.Store.GetProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	openings, err := h.Store.ListOpenings(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list openings", err)
		return
	}

	detail := ProjectDetailDTO{
		ProjectDTO: toProjectDTO(*project),
		Openings:   make([]OpeningDTO, len(openings)),
	}
	for i, o := range openings {
		detail.Openings[i] = toOpeningDTO(o)
	}

	writeJSON(w, http.StatusOK, detail)
}

// DeleteProject removes a project and everything under it.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	project, err := h.Store.GetProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	if err := h.Store.DeleteProject(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// =============================================================================
// OPENING HANDLERS
// =============================================================================

// CreateOpening adds an opening to a project.
func (h *Handler) CreateOpening(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	var req CreateOpeningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	project, err := h.Store.GetProject(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	opening := quote.Opening{
		ID:          req.ID,
		ProjectID:   projectID,
		Mark:        req.Mark,
		Position:    req.Position,
		RoughWidth:  req.RoughWidth,
		RoughHeight: req.RoughHeight,
		IsFinished:  req.IsFinished,
	}
	if opening.ID == "" {
		opening.ID = uuid.NewString()
	}

	if err := quote.ValidateOpening(opening); err != nil {
		writeError(w, statusFor(err), "Invalid opening", err)
		return
	}

	if err := h.Store.SaveOpening(ctx, opening); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create opening", err)
		return
	}
	h.markStale(ctx, projectID)

	writeJSON(w, http.StatusCreated, toOpeningDTO(opening))
}

// GetOpening returns an opening with its panels and placed components.
func (h *Handler) GetOpening(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	opening, err := h.Store.GetOpening(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get opening", err)
		return
	}
	if opening == nil {
		writeError(w, http.StatusNotFound, "Opening not found", nil)
		return
	}

	panels, err := h.Store.ListPanels(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list panels", err)
		return
	}

	detail := OpeningDetailDTO{
		OpeningDTO: toOpeningDTO(*opening),
		Panels:     make([]PanelDetailDTO, len(panels)),
	}
	for i, p := range panels {
		components, err := h.Store.ListComponents(ctx, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list components", err)
			return
		}
		pd := PanelDetailDTO{
			PanelDTO:   toPanelDTO(p),
			Components: make([]ComponentDTO, len(components)),
		}
		for j, c := range components {
			pd.Components[j] = toComponentDTO(c)
		}
		detail.Panels[i] = pd
	}

	writeJSON(w, http.StatusOK, detail)
}

// CreatePanel adds a panel to an opening.
func (h *Handler) CreatePanel(w http.ResponseWriter, r *http.Request) {
	openingID := chi.URLParam(r, "id")
	ctx := r.Context()

	var req CreatePanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opening, err := h.Store.GetOpening(ctx, openingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get opening", err)
		return
	}
	if opening == nil {
		writeError(w, http.StatusNotFound, "Opening not found", nil)
		return
	}

	panel := quote.Panel{
		ID:        req.ID,
		OpeningID: openingID,
		Position:  req.Position,
		Width:     req.Width,
		Height:    req.Height,
		PanelType: quote.PanelType(req.PanelType),
		Direction: quote.Direction(req.Direction),
	}
	if panel.ID == "" {
		panel.ID = uuid.NewString()
	}

	if err := quote.ValidatePanel(panel); err != nil {
		writeError(w, statusFor(err), "Invalid panel", err)
		return
	}

	if err := h.Store.SavePanel(ctx, panel); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create panel", err)
		return
	}
	h.markStale(ctx, opening.ProjectID)

	writeJSON(w, http.StatusCreated, toPanelDTO(panel))
}

// =============================================================================
// COMPONENT HANDLERS
// =============================================================================

// AttachComponent places a product on a panel. Placing a tolerance
// product on a finished opening claims the deduction if nothing owns
// it yet, so the component and the refreshed opening come back together.
func (h *Handler) AttachComponent(w http.ResponseWriter, r *http.Request) {
	panelID := chi.URLParam(r, "id")
	ctx := r.Context()

	var req AttachComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	panel, err := h.Store.GetPanel(ctx, panelID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get panel", err)
		return
	}
	if panel == nil {
		writeError(w, http.StatusNotFound, "Panel not found", nil)
		return
	}

	comp := quote.ComponentInstance{
		ID:               req.ID,
		PanelID:          panelID,
		ProductID:        req.ProductID,
		Quantity:         req.Quantity,
		OptionSelections: req.Selections,
		GlassCost:        req.GlassCost,
	}
	if comp.ID == "" {
		comp.ID = uuid.NewString()
	}
	if comp.Quantity == 0 {
		comp.Quantity = 1
	}

	if err := quote.ValidateComponent(comp); err != nil {
		writeError(w, statusFor(err), "Invalid component", err)
		return
	}

	product, ok := h.Store.Product(comp.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found", pricing.ErrProductNotFound)
		return
	}
	for _, optionID := range comp.OptionSelections {
		if _, ok := h.Store.Option(optionID); !ok {
			writeError(w, http.StatusNotFound, "Hardware option not found", pricing.ErrOptionNotFound)
			return
		}
	}

	// Resolve tolerance ownership in memory, then persist both writes
	// in one transaction. Reads stay outside WithTx.
	opening, err := h.Store.GetOpening(ctx, panel.OpeningID)
	if err != nil || opening == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get opening", err)
		return
	}
	claimed := opening.AttachTolerance(h.Resolver, product)

	err = h.Store.WithTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.SaveComponent(ctx, comp); err != nil {
			return err
		}
		if claimed {
			return tx.SaveOpening(ctx, *opening)
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to place component", err)
		return
	}
	h.markStale(ctx, opening.ProjectID)

	writeJSON(w, http.StatusCreated, AttachComponentResponse{
		Component: toComponentDTO(comp),
		Opening:   toOpeningDTO(*opening),
	})
}

// DetachComponent removes a placed product. If the product owned the
// opening's tolerance deduction, ownership moves to the first remaining
// eligible product, or clears.
func (h *Handler) DetachComponent(w http.ResponseWriter, r *http.Request) {
	componentID := chi.URLParam(r, "id")
	ctx := r.Context()

	comp, err := h.Store.GetComponent(ctx, componentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get component", err)
		return
	}
	if comp == nil {
		writeError(w, http.StatusNotFound, "Component not found", nil)
		return
	}

	panel, err := h.Store.GetPanel(ctx, comp.PanelID)
	if err != nil || panel == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get panel", err)
		return
	}
	opening, err := h.Store.GetOpening(ctx, panel.OpeningID)
	if err != nil || opening == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get opening", err)
		return
	}

	remaining, err := h.remainingProducts(ctx, opening.ID, componentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list remaining products", err)
		return
	}
	moved := opening.DetachTolerance(h.Resolver, comp.ProductID, remaining)

	err = h.Store.WithTx(ctx, func(tx *sqlite.Tx) error {
		if err := tx.DeleteComponent(ctx, componentID); err != nil {
			return err
		}
		if moved {
			return tx.SaveOpening(ctx, *opening)
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to remove component", err)
		return
	}
	h.markStale(ctx, opening.ProjectID)

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": componentID,
		"opening": toOpeningDTO(*opening),
	})
}

// remainingProducts collects the products still placed in an opening
// after excluding one component, in panel position order so tolerance
// ownership lands deterministically.
func (h *Handler) remainingProducts(ctx context.Context, openingID, excludeComponentID string) ([]catalog.Product, error) {
	panels, err := h.Store.ListPanels(ctx, openingID)
	if err != nil {
		return nil, err
	}

	var products []catalog.Product
	for _, p := range panels {
		components, err := h.Store.ListComponents(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range components {
			if c.ID == excludeComponentID {
				continue
			}
			if product, ok := h.Store.Product(c.ProductID); ok {
				products = append(products, product)
			}
		}
	}
	return products, nil
}

// =============================================================================
// PRICING HANDLERS
// =============================================================================

// PriceProject runs the pricing engine over the whole project and
// stores the result as a new price run.
func (h *Handler) PriceProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	graph, err := h.Store.LoadProjectGraph(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if graph == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	started := time.Now()
	calc := quote.NewCalculator(h.Store)
	q, err := calc.PriceProject(*graph)
	if err != nil {
		writeError(w, statusFor(err), "Pricing failed", err)
		return
	}

	run, lines := quote.NewPriceRun(q, uuid.NewString(), time.Now().UTC())
	if err := h.Store.SavePriceRun(ctx, run, lines); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store price run", err)
		return
	}
	recordRun(triggerAPI, lines, time.Since(started))

	h.Log.Info("priced project",
		zap.String("project", projectID),
		zap.String("run", run.ID),
		zap.String("grand_total", run.GrandTotal.StringFixed(2)))

	writeJSON(w, http.StatusCreated, toQuoteResponse(run, q))
}

// GetLatestPrice returns the most recent stored run with its lines.
func (h *Handler) GetLatestPrice(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	run, err := h.Store.LatestPriceRun(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get price run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Project has no price runs", nil)
		return
	}

	lines, err := h.Store.ListRunLines(ctx, run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list run lines", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Run   PriceRunDTO  `json:"run"`
		Lines []RunLineDTO `json:"lines"`
	}{toRunDTO(*run), toRunLineDTOs(lines)})
}

// PriceHistory returns every stored run for a project, newest first.
func (h *Handler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	project, err := h.Store.GetProject(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	runs, err := h.Store.ListPriceRuns(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list price runs", err)
		return
	}

	dtos := make([]PriceRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// OpeningBreakdown returns the latest run's audit lines for one opening.
func (h *Handler) OpeningBreakdown(w http.ResponseWriter, r *http.Request) {
	openingID := chi.URLParam(r, "id")
	ctx := r.Context()

	opening, err := h.Store.GetOpening(ctx, openingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get opening", err)
		return
	}
	if opening == nil {
		writeError(w, http.StatusNotFound, "Opening not found", nil)
		return
	}

	run, err := h.Store.LatestPriceRun(ctx, opening.ProjectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get price run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Project has no price runs", nil)
		return
	}

	lines, err := h.Store.ListRunLinesForOpening(ctx, run.ID, openingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list run lines", err)
		return
	}

	writeJSON(w, http.StatusOK, BreakdownResponse{
		OpeningID: openingID,
		RunID:     run.ID,
		RunAt:     run.RunAt.Format(time.RFC3339),
		Lines:     toRunLineDTOs(lines),
	})
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportDrawings streams the shop drawing PDF for a project.
func (h *Handler) ExportDrawings(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	graph, err := h.Store.LoadProjectGraph(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if graph == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	if len(graph.Openings) == 0 {
		writeError(w, http.StatusBadRequest, "Project has no openings to draw", nil)
		return
	}

	// Drawings carry prices when a run exists, but render without one.
	run, err := h.Store.LatestPriceRun(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get price run", err)
		return
	}

	var buf bytes.Buffer
	err = export.DrawingPDF(&buf, export.DrawingData{
		Project:  graph.Project,
		Openings: graph.Openings,
		Catalog:  h.Store,
		Run:      run,
		Now:      time.Now(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render drawings", err)
		return
	}

	sendAttachment(w, &buf, "application/pdf", fmt.Sprintf("drawings-%s.pdf", projectID))
}

// ExportLabels streams the QR install label sheet for a project.
func (h *Handler) ExportLabels(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	graph, err := h.Store.LoadProjectGraph(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if graph == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	if len(graph.Openings) == 0 {
		writeError(w, http.StatusBadRequest, "Project has no openings to label", nil)
		return
	}

	var buf bytes.Buffer
	if err := export.LabelsPDF(&buf, graph.Project, graph.Openings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render labels", err)
		return
	}

	sendAttachment(w, &buf, "application/pdf", fmt.Sprintf("labels-%s.pdf", projectID))
}

// ExportWorkbook streams the quote workbook. The quote is recalculated
// in memory so the workbook always reflects the current catalog.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	ctx := r.Context()

	graph, err := h.Store.LoadProjectGraph(ctx, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load project", err)
		return
	}
	if graph == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}

	calc := quote.NewCalculator(h.Store)
	q, err := calc.PriceProject(*graph)
	if err != nil {
		writeError(w, statusFor(err), "Pricing failed", err)
		return
	}

	var buf bytes.Buffer
	err = export.QuoteXLSX(&buf, export.WorkbookData{
		Project:  graph.Project,
		Openings: graph.Openings,
		Quote:    q,
		Now:      time.Now(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render workbook", err)
		return
	}

	sendAttachment(w, &buf,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("quote-%s.xlsx", projectID))
}

func sendAttachment(w http.ResponseWriter, buf *bytes.Buffer, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
