/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the entity graph and engine results from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY AND DIMENSIONS:
  Requests parse money and dimensions as decimals, so "36.5" and 36.5
  both land exactly. Responses are display values: money rounds to two
  places, dimensions convert as-is. The stored price runs keep the exact
  decimals; DTOs are presentation.

  Catalog payloads (parts, products, options, profiles) do not get DTOs
  here: the factory JSON types are the API contract for those routes.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/profile.go: Catalog JSON types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/pricing"
	"github.com/warp/quote-engine/quote"
)

// =============================================================================
// PROJECT GRAPH TYPES
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Customer     string  `json:"customer,omitempty"`
	ProfileID    string  `json:"profile_id,omitempty"`
	TaxRate      float64 `json:"tax_rate,omitempty"`
	Installation float64 `json:"installation,omitempty"`
	NeedsReprice bool    `json:"needs_reprice"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// CreateProjectRequest is the request to create a project.
type CreateProjectRequest struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Customer     string          `json:"customer,omitempty"`
	ProfileID    string          `json:"profile_id,omitempty"`
	TaxRate      decimal.Decimal `json:"tax_rate,omitempty"`
	Installation decimal.Decimal `json:"installation,omitempty"`
}

// ProjectDetailDTO is a project with its openings.
type ProjectDetailDTO struct {
	ProjectDTO
	Openings []OpeningDTO `json:"openings"`
}

// OpeningDTO represents an opening in API responses.
type OpeningDTO struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"project_id"`
	Mark               string   `json:"mark"`
	Position           int      `json:"position"`
	RoughWidth         *float64 `json:"rough_width,omitempty"`
	RoughHeight        *float64 `json:"rough_height,omitempty"`
	IsFinished         bool     `json:"is_finished"`
	ToleranceProductID string   `json:"tolerance_product_id,omitempty"`
	WidthTolerance     float64  `json:"width_tolerance,omitempty"`
	HeightTolerance    float64  `json:"height_tolerance,omitempty"`
	FinishedWidth      *float64 `json:"finished_width,omitempty"`
	FinishedHeight     *float64 `json:"finished_height,omitempty"`
}

// CreateOpeningRequest is the request to add an opening to a project.
type CreateOpeningRequest struct {
	ID          string           `json:"id,omitempty"`
	Mark        string           `json:"mark"`
	Position    int              `json:"position"`
	RoughWidth  *decimal.Decimal `json:"rough_width,omitempty"`
	RoughHeight *decimal.Decimal `json:"rough_height,omitempty"`
	IsFinished  bool             `json:"is_finished"`
}

// OpeningDetailDTO is an opening with its panels and placed components.
type OpeningDetailDTO struct {
	OpeningDTO
	Panels []PanelDetailDTO `json:"panels"`
}

// PanelDTO represents a panel in API responses.
type PanelDTO struct {
	ID        string  `json:"id"`
	OpeningID string  `json:"opening_id"`
	Position  int     `json:"position"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	PanelType string  `json:"panel_type"`
	Direction string  `json:"direction,omitempty"`
}

// PanelDetailDTO is a panel with its placed components.
type PanelDetailDTO struct {
	PanelDTO
	Components []ComponentDTO `json:"components"`
}

// CreatePanelRequest is the request to add a panel to an opening.
type CreatePanelRequest struct {
	ID        string          `json:"id,omitempty"`
	Position  int             `json:"position"`
	Width     decimal.Decimal `json:"width"`
	Height    decimal.Decimal `json:"height"`
	PanelType string          `json:"panel_type"`
	Direction string          `json:"direction,omitempty"`
}

// ComponentDTO represents a placed product in API responses.
type ComponentDTO struct {
	ID         string            `json:"id"`
	PanelID    string            `json:"panel_id"`
	ProductID  string            `json:"product_id"`
	Quantity   int               `json:"quantity"`
	Selections map[string]string `json:"selections,omitempty"`
	GlassCost  float64           `json:"glass_cost,omitempty"`
}

// AttachComponentRequest is the request to place a product on a panel.
type AttachComponentRequest struct {
	ID         string            `json:"id,omitempty"`
	ProductID  string            `json:"product_id"`
	Quantity   int               `json:"quantity,omitempty"` // default 1
	Selections map[string]string `json:"selections,omitempty"`
	GlassCost  decimal.Decimal   `json:"glass_cost,omitempty"`
}

// AttachComponentResponse returns the placed component plus the opening,
// whose tolerance state may have changed with the attachment.
type AttachComponentResponse struct {
	Component ComponentDTO `json:"component"`
	Opening   OpeningDTO   `json:"opening"`
}

// =============================================================================
// PRICING TYPES
// =============================================================================

// PriceRunDTO represents one stored price run.
type PriceRunDTO struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"project_id"`
	RunAt            string  `json:"run_at"`
	SubtotalBase     float64 `json:"subtotal_base"`
	SubtotalMarkedUp float64 `json:"subtotal_marked_up"`
	Installation     float64 `json:"installation"`
	TaxAmount        float64 `json:"tax_amount"`
	GrandTotal       float64 `json:"grand_total"`
}

// CategoryPricingDTO is one cost category's markup outcome.
type CategoryPricingDTO struct {
	Category    string  `json:"category"`
	Base        float64 `json:"base"`
	MarkupPct   float64 `json:"markup_pct"`
	Marked      float64 `json:"marked"`
	PassThrough float64 `json:"pass_through,omitempty"`
}

// ComponentQuoteDTO is one priced component placement.
type ComponentQuoteDTO struct {
	ComponentID string  `json:"component_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Units       int     `json:"units"`
	Total       float64 `json:"total"`
}

// OpeningQuoteDTO is one priced opening.
type OpeningQuoteDTO struct {
	OpeningID  string              `json:"opening_id"`
	Mark       string              `json:"mark"`
	Total      float64             `json:"total"`
	Components []ComponentQuoteDTO `json:"components"`
}

// QuoteResponse is the full result of a price run.
type QuoteResponse struct {
	Run        PriceRunDTO          `json:"run"`
	Profile    string               `json:"profile,omitempty"`
	Categories []CategoryPricingDTO `json:"categories"`
	Openings   []OpeningQuoteDTO    `json:"openings"`
}

// RunLineDTO is one audit line of a price run.
type RunLineDTO struct {
	OpeningID   string  `json:"opening_id"`
	ComponentID string  `json:"component_id"`
	PartNumber  string  `json:"part_number,omitempty"`
	Method      string  `json:"method"`
	UnitCost    float64 `json:"unit_cost"`
	TotalCost   float64 `json:"total_cost"`
	Details     string  `json:"details,omitempty"`
	Category    string  `json:"category"`
}

// BreakdownResponse is the latest per-line audit for one opening.
type BreakdownResponse struct {
	OpeningID string       `json:"opening_id"`
	RunID     string       `json:"run_id"`
	RunAt     string       `json:"run_at"`
	Lines     []RunLineDTO `json:"lines"`
}

// =============================================================================
// SCENARIO AND ERROR TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Loaded      bool   `json:"loaded,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// roundMoney converts a money decimal to a two-place display float.
func roundMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toProjectDTO(p quote.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:           p.ID,
		Name:         p.Name,
		Customer:     p.Customer,
		ProfileID:    p.ProfileID,
		TaxRate:      p.TaxRate.InexactFloat64(),
		Installation: roundMoney(p.Installation),
		NeedsReprice: p.NeedsReprice,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toOpeningDTO(o quote.Opening) OpeningDTO {
	return OpeningDTO{
		ID:                 o.ID,
		ProjectID:          o.ProjectID,
		Mark:               o.Mark,
		Position:           o.Position,
		RoughWidth:         floatPtr(o.RoughWidth),
		RoughHeight:        floatPtr(o.RoughHeight),
		IsFinished:         o.IsFinished,
		ToleranceProductID: o.ToleranceProductID,
		WidthTolerance:     o.WidthToleranceTotal.InexactFloat64(),
		HeightTolerance:    o.HeightToleranceTotal.InexactFloat64(),
		FinishedWidth:      floatPtr(o.FinishedWidth),
		FinishedHeight:     floatPtr(o.FinishedHeight),
	}
}

func toPanelDTO(p quote.Panel) PanelDTO {
	return PanelDTO{
		ID:        p.ID,
		OpeningID: p.OpeningID,
		Position:  p.Position,
		Width:     p.Width.InexactFloat64(),
		Height:    p.Height.InexactFloat64(),
		PanelType: string(p.PanelType),
		Direction: string(p.Direction),
	}
}

func toComponentDTO(c quote.ComponentInstance) ComponentDTO {
	return ComponentDTO{
		ID:         c.ID,
		PanelID:    c.PanelID,
		ProductID:  c.ProductID,
		Quantity:   c.Quantity,
		Selections: c.OptionSelections,
		GlassCost:  roundMoney(c.GlassCost),
	}
}

func toRunDTO(run quote.PriceRun) PriceRunDTO {
	return PriceRunDTO{
		ID:               run.ID,
		ProjectID:        run.ProjectID,
		RunAt:            run.RunAt.Format(time.RFC3339),
		SubtotalBase:     roundMoney(run.SubtotalBase),
		SubtotalMarkedUp: roundMoney(run.SubtotalMarkedUp),
		Installation:     roundMoney(run.Installation),
		TaxAmount:        roundMoney(run.TaxAmount),
		GrandTotal:       roundMoney(run.GrandTotal),
	}
}

func toRunLineDTO(line quote.PriceRunLine) RunLineDTO {
	return RunLineDTO{
		OpeningID:   line.OpeningID,
		ComponentID: line.ComponentID,
		PartNumber:  line.PartNumber,
		Method:      line.Method,
		UnitCost:    roundMoney(line.UnitCost),
		TotalCost:   roundMoney(line.TotalCost),
		Details:     line.Details,
		Category:    string(line.Category),
	}
}

func toRunLineDTOs(lines []quote.PriceRunLine) []RunLineDTO {
	dtos := make([]RunLineDTO, len(lines))
	for i, line := range lines {
		dtos[i] = toRunLineDTO(line)
	}
	return dtos
}

func toCategoryDTOs(categories []pricing.CategoryPricing) []CategoryPricingDTO {
	dtos := make([]CategoryPricingDTO, len(categories))
	for i, c := range categories {
		dtos[i] = CategoryPricingDTO{
			Category:    string(c.Category),
			Base:        roundMoney(c.Base),
			MarkupPct:   c.Markup.InexactFloat64(),
			Marked:      roundMoney(c.Marked),
			PassThrough: roundMoney(c.PassThrough),
		}
	}
	return dtos
}

// toQuoteResponse pairs a stored run with the quote it came from.
func toQuoteResponse(run quote.PriceRun, q *quote.ProjectQuote) QuoteResponse {
	openings := make([]OpeningQuoteDTO, len(q.Openings))
	for i, oq := range q.Openings {
		components := make([]ComponentQuoteDTO, len(oq.Components))
		for j, cq := range oq.Components {
			components[j] = ComponentQuoteDTO{
				ComponentID: cq.ComponentID,
				ProductID:   cq.ProductID,
				ProductName: cq.ProductName,
				Units:       cq.Units,
				Total:       roundMoney(cq.Summary.Total),
			}
		}
		openings[i] = OpeningQuoteDTO{
			OpeningID:  oq.OpeningID,
			Mark:       oq.Mark,
			Total:      roundMoney(oq.Summary.Total),
			Components: components,
		}
	}

	return QuoteResponse{
		Run:        toRunDTO(run),
		Profile:    q.Profile.Name,
		Categories: toCategoryDTOs(q.Result.Categories),
		Openings:   openings,
	}
}
