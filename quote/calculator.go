/*
calculator.go - The pricing walk over a loaded project graph

PURPOSE:
  Prices a whole project in one pass: each placed component's BOM goes
  through the line pricer at its panel's dimensions, option selections
  and glass join in, category bases roll up opening by opening, and the
  effective markup profile turns the base into sell pricing.

FAILURE SEMANTICS:
  The walk distinguishes two failure classes. Engine-level misses
  (unpriceable lines) never fail the walk; they arrive as zero-cost
  breakdowns from the line pricer. Graph-level problems (unknown
  product/option/profile IDs, invalid panel geometry) fail the walk with
  a wrapped sentinel so the API can map them to 400/404.

DETERMINISM:
  Openings and panels price in Position order, components in slice
  order, option selections in sorted category order. Two walks over the
  same graph produce identical runs.
*/
package quote

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
)

// Run-line methods for non-BOM entries. BOM entries carry the engine's
// cost method.
const (
	runLineOption = "hardware_option"
	runLineGlass  = "glass"
)

// =============================================================================
// QUOTE RESULTS
// =============================================================================

// ComponentQuote is one placed product, priced.
type ComponentQuote struct {
	ComponentID string
	ProductID   string
	ProductName string
	Units       int
	Summary     pricing.ComponentSummary
}

// OpeningQuote is one opening, priced.
type OpeningQuote struct {
	OpeningID  string
	Mark       string
	Summary    pricing.OpeningSummary
	Components []ComponentQuote
}

// ProjectQuote is the full calculation result: the base cost picture,
// the applied profile, and the sell pricing.
type ProjectQuote struct {
	ProjectID string
	Profile   pricing.MarkupProfile
	Base      pricing.ProjectBase
	Result    pricing.PriceResult
	Openings  []OpeningQuote
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator prices project graphs against a catalog snapshot.
type Calculator struct {
	catalog catalog.Source
	pricer  *pricing.LinePricer
}

func NewCalculator(src catalog.Source) *Calculator {
	return &Calculator{
		catalog: src,
		pricer:  &pricing.LinePricer{Parts: src},
	}
}

// PriceProject walks the graph and returns the priced quote.
func (c *Calculator) PriceProject(graph ProjectGraph) (*ProjectQuote, error) {
	profile, err := c.effectiveProfile(graph.Project)
	if err != nil {
		return nil, err
	}

	openings := append([]OpeningGraph{}, graph.Openings...)
	sort.SliceStable(openings, func(i, j int) bool {
		if openings[i].Opening.Position != openings[j].Opening.Position {
			return openings[i].Opening.Position < openings[j].Opening.Position
		}
		return openings[i].Opening.ID < openings[j].Opening.ID
	})

	openingQuotes := make([]OpeningQuote, 0, len(openings))
	openingSummaries := make([]pricing.OpeningSummary, 0, len(openings))
	for _, og := range openings {
		oq, err := c.priceOpening(og)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", og.Opening.Mark, err)
		}
		openingQuotes = append(openingQuotes, oq)
		openingSummaries = append(openingSummaries, oq.Summary)
	}

	base := pricing.AggregateProject(openingSummaries)

	return &ProjectQuote{
		ProjectID: graph.Project.ID,
		Profile:   profile,
		Base:      base,
		Result:    profile.Apply(base.Categories),
		Openings:  openingQuotes,
	}, nil
}

// effectiveProfile resolves the project's profile and applies job-level
// overrides. A project without a profile prices at cost.
func (c *Calculator) effectiveProfile(project Project) (pricing.MarkupProfile, error) {
	profile := pricing.MarkupProfile{Mode: pricing.ModeStandard}
	if project.ProfileID != "" {
		found, ok := c.catalog.Profile(project.ProfileID)
		if !ok {
			return profile, fmt.Errorf("%w: %q", pricing.ErrProfileNotFound, project.ProfileID)
		}
		profile = found
	}

	// Tax and installation are job-site inputs; the profile's values are
	// dealer defaults.
	if !project.TaxRate.IsZero() {
		profile.TaxRate = project.TaxRate
	}
	if !project.Installation.IsZero() {
		profile.Installation = project.Installation
	}
	return profile, nil
}

func (c *Calculator) priceOpening(og OpeningGraph) (OpeningQuote, error) {
	panels := append([]PanelGraph{}, og.Panels...)
	sort.SliceStable(panels, func(i, j int) bool {
		if panels[i].Panel.Position != panels[j].Panel.Position {
			return panels[i].Panel.Position < panels[j].Panel.Position
		}
		return panels[i].Panel.ID < panels[j].Panel.ID
	})

	var componentQuotes []ComponentQuote
	var summaries []pricing.ComponentSummary
	for _, pg := range panels {
		for _, comp := range pg.Components {
			cq, err := c.PriceComponent(comp, pg.Panel)
			if err != nil {
				return OpeningQuote{}, err
			}
			componentQuotes = append(componentQuotes, cq)
			summaries = append(summaries, cq.Summary)
		}
	}

	return OpeningQuote{
		OpeningID:  og.Opening.ID,
		Mark:       og.Opening.Mark,
		Summary:    pricing.AggregateOpening(summaries),
		Components: componentQuotes,
	}, nil
}

// PriceComponent prices one placed product at its panel's dimensions.
func (c *Calculator) PriceComponent(comp ComponentInstance, panel Panel) (ComponentQuote, error) {
	dims := pricing.DimensionContext{
		Width:    panel.Width,
		Height:   panel.Height,
		Quantity: comp.Quantity,
	}
	if err := pricing.ValidateDimensions(dims); err != nil {
		return ComponentQuote{}, fmt.Errorf("component %s: %w", comp.ID, err)
	}

	product, ok := c.catalog.Product(comp.ProductID)
	if !ok {
		return ComponentQuote{}, fmt.Errorf("component %s: %w: %q", comp.ID, pricing.ErrProductNotFound, comp.ProductID)
	}

	units := dims.QuantityDecimal()
	multiUnit := comp.Quantity > 1

	lines := make([]pricing.LineResult, 0, len(product.BOM))
	for _, line := range product.BOM {
		res := c.pricer.PriceLine(line, dims)
		if multiUnit {
			res = scaleLine(res, units, comp.Quantity)
		}
		lines = append(lines, res)
	}

	options, err := c.resolveOptions(comp, units)
	if err != nil {
		return ComponentQuote{}, err
	}

	glass := comp.GlassCost.Mul(units)

	return ComponentQuote{
		ComponentID: comp.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Units:       comp.Quantity,
		Summary:     pricing.AggregateComponent(lines, options, glass),
	}, nil
}

// resolveOptions looks up each selection and scales paid prices by the
// unit count. Categories resolve in sorted order so runs are stable.
func (c *Calculator) resolveOptions(comp ComponentInstance, units decimal.Decimal) ([]pricing.OptionCost, error) {
	if len(comp.OptionSelections) == 0 {
		return nil, nil
	}

	categories := make([]string, 0, len(comp.OptionSelections))
	for category := range comp.OptionSelections {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	options := make([]pricing.OptionCost, 0, len(categories))
	for _, category := range categories {
		optionID := comp.OptionSelections[category]
		option, ok := c.catalog.Option(optionID)
		if !ok {
			return nil, fmt.Errorf("component %s: %w: %q", comp.ID, pricing.ErrOptionNotFound, optionID)
		}
		cost := option.Cost()
		cost.Price = cost.Price.Mul(units)
		options = append(options, cost)
	}
	return options, nil
}

// scaleLine multiplies a per-unit line result by the component's unit
// count. The per-piece unit cost stays intact.
func scaleLine(res pricing.LineResult, units decimal.Decimal, count int) pricing.LineResult {
	res.Cost = res.Cost.Mul(units)
	res.Breakdown.TotalCost = res.Breakdown.TotalCost.Mul(units)
	res.Breakdown.Details = fmt.Sprintf("%s; x %d units", res.Breakdown.Details, count)
	return res
}

// =============================================================================
// RUN ASSEMBLY
// =============================================================================

// NewPriceRun flattens a quote into its append-only audit form.
func NewPriceRun(q *ProjectQuote, runID string, at time.Time) (PriceRun, []PriceRunLine) {
	run := PriceRun{
		ID:               runID,
		ProjectID:        q.ProjectID,
		RunAt:            at,
		SubtotalBase:     q.Result.SubtotalBase,
		SubtotalMarkedUp: q.Result.SubtotalMarkedUp,
		Installation:     q.Result.Installation,
		TaxAmount:        q.Result.TaxAmount,
		GrandTotal:       q.Result.GrandTotal,
	}

	var lines []PriceRunLine
	for _, oq := range q.Openings {
		for _, cq := range oq.Components {
			for _, line := range cq.Summary.Lines {
				lines = append(lines, PriceRunLine{
					RunID:       runID,
					OpeningID:   oq.OpeningID,
					ComponentID: cq.ComponentID,
					PartNumber:  line.Breakdown.PartNumber,
					Method:      string(line.Breakdown.Method),
					UnitCost:    line.Breakdown.UnitCost,
					TotalCost:   line.Breakdown.TotalCost,
					Details:     line.Breakdown.Details,
					Category:    pricing.CategoryOf(line.PartType),
				})
			}
			for _, opt := range cq.Summary.Options {
				detail := opt.Name
				category := pricing.CategoryHardware
				if opt.Included {
					detail += " (included)"
					category = pricing.CategoryOther
				}
				lines = append(lines, PriceRunLine{
					RunID:       runID,
					OpeningID:   oq.OpeningID,
					ComponentID: cq.ComponentID,
					PartNumber:  opt.OptionID,
					Method:      runLineOption,
					UnitCost:    opt.Charge(),
					TotalCost:   opt.Charge(),
					Details:     detail,
					Category:    category,
				})
			}
			if !cq.Summary.GlassCost.IsZero() {
				lines = append(lines, PriceRunLine{
					RunID:       runID,
					OpeningID:   oq.OpeningID,
					ComponentID: cq.ComponentID,
					Method:      runLineGlass,
					UnitCost:    cq.Summary.GlassCost,
					TotalCost:   cq.Summary.GlassCost,
					Details:     "quoted glass",
					Category:    pricing.CategoryGlass,
				})
			}
		}
	}
	return run, lines
}
