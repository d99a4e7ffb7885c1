/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON catalog definitions into master parts, products, and
  markup profiles. This enables catalog configuration without code
  changes - estimators can define parts and dealer profiles in JSON, and
  the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can maintain the catalog
  - Easy integration with admin UI
  - Version control for dealer pricing configurations
  - Database storage of catalog definitions

JSON SCHEMA (master part):
  {
    "part_number": "CHAN-100",
    "name": "Bottom Channel",
    "part_type": "extrusion",
    "active": true,
    "stock_length_rules": [
      {"id": "CHAN-100-rule-1", "max_width": 48, "base_price": 15, "active": true}
    ],
    "pricing_rules": [
      {"id": "CHAN-100-flat-1", "base_price": 12, "formula": "", "active": true}
    ]
  }

KEY FEATURES:
  - Decimal-safe money parsing (no float math on prices)
  - Sets sensible defaults (missing "active" means active)
  - Symmetric To*JSON converters for API responses
  - The same JSON types serve as REST request/response bodies

USAGE:
  f := factory.NewCatalogFactory()

  // From JSON string
  part, err := f.ParseMasterPart(jsonStr)

  // From domain-specific preset (recommended)
  import "github.com/warp/quote-engine/catalog"
  jsonStr := catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15)
  part, err := f.ParseMasterPart(jsonStr)

SEE ALSO:
  - catalog/builders.go: Preset JSON builders
  - pricing/types.go: MasterPart and rule definitions
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// MasterPartJSON is the JSON representation of a master part.
type MasterPartJSON struct {
	PartNumber       string            `json:"part_number"`
	Name             string            `json:"name,omitempty"`
	PartType         string            `json:"part_type,omitempty"`
	DirectCost       decimal.Decimal   `json:"direct_cost,omitempty"`
	Active           *bool             `json:"active,omitempty"` // default true
	StockLengthRules []StockRuleJSON   `json:"stock_length_rules,omitempty"`
	PricingRules     []PricingRuleJSON `json:"pricing_rules,omitempty"`
}

// StockRuleJSON represents a stock-length rule. Unset bounds stay nil
// (unconstrained).
type StockRuleJSON struct {
	ID            string           `json:"id"`
	MinWidth      *decimal.Decimal `json:"min_width,omitempty"`
	MaxWidth      *decimal.Decimal `json:"max_width,omitempty"`
	MinHeight     *decimal.Decimal `json:"min_height,omitempty"`
	MaxHeight     *decimal.Decimal `json:"max_height,omitempty"`
	StockLength   decimal.Decimal  `json:"stock_length,omitempty"`
	PiecesPerUnit decimal.Decimal  `json:"pieces_per_unit,omitempty"`
	BasePrice     *decimal.Decimal `json:"base_price,omitempty"`
	Formula       string           `json:"formula,omitempty"`
	Active        *bool            `json:"active,omitempty"`
}

// PricingRuleJSON represents a generic pricing rule. List order matters:
// the first active rule wins.
type PricingRuleJSON struct {
	ID        string           `json:"id"`
	BasePrice *decimal.Decimal `json:"base_price,omitempty"`
	Formula   string           `json:"formula,omitempty"`
	Active    *bool            `json:"active,omitempty"`
}

// BOMLineJSON represents one line of a product's bill of materials.
type BOMLineJSON struct {
	PartNumber string          `json:"part_number,omitempty"`
	PartName   string          `json:"part_name,omitempty"`
	PartType   string          `json:"part_type,omitempty"`
	Quantity   decimal.Decimal `json:"quantity,omitempty"`
	DirectCost decimal.Decimal `json:"direct_cost,omitempty"`
	Formula    string          `json:"formula,omitempty"`
}

// ProductJSON is the JSON representation of a configurable product.
type ProductJSON struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Series           string           `json:"series,omitempty"`
	AppliesTolerance bool             `json:"applies_tolerance,omitempty"`
	WidthTolerance   *decimal.Decimal `json:"width_tolerance,omitempty"`
	HeightTolerance  *decimal.Decimal `json:"height_tolerance,omitempty"`
	BOM              []BOMLineJSON    `json:"bom,omitempty"`
}

// ProfileJSON is the JSON representation of a markup profile.
type ProfileJSON struct {
	ID                   string                     `json:"id"`
	Name                 string                     `json:"name,omitempty"`
	Mode                 string                     `json:"mode,omitempty"` // standard (default) | hybrid
	CategoryMarkups      map[string]decimal.Decimal `json:"category_markups,omitempty"`
	NoMarkup             []string                   `json:"no_markup,omitempty"`
	HybridExtrusionShare decimal.Decimal            `json:"hybrid_extrusion_share,omitempty"`
	GlobalMarkup         decimal.Decimal            `json:"global_markup,omitempty"`
	Discount             decimal.Decimal            `json:"discount,omitempty"`
	TaxRate              decimal.Decimal            `json:"tax_rate,omitempty"`
	Installation         decimal.Decimal            `json:"installation,omitempty"`
}

// OptionJSON is the JSON representation of a hardware option.
type OptionJSON struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Included bool            `json:"included,omitempty"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalog definitions to Go structs.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseMasterPart parses a JSON string into a MasterPart.
func (f *CatalogFactory) ParseMasterPart(jsonStr string) (pricing.MasterPart, error) {
	var pj MasterPartJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return pricing.MasterPart{}, fmt.Errorf("failed to parse master part JSON: %w", err)
	}
	return f.FromMasterPartJSON(pj)
}

// FromMasterPartJSON converts MasterPartJSON to a pricing.MasterPart.
func (f *CatalogFactory) FromMasterPartJSON(pj MasterPartJSON) (pricing.MasterPart, error) {
	if pj.PartNumber == "" {
		return pricing.MasterPart{}, fmt.Errorf("master part requires part_number")
	}

	part := pricing.MasterPart{
		PartNumber: pj.PartNumber,
		PartName:   pj.Name,
		PartType:   pricing.ParsePartType(pj.PartType),
		DirectCost: pj.DirectCost,
		IsActive:   activeOrDefault(pj.Active),
	}

	for i, rj := range pj.StockLengthRules {
		part.StockLengthRules = append(part.StockLengthRules, pricing.StockLengthRule{
			ID:            ruleID(rj.ID, pj.PartNumber, "stock", i),
			MinWidth:      rj.MinWidth,
			MaxWidth:      rj.MaxWidth,
			MinHeight:     rj.MinHeight,
			MaxHeight:     rj.MaxHeight,
			StockLength:   rj.StockLength,
			PiecesPerUnit: rj.PiecesPerUnit,
			BasePrice:     rj.BasePrice,
			Formula:       rj.Formula,
			IsActive:      activeOrDefault(rj.Active),
		})
	}

	for i, rj := range pj.PricingRules {
		part.PricingRules = append(part.PricingRules, pricing.PricingRule{
			ID:        ruleID(rj.ID, pj.PartNumber, "pricing", i),
			BasePrice: rj.BasePrice,
			Formula:   rj.Formula,
			IsActive:  activeOrDefault(rj.Active),
		})
	}

	return part, nil
}

// ToMasterPartJSON converts a MasterPart back to its JSON form.
func (f *CatalogFactory) ToMasterPartJSON(part pricing.MasterPart) MasterPartJSON {
	active := part.IsActive
	pj := MasterPartJSON{
		PartNumber: part.PartNumber,
		Name:       part.PartName,
		PartType:   string(part.PartType),
		DirectCost: part.DirectCost,
		Active:     &active,
	}
	for _, r := range part.StockLengthRules {
		ruleActive := r.IsActive
		pj.StockLengthRules = append(pj.StockLengthRules, StockRuleJSON{
			ID:            r.ID,
			MinWidth:      r.MinWidth,
			MaxWidth:      r.MaxWidth,
			MinHeight:     r.MinHeight,
			MaxHeight:     r.MaxHeight,
			StockLength:   r.StockLength,
			PiecesPerUnit: r.PiecesPerUnit,
			BasePrice:     r.BasePrice,
			Formula:       r.Formula,
			Active:        &ruleActive,
		})
	}
	for _, r := range part.PricingRules {
		ruleActive := r.IsActive
		pj.PricingRules = append(pj.PricingRules, PricingRuleJSON{
			ID:        r.ID,
			BasePrice: r.BasePrice,
			Formula:   r.Formula,
			Active:    &ruleActive,
		})
	}
	return pj
}

// ParseProduct parses a JSON string into a catalog.Product.
func (f *CatalogFactory) ParseProduct(jsonStr string) (catalog.Product, error) {
	var pj ProductJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return catalog.Product{}, fmt.Errorf("failed to parse product JSON: %w", err)
	}
	return f.FromProductJSON(pj)
}

// FromProductJSON converts ProductJSON to a catalog.Product.
func (f *CatalogFactory) FromProductJSON(pj ProductJSON) (catalog.Product, error) {
	if pj.ID == "" {
		return catalog.Product{}, fmt.Errorf("product requires id")
	}
	if pj.Name == "" {
		return catalog.Product{}, fmt.Errorf("product %s requires name", pj.ID)
	}

	product := catalog.Product{
		ID:               pj.ID,
		Name:             pj.Name,
		Series:           pj.Series,
		AppliesTolerance: pj.AppliesTolerance,
		WidthTolerance:   pj.WidthTolerance,
		HeightTolerance:  pj.HeightTolerance,
	}

	for _, lj := range pj.BOM {
		product.BOM = append(product.BOM, pricing.BOMLine{
			PartNumber: lj.PartNumber,
			PartName:   lj.PartName,
			PartType:   pricing.ParsePartType(lj.PartType),
			Quantity:   lj.Quantity,
			DirectCost: lj.DirectCost,
			Formula:    lj.Formula,
		})
	}

	return product, nil
}

// ToProductJSON converts a Product back to its JSON form.
func (f *CatalogFactory) ToProductJSON(product catalog.Product) ProductJSON {
	pj := ProductJSON{
		ID:               product.ID,
		Name:             product.Name,
		Series:           product.Series,
		AppliesTolerance: product.AppliesTolerance,
		WidthTolerance:   product.WidthTolerance,
		HeightTolerance:  product.HeightTolerance,
	}
	for _, line := range product.BOM {
		pj.BOM = append(pj.BOM, BOMLineJSON{
			PartNumber: line.PartNumber,
			PartName:   line.PartName,
			PartType:   string(line.PartType),
			Quantity:   line.Quantity,
			DirectCost: line.DirectCost,
			Formula:    line.Formula,
		})
	}
	return pj
}

// ParseProfile parses a JSON string into a pricing.MarkupProfile.
func (f *CatalogFactory) ParseProfile(jsonStr string) (pricing.MarkupProfile, error) {
	var pj ProfileJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return pricing.MarkupProfile{}, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return f.FromProfileJSON(pj)
}

// FromProfileJSON converts ProfileJSON to a pricing.MarkupProfile.
func (f *CatalogFactory) FromProfileJSON(pj ProfileJSON) (pricing.MarkupProfile, error) {
	if pj.ID == "" {
		return pricing.MarkupProfile{}, fmt.Errorf("markup profile requires id")
	}

	profile := pricing.MarkupProfile{
		ID:                   pj.ID,
		Name:                 pj.Name,
		Mode:                 parseMode(pj.Mode),
		HybridExtrusionShare: pj.HybridExtrusionShare,
		GlobalMarkup:         pj.GlobalMarkup,
		Discount:             pj.Discount,
		TaxRate:              pj.TaxRate,
		Installation:         pj.Installation,
	}

	if len(pj.CategoryMarkups) > 0 {
		profile.CategoryMarkups = make(map[pricing.CostCategory]decimal.Decimal, len(pj.CategoryMarkups))
		for cat, pct := range pj.CategoryMarkups {
			profile.CategoryMarkups[pricing.CostCategory(cat)] = pct
		}
	}
	if len(pj.NoMarkup) > 0 {
		profile.NoMarkup = make(map[pricing.CostCategory]bool, len(pj.NoMarkup))
		for _, cat := range pj.NoMarkup {
			profile.NoMarkup[pricing.CostCategory(cat)] = true
		}
	}

	return profile, nil
}

// ToProfileJSON converts a MarkupProfile back to its JSON form.
func (f *CatalogFactory) ToProfileJSON(profile pricing.MarkupProfile) ProfileJSON {
	pj := ProfileJSON{
		ID:                   profile.ID,
		Name:                 profile.Name,
		Mode:                 string(profile.Mode),
		HybridExtrusionShare: profile.HybridExtrusionShare,
		GlobalMarkup:         profile.GlobalMarkup,
		Discount:             profile.Discount,
		TaxRate:              profile.TaxRate,
		Installation:         profile.Installation,
	}
	if len(profile.CategoryMarkups) > 0 {
		pj.CategoryMarkups = make(map[string]decimal.Decimal, len(profile.CategoryMarkups))
		for cat, pct := range profile.CategoryMarkups {
			pj.CategoryMarkups[string(cat)] = pct
		}
	}
	// Stable order: follow the canonical category list.
	for _, cat := range pricing.Categories() {
		if profile.NoMarkup[cat] {
			pj.NoMarkup = append(pj.NoMarkup, string(cat))
		}
	}
	return pj
}

// ParseOption parses a JSON string into a catalog.HardwareOption.
func (f *CatalogFactory) ParseOption(jsonStr string) (catalog.HardwareOption, error) {
	var oj OptionJSON
	if err := json.Unmarshal([]byte(jsonStr), &oj); err != nil {
		return catalog.HardwareOption{}, fmt.Errorf("failed to parse option JSON: %w", err)
	}
	return f.FromOptionJSON(oj)
}

// FromOptionJSON converts OptionJSON to a catalog.HardwareOption.
func (f *CatalogFactory) FromOptionJSON(oj OptionJSON) (catalog.HardwareOption, error) {
	if oj.ID == "" {
		return catalog.HardwareOption{}, fmt.Errorf("hardware option requires id")
	}
	if oj.Category == "" {
		return catalog.HardwareOption{}, fmt.Errorf("hardware option %s requires category", oj.ID)
	}
	return catalog.HardwareOption{
		ID:       oj.ID,
		Category: oj.Category,
		Name:     oj.Name,
		Price:    oj.Price,
		Included: oj.Included,
	}, nil
}

// ToOptionJSON converts a catalog.HardwareOption back to its JSON form.
func (f *CatalogFactory) ToOptionJSON(option catalog.HardwareOption) OptionJSON {
	return OptionJSON{
		ID:       option.ID,
		Category: option.Category,
		Name:     option.Name,
		Price:    option.Price,
		Included: option.Included,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// activeOrDefault treats a missing "active" field as active: JSON catalog
// entries opt OUT of pricing, not in.
func activeOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

func parseMode(s string) pricing.PricingMode {
	switch s {
	case "hybrid":
		return pricing.ModeHybrid
	default:
		return pricing.ModeStandard
	}
}

// ruleID fills in a deterministic ID when the JSON omits one. Rule IDs
// matter: specificity ties break on them.
func ruleID(id, partNumber, kind string, index int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s-%s-%d", partNumber, kind, index+1)
}
