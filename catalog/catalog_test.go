package catalog_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/quote-engine/catalog"
	"github.com/warp/quote-engine/pricing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func channelPart() pricing.MasterPart {
	fifteen := decimal.NewFromInt(15)
	maxW := decimal.NewFromInt(48)
	return pricing.MasterPart{
		PartNumber: "CHAN-100",
		PartName:   "Bottom Channel",
		PartType:   pricing.PartExtrusion,
		IsActive:   true,
		StockLengthRules: []pricing.StockLengthRule{{
			ID:        "CHAN-100-rule-1",
			MaxWidth:  &maxW,
			BasePrice: &fifteen,
			IsActive:  true,
		}},
	}
}

// =============================================================================
// MEMORY SOURCE
// =============================================================================

func TestMemory_PartRoundtrip(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutPart(channelPart())

	part, ok := mem.MasterPart("CHAN-100")
	require.True(t, ok)
	assert.Equal(t, "Bottom Channel", part.PartName)
	require.Len(t, part.StockLengthRules, 1)
	assert.True(t, part.StockLengthRules[0].BasePrice.Equal(decimal.NewFromInt(15)))

	_, ok = mem.MasterPart("NOPE-1")
	assert.False(t, ok)
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	// GIVEN a stored part
	mem := catalog.NewMemory()
	mem.PutPart(channelPart())

	// WHEN a caller mutates what it read back
	part, _ := mem.MasterPart("CHAN-100")
	part.StockLengthRules[0].IsActive = false
	part.PartName = "Tampered"

	// THEN the stored part is untouched
	stored, _ := mem.MasterPart("CHAN-100")
	assert.True(t, stored.StockLengthRules[0].IsActive)
	assert.Equal(t, "Bottom Channel", stored.PartName)
}

func TestMemory_PartsSortedByPartNumber(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutPart(pricing.MasterPart{PartNumber: "TRIM-200", IsActive: true})
	mem.PutPart(pricing.MasterPart{PartNumber: "CHAN-100", IsActive: true})
	mem.PutPart(pricing.MasterPart{PartNumber: "HINGE-90", IsActive: true})

	parts := mem.Parts()

	require.Len(t, parts, 3)
	assert.Equal(t, "CHAN-100", parts[0].PartNumber)
	assert.Equal(t, "HINGE-90", parts[1].PartNumber)
	assert.Equal(t, "TRIM-200", parts[2].PartNumber)
}

func TestMemory_PutPartReplaces(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutPart(channelPart())

	updated := channelPart()
	updated.PartName = "Bottom Channel v2"
	mem.PutPart(updated)

	part, _ := mem.MasterPart("CHAN-100")
	assert.Equal(t, "Bottom Channel v2", part.PartName)
	assert.Len(t, mem.Parts(), 1)
}

func TestMemory_DeletePart(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutPart(channelPart())

	mem.DeletePart("CHAN-100")

	_, ok := mem.MasterPart("CHAN-100")
	assert.False(t, ok)
}

func TestMemory_ProductsAndOptionsAndProfiles(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutProduct(catalog.Product{ID: "prod-2", Name: "Sliding Panel"})
	mem.PutProduct(catalog.Product{ID: "prod-1", Name: "Entry Door"})
	mem.PutOption(catalog.HardwareOption{ID: "opt-1", Category: "handle", Name: "Lever"})
	mem.PutProfile(pricing.MarkupProfile{ID: "prof-1", Name: "Standard Dealer"})

	products := mem.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "Entry Door", products[0].Name, "products sort by name")

	opt, ok := mem.Option("opt-1")
	require.True(t, ok)
	assert.Equal(t, "handle", opt.Category)

	prof, ok := mem.Profile("prof-1")
	require.True(t, ok)
	assert.Equal(t, "Standard Dealer", prof.Name)
}

func TestMemory_ProfileReadsAreCopies(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutProfile(pricing.MarkupProfile{
		ID:   "prof-1",
		Name: "Standard Dealer",
		CategoryMarkups: map[pricing.CostCategory]decimal.Decimal{
			pricing.CategoryExtrusion: decimal.NewFromInt(30),
		},
	})

	prof, _ := mem.Profile("prof-1")
	prof.CategoryMarkups[pricing.CategoryExtrusion] = decimal.NewFromInt(99)

	stored, _ := mem.Profile("prof-1")
	assert.True(t, stored.CategoryMarkups[pricing.CategoryExtrusion].Equal(decimal.NewFromInt(30)))
}

func TestMemory_Reset(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutPart(channelPart())
	mem.PutProduct(catalog.Product{ID: "prod-1"})
	mem.PutOption(catalog.HardwareOption{ID: "opt-1"})
	mem.PutProfile(pricing.MarkupProfile{ID: "prof-1"})

	mem.Reset()

	assert.Empty(t, mem.Parts())
	assert.Empty(t, mem.Products())
	assert.Empty(t, mem.Options())
	assert.Empty(t, mem.Profiles())
}

// =============================================================================
// DOMAIN ADAPTERS
// =============================================================================

func TestProduct_ToleranceView(t *testing.T) {
	threeQuarters := decimal.RequireFromString("0.75")
	product := catalog.Product{
		ID:               "prod-1",
		AppliesTolerance: true,
		WidthTolerance:   &threeQuarters,
	}

	view := product.ToleranceView()

	assert.Equal(t, "prod-1", view.ProductID)
	assert.True(t, view.Eligible)
	require.NotNil(t, view.WidthTolerance)
	assert.True(t, view.WidthTolerance.Equal(threeQuarters))
	assert.Nil(t, view.HeightTolerance, "unset axis stays nil so the resolver default applies")
}

func TestHardwareOption_Cost(t *testing.T) {
	option := catalog.HardwareOption{
		ID:       "opt-1",
		Category: "closer",
		Name:     "Overhead Closer",
		Price:    decimal.NewFromInt(59),
		Included: false,
	}

	cost := option.Cost()

	assert.Equal(t, "opt-1", cost.OptionID)
	assert.True(t, cost.Charge().Equal(decimal.NewFromInt(59)))
}

// =============================================================================
// JSON BUILDERS
// =============================================================================

func TestBuilders_EmitWellFormedJSON(t *testing.T) {
	// The factory package owns full parse coverage; here we only pin the
	// field names scenario seeds depend on.
	var part map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15)), &part))
	assert.Equal(t, "extrusion", part["part_type"])
	rules, ok := part["stock_length_rules"].([]interface{})
	require.True(t, ok)
	assert.Len(t, rules, 1)

	var product map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(catalog.SwingDoorJSON("prod-1", "Entry Door", "SF-100", "CHAN-100", "TRIM-200")), &product))
	assert.Equal(t, true, product["applies_tolerance"])
	bom, ok := product["bom"].([]interface{})
	require.True(t, ok)
	assert.Len(t, bom, 2)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(catalog.HybridMarkupJSON("prof-1", "Hybrid", 50, 40, 8.25)), &profile))
	assert.Equal(t, "hybrid", profile["mode"])
}
