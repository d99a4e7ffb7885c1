/*
parttype.go - Part type definitions and cost-category registry

PURPOSE:
  Maps part types to the cost categories quotes report on. The seven
  canonical part types are registered here; domain packages may register
  additional types (custom fabrication categories, imported catalogs with
  vendor-specific typing) without touching the engine.

HOW IT WORKS:
  1. The canonical types register in this package's init()
  2. Domain packages register extras from their own init() functions
  3. The aggregator calls CategoryOf to bucket every priced line

  Unregistered part types bucket to CategoryOther, matching how
  zero-priced "included" options ride along on a quote.

SEE ALSO:
  - aggregate.go: The only engine consumer of CategoryOf
  - catalog/: Registers nothing today but owns future custom types
*/
package pricing

import (
	"sync"
)

// =============================================================================
// PART TYPES AND COST CATEGORIES
// =============================================================================

// PartType classifies a BOM line or master part. The pricer branches on
// it (hardware and extrusion resolve differently); the aggregator buckets
// by it.
type PartType string

const (
	PartExtrusion PartType = "Extrusion"
	PartHardware  PartType = "Hardware"
	PartFastener  PartType = "Fastener"
	PartPackaging PartType = "Packaging"
	PartGlass     PartType = "Glass"
	PartOption    PartType = "Option"
	PartOther     PartType = "Other"
)

// CostCategory is the reporting bucket a cost lands in. Markup is applied
// per category, so bucketing decides what a line ultimately sells for.
type CostCategory string

const (
	CategoryExtrusion CostCategory = "extrusion"
	CategoryHardware  CostCategory = "hardware"
	CategoryGlass     CostCategory = "glass"
	CategoryPackaging CostCategory = "packaging"
	CategoryOther     CostCategory = "other"
)

// Categories lists every bucket in stable reporting order.
func Categories() []CostCategory {
	return []CostCategory{
		CategoryExtrusion,
		CategoryHardware,
		CategoryGlass,
		CategoryPackaging,
		CategoryOther,
	}
}

// =============================================================================
// PART TYPE REGISTRY
// =============================================================================

var (
	partTypeRegistry = make(map[PartType]CostCategory)
	partTypeMu       sync.RWMutex
)

func init() {
	RegisterPartType(PartExtrusion, CategoryExtrusion)
	RegisterPartType(PartHardware, CategoryHardware)
	RegisterPartType(PartFastener, CategoryHardware)
	RegisterPartType(PartPackaging, CategoryPackaging)
	RegisterPartType(PartGlass, CategoryGlass)
	RegisterPartType(PartOption, CategoryOther)
	RegisterPartType(PartOther, CategoryOther)
}

// RegisterPartType maps a part type to a cost category. Call from domain
// package init() functions; later registrations overwrite earlier ones.
func RegisterPartType(pt PartType, cat CostCategory) {
	partTypeMu.Lock()
	defer partTypeMu.Unlock()
	partTypeRegistry[pt] = cat
}

// CategoryOf returns the cost category for a part type.
// Unregistered types bucket to CategoryOther.
func CategoryOf(pt PartType) CostCategory {
	partTypeMu.RLock()
	defer partTypeMu.RUnlock()
	if cat, ok := partTypeRegistry[pt]; ok {
		return cat
	}
	return CategoryOther
}

// ListPartTypes returns every registered part type.
func ListPartTypes() []PartType {
	partTypeMu.RLock()
	defer partTypeMu.RUnlock()
	result := make([]PartType, 0, len(partTypeRegistry))
	for pt := range partTypeRegistry {
		result = append(result, pt)
	}
	return result
}

// ParsePartType normalizes a stored/imported string to a PartType.
// Unknown strings pass through unchanged: they still price (the pricer's
// type branches simply won't fire) and bucket to CategoryOther.
func ParsePartType(s string) PartType {
	switch s {
	case "Extrusion", "extrusion":
		return PartExtrusion
	case "Hardware", "hardware":
		return PartHardware
	case "Fastener", "fastener":
		return PartFastener
	case "Packaging", "packaging":
		return PartPackaging
	case "Glass", "glass":
		return PartGlass
	case "Option", "option":
		return PartOption
	case "Other", "other":
		return PartOther
	default:
		return PartType(s)
	}
}
