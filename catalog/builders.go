/*
Catalog JSON builders for demos and tests.

These functions create JSON catalog definitions (master parts, products,
markup profiles). They construct JSON strings directly to avoid import
cycles with the factory package.

USAGE:
  import "github.com/warp/quote-engine/catalog"

  f := factory.NewCatalogFactory()
  jsonStr := catalog.StockedExtrusionJSON("CHAN-100", "Bottom Channel", 48, 15)
  part, err := f.ParseMasterPart(jsonStr)
*/
package catalog

import (
	"encoding/json"
)

// StockedExtrusionJSON returns JSON for an extrusion priced by a single
// stock-length rule base price up to a maximum width.
func StockedExtrusionJSON(partNumber, name string, maxWidth, basePrice float64) string {
	pj := map[string]interface{}{
		"part_number": partNumber,
		"name":        name,
		"part_type":   "extrusion",
		"active":      true,
		"stock_length_rules": []map[string]interface{}{{
			"id":         partNumber + "-rule-1",
			"max_width":  maxWidth,
			"base_price": basePrice,
			"active":     true,
		}},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// RunningFootExtrusionJSON returns JSON for an extrusion cut from stock
// lengths and priced by the running inch.
func RunningFootExtrusionJSON(partNumber, name string, stockLength, piecesPerUnit, basePrice float64) string {
	pj := map[string]interface{}{
		"part_number": partNumber,
		"name":        name,
		"part_type":   "extrusion",
		"active":      true,
		"stock_length_rules": []map[string]interface{}{{
			"id":              partNumber + "-rule-1",
			"stock_length":    stockLength,
			"pieces_per_unit": piecesPerUnit,
			"base_price":      basePrice,
			"formula":         "basePrice/stockLength*width*piecesPerUnit*quantity",
			"active":          true,
		}},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// HardwarePartJSON returns JSON for hardware priced by its direct cost.
func HardwarePartJSON(partNumber, name string, cost float64) string {
	return DirectCostPartJSON(partNumber, name, "hardware", cost)
}

// DirectCostPartJSON returns JSON for a part of any type priced by its
// direct cost. Non-hardware types fall through to the master_part_direct
// method.
func DirectCostPartJSON(partNumber, name, partType string, cost float64) string {
	pj := map[string]interface{}{
		"part_number": partNumber,
		"name":        name,
		"part_type":   partType,
		"direct_cost": cost,
		"active":      true,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// FlatRatePartJSON returns JSON for a part priced by a single flat-rate
// pricing rule (first active rule wins).
func FlatRatePartJSON(partNumber, name, partType string, basePrice float64) string {
	pj := map[string]interface{}{
		"part_number": partNumber,
		"name":        name,
		"part_type":   partType,
		"active":      true,
		"pricing_rules": []map[string]interface{}{{
			"id":         partNumber + "-flat-1",
			"base_price": basePrice,
			"active":     true,
		}},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// PerimeterPartJSON returns JSON for a part priced per perimeter inch
// (gaskets, weatherstripping, packaging film).
func PerimeterPartJSON(partNumber, name, partType string, ratePerInch float64) string {
	pj := map[string]interface{}{
		"part_number": partNumber,
		"name":        name,
		"part_type":   partType,
		"active":      true,
		"pricing_rules": []map[string]interface{}{{
			"id":         partNumber + "-perim-1",
			"base_price": ratePerInch,
			"formula":    "(width+height)*2*basePrice",
			"active":     true,
		}},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// SwingDoorJSON returns JSON for a swing door product: channel at the sill
// plus a width-derived trim, tolerance-eligible at 3/4" per axis.
func SwingDoorJSON(id, name, series, channelPN, trimPN string) string {
	pj := map[string]interface{}{
		"id":                id,
		"name":              name,
		"series":            series,
		"applies_tolerance": true,
		"width_tolerance":   0.75,
		"height_tolerance":  0.75,
		"bom": []map[string]interface{}{
			{"part_number": channelPN, "part_name": "Bottom Channel", "part_type": "extrusion", "quantity": 1},
			{"part_number": trimPN, "part_name": "Top Trim", "part_type": "extrusion", "quantity": 1, "formula": "width-10"},
		},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// SlidingPanelJSON returns JSON for a sliding panel product: top/bottom
// rails by the running inch plus interlock hardware.
func SlidingPanelJSON(id, name, series, railPN, interlockPN string) string {
	pj := map[string]interface{}{
		"id":                id,
		"name":              name,
		"series":            series,
		"applies_tolerance": true,
		"bom": []map[string]interface{}{
			{"part_number": railPN, "part_name": "Top Rail", "part_type": "extrusion", "quantity": 1},
			{"part_number": railPN, "part_name": "Bottom Rail", "part_type": "extrusion", "quantity": 1},
			{"part_number": interlockPN, "part_name": "Interlock", "part_type": "hardware", "quantity": 2},
		},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// FixedLiteJSON returns JSON for a fixed glazed panel. Fixed lites never
// own the opening tolerance.
func FixedLiteJSON(id, name, series, stopPN string) string {
	pj := map[string]interface{}{
		"id":                id,
		"name":              name,
		"series":            series,
		"applies_tolerance": false,
		"bom": []map[string]interface{}{
			{"part_number": stopPN, "part_name": "Glass Stop", "part_type": "extrusion", "quantity": 4},
		},
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// StandardMarkupJSON returns JSON for a standard-mode markup profile with
// per-category percentages and glass passed through at cost.
func StandardMarkupJSON(id, name string, extrusionPct, hardwarePct, taxRate float64) string {
	pj := map[string]interface{}{
		"id":   id,
		"name": name,
		"mode": "standard",
		"category_markups": map[string]interface{}{
			"extrusion": extrusionPct,
			"hardware":  hardwarePct,
		},
		"no_markup": []string{"glass"},
		"tax_rate":  taxRate,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// HybridMarkupJSON returns JSON for a hybrid-mode profile marking up only
// a share of the extrusion base.
func HybridMarkupJSON(id, name string, extrusionPct, extrusionShare, taxRate float64) string {
	pj := map[string]interface{}{
		"id":   id,
		"name": name,
		"mode": "hybrid",
		"category_markups": map[string]interface{}{
			"extrusion": extrusionPct,
		},
		"hybrid_extrusion_share": extrusionShare,
		"tax_rate":               taxRate,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// HardwareOptionJSON returns JSON for a selectable hardware option.
func HardwareOptionJSON(id, category, name string, price float64, included bool) string {
	pj := map[string]interface{}{
		"id":       id,
		"category": category,
		"name":     name,
		"price":    price,
		"included": included,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
