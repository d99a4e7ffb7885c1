/*
validate.go - Input validation for the project graph

Write paths (API handlers, importers) validate before persisting so the
calculator can assume sane geometry. Everything here wraps the pricing
package's sentinels, keeping HTTP status mapping in one place.
*/
package quote

import (
	"fmt"

	"github.com/warp/quote-engine/pricing"
)

// directionsByType enumerates the legal directions per panel type. Fixed
// panels carry none.
var directionsByType = map[PanelType][]Direction{
	PanelFixed:   nil,
	PanelSwing:   {SwingLeftIn, SwingRightIn, SwingLeftOut, SwingRightOut},
	PanelSliding: {SlideLeft, SlideRight},
}

// DirectionsFor lists the legal directions for a panel type.
func DirectionsFor(pt PanelType) []Direction {
	return directionsByType[pt]
}

// ValidPanelType reports whether pt is one of the known panel types.
func ValidPanelType(pt PanelType) bool {
	_, ok := directionsByType[pt]
	return ok
}

// ValidateProject rejects negative job-level money inputs.
func ValidateProject(p Project) error {
	if p.Name == "" {
		return fmt.Errorf("%w: project name is required", pricing.ErrInvalidDimensions)
	}
	if p.TaxRate.IsNegative() || p.Installation.IsNegative() {
		return fmt.Errorf("%w: tax rate and installation must not be negative", pricing.ErrInvalidDimensions)
	}
	return nil
}

// ValidateOpening rejects negative rough dimensions. Missing dimensions
// are legal; an opening may be created before it is measured.
func ValidateOpening(o Opening) error {
	if o.RoughWidth != nil && o.RoughWidth.IsNegative() {
		return fmt.Errorf("%w: rough width %s", pricing.ErrInvalidDimensions, o.RoughWidth)
	}
	if o.RoughHeight != nil && o.RoughHeight.IsNegative() {
		return fmt.Errorf("%w: rough height %s", pricing.ErrInvalidDimensions, o.RoughHeight)
	}
	return nil
}

// ValidatePanel requires positive daylight dimensions, a known panel
// type, and a direction that fits the type.
func ValidatePanel(p Panel) error {
	if !p.Width.IsPositive() || !p.Height.IsPositive() {
		return fmt.Errorf("%w: panel needs positive width and height, got %s x %s",
			pricing.ErrInvalidDimensions, p.Width, p.Height)
	}
	if !ValidPanelType(p.PanelType) {
		return fmt.Errorf("%w: unknown panel type %q", pricing.ErrInvalidDimensions, p.PanelType)
	}

	legal := DirectionsFor(p.PanelType)
	if len(legal) == 0 {
		if p.Direction != "" {
			return fmt.Errorf("%w: %s panels carry no direction", pricing.ErrInvalidDimensions, p.PanelType)
		}
		return nil
	}
	for _, d := range legal {
		if p.Direction == d {
			return nil
		}
	}
	return fmt.Errorf("%w: direction %q is not valid for %s panels",
		pricing.ErrInvalidDimensions, p.Direction, p.PanelType)
}

// ValidateComponent requires a product reference and at least one unit.
func ValidateComponent(c ComponentInstance) error {
	if c.ProductID == "" {
		return fmt.Errorf("%w: component needs a product", pricing.ErrProductNotFound)
	}
	if c.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d is below 1", pricing.ErrInvalidDimensions, c.Quantity)
	}
	if c.GlassCost.IsNegative() {
		return fmt.Errorf("%w: glass cost must not be negative", pricing.ErrInvalidDimensions)
	}
	return nil
}
