/*
tolerance.go - Finished-dimension ownership resolution

PURPOSE:
  A finished opening's install dimensions are its rough dimensions minus
  a tolerance, and exactly one product "owns" that tolerance:

    NO_OWNER --attach eligible P--> OWNED(P)
    OWNED(P) --attach eligible Q--> OWNED(P)        first product wins
    OWNED(P) --detach P, Q next --> OWNED(Q)        rescan in panel order
    OWNED(P) --detach P, none  --> NO_OWNER         tolerances reset to 0

  The resolver is pure: it takes the current state plus the triggering
  product(s) and returns the next state. Persisting the transition
  atomically with the panel/component mutation is the caller's job, as is
  serializing concurrent attach/detach per opening.

EDGE BEHAVIOR:
  - Non-finished openings never transition; attach/detach are no-ops.
  - A non-finished state carrying a stale owner is ignored, not an error.
  - Re-attaching the current owner is a no-op (idempotent).
  - An eligible owner that defines no tolerance of its own contributes
    the system default (1/2" per axis).

SEE ALSO:
  - quote/calculator.go: Applies resolver output to Opening records
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// STATE AND INPUTS
// =============================================================================

// ToleranceState is the tolerance-relevant slice of an Opening record.
// OwnerProductID is empty exactly when no eligible product is attached.
type ToleranceState struct {
	RoughWidth  *decimal.Decimal
	RoughHeight *decimal.Decimal
	IsFinished  bool

	OwnerProductID       string
	WidthToleranceTotal  decimal.Decimal
	HeightToleranceTotal decimal.Decimal

	FinishedWidth  *decimal.Decimal
	FinishedHeight *decimal.Decimal
}

// ToleranceProduct is the view of a product the resolver needs. A nil
// tolerance means the product doesn't define one and the system default
// applies for that axis.
type ToleranceProduct struct {
	ProductID       string
	Eligible        bool
	WidthTolerance  *decimal.Decimal
	HeightTolerance *decimal.Decimal
}

// =============================================================================
// RESOLVER
// =============================================================================

// ToleranceResolver carries the system default tolerances.
type ToleranceResolver struct {
	DefaultWidthTolerance  decimal.Decimal
	DefaultHeightTolerance decimal.Decimal
}

// NewToleranceResolver returns a resolver with the standard 1/2" defaults.
func NewToleranceResolver() ToleranceResolver {
	half := decimal.New(5, -1)
	return ToleranceResolver{
		DefaultWidthTolerance:  half,
		DefaultHeightTolerance: half,
	}
}

// Attach handles a tolerance-eligible product being added to a panel of
// the opening. Returns the next state and whether anything changed.
func (r ToleranceResolver) Attach(state ToleranceState, product ToleranceProduct) (ToleranceState, bool) {
	if !state.IsFinished || !product.Eligible {
		return state, false
	}
	if state.OwnerProductID != "" {
		// First product wins; later eligible products do not override.
		return state, false
	}
	return r.own(state, product), true
}

// Detach handles a product being removed. remaining is the opening's
// still-attached products in panel display order; the first eligible one
// becomes the new owner. Returns the next state and whether it changed.
func (r ToleranceResolver) Detach(state ToleranceState, productID string, remaining []ToleranceProduct) (ToleranceState, bool) {
	if !state.IsFinished {
		return state, false
	}
	if state.OwnerProductID == "" || state.OwnerProductID != productID {
		return state, false
	}

	for _, candidate := range remaining {
		if candidate.Eligible {
			return r.own(state, candidate), true
		}
	}

	// No eligible product remains: tolerances reset to zero and the
	// finished dimensions collapse back onto the rough dimensions.
	state.OwnerProductID = ""
	state.WidthToleranceTotal = decimal.Zero
	state.HeightToleranceTotal = decimal.Zero
	recomputeFinished(&state)
	return state, true
}

// own transfers ownership to the product and recomputes finished
// dimensions. Per-axis: a product may define one tolerance and default
// the other.
func (r ToleranceResolver) own(state ToleranceState, product ToleranceProduct) ToleranceState {
	state.OwnerProductID = product.ProductID

	if product.WidthTolerance != nil {
		state.WidthToleranceTotal = *product.WidthTolerance
	} else {
		state.WidthToleranceTotal = r.DefaultWidthTolerance
	}
	if product.HeightTolerance != nil {
		state.HeightToleranceTotal = *product.HeightTolerance
	} else {
		state.HeightToleranceTotal = r.DefaultHeightTolerance
	}

	recomputeFinished(&state)
	return state
}

// recomputeFinished derives finished = rough - tolerance when the rough
// dimension is known, else leaves the finished dimension unset.
func recomputeFinished(state *ToleranceState) {
	if state.RoughWidth != nil {
		fw := state.RoughWidth.Sub(state.WidthToleranceTotal)
		state.FinishedWidth = &fw
	} else {
		state.FinishedWidth = nil
	}
	if state.RoughHeight != nil {
		fh := state.RoughHeight.Sub(state.HeightToleranceTotal)
		state.FinishedHeight = &fh
	} else {
		state.FinishedHeight = nil
	}
}
