/*
errors.go - Centralized error types for the pricing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (quote, api) wrap these with additional context.

ERROR CATEGORIES:
  1. Caller-input errors - bad geometry, unknown references (rejected
     before the pricing pipeline runs)
  2. Evaluation errors - formula failures (NEVER propagated out of a
     price run; they surface as zero costs with the reason in the
     breakdown details)

  There is deliberately no "pricing failed" error: a line that cannot
  be priced resolves to zero with method no_cost_found, which is a
  valid terminal outcome, not a failure.

USAGE:
  if pricing.IsClientError(err) {
      writeError(w, http.StatusBadRequest, err.Error())
  }

SEE ALSO:
  - formula.go: Produces EvalError values
  - line.go: Converts every failure into breakdown details
*/
package pricing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDimensions is returned when geometry fails validation
	// (negative width/height, quantity below 1).
	ErrInvalidDimensions = errors.New("invalid dimension context")

	// ErrEvalFailed is the root of every formula evaluation failure.
	ErrEvalFailed = errors.New("formula evaluation failed")

	// ErrProfileNotFound is returned when a referenced markup profile
	// doesn't exist.
	ErrProfileNotFound = errors.New("markup profile not found")

	// ErrProjectNotFound is returned when a referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrOpeningNotFound is returned when a referenced opening doesn't exist.
	ErrOpeningNotFound = errors.New("opening not found")

	// ErrPanelNotFound is returned when a referenced panel doesn't exist.
	ErrPanelNotFound = errors.New("panel not found")

	// ErrComponentNotFound is returned when a referenced component doesn't exist.
	ErrComponentNotFound = errors.New("component not found")

	// ErrProductNotFound is returned when a placed component references a
	// product missing from the catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrOptionNotFound is returned when an option selection references a
	// hardware option missing from the catalog.
	ErrOptionNotFound = errors.New("hardware option not found")

	// ErrPartNotFound is returned when a catalog lookup by part number
	// misses. Line pricing never returns this (a miss prices to zero);
	// CRUD reads do.
	ErrPartNotFound = errors.New("master part not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDimensionsError reports geometry the engine refuses to price.
type InvalidDimensionsError struct {
	Context DimensionContext
	Reason  string
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid dimensions: %s (width=%s height=%s quantity=%d)",
		e.Reason, e.Context.Width, e.Context.Height, e.Context.Quantity)
}

func (e *InvalidDimensionsError) Unwrap() error {
	return ErrInvalidDimensions
}

// EvalError reports why a formula evaluated to zero. It is attached to
// breakdown details, never returned from a price run.
type EvalError struct {
	Formula string
	Pos     int // byte offset into the formula, -1 when not positional
	Reason  string
}

func (e *EvalError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("formula %q: %s at offset %d", e.Formula, e.Reason, e.Pos)
	}
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
}

func (e *EvalError) Unwrap() error {
	return ErrEvalFailed
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDimensions)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrOpeningNotFound) ||
		errors.Is(err, ErrPanelNotFound) ||
		errors.Is(err, ErrComponentNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOptionNotFound) ||
		errors.Is(err, ErrPartNotFound)
}
