/*
errors.go - Centralized error types for the medication engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Callers match with errors.Is(); the API layer maps categories to HTTP
  statuses via the helpers at the bottom.

RECOVERY POLICY:
  Persistence and date-parse failures are deliberately NOT part of this
  taxonomy as returned errors: loads degrade to an empty store and parse
  failures fail open (see schedule.go), both after logging. Only
  user-action rule violations surface to callers.
*/
package medication

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateMedication is returned when adding a medication whose
	// name and presentation (case-insensitive) already exist.
	ErrDuplicateMedication = errors.New("medication already registered")

	// ErrNotFound is returned when a medication id is absent.
	ErrNotFound = errors.New("medication not found")

	// ErrInvalidQuantity is returned when a restock quantity is not positive.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrNotScheduledToday is returned when a dose is recorded on a day the
	// frequency schedule does not call for one.
	ErrNotScheduledToday = errors.New("not scheduled for today")

	// ErrNameRequired is returned when adding or updating with a blank name.
	ErrNameRequired = errors.New("medication name required")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a business-rule violation (HTTP 4xx territory).
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateMedication) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrNotScheduledToday) ||
		errors.Is(err, ErrNameRequired)
}

// IsNotFound returns true if the error indicates a missing medication.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
