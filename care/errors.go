/*
errors.go - Error types for the care records and their stores

PURPOSE:
  All error types in one place. Callers classify with errors.Is or the
  IsClientError / IsNotFound helpers; the HTTP layer maps them to status
  codes without knowing individual sentinels.

ERROR CATEGORIES:
  1. Validation errors - Malformed patient or visit records
  2. Lifecycle errors  - Illegal confirm/complete transitions
  3. Store errors      - Missing records, out-of-range writes

SEE ALSO:
  - types.go: Validate methods returning ValidationError
  - lifecycle.go: Confirm / Complete
*/
package care

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidValue is the generic "field is malformed" cause.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidFrequency is returned for a frequency that is not "Nx/week".
	ErrInvalidFrequency = errors.New("invalid visit frequency")

	// ErrInvalidBenefitPeriod is returned when the period ends before it starts.
	ErrInvalidBenefitPeriod = errors.New("invalid benefit period: end before start")

	// ErrStartOfCareImmutable is returned when an update moves a start of
	// care date that was already recorded.
	ErrStartOfCareImmutable = errors.New("start of care date cannot change once set")

	// ErrPRNMustBeConfirmed enforces that PRN visits are never suggestions.
	ErrPRNMustBeConfirmed = errors.New("prn visit must be confirmed")

	// ErrUnassignedDiscipline is returned when the unassigned tag and the
	// UNASSIGNED discipline disagree.
	ErrUnassignedDiscipline = errors.New("unassigned tag requires UNASSIGNED discipline")

	ErrAlreadyCompleted = errors.New("visit already completed")
	ErrProtectedVisit   = errors.New("visit is protected")

	ErrPatientNotFound = errors.New("patient not found")
	ErrStaffNotFound   = errors.New("staff not found")
	ErrVisitNotFound   = errors.New("visit not found")

	// ErrOutOfRange is returned by ReplaceVisitsInRange for a visit dated
	// outside the range being replaced.
	ErrOutOfRange = errors.New("visit outside replaced range")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidBenefitPeriod) ||
		errors.Is(err, ErrStartOfCareImmutable) ||
		errors.Is(err, ErrPRNMustBeConfirmed) ||
		errors.Is(err, ErrUnassignedDiscipline) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrProtectedVisit) ||
		errors.Is(err, ErrOutOfRange)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrVisitNotFound)
}
