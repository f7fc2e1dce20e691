/*
Package compliance holds the regulatory predicates the scheduler applies.

PURPOSE:
  Pure functions over a patient, the visit log and "today" that answer
  "is a visit due, and why". Every function takes today explicitly and a
  Policy carrying the numeric rules; none of them read a clock.

KEY CONCEPTS:
  - Policy:       Numeric rules (14-day interval, caps, windows)
  - RNDue:        Outcome of the RN due-check with a human-readable reason
  - RecertWindow: The lead-up to a benefit period's end
  - HOPE:         Assessment visits due by days on service (HUV1, HUV2)

RULE PRECEDENCE (RN due-check):
  1. No completed RN visit on record        -> due
  2. >= RNVisitInterval days since the last -> due, unless an RN visit is
     already on the calendar today or later
  3. Inside the recertification window     -> due regardless of the count
  4. Otherwise                              -> not due

SEE ALSO:
  - schedule/generators.go: Turns these answers into visits
  - factory/policy.go: Policy from JSON
*/
package compliance

import (
	"errors"
	"fmt"

	"github.com/warp/visit-engine/care"
)

// =============================================================================
// POLICY - Numeric scheduling rules
// =============================================================================

// Window is an inclusive range of days on service.
type Window struct {
	From int
	To   int
}

func (w Window) Contains(day int) bool { return day >= w.From && day <= w.To }

func (w Window) String() string { return fmt.Sprintf("days %d-%d", w.From, w.To) }

// Policy carries every numeric rule the engine applies.
type Policy struct {
	// RNVisitInterval is the maximum gap between completed RN visits.
	RNVisitInterval int

	// RecertLeadDays opens the recertification window this many days
	// before the benefit period ends.
	RecertLeadDays int

	HUV1 Window
	HUV2 Window

	// NPMinBenefitPeriod is the first benefit period that requires an NP
	// visit. Observed values are 2 and 3; the default is 2.
	NPMinBenefitPeriod int

	// DailyCap is the soft per-staff per-day visit limit.
	DailyCap int

	// OverLimitCountsTowardLoad decides whether confirmed visits tagged
	// over-limit count in the daily load used for day selection.
	OverLimitCountsTowardLoad bool

	// CountSuggestedLoad adds suggested visits to the daily load. Off by
	// default: only confirmed visits occupy capacity.
	CountSuggestedLoad bool

	// DueSoonDays raises an RN "due soon" alert once this many days have
	// passed since the last completed RN visit.
	DueSoonDays int

	// Benefit period countdown thresholds.
	CountdownWarningDays  int
	CountdownCriticalDays int
}

// DefaultPolicy returns the rules the agency runs with.
func DefaultPolicy() Policy {
	return Policy{
		RNVisitInterval:           14,
		RecertLeadDays:            14,
		HUV1:                      Window{From: 6, To: 15},
		HUV2:                      Window{From: 16, To: 30},
		NPMinBenefitPeriod:        2,
		DailyCap:                  5,
		OverLimitCountsTowardLoad: true,
		CountSuggestedLoad:        false,
		DueSoonDays:               12,
		CountdownWarningDays:      14,
		CountdownCriticalDays:     7,
	}
}

var ErrInvalidPolicy = errors.New("invalid policy")

// Validate rejects rules the engine cannot apply.
func (p Policy) Validate() error {
	switch {
	case p.RNVisitInterval <= 0:
		return fmt.Errorf("%w: rn_visit_interval must be positive", ErrInvalidPolicy)
	case p.RecertLeadDays < 0:
		return fmt.Errorf("%w: recert_lead_days must not be negative", ErrInvalidPolicy)
	case p.DailyCap <= 0:
		return fmt.Errorf("%w: daily_cap must be positive", ErrInvalidPolicy)
	case p.HUV1.From > p.HUV1.To || p.HUV2.From > p.HUV2.To:
		return fmt.Errorf("%w: HOPE window ends before it starts", ErrInvalidPolicy)
	case p.HUV1.To >= p.HUV2.From:
		return fmt.Errorf("%w: HUV1 and HUV2 windows overlap", ErrInvalidPolicy)
	case p.NPMinBenefitPeriod < 1:
		return fmt.Errorf("%w: np_min_benefit_period must be at least 1", ErrInvalidPolicy)
	case p.DueSoonDays > p.RNVisitInterval:
		return fmt.Errorf("%w: due_soon_days exceeds rn_visit_interval", ErrInvalidPolicy)
	case p.CountdownCriticalDays > p.CountdownWarningDays:
		return fmt.Errorf("%w: countdown critical threshold above warning threshold", ErrInvalidPolicy)
	}
	return nil
}

// CountsTowardLoad reports whether a visit occupies its staff member's
// daily capacity under this policy.
func (p Policy) CountsTowardLoad(v care.Visit) bool {
	switch v.Status {
	case care.StatusConfirmed:
		if v.Tags.Has(care.TagOverLimit) && !p.OverLimitCountsTowardLoad {
			return false
		}
		return true
	case care.StatusSuggested:
		return p.CountSuggestedLoad
	}
	return false
}
