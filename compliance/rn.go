package compliance

import (
	"fmt"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// RN DUE-CHECK
// =============================================================================

// RNDue is the outcome of IsRNVisitDue.
type RNDue struct {
	IsDue  bool
	Reason string

	// LastVisit is the most recent completed RN visit date; zero when the
	// patient has none, in which case DaysSinceLast is meaningless.
	LastVisit     calendar.Date
	DaysSinceLast int

	// Recert is set when the recertification window made the visit due.
	Recert bool
}

// HasLastVisit reports whether a completed RN visit exists.
func (d RNDue) HasLastVisit() bool { return !d.LastVisit.IsZero() }

// IsRNVisitDue applies the RN cadence rule. The last RN visit is always
// derived from visits; the patient's cached LastRNVisitDate is ignored.
func IsRNVisitDue(p care.Patient, visits []care.Visit, today calendar.Date, policy Policy) RNDue {
	last, ok := care.LastRNVisit(p.ID, visits)
	if !ok {
		return RNDue{
			IsDue:  true,
			Reason: fmt.Sprintf("No confirmed RN visit in past %d days", policy.RNVisitInterval),
		}
	}

	days := calendar.DaysBetween(last.Date, today)
	due := RNDue{LastVisit: last.Date, DaysSinceLast: days}

	upcoming, hasUpcoming := nextScheduledRN(p.ID, visits, today)
	if days >= policy.RNVisitInterval && !hasUpcoming {
		due.IsDue = true
		due.Reason = fmt.Sprintf("RN visit overdue by %d days", days-policy.RNVisitInterval)
		return due
	}

	if w := RecertWindowFor(p, today, policy); w != nil && w.IsInWindow {
		due.IsDue = true
		due.Recert = true
		due.Reason = fmt.Sprintf("Recertification due in %d days", w.DaysUntilEnd)
		return due
	}

	if hasUpcoming {
		due.Reason = fmt.Sprintf("RN visit already scheduled for %s", upcoming)
		return due
	}
	due.Reason = fmt.Sprintf("RN visit due in %d days", policy.RNVisitInterval-days)
	return due
}

// nextScheduledRN finds the earliest RN visit dated today or later that is
// suggested or confirmed.
func nextScheduledRN(patientID care.PatientID, visits []care.Visit, today calendar.Date) (calendar.Date, bool) {
	var (
		next  calendar.Date
		found bool
	)
	for _, v := range visits {
		if v.PatientID != patientID || v.Discipline != care.DisciplineRN {
			continue
		}
		if v.Date.Before(today) {
			continue
		}
		if v.Status != care.StatusConfirmed && v.Status != care.StatusSuggested {
			continue
		}
		if !found || v.Date.Before(next) {
			next, found = v.Date, true
		}
	}
	return next, found
}
