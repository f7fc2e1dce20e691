package care

import (
	"github.com/warp/visit-engine/calendar"
)

// =============================================================================
// LIFECYCLE - suggested -> confirmed, and independently -> completed
// =============================================================================

// Confirm locks a visit in. A non-empty staff name replaces the assigned
// clinician. Confirming an already confirmed visit only updates the staff.
func Confirm(v Visit, staff string) (Visit, error) {
	if v.Completed {
		return v, ErrAlreadyCompleted
	}
	v.Status = StatusConfirmed
	if staff != "" {
		v.Staff = staff
	}
	return v, nil
}

// Complete records that the visit happened. A completed visit is always
// confirmed.
func Complete(v Visit) (Visit, error) {
	if v.Completed {
		return v, ErrAlreadyCompleted
	}
	v.Completed = true
	v.Status = StatusConfirmed
	return v, nil
}

// IsCompletedRN reports whether v counts as a performed RN visit for the
// 14-day rule: discipline RN, confirmed, completed.
func IsCompletedRN(v Visit) bool {
	return v.Discipline == DisciplineRN && v.Status == StatusConfirmed && v.Completed
}

// LastRNVisit finds the most recent completed RN visit for a patient in the
// visit log. Ties on date keep the first one seen.
func LastRNVisit(patientID PatientID, visits []Visit) (Visit, bool) {
	var (
		last  Visit
		found bool
	)
	for _, v := range visits {
		if v.PatientID != patientID || !IsCompletedRN(v) {
			continue
		}
		if !found || v.Date.After(last.Date) {
			last, found = v, true
		}
	}
	return last, found
}

// ReconcileLastRNVisit recomputes the cached LastRNVisitDate from the log.
// The cache is cleared when the log has no completed RN visit.
func ReconcileLastRNVisit(p Patient, visits []Visit) Patient {
	if v, ok := LastRNVisit(p.ID, visits); ok {
		p.LastRNVisitDate = v.Date
	} else {
		p.LastRNVisitDate = calendar.Date{}
	}
	return p
}
