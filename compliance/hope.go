package compliance

import (
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// DaysOnService counts whole days since the start of care. ok is false
// when the patient has no start of care date.
func DaysOnService(p care.Patient, today calendar.Date) (days int, ok bool) {
	if p.StartOfCare.IsZero() {
		return 0, false
	}
	return calendar.DaysBetween(p.StartOfCare, today), true
}

// HopeTags returns {HOPE, HUV1} inside the HUV1 window, {HOPE, HUV2} inside
// the HUV2 window, and the empty set otherwise. A window that already has a
// completed visit carrying its tag yields nothing.
func HopeTags(p care.Patient, visits []care.Visit, today calendar.Date, policy Policy) care.TagSet {
	days, ok := DaysOnService(p, today)
	if !ok {
		return 0
	}
	var tags care.TagSet
	if policy.HUV1.Contains(days) && !hasCompletedHope(p.ID, visits, care.TagHUV1) {
		tags = tags.With(care.TagHOPE, care.TagHUV1)
	}
	if policy.HUV2.Contains(days) && !hasCompletedHope(p.ID, visits, care.TagHUV2) {
		tags = tags.With(care.TagHOPE, care.TagHUV2)
	}
	return tags
}

func hasCompletedHope(patientID care.PatientID, visits []care.Visit, which care.Tag) bool {
	for _, v := range visits {
		if v.PatientID == patientID && v.Completed && v.Tags.Has(which) {
			return true
		}
	}
	return false
}

// NPRequired reports whether the benefit period calls for an NP visit.
func NPRequired(benefitPeriodNumber int, policy Policy) bool {
	return benefitPeriodNumber >= policy.NPMinBenefitPeriod
}
