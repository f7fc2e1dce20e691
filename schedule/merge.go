package schedule

import (
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// MERGE - Reconcile proposals with the visits already on the calendar
// =============================================================================

// Merge returns protected in-week visits, in-week suggestions that do not
// share a (patient, date, discipline) slot with a proposal, the proposals,
// and every visit outside the week, in that order. Neither input slice is
// modified.
func Merge(newVisits, existing []care.Visit, week calendar.Week) []care.Visit {
	return merge(newVisits, existing, week, true)
}

// MergeReplacingStale is Merge without the surviving stale suggestions:
// every unprotected in-week visit is replaced by the proposals.
func MergeReplacingStale(newVisits, existing []care.Visit, week calendar.Week) []care.Visit {
	return merge(newVisits, existing, week, false)
}

func merge(newVisits, existing []care.Visit, week calendar.Week, keepStale bool) []care.Visit {
	claimed := make(map[care.Slot]bool, len(newVisits))
	for _, v := range newVisits {
		claimed[v.Slot()] = true
	}

	var protected, stale, outside []care.Visit
	for _, v := range existing {
		switch {
		case !week.Contains(v.Date):
			outside = append(outside, v)
		case v.IsProtected():
			protected = append(protected, v)
		case keepStale && !claimed[v.Slot()]:
			stale = append(stale, v)
		}
	}

	out := make([]care.Visit, 0, len(protected)+len(stale)+len(newVisits)+len(outside))
	out = append(out, protected...)
	out = append(out, stale...)
	out = append(out, newVisits...)
	out = append(out, outside...)
	return out
}
