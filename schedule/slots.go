package schedule

import (
	"sort"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// DAILY LOAD
// =============================================================================

// DailyCount is the number of visits occupying staff's capacity on date.
// Which visits count is decided by Policy.CountsTowardLoad: confirmed ones,
// by default including those tagged over-limit.
func DailyCount(staff string, date calendar.Date, visits []care.Visit, policy compliance.Policy) int {
	n := 0
	for _, v := range visits {
		if v.Staff == staff && v.Date.Equal(date) && policy.CountsTowardLoad(v) {
			n++
		}
	}
	return n
}

// HasReachedDailyLimit reports whether staff is at or over the cap on date.
func HasReachedDailyLimit(staff string, date calendar.Date, visits []care.Visit, policy compliance.Policy) bool {
	return DailyCount(staff, date, visits, policy) >= policy.DailyCap
}

// StaffExceedingDailyLimit names the staff strictly over the cap on date.
func StaffExceedingDailyLimit(date calendar.Date, visits []care.Visit, staff []care.Staff, policy compliance.Policy) []string {
	var names []string
	for _, s := range staff {
		if DailyCount(s.Name, date, visits, policy) > policy.DailyCap {
			names = append(names, s.Name)
		}
	}
	return names
}

// =============================================================================
// BEST DAY - Even distribution across the week
// =============================================================================

type dayLoad struct {
	date  calendar.Date
	count int
}

func loadsFor(staff string, days []calendar.Date, visits []care.Visit, policy compliance.Policy) []dayLoad {
	loads := make([]dayLoad, len(days))
	for i, d := range days {
		loads[i] = dayLoad{date: d, count: DailyCount(staff, d, visits, policy)}
	}
	return loads
}

// BestDayForDistribution picks the least-loaded weekday in weekDates for
// staff, earliest on ties. ok is false when every weekday is at the cap.
func BestDayForDistribution(staff string, weekDates []calendar.Date, visits []care.Visit, policy compliance.Policy) (calendar.Date, bool) {
	loads := loadsFor(staff, calendar.Weekdays(weekDates), visits, policy)
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].count != loads[j].count {
			return loads[i].count < loads[j].count
		}
		return loads[i].date.Before(loads[j].date)
	})
	for _, l := range loads {
		if l.count < policy.DailyCap {
			return l.date, true
		}
	}
	return calendar.Date{}, false
}

// =============================================================================
// SLOT PICKER - Per-patient day choice inside one scheduling pass
// =============================================================================

type placement int

const (
	placed placement = iota
	placedOverLimit
	noOpenDay
)

// slotPicker extends BestDayForDistribution with what a single patient
// needs: days the patient already has a visit are never reused, preferred
// weekdays come first for multi-visit frequencies, 2x/week spreads the two
// visits apart, and the pass's own proposals for the same clinician break
// load ties.
type slotPicker struct {
	policy    compliance.Policy
	patient   care.Patient
	frequency int
	weekdays  []calendar.Date
	existing  []care.Visit
	proposed  *[]care.Visit
}

type candidate struct {
	date      calendar.Date
	count     int
	passLoad  int
	preferred bool
	spacing   int
}

// taken returns the weekdays on which the patient already has a visit.
func (sp *slotPicker) taken() map[string]calendar.Date {
	days := make(map[string]calendar.Date)
	mark := func(v care.Visit) {
		if v.PatientID == sp.patient.ID {
			days[v.Date.String()] = v.Date
		}
	}
	for _, v := range sp.existing {
		mark(v)
	}
	for _, v := range *sp.proposed {
		mark(v)
	}
	return days
}

func (sp *slotPicker) pick(staff string) (calendar.Date, placement) {
	taken := sp.taken()
	var open []calendar.Date
	for _, d := range sp.weekdays {
		if _, ok := taken[d.String()]; !ok {
			open = append(open, d)
		}
	}
	if len(open) == 0 {
		return calendar.Date{}, noOpenDay
	}

	cands := make([]candidate, len(open))
	for i, d := range open {
		c := candidate{date: d, preferred: sp.patient.Prefers(d), spacing: spacingFrom(d, taken)}
		if staff != "" {
			c.count = DailyCount(staff, d, sp.existing, sp.policy)
			c.passLoad = passLoad(staff, d, *sp.proposed)
		}
		cands[i] = c
	}

	var under []candidate
	for _, c := range cands {
		if c.count < sp.policy.DailyCap {
			under = append(under, c)
		}
	}
	if len(under) == 0 {
		sort.SliceStable(cands, func(i, j int) bool { return byLoad(cands[i], cands[j]) })
		return cands[0].date, placedOverLimit
	}

	sort.SliceStable(under, func(i, j int) bool { return sp.less(under[i], under[j]) })
	return under[0].date, placed
}

func (sp *slotPicker) less(a, b candidate) bool {
	if sp.frequency >= 2 && a.preferred != b.preferred {
		return a.preferred
	}
	if sp.frequency == 2 && a.spacing != b.spacing {
		return a.spacing > b.spacing
	}
	return byLoad(a, b)
}

func byLoad(a, b candidate) bool {
	if a.count != b.count {
		return a.count < b.count
	}
	if a.passLoad != b.passLoad {
		return a.passLoad < b.passLoad
	}
	return a.date.Before(b.date)
}

// spacingFrom is the distance in days to the nearest taken day, or 7 when
// the patient has nothing else that week.
func spacingFrom(d calendar.Date, taken map[string]calendar.Date) int {
	best := 7
	for _, t := range taken {
		gap := calendar.DaysBetween(t, d)
		if gap < 0 {
			gap = -gap
		}
		if gap < best {
			best = gap
		}
	}
	return best
}

func passLoad(staff string, d calendar.Date, proposed []care.Visit) int {
	n := 0
	for _, v := range proposed {
		if v.Staff == staff && v.Date.Equal(d) {
			n++
		}
	}
	return n
}
