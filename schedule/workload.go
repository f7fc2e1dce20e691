package schedule

import (
	"github.com/shopspring/decimal"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// WORKLOAD - Per-staff utilization for a week
// =============================================================================

// DayLoad is one staff member's load on one weekday.
type DayLoad struct {
	Date      calendar.Date
	Confirmed int
	Suggested int

	// Load is the count the daily cap applies to (see Policy.CountsTowardLoad).
	Load int

	// Utilization is Load / DailyCap, rounded to two places.
	Utilization decimal.Decimal
	OverCap     bool
}

type StaffLoad struct {
	Staff care.Staff
	Days  []DayLoad

	TotalConfirmed int
	TotalSuggested int
	OverCapDays    int

	// AverageUtilization is the mean of the daily utilizations.
	AverageUtilization decimal.Decimal
}

// Workload reports every active staff member's weekday load for the week,
// in roster order.
func Workload(staff []care.Staff, visits []care.Visit, week calendar.Week, policy compliance.Policy) []StaffLoad {
	capacity := decimal.NewFromInt(int64(policy.DailyCap))
	days := week.Weekdays()

	var out []StaffLoad
	for _, s := range staff {
		if !s.Active {
			continue
		}
		sl := StaffLoad{Staff: s, Days: make([]DayLoad, 0, len(days))}
		sum := decimal.Zero
		for _, d := range days {
			dl := DayLoad{Date: d}
			for _, v := range visits {
				if v.Staff != s.Name || !v.Date.Equal(d) {
					continue
				}
				switch v.Status {
				case care.StatusConfirmed:
					dl.Confirmed++
				case care.StatusSuggested:
					dl.Suggested++
				}
				if policy.CountsTowardLoad(v) {
					dl.Load++
				}
			}
			dl.Utilization = decimal.NewFromInt(int64(dl.Load)).Div(capacity).Round(2)
			dl.OverCap = dl.Load > policy.DailyCap

			sl.TotalConfirmed += dl.Confirmed
			sl.TotalSuggested += dl.Suggested
			if dl.OverCap {
				sl.OverCapDays++
			}
			sum = sum.Add(dl.Utilization)
			sl.Days = append(sl.Days, dl)
		}
		if len(days) > 0 {
			sl.AverageUtilization = sum.Div(decimal.NewFromInt(int64(len(days)))).Round(2)
		}
		out = append(out, sl)
	}
	return out
}
