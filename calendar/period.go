package calendar

import (
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Closed range of days
// =============================================================================

// Period is the closed day range [Start, End].
//
// Examples:
//   - A benefit period: 2026-07-01 .. 2026-09-28
//   - A recertification window: benefit period end - 14 days .. end
//   - A scheduling week: Monday .. Sunday
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day in the period in order.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool {
	return !p.End.Before(p.Start)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// WEEK - Monday-start scheduling week
// =============================================================================

// MondayOf returns the Monday on or before d. Sunday counts as the last
// day of the week, six days after its Monday.
func MondayOf(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// WeekDates returns the seven dates of the week containing start, shifted
// by offsetWeeks whole weeks.
func WeekDates(start Date, offsetWeeks int) []Date {
	monday := MondayOf(start).AddDays(offsetWeeks * 7)
	dates := make([]Date, 7)
	for i := range dates {
		dates[i] = monday.AddDays(i)
	}
	return dates
}

// Week is the scheduling week that begins on Start (always a Monday).
type Week struct {
	Start Date
}

// WeekOf returns the week containing d.
func WeekOf(d Date) Week {
	return Week{Start: MondayOf(d)}
}

// Next returns the week n weeks after w (n may be negative).
func (w Week) Next(n int) Week { return Week{Start: w.Start.AddDays(7 * n)} }

// End returns the Sunday closing the week.
func (w Week) End() Date { return w.Start.AddDays(6) }

// Dates returns all seven days, Monday first.
func (w Week) Dates() []Date { return WeekDates(w.Start, 0) }

// Weekdays returns Monday through Friday.
func (w Week) Weekdays() []Date { return Weekdays(w.Dates()) }

// Contains reports whether d falls inside the week.
func (w Week) Contains(d Date) bool { return w.Period().Contains(d) }

// Period returns the week as a closed range.
func (w Week) Period() Period { return Period{Start: w.Start, End: w.End()} }

func (w Week) String() string { return w.Period().String() }

// Weekdays filters dates down to Monday-Friday, preserving order.
func Weekdays(dates []Date) []Date {
	out := make([]Date, 0, len(dates))
	for _, d := range dates {
		if d.IsWeekday() {
			out = append(out, d)
		}
	}
	return out
}

// ParseWeekday maps the names collaborators use ("Monday", "tue", ...) to
// time.Weekday. Unknown names are reported through ok=false.
func ParseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tues", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thur", "thurs", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}
