/*
date.go - Day-granularity dates for the visit calendar

PURPOSE:
  Every scheduling rule in this system is expressed in whole days: the
  14-day RN revisit rule, the recertification window, HOPE day-on-service
  windows, per-day staff caps. Comparing raw time.Time values with a
  time-of-day or a zone attached produces off-by-one errors at midnight,
  so Date strips both at construction. Two Dates for the same calendar
  day are always equal, whatever time or zone they were built from.

KEY CONCEPTS:
  Date:        A calendar day, normalized to 00:00 UTC
  DaysBetween: Whole days from a to b (negative when b is before a)

SERIALIZATION:
  Dates render and parse as ISO "YYYY-MM-DD". The zero Date marshals to
  JSON null and means "absent" (e.g. a patient with no benefit period end).

SEE ALSO:
  - period.go: Period and Week built on Date
  - clock.go: Where "today" comes from
*/
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISOLayout is the wire and storage layout for dates.
const ISOLayout = "2006-01-02"

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar day. The embedded time is always midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day and zone of t, keeping the calendar day
// as seen in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "YYYY-MM-DD". An RFC3339 timestamp is accepted too and
// truncated to its date part, since collaborators sometimes send those.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

// IsWeekday reports whether d falls Monday through Friday.
func (d Date) IsWeekday() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// String returns the ISO form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(ISOLayout)
}

// MarshalJSON renders the ISO form; the zero Date becomes null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an ISO date, an RFC3339 timestamp, "" or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

// DaysBetween returns floor(to - from) in whole days. Both sides are
// already midnight UTC, so the division is exact.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}
