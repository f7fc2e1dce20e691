package compliance

import (
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// RECERTIFICATION WINDOW
// =============================================================================

// RecertWindow is [BenefitPeriodEnd - RecertLeadDays, BenefitPeriodEnd].
type RecertWindow struct {
	Start          calendar.Date
	End            calendar.Date
	IsInWindow     bool
	IsOverdue      bool
	DaysUntilStart int
	DaysUntilEnd   int
}

// RecertWindowFor returns nil when the patient has no benefit period end.
func RecertWindowFor(p care.Patient, today calendar.Date, policy Policy) *RecertWindow {
	if p.BenefitPeriodEnd.IsZero() {
		return nil
	}
	end := p.BenefitPeriodEnd
	start := end.AddDays(-policy.RecertLeadDays)
	return &RecertWindow{
		Start:          start,
		End:            end,
		IsInWindow:     today.AfterOrEqual(start) && today.BeforeOrEqual(end),
		IsOverdue:      today.After(end),
		DaysUntilStart: calendar.DaysBetween(today, start),
		DaysUntilEnd:   calendar.DaysBetween(today, end),
	}
}

// =============================================================================
// BENEFIT PERIOD COUNTDOWN
// =============================================================================

type CountdownStatus string

const (
	CountdownNormal   CountdownStatus = "normal"
	CountdownWarning  CountdownStatus = "warning"
	CountdownCritical CountdownStatus = "critical"
	CountdownExpired  CountdownStatus = "expired"
	CountdownNoData   CountdownStatus = "no-data"
)

// Countdown is the days left in the current benefit period.
type Countdown struct {
	DaysLeft int
	Status   CountdownStatus
	End      calendar.Date
	Period   int
}

// BenefitPeriodCountdown grades the days left before the period ends.
func BenefitPeriodCountdown(p care.Patient, today calendar.Date, policy Policy) Countdown {
	if p.BenefitPeriodEnd.IsZero() {
		return Countdown{Status: CountdownNoData, Period: p.BenefitPeriodNumber}
	}
	left := calendar.DaysBetween(today, p.BenefitPeriodEnd)
	c := Countdown{DaysLeft: left, End: p.BenefitPeriodEnd, Period: p.BenefitPeriodNumber}
	switch {
	case left < 0:
		c.Status = CountdownExpired
	case left <= policy.CountdownCriticalDays:
		c.Status = CountdownCritical
	case left <= policy.CountdownWarningDays:
		c.Status = CountdownWarning
	default:
		c.Status = CountdownNormal
	}
	return c
}
