package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// ALERTS - What the care team should look at today
// =============================================================================

type AlertKind string

const (
	AlertRNOverdue     AlertKind = "rn-overdue"
	AlertRNDueSoon     AlertKind = "rn-due-soon"
	AlertHOPE          AlertKind = "hope-assessment"
	AlertRecertWindow  AlertKind = "recert-window"
	AlertRecertOverdue AlertKind = "recert-overdue"
	AlertStaffOverCap  AlertKind = "staff-over-cap"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Alert struct {
	ID          string
	Kind        AlertKind
	Severity    Severity
	PatientID   care.PatientID
	PatientName string
	Staff       string
	Date        calendar.Date
	Message     string

	// Days is the kind-specific count: days overdue, days until due,
	// days on service, or visits on the day for staff alerts.
	Days int
}

// Alerts derives the current alert list. Complete patients are skipped.
// Staff alerts cover the weekdays of today's week. The result is ordered
// by severity, then by ID.
func Alerts(patients []care.Patient, visits []care.Visit, staff []care.Staff, today calendar.Date, policy Policy) []Alert {
	var alerts []Alert
	for _, p := range patients {
		if p.IsComplete() {
			continue
		}
		alerts = append(alerts, patientAlerts(p, visits, today, policy)...)
	}
	alerts = append(alerts, staffAlerts(staff, visits, today, policy)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := severityRank(alerts[i].Severity), severityRank(alerts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts
}

func patientAlerts(p care.Patient, visits []care.Visit, today calendar.Date, policy Policy) []Alert {
	var out []Alert
	base := Alert{PatientID: p.ID, PatientName: p.Name, Staff: p.AssignedRN, Date: today}

	if last, ok := care.LastRNVisit(p.ID, visits); ok {
		days := calendar.DaysBetween(last.Date, today)
		switch {
		case days >= policy.RNVisitInterval:
			a := base
			a.ID = fmt.Sprintf("alert-%s-overdue", p.ID)
			a.Kind, a.Severity = AlertRNOverdue, SeverityHigh
			a.Days = days - policy.RNVisitInterval
			a.Message = fmt.Sprintf("RN visit overdue by %d days", a.Days)
			out = append(out, a)
		case days >= policy.DueSoonDays:
			a := base
			a.ID = fmt.Sprintf("alert-%s-due-soon", p.ID)
			a.Kind, a.Severity = AlertRNDueSoon, SeverityMedium
			a.Days = policy.RNVisitInterval - days
			a.Message = fmt.Sprintf("RN visit due in %d days", a.Days)
			out = append(out, a)
		}
	}

	if tags := HopeTags(p, visits, today, policy); !tags.IsEmpty() {
		days, _ := DaysOnService(p, today)
		for _, which := range []care.Tag{care.TagHUV1, care.TagHUV2} {
			if !tags.Has(which) {
				continue
			}
			a := base
			a.ID = fmt.Sprintf("alert-%s-%s", p.ID, strings.ToLower(which.String()))
			a.Kind, a.Severity = AlertHOPE, SeverityHigh
			a.Days = days
			a.Message = fmt.Sprintf("HOPE %s Assessment Required (Days %d on service)", which, days)
			out = append(out, a)
		}
	}

	if w := RecertWindowFor(p, today, policy); w != nil {
		switch {
		case w.IsOverdue:
			a := base
			a.ID = fmt.Sprintf("alert-%s-recert-overdue", p.ID)
			a.Kind, a.Severity = AlertRecertOverdue, SeverityHigh
			a.Days = -w.DaysUntilEnd
			a.Message = fmt.Sprintf("Benefit period %d ended %d days ago", p.BenefitPeriodNumber, a.Days)
			out = append(out, a)
		case w.IsInWindow:
			a := base
			a.ID = fmt.Sprintf("alert-%s-recert", p.ID)
			a.Kind, a.Severity = AlertRecertWindow, SeverityMedium
			a.Days = w.DaysUntilEnd
			a.Message = fmt.Sprintf("Recertification due in %d days", a.Days)
			out = append(out, a)
		}
	}
	return out
}

func staffAlerts(staff []care.Staff, visits []care.Visit, today calendar.Date, policy Policy) []Alert {
	var out []Alert
	days := calendar.WeekOf(today).Weekdays()
	for _, s := range staff {
		if !s.Active {
			continue
		}
		for _, d := range days {
			n := 0
			for _, v := range visits {
				if v.Staff == s.Name && v.Date.Equal(d) && policy.CountsTowardLoad(v) {
					n++
				}
			}
			if n <= policy.DailyCap {
				continue
			}
			out = append(out, Alert{
				ID:       fmt.Sprintf("alert-%s-%s-over-cap", s.ID, d),
				Kind:     AlertStaffOverCap,
				Severity: SeverityMedium,
				Staff:    s.Name,
				Date:     d,
				Days:     n,
				Message:  fmt.Sprintf("%s has %d visits on %s (cap %d)", s.Name, n, d, policy.DailyCap),
			})
		}
	}
	return out
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	}
	return 2
}
