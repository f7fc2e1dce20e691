package compliance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var today = calendar.NewDate(2026, time.October, 21)

func patient() care.Patient {
	return care.Patient{
		ID:                  "p1",
		Name:                "Ada Brooks",
		StartOfCare:         today.AddDays(-60),
		BenefitPeriodNumber: 1,
		BenefitPeriodStart:  today.AddDays(-60),
		BenefitPeriodEnd:    today.AddDays(30),
		Frequency:           "1x/week",
		AssignedRN:          "Rachelle RN",
		Status:              care.PatientActive,
	}
}

func completedRN(d calendar.Date) care.Visit {
	return care.Visit{
		ID:         care.VisitID("rn-" + d.String()),
		PatientID:  "p1",
		Date:       d,
		Discipline: care.DisciplineRN,
		Staff:      "Rachelle RN",
		Status:     care.StatusConfirmed,
		Completed:  true,
	}
}

// =============================================================================
// RN 14-DAY RULE
// =============================================================================

func TestIsRNVisitDue_NoHistory(t *testing.T) {
	due := compliance.IsRNVisitDue(patient(), nil, today, compliance.DefaultPolicy())

	assert.True(t, due.IsDue)
	assert.False(t, due.HasLastVisit())
	assert.Contains(t, due.Reason, "No confirmed RN visit")
}

func TestIsRNVisitDue_FourteenDayBoundary(t *testing.T) {
	policy := compliance.DefaultPolicy()

	// GIVEN: Last completed RN visit exactly 14 days ago
	// THEN: Due
	due := compliance.IsRNVisitDue(patient(), []care.Visit{completedRN(today.AddDays(-14))}, today, policy)
	assert.True(t, due.IsDue)
	assert.Equal(t, 14, due.DaysSinceLast)
	assert.Equal(t, "RN visit overdue by 0 days", due.Reason)

	// GIVEN: 13 days ago, recert window far away
	// THEN: Not due, one day left
	due = compliance.IsRNVisitDue(patient(), []care.Visit{completedRN(today.AddDays(-13))}, today, policy)
	assert.False(t, due.IsDue)
	assert.Equal(t, "RN visit due in 1 days", due.Reason)
}

func TestIsRNVisitDue_IgnoresCachedLastVisit(t *testing.T) {
	// GIVEN: The cache claims a visit yesterday, the log has none
	p := patient()
	p.LastRNVisitDate = today.AddDays(-1)

	// THEN: The log wins
	due := compliance.IsRNVisitDue(p, nil, today, compliance.DefaultPolicy())
	assert.True(t, due.IsDue)
}

func TestIsRNVisitDue_OverdueButAlreadyScheduled(t *testing.T) {
	// GIVEN: 20 days since the last visit, but an RN visit is booked for
	// tomorrow
	visits := []care.Visit{
		completedRN(today.AddDays(-20)),
		{PatientID: "p1", Discipline: care.DisciplineRN, Date: today.AddDays(1), Status: care.StatusSuggested},
	}

	due := compliance.IsRNVisitDue(patient(), visits, today, compliance.DefaultPolicy())

	assert.False(t, due.IsDue)
	assert.Contains(t, due.Reason, "already scheduled")
}

func TestIsRNVisitDue_PastScheduledVisitDoesNotBlock(t *testing.T) {
	visits := []care.Visit{
		completedRN(today.AddDays(-20)),
		{PatientID: "p1", Discipline: care.DisciplineRN, Date: today.AddDays(-2), Status: care.StatusSuggested},
	}
	due := compliance.IsRNVisitDue(patient(), visits, today, compliance.DefaultPolicy())
	assert.True(t, due.IsDue)
}

func TestIsRNVisitDue_RecertOverride(t *testing.T) {
	// GIVEN: 13 days since last RN visit, benefit period ends in 5 days
	p := patient()
	p.BenefitPeriodEnd = today.AddDays(5)

	due := compliance.IsRNVisitDue(p, []care.Visit{completedRN(today.AddDays(-13))}, today, compliance.DefaultPolicy())

	// THEN: Due because of recertification, not the 14-day rule
	assert.True(t, due.IsDue)
	assert.True(t, due.Recert)
	assert.Equal(t, "Recertification due in 5 days", due.Reason)
}

// =============================================================================
// RECERT WINDOW
// =============================================================================

func TestRecertWindowFor(t *testing.T) {
	policy := compliance.DefaultPolicy()

	p := patient()
	p.BenefitPeriodEnd = calendar.Date{}
	assert.Nil(t, compliance.RecertWindowFor(p, today, policy))

	cases := []struct {
		name       string
		endOffset  int
		inWindow   bool
		overdue    bool
		untilStart int
	}{
		{"window opens today", 14, true, false, 0},
		{"day before window", 15, false, false, 1},
		{"last day", 0, true, false, -14},
		{"day after end", -1, false, true, -15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := patient()
			p.BenefitPeriodEnd = today.AddDays(tc.endOffset)

			w := compliance.RecertWindowFor(p, today, policy)
			require.NotNil(t, w)
			assert.Equal(t, tc.inWindow, w.IsInWindow)
			assert.Equal(t, tc.overdue, w.IsOverdue)
			assert.Equal(t, tc.untilStart, w.DaysUntilStart)
			assert.Equal(t, tc.endOffset, w.DaysUntilEnd)
		})
	}
}

func TestBenefitPeriodCountdown(t *testing.T) {
	policy := compliance.DefaultPolicy()
	cases := []struct {
		offset int
		want   compliance.CountdownStatus
	}{
		{30, compliance.CountdownNormal},
		{15, compliance.CountdownNormal},
		{14, compliance.CountdownWarning},
		{8, compliance.CountdownWarning},
		{7, compliance.CountdownCritical},
		{0, compliance.CountdownCritical},
		{-1, compliance.CountdownExpired},
	}
	for _, tc := range cases {
		p := patient()
		p.BenefitPeriodEnd = today.AddDays(tc.offset)
		c := compliance.BenefitPeriodCountdown(p, today, policy)
		assert.Equal(t, tc.want, c.Status, "offset %d", tc.offset)
		assert.Equal(t, tc.offset, c.DaysLeft)
	}

	p := patient()
	p.BenefitPeriodEnd = calendar.Date{}
	assert.Equal(t, compliance.CountdownNoData, compliance.BenefitPeriodCountdown(p, today, policy).Status)
}

// =============================================================================
// HOPE WINDOWS
// =============================================================================

func TestHopeTags_WindowBoundaries(t *testing.T) {
	policy := compliance.DefaultPolicy()
	huv1 := care.Tags(care.TagHOPE, care.TagHUV1)
	huv2 := care.Tags(care.TagHOPE, care.TagHUV2)

	cases := []struct {
		daysOnService int
		want          care.TagSet
	}{
		{5, 0},
		{6, huv1},
		{15, huv1},
		{16, huv2},
		{30, huv2},
		{31, 0},
	}
	for _, tc := range cases {
		p := patient()
		p.StartOfCare = today.AddDays(-tc.daysOnService)
		got := compliance.HopeTags(p, nil, today, policy)
		assert.Equal(t, tc.want, got, "day %d: got %s", tc.daysOnService, got)
	}
}

func TestHopeTags_AlreadyCompleted(t *testing.T) {
	// GIVEN: Day 8 on service, HUV1 visit completed on day 7
	p := patient()
	p.StartOfCare = today.AddDays(-8)
	done := completedRN(today.AddDays(-1))
	done.Tags = care.Tags(care.TagHOPE, care.TagHUV1)

	// THEN: Nothing left to tag
	assert.True(t, compliance.HopeTags(p, []care.Visit{done}, today, compliance.DefaultPolicy()).IsEmpty())

	// A suggested (not completed) HUV1 visit does not satisfy the window
	done.Completed = false
	done.Status = care.StatusSuggested
	assert.False(t, compliance.HopeTags(p, []care.Visit{done}, today, compliance.DefaultPolicy()).IsEmpty())
}

func TestHopeTags_NoStartOfCare(t *testing.T) {
	p := patient()
	p.StartOfCare = calendar.Date{}
	assert.True(t, compliance.HopeTags(p, nil, today, compliance.DefaultPolicy()).IsEmpty())
}

// =============================================================================
// NP
// =============================================================================

func TestNPRequired(t *testing.T) {
	policy := compliance.DefaultPolicy()
	assert.False(t, compliance.NPRequired(1, policy))
	assert.True(t, compliance.NPRequired(2, policy))

	policy.NPMinBenefitPeriod = 3
	assert.False(t, compliance.NPRequired(2, policy))
	assert.True(t, compliance.NPRequired(3, policy))
}

// =============================================================================
// POLICY
// =============================================================================

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, compliance.DefaultPolicy().Validate())

	p := compliance.DefaultPolicy()
	p.DailyCap = 0
	assert.ErrorIs(t, p.Validate(), compliance.ErrInvalidPolicy)

	p = compliance.DefaultPolicy()
	p.HUV1 = compliance.Window{From: 6, To: 20}
	assert.ErrorIs(t, p.Validate(), compliance.ErrInvalidPolicy)
}

func TestPolicy_CountsTowardLoad(t *testing.T) {
	policy := compliance.DefaultPolicy()
	confirmed := care.Visit{Status: care.StatusConfirmed}
	over := care.Visit{Status: care.StatusConfirmed, Tags: care.Tags(care.TagOverLimit)}
	suggested := care.Visit{Status: care.StatusSuggested}

	assert.True(t, policy.CountsTowardLoad(confirmed))
	assert.True(t, policy.CountsTowardLoad(over))
	assert.False(t, policy.CountsTowardLoad(suggested))

	policy.OverLimitCountsTowardLoad = false
	policy.CountSuggestedLoad = true
	assert.False(t, policy.CountsTowardLoad(over))
	assert.True(t, policy.CountsTowardLoad(suggested))
}

// =============================================================================
// ALERTS & NOTES
// =============================================================================

func TestAlerts(t *testing.T) {
	policy := compliance.DefaultPolicy()

	overdue := patient()
	overdue.ID, overdue.Name = "p1", "Overdue"

	soon := patient()
	soon.ID, soon.Name = "p2", "Soon"

	hope := patient()
	hope.ID, hope.Name = "p3", "Hope"
	hope.StartOfCare = today.AddDays(-7)

	done := patient()
	done.ID, done.Status = "p4", care.PatientComplete

	visits := []care.Visit{
		completedRN(today.AddDays(-16)),
		{PatientID: "p2", Discipline: care.DisciplineRN, Status: care.StatusConfirmed, Completed: true, Date: today.AddDays(-12)},
		{PatientID: "p4", Discipline: care.DisciplineRN, Status: care.StatusConfirmed, Completed: true, Date: today.AddDays(-40)},
	}

	alerts := compliance.Alerts([]care.Patient{overdue, soon, hope, done}, visits, nil, today, policy)

	byID := map[string]compliance.Alert{}
	for _, a := range alerts {
		byID[a.ID] = a
	}
	require.Contains(t, byID, "alert-p1-overdue")
	assert.Equal(t, 2, byID["alert-p1-overdue"].Days)
	require.Contains(t, byID, "alert-p2-due-soon")
	assert.Equal(t, "RN visit due in 2 days", byID["alert-p2-due-soon"].Message)
	require.Contains(t, byID, "alert-p3-huv1")
	assert.Equal(t, "HOPE HUV1 Assessment Required (Days 7 on service)", byID["alert-p3-huv1"].Message)
	assert.NotContains(t, byID, "alert-p4-overdue")

	// High severity sorts first
	assert.Equal(t, compliance.SeverityHigh, alerts[0].Severity)
}

func TestAlerts_StaffOverCap(t *testing.T) {
	policy := compliance.DefaultPolicy()
	staff := []care.Staff{{ID: "s1", Name: "Tej LVN", Role: care.DisciplineLVN, Active: true}}

	var visits []care.Visit
	for i := 0; i < 6; i++ {
		visits = append(visits, care.Visit{
			ID:     care.VisitID(string(rune('a' + i))),
			Staff:  "Tej LVN",
			Date:   today,
			Status: care.StatusConfirmed,
		})
	}

	alerts := compliance.Alerts(nil, visits, staff, today, policy)
	require.Len(t, alerts, 1)
	assert.Equal(t, compliance.AlertStaffOverCap, alerts[0].Kind)
	assert.Equal(t, 6, alerts[0].Days)

	// Exactly at the cap is not over it
	alerts = compliance.Alerts(nil, visits[:5], staff, today, policy)
	assert.Empty(t, alerts)
}

func TestNoteTemplate(t *testing.T) {
	assert.Equal(t, "Routine LVN Visit - no urgent concerns", compliance.NoteTemplate(care.TypeRoutine, care.DisciplineLVN))
	assert.Equal(t, "Recertification visit - verify eligibility", compliance.NoteTemplate(care.TypeRecert, care.DisciplineRN))
	assert.Equal(t, "Follow-up on reported symptoms", compliance.NoteTemplate(care.TypePRN, care.DisciplineNP))
	assert.Equal(t, " (HOPE) (HUV1)", compliance.HopeNoteSuffix(care.Tags(care.TagHUV1, care.TagHOPE)))
}
