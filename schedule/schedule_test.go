package schedule_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
	"github.com/warp/visit-engine/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// Monday.
var today = calendar.NewDate(2026, time.October, 19)

func day(offset int) calendar.Date { return today.AddDays(offset) }

func newEngine(opts ...schedule.Option) *schedule.Engine {
	base := []schedule.Option{
		schedule.WithClock(calendar.FixedClock(today)),
		schedule.WithIDGenerator(schedule.NewSequenceGenerator("v")),
	}
	return schedule.NewEngine(append(base, opts...)...)
}

func roster() []care.Staff {
	return []care.Staff{
		{ID: "s1", Name: "Rachelle RN", Role: care.DisciplineRN, Active: true},
		{ID: "s2", Name: "Tej LVN", Role: care.DisciplineLVN, Active: true},
		{ID: "s3", Name: "George RN", Role: care.DisciplineRN, Active: false},
		{ID: "s4", Name: "Dr. Wilson NP", Role: care.DisciplineNP, Active: true},
	}
}

// patient is 60 days into care, outside both HOPE windows and the recert
// window, with only an RN assigned.
func patient(id care.PatientID) care.Patient {
	return care.Patient{
		ID:                  id,
		Name:                "Patient " + string(id),
		StartOfCare:         today.AddDays(-60),
		BenefitPeriodNumber: 1,
		BenefitPeriodStart:  today.AddDays(-60),
		BenefitPeriodEnd:    today.AddDays(30),
		Frequency:           "1x/week",
		AssignedRN:          "Rachelle RN",
		Status:              care.PatientActive,
	}
}

func confirmed(id care.VisitID, pid care.PatientID, date calendar.Date, d care.Discipline, staff string) care.Visit {
	return care.Visit{
		ID:         id,
		PatientID:  pid,
		Date:       date,
		Discipline: d,
		Staff:      staff,
		Status:     care.StatusConfirmed,
		Type:       care.TypeRoutine,
	}
}

func proposedFor(res *schedule.Result, pid care.PatientID, d care.Discipline) []care.Visit {
	var out []care.Visit
	for _, v := range res.Proposed {
		if v.PatientID == pid && v.Discipline == d {
			out = append(out, v)
		}
	}
	return out
}

func diagsFor(res *schedule.Result, pid care.PatientID, step schedule.Step) []schedule.Diagnostic {
	var out []schedule.Diagnostic
	for _, d := range res.Diagnostics {
		if d.PatientID == pid && d.Step == step {
			out = append(out, d)
		}
	}
	return out
}

func findVisit(visits []care.Visit, id care.VisitID) (care.Visit, bool) {
	for _, v := range visits {
		if v.ID == id {
			return v, true
		}
	}
	return care.Visit{}, false
}

// fillDay books n confirmed visits for staff on date with other patients.
func fillDay(staff string, date calendar.Date, n int) []care.Visit {
	var out []care.Visit
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("fill-%s-%s-%d", staff, date, i)
		out = append(out, confirmed(care.VisitID(id), care.PatientID("other-"+id), date, care.DisciplineRN, staff))
	}
	return out
}

// =============================================================================
// ENGINE - Argument checks
// =============================================================================

func TestScheduleWeek_RequiresWeekStart(t *testing.T) {
	_, err := newEngine().ScheduleWeek(schedule.Input{})
	assert.ErrorIs(t, err, schedule.ErrMissingWeekStart)
}

func TestScheduleWeek_RejectsInvalidPolicy(t *testing.T) {
	policy := compliance.DefaultPolicy()
	policy.DailyCap = 0

	_, err := newEngine(schedule.WithPolicy(policy)).ScheduleWeek(schedule.Input{WeekStart: today})
	assert.ErrorIs(t, err, compliance.ErrInvalidPolicy)
}

func TestScheduleWeek_NormalizesWeekStartToMonday(t *testing.T) {
	res, err := newEngine().ScheduleWeek(schedule.Input{WeekStart: day(2)})
	require.NoError(t, err)
	assert.Equal(t, today, res.Week.Start)
}

// =============================================================================
// RN
// =============================================================================

func TestScheduleWeek_NewAdmissionGetsRNVisit(t *testing.T) {
	// GIVEN: a patient with no visit history
	in := schedule.Input{Patients: []care.Patient{patient("p1")}, Staff: roster(), WeekStart: today}

	// WHEN: the week is scheduled
	res, err := newEngine().ScheduleWeek(in)
	require.NoError(t, err)

	// THEN: one suggested routine RN visit lands on the emptiest, earliest day
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	v := rn[0]
	assert.Equal(t, today, v.Date)
	assert.Equal(t, "Rachelle RN", v.Staff)
	assert.Equal(t, care.StatusSuggested, v.Status)
	assert.Equal(t, care.TypeRoutine, v.Type)
	assert.True(t, v.Tags.Has(care.TagRoutine))
	assert.Equal(t, care.PriorityHigh, v.Priority)
	assert.Contains(t, v.Reason, "No confirmed RN visit")
	assert.Len(t, res.Visits, 1)
}

func TestScheduleWeek_RecentRNVisitNotDue(t *testing.T) {
	// GIVEN: an RN visit completed three days ago
	done := confirmed("done", "p1", day(-3), care.DisciplineRN, "Rachelle RN")
	done.Completed = true
	in := schedule.Input{Patients: []care.Patient{patient("p1")}, Visits: []care.Visit{done}, WeekStart: today}

	res, err := newEngine().ScheduleWeek(in)
	require.NoError(t, err)

	// THEN: nothing is proposed and the skip is explained
	assert.Empty(t, res.Proposed)
	diags := diagsFor(res, "p1", schedule.StepRN)
	require.Len(t, diags, 1)
	assert.Equal(t, schedule.OutcomeSkipped, diags[0].Outcome)
	assert.Contains(t, diags[0].Message, "RN visit due in 11 days")
}

func TestScheduleWeek_RecertOverridesRecentVisit(t *testing.T) {
	// GIVEN: a recent RN visit but a benefit period ending in 10 days
	p := patient("p1")
	p.BenefitPeriodEnd = day(10)
	done := confirmed("done", "p1", day(-3), care.DisciplineRN, "Rachelle RN")
	done.Completed = true

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, Visits: []care.Visit{done}, WeekStart: today})
	require.NoError(t, err)

	// THEN: a recertification visit is proposed
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.Equal(t, care.TypeRecert, rn[0].Type)
	assert.True(t, rn[0].Tags.Has(care.TagRecert))
	assert.Contains(t, rn[0].Reason, "Recertification due in 10 days")
	assert.Equal(t, compliance.NoteTemplate(care.TypeRecert, care.DisciplineRN), rn[0].Notes)
}

func TestScheduleWeek_ConfirmedRNInWeekIsNotDuplicated(t *testing.T) {
	locked := confirmed("locked", "p1", day(2), care.DisciplineRN, "Rachelle RN")

	res, err := newEngine().ScheduleWeek(schedule.Input{
		Patients:  []care.Patient{patient("p1")},
		Visits:    []care.Visit{locked},
		WeekStart: today,
	})
	require.NoError(t, err)

	assert.Empty(t, proposedFor(res, "p1", care.DisciplineRN))
	got, ok := findVisit(res.Visits, "locked")
	require.True(t, ok)
	assert.Equal(t, locked, got)
}

func TestScheduleWeek_InactiveStaffLeavesVisitUnstaffed(t *testing.T) {
	p := patient("p1")
	p.AssignedRN = "George RN"

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, Staff: roster(), WeekStart: today})
	require.NoError(t, err)

	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.Empty(t, rn[0].Staff)

	var unstaffed []schedule.Diagnostic
	for _, d := range diagsFor(res, "p1", schedule.StepRN) {
		if d.Outcome == schedule.OutcomeUnstaffed {
			unstaffed = append(unstaffed, d)
		}
	}
	require.Len(t, unstaffed, 1)
	assert.Contains(t, unstaffed[0].Message, "inactive")
}

// =============================================================================
// DAILY CAP
// =============================================================================

func TestScheduleWeek_SkipsFullDay(t *testing.T) {
	// GIVEN: Rachelle is fully booked on Monday only
	visits := fillDay("Rachelle RN", today, 5)

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{patient("p1")}, Visits: visits, WeekStart: today})
	require.NoError(t, err)

	// THEN: the visit goes to Tuesday without the over-limit tag
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.Equal(t, day(1), rn[0].Date)
	assert.False(t, rn[0].Tags.Has(care.TagOverLimit))
}

func TestScheduleWeek_EveryDayFullMarksOverLimit(t *testing.T) {
	// GIVEN: Rachelle is at the cap every weekday
	var visits []care.Visit
	for _, d := range calendar.WeekOf(today).Weekdays() {
		visits = append(visits, fillDay("Rachelle RN", d, 5)...)
	}

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{patient("p1")}, Visits: visits, WeekStart: today})
	require.NoError(t, err)

	// THEN: the visit is still proposed, tagged, and explained
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.Equal(t, today, rn[0].Date)
	assert.Equal(t, "Rachelle RN", rn[0].Staff)
	assert.True(t, rn[0].Tags.Has(care.TagOverLimit))
	assert.True(t, rn[0].Tags.Has(care.TagRoutine))

	var over int
	for _, d := range diagsFor(res, "p1", schedule.StepRN) {
		if d.Outcome == schedule.OutcomeOverLimit {
			over++
		}
	}
	assert.Equal(t, 1, over)
}

// =============================================================================
// HOPE
// =============================================================================

func TestScheduleWeek_HOPEAttachesToPlannedRNVisit(t *testing.T) {
	// GIVEN: a patient eight days into care with no RN visit yet
	p := patient("p1")
	p.StartOfCare = day(-8)

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, WeekStart: today})
	require.NoError(t, err)

	// THEN: the single RN visit carries the HUV1 tags
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.True(t, rn[0].Tags.Has(care.TagHOPE))
	assert.True(t, rn[0].Tags.Has(care.TagHUV1))
	assert.True(t, rn[0].Tags.Has(care.TagRoutine))
	assert.Contains(t, rn[0].Notes, "(HOPE) (HUV1)")

	diags := diagsFor(res, "p1", schedule.StepHOPE)
	require.Len(t, diags, 1)
	assert.Equal(t, schedule.OutcomeAttached, diags[0].Outcome)
}

func TestScheduleWeek_HOPEPendingOnLockedRNVisit(t *testing.T) {
	// GIVEN: a HUV2-window patient whose RN visit this week is confirmed
	p := patient("p1")
	p.StartOfCare = day(-20)
	locked := confirmed("locked", "p1", day(1), care.DisciplineRN, "Rachelle RN")

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, Visits: []care.Visit{locked}, WeekStart: today})
	require.NoError(t, err)

	// THEN: the confirmed visit is untouched and the assessment is pending
	assert.Empty(t, res.Proposed)
	got, _ := findVisit(res.Visits, "locked")
	assert.Equal(t, locked, got)

	diags := diagsFor(res, "p1", schedule.StepHOPE)
	require.Len(t, diags, 1)
	assert.Equal(t, schedule.OutcomePending, diags[0].Outcome)
	assert.Contains(t, diags[0].Message, "HUV2")
}

func TestScheduleWeek_HOPEStandaloneVisit(t *testing.T) {
	// GIVEN: RN recently completed (not due) but HUV1 is open
	p := patient("p1")
	p.StartOfCare = day(-10)
	done := confirmed("done", "p1", day(-2), care.DisciplineRN, "Rachelle RN")
	done.Completed = true

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, Visits: []care.Visit{done}, WeekStart: today})
	require.NoError(t, err)

	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.True(t, rn[0].Tags.Has(care.TagHUV1))
	assert.Contains(t, rn[0].Notes, "HOPE assessment visit")
	assert.Contains(t, rn[0].Reason, "day 10")
}

// =============================================================================
// LVN / NP / UNASSIGNED
// =============================================================================

func TestScheduleWeek_LVNFillsRemainingFrequency(t *testing.T) {
	// GIVEN: 3x/week with a confirmed LVN visit already on Tuesday
	p := patient("p1")
	p.Frequency = "3x/week"
	p.AssignedLVN = "Tej LVN"
	locked := confirmed("locked", "p1", day(1), care.DisciplineLVN, "Tej LVN")

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, Staff: roster(), Visits: []care.Visit{locked}, WeekStart: today})
	require.NoError(t, err)

	// THEN: RN (Mon) + locked LVN (Tue) + one new LVN (Wed) meet the frequency
	rn := proposedFor(res, "p1", care.DisciplineRN)
	require.Len(t, rn, 1)
	assert.Equal(t, today, rn[0].Date)

	lvn := proposedFor(res, "p1", care.DisciplineLVN)
	require.Len(t, lvn, 1)
	assert.Equal(t, day(2), lvn[0].Date)
	assert.Equal(t, "Tej LVN", lvn[0].Staff)
	assert.Equal(t, "Frequency 3x/week: visit 3 of 3", lvn[0].Reason)
}

func TestScheduleWeek_TwiceWeeklySpreadsVisits(t *testing.T) {
	p := patient("p1")
	p.AssignedRN = ""
	p.AssignedLVN = "Tej LVN"
	p.Frequency = "2x/week"

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, WeekStart: today})
	require.NoError(t, err)

	lvn := proposedFor(res, "p1", care.DisciplineLVN)
	require.Len(t, lvn, 2)
	assert.Equal(t, today, lvn[0].Date)
	assert.Equal(t, day(4), lvn[1].Date)
}

func TestScheduleWeek_PreferredDaysFirst(t *testing.T) {
	p := patient("p1")
	p.AssignedRN = ""
	p.AssignedLVN = "Tej LVN"
	p.Frequency = "2x/week"
	p.PreferredVisitDays = []time.Weekday{time.Tuesday, time.Thursday}

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, WeekStart: today})
	require.NoError(t, err)

	lvn := proposedFor(res, "p1", care.DisciplineLVN)
	require.Len(t, lvn, 2)
	assert.Equal(t, day(1), lvn[0].Date)
	assert.Equal(t, day(3), lvn[1].Date)
}

func TestScheduleWeek_NPOnlyFromSecondBenefitPeriod(t *testing.T) {
	first := patient("p1")
	first.AssignedNP = "Dr. Wilson NP"
	third := patient("p3")
	third.AssignedNP = "Dr. Wilson NP"
	third.BenefitPeriodNumber = 3

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{first, third}, Staff: roster(), WeekStart: today})
	require.NoError(t, err)

	assert.Empty(t, proposedFor(res, "p1", care.DisciplineNP))
	np := proposedFor(res, "p3", care.DisciplineNP)
	require.Len(t, np, 1)
	assert.Equal(t, "Benefit period 3 requires NP visit", np[0].Reason)
	assert.NotEqual(t, proposedFor(res, "p3", care.DisciplineRN)[0].Date, np[0].Date)
}

func TestScheduleWeek_UnassignedPatientFlagged(t *testing.T) {
	p := patient("p1")
	p.AssignedRN = ""

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, WeekStart: today})
	require.NoError(t, err)

	require.Len(t, res.Proposed, 1)
	v := res.Proposed[0]
	assert.Equal(t, care.DisciplineUnassigned, v.Discipline)
	assert.Equal(t, today, v.Date)
	assert.Equal(t, care.PriorityUrgent, v.Priority)
	assert.True(t, v.Tags.Has(care.TagUnassigned))
	assert.NoError(t, v.Validate())
}

func TestScheduleWeek_CompletePatientIgnored(t *testing.T) {
	p := patient("p1")
	p.Status = care.PatientComplete

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{p}, WeekStart: today})
	require.NoError(t, err)
	assert.Empty(t, res.Proposed)
	assert.Empty(t, res.Diagnostics)
}

func TestScheduleWeek_InvalidPatientDoesNotAbortRun(t *testing.T) {
	// GIVEN: one patient with an unparseable frequency
	bad := patient("bad")
	bad.Frequency = "whenever"

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{bad, patient("p1")}, WeekStart: today})
	require.NoError(t, err)

	// THEN: the bad record is reported and the other patient is scheduled
	diags := diagsFor(res, "bad", schedule.StepValidate)
	require.Len(t, diags, 1)
	assert.Equal(t, schedule.OutcomeError, diags[0].Outcome)
	assert.Contains(t, diags[0].Message, "frequency")
	assert.Empty(t, proposedFor(res, "bad", care.DisciplineRN))
	assert.Len(t, proposedFor(res, "p1", care.DisciplineRN), 1)
}

// =============================================================================
// PROTECTION / IDEMPOTENCE
// =============================================================================

func mixedInput() schedule.Input {
	lvn := patient("p2")
	lvn.Frequency = "3x/week"
	lvn.AssignedLVN = "Tej LVN"

	np := patient("p3")
	np.BenefitPeriodNumber = 2
	np.AssignedNP = "Dr. Wilson NP"

	hope := patient("p4")
	hope.StartOfCare = day(-7)

	none := patient("p5")
	none.AssignedRN = ""

	prn := confirmed("prn", "p2", day(3), care.DisciplineLVN, "Tej LVN")
	prn.Type = care.TypePRN
	prn.Tags = care.Tags(care.TagPRN)

	done := confirmed("done", "p3", day(-20), care.DisciplineRN, "Rachelle RN")
	done.Completed = true

	return schedule.Input{
		Patients:  []care.Patient{patient("p1"), lvn, np, hope, none},
		Staff:     roster(),
		Visits:    append([]care.Visit{prn, done}, fillDay("Rachelle RN", today, 4)...),
		WeekStart: today,
	}
}

func TestScheduleWeek_Idempotent(t *testing.T) {
	engine := newEngine()
	in := mixedInput()

	first, err := engine.ScheduleWeek(in)
	require.NoError(t, err)
	require.NotEmpty(t, first.Proposed)

	in.Visits = first.Visits
	second, err := engine.ScheduleWeek(in)
	require.NoError(t, err)

	assert.Equal(t, first.Visits, second.Visits)
	assert.Zero(t, second.Removed(in.Visits))
}

func TestScheduleWeek_ProtectedVisitsSurviveUnchanged(t *testing.T) {
	in := mixedInput()

	res, err := newEngine().ScheduleWeek(in)
	require.NoError(t, err)

	for _, v := range in.Visits {
		got, ok := findVisit(res.Visits, v.ID)
		require.True(t, ok, "visit %s dropped", v.ID)
		assert.Equal(t, v, got)
	}
}

func TestScheduleWeek_PRNDoesNotCountTowardFrequency(t *testing.T) {
	res, err := newEngine().ScheduleWeek(mixedInput())
	require.NoError(t, err)

	// p2 is 3x/week: RN + two LVN, the PRN visit does not count
	assert.Len(t, proposedFor(res, "p2", care.DisciplineRN), 1)
	lvn := proposedFor(res, "p2", care.DisciplineLVN)
	require.Len(t, lvn, 2)
	for _, v := range lvn {
		assert.NotEqual(t, day(3), v.Date, "PRN day reused")
	}
}

func TestScheduleWeek_DoesNotMutateInput(t *testing.T) {
	in := mixedInput()
	before := append([]care.Visit(nil), in.Visits...)
	patients := append([]care.Patient(nil), in.Patients...)

	_, err := newEngine().ScheduleWeek(in)
	require.NoError(t, err)

	assert.Equal(t, before, in.Visits)
	assert.Equal(t, patients, in.Patients)
}

func TestScheduleWeek_OneVisitPerSlot(t *testing.T) {
	res, err := newEngine().ScheduleWeek(mixedInput())
	require.NoError(t, err)

	seen := make(map[care.Slot]care.VisitID)
	for _, v := range res.InWeek() {
		prev, dup := seen[v.Slot()]
		assert.False(t, dup, "%s and %s share slot %+v", prev, v.ID, v.Slot())
		seen[v.Slot()] = v.ID
	}
}

// =============================================================================
// MERGE
// =============================================================================

func TestScheduleWeek_AdoptsStaleID(t *testing.T) {
	// GIVEN: an old suggestion sitting in the slot the engine will pick
	stale := care.Visit{ID: "old-mon", PatientID: "p1", Date: today, Discipline: care.DisciplineRN, Status: care.StatusSuggested}

	res, err := newEngine().ScheduleWeek(schedule.Input{Patients: []care.Patient{patient("p1")}, Visits: []care.Visit{stale}, WeekStart: today})
	require.NoError(t, err)

	// THEN: the proposal replaces it and keeps its id
	require.Len(t, res.Visits, 1)
	assert.Equal(t, care.VisitID("old-mon"), res.Visits[0].ID)
	assert.Equal(t, "Rachelle RN", res.Visits[0].Staff)
	assert.Zero(t, res.Removed([]care.Visit{stale}))
}

func TestScheduleWeek_NonConflictingStaleSuggestion(t *testing.T) {
	// GIVEN: an LVN suggestion for a patient who no longer has an LVN
	stale := care.Visit{ID: "old-wed", PatientID: "p1", Date: day(2), Discipline: care.DisciplineLVN, Status: care.StatusSuggested}
	in := schedule.Input{Patients: []care.Patient{patient("p1")}, Visits: []care.Visit{stale}, WeekStart: today}

	t.Run("kept by default", func(t *testing.T) {
		res, err := newEngine().ScheduleWeek(in)
		require.NoError(t, err)
		_, ok := findVisit(res.Visits, "old-wed")
		assert.True(t, ok)
		assert.Len(t, res.Visits, 2)
	})

	t.Run("dropped when replacing stale", func(t *testing.T) {
		res, err := newEngine(schedule.WithReplaceStale(true)).ScheduleWeek(in)
		require.NoError(t, err)
		_, ok := findVisit(res.Visits, "old-wed")
		assert.False(t, ok)
		assert.Len(t, res.Visits, 1)
		assert.Equal(t, 1, res.Removed(in.Visits))
	})
}

func TestScheduleWeek_StaleSuggestionSupersededByNewDay(t *testing.T) {
	// GIVEN: last pass put the RN visit on Monday, and since then the RN
	// was booked with another patient on Monday
	stale := care.Visit{ID: "old-mon", PatientID: "p1", Date: today, Discipline: care.DisciplineRN,
		Staff: "Rachelle RN", Status: care.StatusSuggested}
	booked := confirmed("booked", "p2", today, care.DisciplineRN, "Rachelle RN")
	in := schedule.Input{
		Patients:  []care.Patient{patient("p1")},
		Staff:     roster(),
		Visits:    []care.Visit{stale, booked},
		WeekStart: today,
	}

	// WHEN: the week is run again with the default merge
	res, err := newEngine().ScheduleWeek(in)
	require.NoError(t, err)

	// THEN: p1 has one RN visit, on the emptier Tuesday
	var rn []care.Visit
	for _, v := range res.Visits {
		if v.PatientID == "p1" && v.Discipline == care.DisciplineRN {
			rn = append(rn, v)
		}
	}
	require.Len(t, rn, 1)
	assert.True(t, rn[0].Date.Equal(day(1)))
	_, ok := findVisit(res.Visits, "old-mon")
	assert.False(t, ok)
	assert.Equal(t, 1, res.Removed(in.Visits))
}

func TestMerge(t *testing.T) {
	week := calendar.WeekOf(today)
	outside := care.Visit{ID: "next-week", PatientID: "p1", Date: day(8), Discipline: care.DisciplineRN, Status: care.StatusSuggested}
	locked := confirmed("locked", "p1", day(1), care.DisciplineLVN, "Tej LVN")
	conflicting := care.Visit{ID: "stale-1", PatientID: "p1", Date: today, Discipline: care.DisciplineRN, Status: care.StatusSuggested}
	free := care.Visit{ID: "stale-2", PatientID: "p1", Date: day(3), Discipline: care.DisciplineLVN, Status: care.StatusSuggested}
	fresh := care.Visit{ID: "new", PatientID: "p1", Date: today, Discipline: care.DisciplineRN, Status: care.StatusSuggested}

	existing := []care.Visit{outside, locked, conflicting, free}

	merged := schedule.Merge([]care.Visit{fresh}, existing, week)
	assert.Equal(t, []care.Visit{locked, free, fresh, outside}, merged)

	replaced := schedule.MergeReplacingStale([]care.Visit{fresh}, existing, week)
	assert.Equal(t, []care.Visit{locked, fresh, outside}, replaced)

	assert.Len(t, existing, 4)
}

// =============================================================================
// SLOTS / WORKLOAD
// =============================================================================

func TestBestDayForDistribution(t *testing.T) {
	policy := compliance.DefaultPolicy()
	dates := calendar.WeekOf(today).Dates()

	t.Run("earliest on ties", func(t *testing.T) {
		d, ok := schedule.BestDayForDistribution("Rachelle RN", dates, nil, policy)
		require.True(t, ok)
		assert.Equal(t, today, d)
	})

	t.Run("least loaded", func(t *testing.T) {
		var visits []care.Visit
		visits = append(visits, fillDay("Rachelle RN", day(0), 2)...)
		visits = append(visits, fillDay("Rachelle RN", day(1), 1)...)
		visits = append(visits, fillDay("Rachelle RN", day(3), 1)...)
		visits = append(visits, fillDay("Rachelle RN", day(4), 3)...)
		visits = append(visits, fillDay("Rachelle RN", day(2), 1)...)

		d, ok := schedule.BestDayForDistribution("Rachelle RN", dates, visits, policy)
		require.True(t, ok)
		assert.Equal(t, day(1), d)
	})

	t.Run("every weekday full", func(t *testing.T) {
		var visits []care.Visit
		for _, d := range calendar.Weekdays(dates) {
			visits = append(visits, fillDay("Rachelle RN", d, 5)...)
		}
		_, ok := schedule.BestDayForDistribution("Rachelle RN", dates, visits, policy)
		assert.False(t, ok)
	})
}

func TestDailyCount_SuggestedVisitsIgnoredByDefault(t *testing.T) {
	policy := compliance.DefaultPolicy()
	visits := fillDay("Rachelle RN", today, 2)
	visits = append(visits, care.Visit{ID: "s", PatientID: "x", Date: today, Staff: "Rachelle RN", Status: care.StatusSuggested})

	assert.Equal(t, 2, schedule.DailyCount("Rachelle RN", today, visits, policy))

	policy.CountSuggestedLoad = true
	assert.Equal(t, 3, schedule.DailyCount("Rachelle RN", today, visits, policy))
}

func TestStaffExceedingDailyLimit(t *testing.T) {
	policy := compliance.DefaultPolicy()
	visits := append(fillDay("Rachelle RN", today, 6), fillDay("Tej LVN", today, 5)...)

	assert.Equal(t, []string{"Rachelle RN"}, schedule.StaffExceedingDailyLimit(today, visits, roster(), policy))
	assert.True(t, schedule.HasReachedDailyLimit("Tej LVN", today, visits, policy))
}

func TestWorkload(t *testing.T) {
	policy := compliance.DefaultPolicy()
	visits := fillDay("Rachelle RN", today, 3)
	visits = append(visits, care.Visit{ID: "s", PatientID: "x", Date: today, Staff: "Rachelle RN", Status: care.StatusSuggested})
	visits = append(visits, fillDay("Rachelle RN", day(1), 6)...)

	loads := schedule.Workload(roster(), visits, calendar.WeekOf(today), policy)

	// George is inactive
	require.Len(t, loads, 3)
	rachelle := loads[0]
	assert.Equal(t, "Rachelle RN", rachelle.Staff.Name)
	require.Len(t, rachelle.Days, 5)

	mon := rachelle.Days[0]
	assert.Equal(t, 3, mon.Confirmed)
	assert.Equal(t, 1, mon.Suggested)
	assert.Equal(t, 3, mon.Load)
	assert.True(t, mon.Utilization.Equal(decimal.RequireFromString("0.6")), mon.Utilization.String())
	assert.False(t, mon.OverCap)

	tue := rachelle.Days[1]
	assert.True(t, tue.OverCap)
	assert.True(t, tue.Utilization.Equal(decimal.RequireFromString("1.2")))

	assert.Equal(t, 9, rachelle.TotalConfirmed)
	assert.Equal(t, 1, rachelle.TotalSuggested)
	assert.Equal(t, 1, rachelle.OverCapDays)
	assert.True(t, rachelle.AverageUtilization.Equal(decimal.RequireFromString("0.36")), rachelle.AverageUtilization.String())
}
