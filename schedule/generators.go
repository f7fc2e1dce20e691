package schedule

import (
	"fmt"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// STEPS - One generator per discipline, run in a fixed order
// =============================================================================

type Step string

const (
	StepValidate   Step = "validate"
	StepRN         Step = "RN"
	StepHOPE       Step = "HOPE"
	StepLVN        Step = "LVN"
	StepNP         Step = "NP"
	StepUnassigned Step = "UNASSIGNED"
)

type generatorFunc func(*patientPass)

var stepOrder = []Step{StepRN, StepHOPE, StepLVN, StepNP}

var generators = map[Step]generatorFunc{
	StepRN:   generateRN,
	StepHOPE: generateHOPE,
	StepLVN:  generateLVN,
	StepNP:   generateNP,
}

// =============================================================================
// PATIENT PASS - State shared by the generators for one patient
// =============================================================================

type patientPass struct {
	run       *weekRun
	patient   care.Patient
	frequency int
	start     int // index of this patient's first proposal in run.proposed
	picker    *slotPicker
	diags     []Diagnostic
}

func (r *weekRun) newPatientPass(p care.Patient) *patientPass {
	freq, _ := p.WeeklyVisits()
	return &patientPass{
		run:       r,
		patient:   p,
		frequency: freq,
		start:     len(r.proposed),
		picker: &slotPicker{
			policy:    r.engine.policy,
			patient:   p,
			frequency: freq,
			weekdays:  r.week.Weekdays(),
			existing:  r.working,
			proposed:  &r.proposed,
		},
	}
}

func (pp *patientPass) policy() compliance.Policy { return pp.run.engine.policy }

// planned returns this patient's proposals so far. Elements may be
// modified in place.
func (pp *patientPass) planned() []care.Visit { return pp.run.proposed[pp.start:] }

func (pp *patientPass) propose(step Step, v care.Visit) {
	pp.run.proposed = append(pp.run.proposed, v)
	pp.note(step, OutcomeScheduled, v.Date, "%s", v.Reason)
}

func (pp *patientPass) note(step Step, outcome Outcome, date calendar.Date, format string, args ...any) {
	pp.diags = append(pp.diags, Diagnostic{
		PatientID:   pp.patient.ID,
		PatientName: pp.patient.Name,
		Step:        step,
		Outcome:     outcome,
		Date:        date,
		Message:     fmt.Sprintf(format, args...),
	})
}

// protectedInWeek returns the patient's protected visits in the week.
func (pp *patientPass) protectedInWeek() []care.Visit {
	var out []care.Visit
	for _, v := range pp.run.working {
		if v.PatientID == pp.patient.ID && pp.run.week.Contains(v.Date) {
			out = append(out, v)
		}
	}
	return out
}

func (pp *patientPass) onCalendar(d care.Discipline) (care.Visit, bool) {
	for _, v := range pp.protectedInWeek() {
		if v.Discipline == d {
			return v, true
		}
	}
	for _, v := range pp.planned() {
		if v.Discipline == d {
			return v, true
		}
	}
	return care.Visit{}, false
}

// resolveStaff returns the clinician to book, or "" with a reason when the
// assignment cannot take new visits. An empty roster skips the check.
func (pp *patientPass) resolveStaff(name string, d care.Discipline) (string, string) {
	if name == "" {
		return "", fmt.Sprintf("no %s assigned", d)
	}
	if len(pp.run.staff) == 0 {
		return name, ""
	}
	s, ok := pp.run.staff[name]
	if !ok {
		return "", fmt.Sprintf("assigned %s %q is not on the staff roster", d, name)
	}
	if !s.Active {
		return "", fmt.Sprintf("assigned %s %q is inactive", d, name)
	}
	return name, ""
}

func (pp *patientPass) newVisit(d care.Discipline, date calendar.Date, staff string) care.Visit {
	return care.Visit{
		ID:          pp.run.engine.ids.NewVisitID(),
		PatientID:   pp.patient.ID,
		PatientName: pp.patient.Name,
		Date:        date,
		Discipline:  d,
		Staff:       staff,
		Status:      care.StatusSuggested,
	}
}

// place picks a day for a visit of discipline d and fills in the staff,
// the date and the over-limit tag. ok is false when the patient has no open
// weekday left.
func (pp *patientPass) place(step Step, v *care.Visit, assigned string) bool {
	staff, why := pp.resolveStaff(assigned, v.Discipline)
	date, where := pp.picker.pick(staff)
	switch where {
	case noOpenDay:
		return false
	case placedOverLimit:
		v.Tags = v.Tags.With(care.TagOverLimit)
		pp.note(step, OutcomeOverLimit, date, "%s already at %d visits every open weekday", staff, pp.policy().DailyCap)
	}
	v.Date = date
	v.Staff = staff
	if staff == "" {
		pp.note(step, OutcomeUnstaffed, date, "%s", why)
	}
	return true
}

// =============================================================================
// RN
// =============================================================================

func generateRN(pp *patientPass) {
	p := pp.patient
	if p.AssignedRN == "" {
		return
	}
	if v, ok := pp.onCalendar(care.DisciplineRN); ok {
		pp.note(StepRN, OutcomeSkipped, v.Date, "RN visit already on calendar for %s", v.Date)
		return
	}

	policy := pp.policy()
	due := compliance.IsRNVisitDue(p, pp.run.working, pp.run.today, policy)
	if !due.IsDue {
		pp.note(StepRN, OutcomeSkipped, calendar.Date{}, "%s", due.Reason)
		return
	}

	visitType, tags := care.TypeRoutine, care.Tags(care.TagRoutine)
	if w := compliance.RecertWindowFor(p, pp.run.today, policy); w != nil && w.IsInWindow {
		visitType, tags = care.TypeRecert, care.Tags(care.TagRecert)
	}

	v := pp.newVisit(care.DisciplineRN, calendar.Date{}, "")
	v.Type = visitType
	v.Tags = tags
	v.Priority = care.PriorityHigh
	v.Notes = compliance.NoteTemplate(visitType, care.DisciplineRN)
	v.Reason = due.Reason

	if !pp.place(StepRN, &v, p.AssignedRN) {
		// Visible on the first day of the week for manual placement.
		v.Date = pp.run.week.Start
		v.Staff = ""
		pp.note(StepRN, OutcomeUnstaffed, v.Date, "no open weekday for patient; placed on %s for manual scheduling", v.Date)
	}
	pp.propose(StepRN, v)
}

// =============================================================================
// HOPE
// =============================================================================

func generateHOPE(pp *patientPass) {
	p := pp.patient
	tags := compliance.HopeTags(p, pp.run.working, pp.run.today, pp.policy())
	if tags.IsEmpty() {
		return
	}

	planned := pp.planned()
	for i := range planned {
		if planned[i].Discipline != care.DisciplineRN {
			continue
		}
		planned[i].Tags = planned[i].Tags.Union(tags)
		planned[i].Notes += compliance.HopeNoteSuffix(tags)
		pp.note(StepHOPE, OutcomeAttached, planned[i].Date, "%s attached to RN visit", tags)
		return
	}

	for _, v := range pp.protectedInWeek() {
		if v.Discipline == care.DisciplineRN {
			pp.note(StepHOPE, OutcomePending, v.Date, "%s due; RN visit on %s is locked and was not changed", tags, v.Date)
			return
		}
	}

	days, _ := compliance.DaysOnService(p, pp.run.today)
	v := pp.newVisit(care.DisciplineRN, calendar.Date{}, "")
	v.Type = care.TypeRoutine
	v.Tags = tags
	v.Priority = care.PriorityHigh
	v.Notes = "HOPE assessment visit" + compliance.HopeNoteSuffix(tags)
	v.Reason = fmt.Sprintf("HOPE window open (day %d on service)", days)

	if !pp.place(StepHOPE, &v, p.AssignedRN) {
		pp.note(StepHOPE, OutcomeSkipped, calendar.Date{}, "%s due but patient has no open weekday", tags)
		return
	}
	pp.propose(StepHOPE, v)
}

// =============================================================================
// LVN
// =============================================================================

func generateLVN(pp *patientPass) {
	p := pp.patient
	if p.AssignedLVN == "" {
		return
	}

	have := len(pp.planned())
	for _, v := range pp.protectedInWeek() {
		if !v.Tags.Has(care.TagPRN) {
			have++
		}
	}
	remaining := pp.frequency - have
	if remaining <= 0 {
		pp.note(StepLVN, OutcomeSkipped, calendar.Date{}, "frequency %s met with %d visits", care.FormatFrequency(pp.frequency), have)
		return
	}

	for i := 0; i < remaining; i++ {
		v := pp.newVisit(care.DisciplineLVN, calendar.Date{}, "")
		v.Type = care.TypeRoutine
		v.Tags = care.Tags(care.TagRoutine)
		v.Priority = care.PriorityMedium
		v.Notes = compliance.NoteTemplate(care.TypeRoutine, care.DisciplineLVN)
		v.Reason = fmt.Sprintf("Frequency %s: visit %d of %d", care.FormatFrequency(pp.frequency), have+i+1, pp.frequency)

		if !pp.place(StepLVN, &v, p.AssignedLVN) {
			pp.note(StepLVN, OutcomeSkipped, calendar.Date{}, "%d LVN visits short: no open weekday", remaining-i)
			return
		}
		pp.propose(StepLVN, v)
	}
}

// =============================================================================
// NP
// =============================================================================

func generateNP(pp *patientPass) {
	p := pp.patient
	if p.AssignedNP == "" {
		return
	}
	if !compliance.NPRequired(p.BenefitPeriodNumber, pp.policy()) {
		pp.note(StepNP, OutcomeSkipped, calendar.Date{}, "benefit period %d does not require an NP visit", p.BenefitPeriodNumber)
		return
	}
	if v, ok := pp.onCalendar(care.DisciplineNP); ok {
		pp.note(StepNP, OutcomeSkipped, v.Date, "NP visit already on calendar for %s", v.Date)
		return
	}

	v := pp.newVisit(care.DisciplineNP, calendar.Date{}, "")
	v.Type = care.TypeRoutine
	v.Tags = care.Tags(care.TagRoutine)
	v.Priority = care.PriorityMedium
	v.Notes = compliance.NoteTemplate(care.TypeRoutine, care.DisciplineNP)
	v.Reason = fmt.Sprintf("Benefit period %d requires NP visit", p.BenefitPeriodNumber)

	if !pp.place(StepNP, &v, p.AssignedNP) {
		pp.note(StepNP, OutcomeSkipped, calendar.Date{}, "NP visit due but patient has no open weekday")
		return
	}
	pp.propose(StepNP, v)
}

// =============================================================================
// UNASSIGNED
// =============================================================================

// generateUnassigned flags a patient with no care team at all.
func generateUnassigned(pp *patientPass) {
	if _, ok := pp.onCalendar(care.DisciplineUnassigned); ok {
		return
	}
	v := pp.newVisit(care.DisciplineUnassigned, pp.run.week.Start, "")
	v.Type = care.TypeUnassigned
	v.Tags = care.Tags(care.TagUnassigned)
	v.Priority = care.PriorityUrgent
	v.Notes = compliance.NoteTemplate(care.TypeUnassigned, care.DisciplineUnassigned)
	v.Reason = "Patient needs team assignment"
	pp.note(StepUnassigned, OutcomeUnstaffed, v.Date, "no clinician assigned for any discipline")
	pp.propose(StepUnassigned, v)
}
