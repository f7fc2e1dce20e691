/*
Package schedule computes the visits due for a week.

PURPOSE:
  Given patients, staff and the visits already on the calendar, propose the
  visits each patient still needs in a target week, place them on days that
  respect staff daily caps, and merge the proposals with what exists
  without touching protected visits.

KEY CONCEPTS:
  - Engine:      Immutable configuration (policy, clock, id source)
  - Input:       Snapshot supplied by the caller; never mutated
  - Result:      Full visit list after merge, plus proposals and diagnostics
  - Diagnostic:  Why a patient got (or did not get) a visit
  - Step:        RN -> HOPE -> LVN -> NP, dispatched through a table

FLOW (ScheduleWeek):
  1. Drop unprotected visits dated inside the week from the working set
  2. For each active patient: validate, then run every Step in order
  3. Reuse the ids of stale suggestions a proposal replaces
  4. Merge proposals with the caller's original visits, dropping stale
     suggestions for any (patient, discipline) proposed again

INVARIANTS:
  - Protected visits (confirmed, completed, prn) come out unchanged
  - Running the result back through ScheduleWeek yields the same set
  - A bad patient record produces a diagnostic, never an aborted run

SEE ALSO:
  - generators.go: Per-step visit generation
  - slots.go: Day selection under the daily cap
  - merge.go: Reconciliation with existing visits
*/
package schedule

import (
	"errors"
	"fmt"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is safe for concurrent use as long as its IDGenerator is.
type Engine struct {
	policy       compliance.Policy
	clock        calendar.Clock
	ids          IDGenerator
	replaceStale bool
}

type Option func(*Engine)

func WithPolicy(p compliance.Policy) Option { return func(e *Engine) { e.policy = p } }
func WithClock(c calendar.Clock) Option     { return func(e *Engine) { e.clock = c } }
func WithIDGenerator(g IDGenerator) Option  { return func(e *Engine) { e.ids = g } }

// WithReplaceStale drops every stale in-week suggestion on merge instead of
// keeping the ones no proposal conflicts with.
func WithReplaceStale(replace bool) Option { return func(e *Engine) { e.replaceStale = replace } }

// NewEngine defaults to DefaultPolicy, the UTC system clock and UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policy: compliance.DefaultPolicy(),
		clock:  calendar.SystemClock{},
		ids:    UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() compliance.Policy { return e.policy }
func (e *Engine) Today() calendar.Date      { return e.clock.Today() }

// =============================================================================
// INPUT / RESULT
// =============================================================================

type Input struct {
	Patients []care.Patient
	Staff    []care.Staff
	Visits   []care.Visit

	// WeekStart may be any day; the week starts on the Monday on or before it.
	WeekStart calendar.Date
}

type Result struct {
	Week calendar.Week

	// Visits is the full visit list after merge, sorted by date.
	Visits []care.Visit

	// Proposed holds only the visits generated by this run.
	Proposed []care.Visit

	Diagnostics []Diagnostic
}

// InWeek returns the result visits dated inside the target week.
func (r *Result) InWeek() []care.Visit {
	var out []care.Visit
	for _, v := range r.Visits {
		if r.Week.Contains(v.Date) {
			out = append(out, v)
		}
	}
	return out
}

// Removed counts input visits in the week that the merge dropped.
func (r *Result) Removed(input []care.Visit) int {
	kept := make(map[care.VisitID]bool, len(r.Visits))
	for _, v := range r.Visits {
		kept[v.ID] = true
	}
	n := 0
	for _, v := range input {
		if r.Week.Contains(v.Date) && !kept[v.ID] {
			n++
		}
	}
	return n
}

type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeOverLimit Outcome = "over-limit"
	OutcomeUnstaffed Outcome = "unstaffed"
	OutcomeAttached  Outcome = "attached"
	OutcomePending   Outcome = "pending"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// Diagnostic explains one decision for one patient.
type Diagnostic struct {
	PatientID   care.PatientID
	PatientName string
	Step        Step
	Outcome     Outcome
	Date        calendar.Date
	Message     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.PatientID, d.Step, d.Outcome, d.Message)
}

var ErrMissingWeekStart = errors.New("week start is required")

// =============================================================================
// SCHEDULE WEEK
// =============================================================================

// ScheduleWeek proposes the visits due in the week containing in.WeekStart
// and merges them into in.Visits. The input slices are not modified.
func (e *Engine) ScheduleWeek(in Input) (*Result, error) {
	if in.WeekStart.IsZero() {
		return nil, ErrMissingWeekStart
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}

	week := calendar.WeekOf(in.WeekStart)
	run := &weekRun{
		engine:  e,
		week:    week,
		today:   e.clock.Today(),
		staff:   indexStaff(in.Staff),
		working: workingSet(in.Visits, week),
	}

	for _, p := range in.Patients {
		run.schedulePatient(p)
	}

	proposed := adoptStaleIDs(run.proposed, in.Visits, week)
	var merged []care.Visit
	if e.replaceStale {
		merged = MergeReplacingStale(proposed, in.Visits, week)
	} else {
		merged = Merge(proposed, withoutSuperseded(in.Visits, proposed, week), week)
	}
	care.SortVisits(merged)

	return &Result{
		Week:        week,
		Visits:      merged,
		Proposed:    proposed,
		Diagnostics: run.diags,
	}, nil
}

// workingSet keeps everything except unprotected visits inside the week.
func workingSet(visits []care.Visit, week calendar.Week) []care.Visit {
	out := make([]care.Visit, 0, len(visits))
	for _, v := range visits {
		if week.Contains(v.Date) && !v.IsProtected() {
			continue
		}
		out = append(out, v)
	}
	return out
}

func indexStaff(staff []care.Staff) map[string]care.Staff {
	m := make(map[string]care.Staff, len(staff))
	for _, s := range staff {
		m[s.Name] = s
	}
	return m
}

// adoptStaleIDs gives a proposal the id of the stale suggestion it replaces
// in the same slot, so a regenerated week keeps stable ids.
func adoptStaleIDs(proposed, existing []care.Visit, week calendar.Week) []care.Visit {
	stale := make(map[care.Slot][]care.VisitID)
	for _, v := range existing {
		if week.Contains(v.Date) && !v.IsProtected() {
			stale[v.Slot()] = append(stale[v.Slot()], v.ID)
		}
	}
	out := make([]care.Visit, len(proposed))
	for i, v := range proposed {
		if ids := stale[v.Slot()]; len(ids) > 0 {
			v.ID = ids[0]
			stale[v.Slot()] = ids[1:]
		}
		out[i] = v
	}
	return out
}

// withoutSuperseded drops the stale in-week suggestions for every
// (patient, discipline) this pass proposed again. The generators plan each
// discipline from scratch, so a stale visit there would be a duplicate.
func withoutSuperseded(existing, proposed []care.Visit, week calendar.Week) []care.Visit {
	type planned struct {
		patient    care.PatientID
		discipline care.Discipline
	}
	seen := make(map[planned]bool, len(proposed))
	for _, v := range proposed {
		seen[planned{v.PatientID, v.Discipline}] = true
	}
	out := make([]care.Visit, 0, len(existing))
	for _, v := range existing {
		if week.Contains(v.Date) && !v.IsProtected() && seen[planned{v.PatientID, v.Discipline}] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// =============================================================================
// WEEK RUN - Mutable state of one ScheduleWeek call
// =============================================================================

type weekRun struct {
	engine   *Engine
	week     calendar.Week
	today    calendar.Date
	staff    map[string]care.Staff
	working  []care.Visit
	proposed []care.Visit
	diags    []Diagnostic
}

func (r *weekRun) schedulePatient(p care.Patient) {
	if p.IsComplete() {
		return
	}
	if err := p.Validate(); err != nil {
		r.diags = append(r.diags, Diagnostic{
			PatientID:   p.ID,
			PatientName: p.Name,
			Step:        StepValidate,
			Outcome:     OutcomeError,
			Message:     err.Error(),
		})
		return
	}

	pass := r.newPatientPass(p)
	if !p.HasAnyAssignment() {
		generateUnassigned(pass)
	} else {
		for _, step := range stepOrder {
			generators[step](pass)
		}
	}
	r.diags = append(r.diags, pass.diags...)
}
