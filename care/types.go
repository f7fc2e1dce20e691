/*
Package care defines the hospice records the scheduling engine works on.

PURPOSE:
  Patients, staff and visits as supplied by the patient/staff/visit store,
  plus the small amount of behavior that belongs to the records themselves:
  validation, protection rules, lifecycle transitions (confirm, complete)
  and the derived "last RN visit" date.

KEY CONCEPTS IN THIS FILE (types.go):
  - Patient:    A hospice episode with its discipline assignments
  - Staff:      A clinician; Name is the key visits refer to
  - Visit:      One scheduled or completed home visit
  - Discipline: RN | LVN | NP | UNASSIGNED
  - Status:     suggested (engine proposal) | confirmed (locked in)

PROTECTION:
  A visit is protected when it is confirmed, completed, or tagged prn.
  The engine never modifies, replaces or removes a protected visit.

SEE ALSO:
  - tags.go: TagSet
  - lifecycle.go: Confirm / Complete / LastRNVisit
  - store.go: Persistence interfaces implemented by collaborators
*/
package care

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/visit-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PatientID string
type StaffID string
type VisitID string

// =============================================================================
// ENUMS
// =============================================================================

// Discipline is the clinical role a visit requires.
type Discipline string

const (
	DisciplineRN         Discipline = "RN"
	DisciplineLVN        Discipline = "LVN"
	DisciplineNP         Discipline = "NP"
	DisciplineUnassigned Discipline = "UNASSIGNED"
)

// ParseDiscipline accepts any case; older records spell the placeholder
// "Unassigned".
func ParseDiscipline(s string) (Discipline, error) {
	switch d := Discipline(strings.ToUpper(strings.TrimSpace(s))); d {
	case DisciplineRN, DisciplineLVN, DisciplineNP, DisciplineUnassigned:
		return d, nil
	}
	return "", fmt.Errorf("%w: discipline %q", ErrInvalidValue, s)
}

// Status is the approval state of a visit.
type Status string

const (
	StatusSuggested Status = "suggested"
	StatusConfirmed Status = "confirmed"
)

// Priority orders visits for the people working the schedule.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// VisitType drives the note template and the display grouping.
type VisitType string

const (
	TypeRoutine    VisitType = "routine"
	TypeRecert     VisitType = "recert"
	TypePRN        VisitType = "prn"
	TypeUnassigned VisitType = "unassigned"
)

// PatientStatus tracks the episode. Complete patients are not scheduled.
type PatientStatus string

const (
	PatientPending  PatientStatus = "pending"
	PatientActive   PatientStatus = "active"
	PatientComplete PatientStatus = "complete"
)

// =============================================================================
// PATIENT
// =============================================================================

type Patient struct {
	ID   PatientID
	Name string
	City string

	// StartOfCare is the first day of the hospice episode.
	StartOfCare calendar.Date

	// Current benefit period. Zero dates mean "not recorded".
	BenefitPeriodNumber int
	BenefitPeriodStart  calendar.Date
	BenefitPeriodEnd    calendar.Date

	// Frequency is the visit target, e.g. "3x/week".
	Frequency string

	// Staff.Name of the assigned clinician per discipline; "" = none.
	AssignedRN  string
	AssignedLVN string
	AssignedNP  string

	// LastRNVisitDate is a cache of LastRNVisit over the visit log, kept
	// for display. The engine always derives the value itself.
	LastRNVisitDate calendar.Date

	PreferredVisitDays []time.Weekday
	Status             PatientStatus
}

// Assigned returns the staff name assigned for a discipline.
func (p Patient) Assigned(d Discipline) string {
	switch d {
	case DisciplineRN:
		return p.AssignedRN
	case DisciplineLVN:
		return p.AssignedLVN
	case DisciplineNP:
		return p.AssignedNP
	}
	return ""
}

// HasAnyAssignment reports whether any discipline has a clinician.
func (p Patient) HasAnyAssignment() bool {
	return p.AssignedRN != "" || p.AssignedLVN != "" || p.AssignedNP != ""
}

// IsComplete reports whether the episode has ended.
func (p Patient) IsComplete() bool { return p.Status == PatientComplete }

// Prefers reports whether the patient listed d's weekday as preferred.
func (p Patient) Prefers(d calendar.Date) bool {
	wd := d.Weekday()
	for _, pref := range p.PreferredVisitDays {
		if pref == wd {
			return true
		}
	}
	return false
}

// WeeklyVisits parses Frequency.
func (p Patient) WeeklyVisits() (int, error) {
	return ParseFrequency(p.Frequency)
}

// Validate checks the record invariants the engine relies on.
func (p Patient) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Err: ErrInvalidValue}
	}
	if _, err := p.WeeklyVisits(); err != nil {
		return &ValidationError{Field: "frequency", Value: p.Frequency, Err: err}
	}
	if p.BenefitPeriodNumber < 0 {
		return &ValidationError{Field: "benefit_period_number", Value: fmt.Sprint(p.BenefitPeriodNumber), Err: ErrInvalidValue}
	}
	if !p.BenefitPeriodStart.IsZero() && !p.BenefitPeriodEnd.IsZero() &&
		p.BenefitPeriodEnd.Before(p.BenefitPeriodStart) {
		return &ValidationError{
			Field: "benefit_period_end",
			Value: p.BenefitPeriodEnd.String(),
			Err:   ErrInvalidBenefitPeriod,
		}
	}
	return nil
}

// =============================================================================
// STAFF
// =============================================================================

type Staff struct {
	ID     StaffID
	Name   string
	Role   Discipline
	Active bool
	Color  string
}

// =============================================================================
// VISIT
// =============================================================================

type Visit struct {
	ID          VisitID
	PatientID   PatientID
	PatientName string
	Date        calendar.Date
	Discipline  Discipline

	// Staff is the clinician's name; "" means the visit still needs one.
	Staff string

	Status    Status
	Completed bool
	Type      VisitType
	Tags      TagSet
	Notes     string
	Reason    string
	Priority  Priority
}

// IsProtected reports whether the engine must leave the visit alone.
func (v Visit) IsProtected() bool {
	return v.Status == StatusConfirmed || v.Completed || v.Tags.Has(TagPRN)
}

// IsStaffed reports whether a clinician is attached.
func (v Visit) IsStaffed() bool {
	return v.Staff != "" && v.Staff != UnassignedStaff
}

// Slot identifies the (patient, day, discipline) cell a visit occupies.
// At most one effective visit per slot survives a merge.
type Slot struct {
	PatientID  PatientID
	Date       string
	Discipline Discipline
}

func (v Visit) Slot() Slot {
	return Slot{PatientID: v.PatientID, Date: v.Date.String(), Discipline: v.Discipline}
}

// UnassignedStaff is the placeholder name older records use instead of "".
const UnassignedStaff = "Unassigned"

// Validate checks the tag and status invariants.
func (v Visit) Validate() error {
	if v.PatientID == "" {
		return &ValidationError{Field: "patient_id", Err: ErrInvalidValue}
	}
	if v.Date.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidValue}
	}
	if v.Tags.Has(TagPRN) && v.Status != StatusConfirmed {
		return &ValidationError{Field: "status", Value: string(v.Status), Err: ErrPRNMustBeConfirmed}
	}
	if v.Tags.Has(TagUnassigned) != (v.Discipline == DisciplineUnassigned) {
		return &ValidationError{Field: "tags", Value: v.Tags.String(), Err: ErrUnassignedDiscipline}
	}
	return nil
}

// SortVisits orders visits by date, then patient, discipline and id.
func SortVisits(visits []Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		a, b := visits[i], visits[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.PatientID != b.PatientID {
			return a.PatientID < b.PatientID
		}
		if a.Discipline != b.Discipline {
			return a.Discipline < b.Discipline
		}
		return a.ID < b.ID
	})
}
