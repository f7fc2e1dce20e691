package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// ROSTER JSON - Patients, staff and visits in one document
// =============================================================================

// RosterJSON is the import/export format for a care roster.
type RosterJSON struct {
	Staff    []StaffJSON   `json:"staff"`
	Patients []PatientJSON `json:"patients"`
	Visits   []VisitJSON   `json:"visits,omitempty"`
}

type StaffJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active *bool  `json:"active,omitempty"` // default true
	Color  string `json:"color,omitempty"`
}

type PatientJSON struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	City                string        `json:"city,omitempty"`
	StartOfCare         calendar.Date `json:"start_of_care"`
	BenefitPeriodNumber int           `json:"benefit_period_number"`
	BenefitPeriodStart  calendar.Date `json:"benefit_period_start"`
	BenefitPeriodEnd    calendar.Date `json:"benefit_period_end"`
	Frequency           string        `json:"frequency,omitempty"`
	AssignedRN          string        `json:"assigned_rn,omitempty"`
	AssignedLVN         string        `json:"assigned_lvn,omitempty"`
	AssignedNP          string        `json:"assigned_np,omitempty"`
	LastRNVisitDate     calendar.Date `json:"last_rn_visit_date"`
	PreferredVisitDays  []string      `json:"preferred_visit_days,omitempty"`
	Status              string        `json:"status,omitempty"` // default active
}

type VisitJSON struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patient_id"`
	PatientName string        `json:"patient_name,omitempty"`
	Date        calendar.Date `json:"date"`
	Discipline  string        `json:"discipline"`
	Staff       string        `json:"staff,omitempty"`
	Status      string        `json:"status,omitempty"` // default suggested
	Completed   bool          `json:"completed"`
	Type        string        `json:"type,omitempty"` // default routine
	Tags        care.TagSet   `json:"tags"`
	Notes       string        `json:"notes,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Priority    string        `json:"priority,omitempty"` // default medium
}

// Roster is a parsed, validated RosterJSON.
type Roster struct {
	Staff    []care.Staff
	Patients []care.Patient
	Visits   []care.Visit
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRoster parses and validates a roster document. The first invalid
// record aborts the parse and is named in the error.
func ParseRoster(jsonStr string) (*Roster, error) {
	var rj RosterJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse roster JSON: %w", err)
	}
	return rj.ToRoster()
}

// LoadRosterFile reads and parses a roster file.
func LoadRosterFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	return ParseRoster(string(data))
}

func (rj RosterJSON) ToRoster() (*Roster, error) {
	r := &Roster{}
	for i, sj := range rj.Staff {
		s, err := sj.ToStaff()
		if err != nil {
			return nil, fmt.Errorf("staff[%d]: %w", i, err)
		}
		r.Staff = append(r.Staff, s)
	}
	for i, pj := range rj.Patients {
		p, err := pj.ToPatient()
		if err != nil {
			return nil, fmt.Errorf("patients[%d]: %w", i, err)
		}
		r.Patients = append(r.Patients, p)
	}
	for i, vj := range rj.Visits {
		v, err := vj.ToVisit()
		if err != nil {
			return nil, fmt.Errorf("visits[%d]: %w", i, err)
		}
		r.Visits = append(r.Visits, v)
	}
	return r, nil
}

func (sj StaffJSON) ToStaff() (care.Staff, error) {
	if strings.TrimSpace(sj.Name) == "" {
		return care.Staff{}, &care.ValidationError{Field: "name", Err: care.ErrInvalidValue}
	}
	role, err := care.ParseDiscipline(sj.Role)
	if err != nil {
		return care.Staff{}, err
	}
	id := sj.ID
	if id == "" {
		id = sj.Name
	}
	active := true
	if sj.Active != nil {
		active = *sj.Active
	}
	return care.Staff{ID: care.StaffID(id), Name: sj.Name, Role: role, Active: active, Color: sj.Color}, nil
}

func (pj PatientJSON) ToPatient() (care.Patient, error) {
	status, err := parsePatientStatus(pj.Status)
	if err != nil {
		return care.Patient{}, err
	}
	var days []time.Weekday
	for _, name := range pj.PreferredVisitDays {
		wd, ok := calendar.ParseWeekday(name)
		if !ok {
			return care.Patient{}, &care.ValidationError{Field: "preferred_visit_days", Value: name, Err: care.ErrInvalidValue}
		}
		days = append(days, wd)
	}
	p := care.Patient{
		ID:                  care.PatientID(pj.ID),
		Name:                pj.Name,
		City:                pj.City,
		StartOfCare:         pj.StartOfCare,
		BenefitPeriodNumber: pj.BenefitPeriodNumber,
		BenefitPeriodStart:  pj.BenefitPeriodStart,
		BenefitPeriodEnd:    pj.BenefitPeriodEnd,
		Frequency:           pj.Frequency,
		AssignedRN:          pj.AssignedRN,
		AssignedLVN:         pj.AssignedLVN,
		AssignedNP:          pj.AssignedNP,
		LastRNVisitDate:     pj.LastRNVisitDate,
		PreferredVisitDays:  days,
		Status:              status,
	}
	if err := p.Validate(); err != nil {
		return care.Patient{}, err
	}
	return p, nil
}

func (vj VisitJSON) ToVisit() (care.Visit, error) {
	d, err := care.ParseDiscipline(vj.Discipline)
	if err != nil {
		return care.Visit{}, err
	}
	v := care.Visit{
		ID:          care.VisitID(vj.ID),
		PatientID:   care.PatientID(vj.PatientID),
		PatientName: vj.PatientName,
		Date:        vj.Date,
		Discipline:  d,
		Staff:       vj.Staff,
		Status:      care.StatusSuggested,
		Completed:   vj.Completed,
		Type:        care.TypeRoutine,
		Tags:        vj.Tags,
		Notes:       vj.Notes,
		Reason:      vj.Reason,
		Priority:    care.PriorityMedium,
	}
	if vj.Status != "" {
		if v.Status, err = parseStatus(vj.Status); err != nil {
			return care.Visit{}, err
		}
	}
	if vj.Type != "" {
		if v.Type, err = parseVisitType(vj.Type); err != nil {
			return care.Visit{}, err
		}
	}
	if vj.Priority != "" {
		if v.Priority, err = parsePriority(vj.Priority); err != nil {
			return care.Visit{}, err
		}
	}
	if v.Staff == care.UnassignedStaff {
		v.Staff = ""
	}
	if d == care.DisciplineUnassigned {
		v.Tags = v.Tags.With(care.TagUnassigned)
	}
	if err := v.Validate(); err != nil {
		return care.Visit{}, err
	}
	return v, nil
}

// =============================================================================
// EXPORT
// =============================================================================

func StaffToJSON(s care.Staff) StaffJSON {
	return StaffJSON{ID: string(s.ID), Name: s.Name, Role: string(s.Role), Active: boolPtr(s.Active), Color: s.Color}
}

func PatientToJSON(p care.Patient) PatientJSON {
	days := make([]string, 0, len(p.PreferredVisitDays))
	for _, wd := range p.PreferredVisitDays {
		days = append(days, wd.String())
	}
	return PatientJSON{
		ID:                  string(p.ID),
		Name:                p.Name,
		City:                p.City,
		StartOfCare:         p.StartOfCare,
		BenefitPeriodNumber: p.BenefitPeriodNumber,
		BenefitPeriodStart:  p.BenefitPeriodStart,
		BenefitPeriodEnd:    p.BenefitPeriodEnd,
		Frequency:           p.Frequency,
		AssignedRN:          p.AssignedRN,
		AssignedLVN:         p.AssignedLVN,
		AssignedNP:          p.AssignedNP,
		LastRNVisitDate:     p.LastRNVisitDate,
		PreferredVisitDays:  days,
		Status:              string(p.Status),
	}
}

func VisitToJSON(v care.Visit) VisitJSON {
	return VisitJSON{
		ID:          string(v.ID),
		PatientID:   string(v.PatientID),
		PatientName: v.PatientName,
		Date:        v.Date,
		Discipline:  string(v.Discipline),
		Staff:       v.Staff,
		Status:      string(v.Status),
		Completed:   v.Completed,
		Type:        string(v.Type),
		Tags:        v.Tags,
		Notes:       v.Notes,
		Reason:      v.Reason,
		Priority:    string(v.Priority),
	}
}

// MarshalRoster renders a roster document.
func MarshalRoster(r *Roster) ([]byte, error) {
	var rj RosterJSON
	for _, s := range r.Staff {
		rj.Staff = append(rj.Staff, StaffToJSON(s))
	}
	for _, p := range r.Patients {
		rj.Patients = append(rj.Patients, PatientToJSON(p))
	}
	for _, v := range r.Visits {
		rj.Visits = append(rj.Visits, VisitToJSON(v))
	}
	return json.MarshalIndent(rj, "", "  ")
}

// =============================================================================
// ENUM HELPERS
// =============================================================================

func parsePatientStatus(s string) (care.PatientStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return care.PatientActive, nil
	case "pending":
		return care.PatientPending, nil
	case "complete", "completed", "discharged":
		return care.PatientComplete, nil
	}
	return "", &care.ValidationError{Field: "status", Value: s, Err: care.ErrInvalidValue}
}

func parseStatus(s string) (care.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "suggested":
		return care.StatusSuggested, nil
	case "confirmed":
		return care.StatusConfirmed, nil
	}
	return "", &care.ValidationError{Field: "status", Value: s, Err: care.ErrInvalidValue}
}

func parseVisitType(s string) (care.VisitType, error) {
	switch t := care.VisitType(strings.ToLower(strings.TrimSpace(s))); t {
	case care.TypeRoutine, care.TypeRecert, care.TypePRN, care.TypeUnassigned:
		return t, nil
	}
	return "", &care.ValidationError{Field: "type", Value: s, Err: care.ErrInvalidValue}
}

func parsePriority(s string) (care.Priority, error) {
	switch p := care.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case care.PriorityLow, care.PriorityMedium, care.PriorityHigh, care.PriorityUrgent:
		return p, nil
	}
	return "", &care.ValidationError{Field: "priority", Value: s, Err: care.ErrInvalidValue}
}
