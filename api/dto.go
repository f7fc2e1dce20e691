/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Patient, staff and
  visit records reuse the factory JSON types so the roster file format and
  the API agree field for field.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Records:
    factory.PatientJSON, factory.StaffJSON, factory.VisitJSON
    PatientComplianceDTO

  Scheduling:
    RegenerateRequest, RegenerateResponse, RunDTO, DiagnosticDTO

  Reports:
    StaffLoadDTO, DayLoadDTO, AlertDTO

  Clock / demo:
    ClockDTO, ClockRequest, ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/roster.go: Record JSON types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
	"github.com/warp/visit-engine/factory"
	"github.com/warp/visit-engine/schedule"
	"github.com/warp/visit-engine/service"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type ConfirmRequest struct {
	Staff string `json:"staff,omitempty"`
}

// RegenerateRequest asks for one week to be regenerated. An empty
// week_start means the current week.
type RegenerateRequest struct {
	WeekStart string `json:"week_start"`
	DryRun    bool   `json:"dry_run"`
}

// ClockRequest moves the simulated clock. Action is "advance" (by Days),
// "set" (to Date) or "reset".
type ClockRequest struct {
	Action string `json:"action"`
	Days   int    `json:"days,omitempty"`
	Date   string `json:"date,omitempty"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RunDTO struct {
	ID          string        `json:"id"`
	WeekStart   calendar.Date `json:"week_start"`
	Trigger     string        `json:"trigger"`
	StartedAt   string        `json:"started_at"`
	FinishedAt  string        `json:"finished_at"`
	Proposed    int           `json:"proposed"`
	Removed     int           `json:"removed"`
	Diagnostics int           `json:"diagnostics"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
}

type DiagnosticDTO struct {
	PatientID   string        `json:"patient_id"`
	PatientName string        `json:"patient_name,omitempty"`
	Step        string        `json:"step"`
	Outcome     string        `json:"outcome"`
	Date        calendar.Date `json:"date"`
	Message     string        `json:"message"`
}

type RegenerateResponse struct {
	Run         RunDTO              `json:"run"`
	Proposed    []factory.VisitJSON `json:"proposed"`
	Diagnostics []DiagnosticDTO     `json:"diagnostics"`
}

type DayLoadDTO struct {
	Date        calendar.Date   `json:"date"`
	Confirmed   int             `json:"confirmed"`
	Suggested   int             `json:"suggested"`
	Load        int             `json:"load"`
	Utilization decimal.Decimal `json:"utilization"`
	OverCap     bool            `json:"over_cap"`
}

type StaffLoadDTO struct {
	Staff              string          `json:"staff"`
	Role               string          `json:"role"`
	Days               []DayLoadDTO    `json:"days"`
	TotalConfirmed     int             `json:"total_confirmed"`
	TotalSuggested     int             `json:"total_suggested"`
	OverCapDays        int             `json:"over_cap_days"`
	AverageUtilization decimal.Decimal `json:"average_utilization"`
}

type AlertDTO struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Severity    string        `json:"severity"`
	PatientID   string        `json:"patient_id,omitempty"`
	PatientName string        `json:"patient_name,omitempty"`
	Staff       string        `json:"staff,omitempty"`
	Date        calendar.Date `json:"date"`
	Message     string        `json:"message"`
	Days        int           `json:"days"`
}

type PatientComplianceDTO struct {
	Patient factory.PatientJSON `json:"patient"`

	RNDue           bool          `json:"rn_due"`
	RNReason        string        `json:"rn_reason"`
	LastRNVisit     calendar.Date `json:"last_rn_visit"`
	DaysSinceLastRN *int          `json:"days_since_last_rn,omitempty"`

	InRecertWindow bool          `json:"in_recert_window"`
	RecertOverdue  bool          `json:"recert_overdue"`
	RecertStart    calendar.Date `json:"recert_start"`

	HopeTags   care.TagSet `json:"hope_tags"`
	NPRequired bool        `json:"np_required"`

	CountdownDays   int    `json:"countdown_days"`
	CountdownStatus string `json:"countdown_status"`
}

type ClockDTO struct {
	Today     calendar.Date `json:"today"`
	Simulated bool          `json:"simulated"`
	Offset    int           `json:"offset"`
}

// ScenarioDTO describes a demo roster.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(r care.ScheduleRun) RunDTO {
	return RunDTO{
		ID:          r.ID,
		WeekStart:   r.WeekStart,
		Trigger:     r.Trigger,
		StartedAt:   r.StartedAt.Format(time.RFC3339),
		FinishedAt:  r.FinishedAt.Format(time.RFC3339),
		Proposed:    r.Proposed,
		Removed:     r.Removed,
		Diagnostics: r.Diagnostics,
		Status:      string(r.Status),
		Error:       r.Error,
	}
}

func toVisitDTOs(visits []care.Visit) []factory.VisitJSON {
	out := make([]factory.VisitJSON, len(visits))
	for i, v := range visits {
		out[i] = factory.VisitToJSON(v)
	}
	return out
}

func toRegenerateResponse(r *service.Regeneration) RegenerateResponse {
	resp := RegenerateResponse{
		Run:         toRunDTO(r.Run),
		Proposed:    toVisitDTOs(r.Result.Proposed),
		Diagnostics: make([]DiagnosticDTO, len(r.Result.Diagnostics)),
	}
	for i, d := range r.Result.Diagnostics {
		resp.Diagnostics[i] = DiagnosticDTO{
			PatientID:   string(d.PatientID),
			PatientName: d.PatientName,
			Step:        string(d.Step),
			Outcome:     string(d.Outcome),
			Date:        d.Date,
			Message:     d.Message,
		}
	}
	return resp
}

func toStaffLoadDTO(sl schedule.StaffLoad) StaffLoadDTO {
	dto := StaffLoadDTO{
		Staff:              sl.Staff.Name,
		Role:               string(sl.Staff.Role),
		Days:               make([]DayLoadDTO, len(sl.Days)),
		TotalConfirmed:     sl.TotalConfirmed,
		TotalSuggested:     sl.TotalSuggested,
		OverCapDays:        sl.OverCapDays,
		AverageUtilization: sl.AverageUtilization,
	}
	for i, d := range sl.Days {
		dto.Days[i] = DayLoadDTO{
			Date:        d.Date,
			Confirmed:   d.Confirmed,
			Suggested:   d.Suggested,
			Load:        d.Load,
			Utilization: d.Utilization,
			OverCap:     d.OverCap,
		}
	}
	return dto
}

func toAlertDTO(a compliance.Alert) AlertDTO {
	return AlertDTO{
		ID:          a.ID,
		Kind:        string(a.Kind),
		Severity:    string(a.Severity),
		PatientID:   string(a.PatientID),
		PatientName: a.PatientName,
		Staff:       a.Staff,
		Date:        a.Date,
		Message:     a.Message,
		Days:        a.Days,
	}
}

func toPatientComplianceDTO(pc *service.PatientCompliance) PatientComplianceDTO {
	dto := PatientComplianceDTO{
		Patient:         factory.PatientToJSON(pc.Patient),
		RNDue:           pc.RN.IsDue,
		RNReason:        pc.RN.Reason,
		LastRNVisit:     pc.RN.LastVisit,
		HopeTags:        pc.Hope,
		NPRequired:      pc.NPRequired,
		CountdownDays:   pc.Countdown.DaysLeft,
		CountdownStatus: string(pc.Countdown.Status),
	}
	if pc.RN.HasLastVisit() {
		days := pc.RN.DaysSinceLast
		dto.DaysSinceLastRN = &days
	}
	if pc.Recert != nil {
		dto.InRecertWindow = pc.Recert.IsInWindow
		dto.RecertOverdue = pc.Recert.IsOverdue
		dto.RecertStart = pc.Recert.Start
	}
	return dto
}
