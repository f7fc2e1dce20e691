/*
handlers.go - HTTP API handlers for the visit scheduling engine

PURPOSE:
  Exposes the scheduling service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to service.Scheduler.

ENDPOINTS:
  Patients:
    GET    /api/patients                  List patients
    POST   /api/patients                  Create or replace a patient
    GET    /api/patients/{id}             Get one patient
    PUT    /api/patients/{id}             Update a patient
    DELETE /api/patients/{id}             Delete a patient
    GET    /api/patients/{id}/compliance  RN due, recert, HOPE, NP, countdown

  Staff:
    GET    /api/staff                     List staff
    POST   /api/staff                     Create or replace a staff member
    DELETE /api/staff/{id}                Delete a staff member

  Visits:
    GET    /api/visits                    List (?patient_id= &staff= &from= &to= &status=)
    POST   /api/visits                    Create a visit
    GET    /api/visits/{id}               Get one visit
    PUT    /api/visits/{id}               Edit a visit (not when completed)
    DELETE /api/visits/{id}               Delete a visit (not when completed)
    POST   /api/visits/{id}/confirm       Confirm, optionally reassigning staff
    POST   /api/visits/{id}/complete      Mark performed

  Scheduling:
    POST   /api/schedule/week             Regenerate one week
    GET    /api/schedule/runs             Recent regeneration runs

  Reports:
    GET    /api/workload?week=            Staff utilization for a week
    GET    /api/alerts                    Compliance alerts as of today

  Clock (simulated clock only):
    GET    /api/clock
    POST   /api/clock                     advance / set / reset

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, protected visits
  - 404: Resource not found
  - 409: Week regeneration already in progress
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo rosters
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/factory"
	"github.com/warp/visit-engine/lock"
	"github.com/warp/visit-engine/schedule"
	"github.com/warp/visit-engine/service"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.Scheduler

	// Clock is nil unless the simulated clock is enabled.
	Clock *calendar.SimulatedClock

	Logger *zap.Logger

	currentScenario string
}

func NewHandler(svc *service.Scheduler, clock *calendar.SimulatedClock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Clock: clock, Logger: logger}
}

// =============================================================================
// PATIENT HANDLERS
// =============================================================================

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.Service.Store().ListPatients(r.Context())
	if err != nil {
		h.fail(w, "Failed to list patients", err)
		return
	}
	dtos := make([]factory.PatientJSON, len(patients))
	for i, p := range patients {
		dtos[i] = factory.PatientToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Store().GetPatient(r.Context(), care.PatientID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get patient", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.PatientToJSON(p))
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req factory.PatientJSON
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	h.savePatient(w, r, req, http.StatusCreated)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var req factory.PatientJSON
	if !decode(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if _, err := h.Service.Store().GetPatient(r.Context(), care.PatientID(req.ID)); err != nil {
		h.fail(w, "Failed to update patient", err)
		return
	}
	h.savePatient(w, r, req, http.StatusOK)
}

func (h *Handler) savePatient(w http.ResponseWriter, r *http.Request, req factory.PatientJSON, status int) {
	p, err := req.ToPatient()
	if err != nil {
		h.fail(w, "Invalid patient", err)
		return
	}
	if err := h.Service.SavePatient(r.Context(), p); err != nil {
		h.fail(w, "Failed to save patient", err)
		return
	}
	saved, err := h.Service.Store().GetPatient(r.Context(), p.ID)
	if err != nil {
		h.fail(w, "Failed to reload patient", err)
		return
	}
	writeJSON(w, status, factory.PatientToJSON(saved))
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store().DeletePatient(r.Context(), care.PatientID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete patient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPatientCompliance(w http.ResponseWriter, r *http.Request) {
	pc, err := h.Service.PatientCompliance(r.Context(), care.PatientID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to evaluate compliance", err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientComplianceDTO(pc))
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Service.Store().ListStaff(r.Context())
	if err != nil {
		h.fail(w, "Failed to list staff", err)
		return
	}
	dtos := make([]factory.StaffJSON, len(staff))
	for i, s := range staff {
		dtos[i] = factory.StaffToJSON(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req factory.StaffJSON
	if !decode(w, r, &req) {
		return
	}
	st, err := req.ToStaff()
	if err != nil {
		h.fail(w, "Invalid staff member", err)
		return
	}
	if err := h.Service.SaveStaff(r.Context(), st); err != nil {
		h.fail(w, "Failed to save staff member", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.StaffToJSON(st))
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store().DeleteStaff(r.Context(), care.StaffID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete staff member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VISIT HANDLERS
// =============================================================================

func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := care.VisitFilter{
		PatientID: care.PatientID(q.Get("patient_id")),
		Staff:     q.Get("staff"),
		Status:    care.Status(q.Get("status")),
	}
	var err error
	if f.From, err = optionalDate(q.Get("from")); err != nil {
		h.fail(w, "Invalid from date", err)
		return
	}
	if f.To, err = optionalDate(q.Get("to")); err != nil {
		h.fail(w, "Invalid to date", err)
		return
	}
	visits, err := h.Service.Store().ListVisits(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to list visits", err)
		return
	}
	writeJSON(w, http.StatusOK, toVisitDTOs(visits))
}

func (h *Handler) GetVisit(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.Store().GetVisit(r.Context(), care.VisitID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get visit", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.VisitToJSON(v))
}

func (h *Handler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req factory.VisitJSON
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	h.saveVisit(w, r, req, http.StatusCreated)
}

func (h *Handler) UpdateVisit(w http.ResponseWriter, r *http.Request) {
	var req factory.VisitJSON
	if !decode(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if _, err := h.Service.Store().GetVisit(r.Context(), care.VisitID(req.ID)); err != nil {
		h.fail(w, "Failed to update visit", err)
		return
	}
	h.saveVisit(w, r, req, http.StatusOK)
}

func (h *Handler) saveVisit(w http.ResponseWriter, r *http.Request, req factory.VisitJSON, status int) {
	v, err := req.ToVisit()
	if err != nil {
		h.fail(w, "Invalid visit", err)
		return
	}
	if v.PatientName == "" {
		if p, err := h.Service.Store().GetPatient(r.Context(), v.PatientID); err == nil {
			v.PatientName = p.Name
		}
	}
	if err := h.Service.SaveVisit(r.Context(), v); err != nil {
		h.fail(w, "Failed to save visit", err)
		return
	}
	writeJSON(w, status, factory.VisitToJSON(v))
}

func (h *Handler) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteVisit(r.Context(), care.VisitID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, "Failed to delete visit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ConfirmVisit(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	v, err := h.Service.ConfirmVisit(r.Context(), care.VisitID(chi.URLParam(r, "id")), req.Staff)
	if err != nil {
		h.fail(w, "Failed to confirm visit", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.VisitToJSON(v))
}

func (h *Handler) CompleteVisit(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.CompleteVisit(r.Context(), care.VisitID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to complete visit", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.VisitToJSON(v))
}

// =============================================================================
// SCHEDULING HANDLERS
// =============================================================================

// RegenerateWeek recomputes the suggestions for one week.
func (h *Handler) RegenerateWeek(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	weekStart, err := optionalDate(req.WeekStart)
	if err != nil {
		h.fail(w, "Invalid week_start", err)
		return
	}
	if weekStart.IsZero() {
		weekStart = h.Service.Today()
	}
	regen, err := h.Service.RegenerateWeek(r.Context(), weekStart, service.TriggerAPI, req.DryRun)
	if err != nil {
		h.fail(w, "Failed to regenerate week", err)
		return
	}
	writeJSON(w, http.StatusOK, toRegenerateResponse(regen))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Service.Store().ListRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	week, err := optionalDate(r.URL.Query().Get("week"))
	if err != nil {
		h.fail(w, "Invalid week", err)
		return
	}
	if week.IsZero() {
		week = h.Service.Today()
	}
	loads, err := h.Service.Workload(r.Context(), week)
	if err != nil {
		h.fail(w, "Failed to compute workload", err)
		return
	}
	dtos := make([]StaffLoadDTO, len(loads))
	for i, sl := range loads {
		dtos[i] = toStaffLoadDTO(sl)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Service.Alerts(r.Context())
	if err != nil {
		h.fail(w, "Failed to compute alerts", err)
		return
	}
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CLOCK HANDLERS
// =============================================================================

func (h *Handler) GetClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clockDTO())
}

// UpdateClock moves the simulated day. Regeneration and alerts read the
// moved day on their next call.
func (h *Handler) UpdateClock(w http.ResponseWriter, r *http.Request) {
	if h.Clock == nil {
		writeError(w, http.StatusNotFound, "Simulated clock is disabled", nil)
		return
	}
	var req ClockRequest
	if !decode(w, r, &req) {
		return
	}
	switch req.Action {
	case "advance":
		h.Clock.Advance(req.Days)
	case "set":
		d, err := calendar.ParseDate(req.Date)
		if err == nil && d.IsZero() {
			err = &care.ValidationError{Field: "date", Err: care.ErrInvalidValue}
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		h.Clock.Set(d)
	case "reset":
		h.Clock.Reset()
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown clock action %q", req.Action), nil)
		return
	}
	h.Logger.Info("simulated clock moved", zap.String("action", req.Action), zap.String("today", h.Clock.Today().String()))
	writeJSON(w, http.StatusOK, h.clockDTO())
}

func (h *Handler) clockDTO() ClockDTO {
	dto := ClockDTO{Today: h.Service.Today(), Simulated: h.Clock != nil}
	if h.Clock != nil {
		dto.Offset = h.Clock.Offset()
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case care.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, lock.ErrWeekLocked):
		return http.StatusConflict
	case care.IsClientError(err), errors.Is(err, schedule.ErrMissingWeekStart):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// optionalDate parses s, treating "" as the zero Date.
func optionalDate(s string) (calendar.Date, error) {
	if s == "" {
		return calendar.Date{}, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.Date{}, &care.ValidationError{Field: "date", Value: s, Err: care.ErrInvalidValue}
	}
	return d, nil
}
