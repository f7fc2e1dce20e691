/*
scenarios.go - Demo rosters for testing and demonstrations

PURPOSE:

	Provides pre-built rosters that populate the store with realistic data
	for demos. Dates are relative to the engine's today, so a scenario looks
	the same whichever day it is loaded.

AVAILABLE SCENARIOS:

	weekly-board:   Six clinicians, a mixed census (new admission, recert
	                window, HOPE window, NP period, preferred days, PRN)
	over-capacity:  One RN carrying more patients than the daily cap allows

HOW SCENARIOS WORK:
 1. Build a factory.RosterJSON relative to today
 2. Convert with ToRoster (same validation as a roster file)
 3. Reset the store and import the roster
 4. Regenerate the current week

USAGE VIA API:

	POST /api/demo/load
	{"scenario_id": "weekly-board"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Demo routes
  - factory/roster.go: Roster JSON definitions
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/factory"
	"github.com/warp/visit-engine/service"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-board",
		Name:        "Weekly Board",
		Description: "Six clinicians and a mixed census covering every scheduling rule",
	},
	{
		ID:          "over-capacity",
		Name:        "Over Capacity",
		Description: "One RN with more due visits than the daily cap allows",
	},
}

// ScenarioRoster builds the named roster relative to today.
func ScenarioRoster(id string, today calendar.Date) (*factory.Roster, error) {
	var rj factory.RosterJSON
	switch id {
	case "weekly-board":
		rj = weeklyBoard(today)
	case "over-capacity":
		rj = overCapacity(today)
	default:
		return nil, &care.ValidationError{Field: "scenario_id", Value: id, Err: care.ErrInvalidValue}
	}
	return rj.ToRoster()
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, map[string]any{"scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
}

// LoadScenario resets the store, imports the roster and regenerates the
// current week.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	today := h.Service.Today()

	roster, err := ScenarioRoster(req.ScenarioID, today)
	if err != nil {
		h.fail(w, "Unknown scenario", err)
		return
	}
	if err := h.Service.ImportRoster(ctx, roster, true); err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}
	regen, err := h.Service.RegenerateWeek(ctx, today, service.TriggerAPI, false)
	if err != nil {
		h.fail(w, "Failed to schedule scenario week", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scenario": req.ScenarioID,
		"schedule": toRegenerateResponse(regen),
	})
}

// =============================================================================
// ROSTERS
// =============================================================================

func demoStaff() []factory.StaffJSON {
	inactive := false
	return []factory.StaffJSON{
		{Name: "Rachelle RN", Role: "RN", Color: "#2563eb"},
		{Name: "Jermaine RN", Role: "RN", Color: "#0891b2"},
		{Name: "George RN", Role: "RN", Color: "#64748b", Active: &inactive},
		{Name: "Tej LVN", Role: "LVN", Color: "#16a34a"},
		{Name: "Tiffani LVN", Role: "LVN", Color: "#65a30d"},
		{Name: "Dr. Wilson NP", Role: "NP", Color: "#9333ea"},
	}
}

// period returns a benefit period that started daysIn days ago.
func period(today calendar.Date, daysIn, length int) (calendar.Date, calendar.Date) {
	start := today.AddDays(-daysIn)
	return start, start.AddDays(length - 1)
}

func completedRN(id, patientID, staff string, date calendar.Date) factory.VisitJSON {
	return factory.VisitJSON{
		ID:         id,
		PatientID:  patientID,
		Date:       date,
		Discipline: "RN",
		Staff:      staff,
		Status:     "confirmed",
		Completed:  true,
	}
}

func weeklyBoard(today calendar.Date) factory.RosterJSON {
	week := calendar.WeekOf(today)

	p1Start, p1End := period(today, 3, 90)
	p2Start, p2End := period(today, 80, 90)
	p3Start, p3End := period(today, 10, 90)
	p4Start, p4End := period(today, 20, 60)
	p5Start, p5End := period(today, 45, 90)
	p6Start, p6End := period(today, 30, 90)

	return factory.RosterJSON{
		Staff: demoStaff(),
		Patients: []factory.PatientJSON{
			{
				// Admitted three days ago, no RN visit yet.
				ID: "pt-ramirez", Name: "Elena Ramirez", City: "Houston",
				StartOfCare: p1Start, BenefitPeriodNumber: 1,
				BenefitPeriodStart: p1Start, BenefitPeriodEnd: p1End,
				Frequency: "2x/week", AssignedRN: "Rachelle RN", AssignedLVN: "Tej LVN",
			},
			{
				// Ten days from the end of the period: recert window.
				ID: "pt-okafor", Name: "Samuel Okafor", City: "Pasadena",
				StartOfCare: p2Start, BenefitPeriodNumber: 1,
				BenefitPeriodStart: p2Start, BenefitPeriodEnd: p2End,
				Frequency: "1x/week", AssignedRN: "Jermaine RN",
			},
			{
				// Day 10 on service: first HOPE window.
				ID: "pt-nguyen", Name: "Linh Nguyen", City: "Houston",
				StartOfCare: p3Start, BenefitPeriodNumber: 1,
				BenefitPeriodStart: p3Start, BenefitPeriodEnd: p3End,
				Frequency: "3x/week", AssignedRN: "Rachelle RN", AssignedLVN: "Tiffani LVN",
				PreferredVisitDays: []string{"Monday", "Wednesday", "Friday"},
			},
			{
				// Third benefit period: NP face-to-face.
				ID: "pt-walker", Name: "Dorothy Walker", City: "Bellaire",
				StartOfCare: today.AddDays(-200), BenefitPeriodNumber: 3,
				BenefitPeriodStart: p4Start, BenefitPeriodEnd: p4End,
				Frequency: "2x/week", AssignedRN: "Jermaine RN", AssignedLVN: "Tej LVN",
				AssignedNP:         "Dr. Wilson NP",
				PreferredVisitDays: []string{"Tuesday", "Thursday"},
			},
			{
				// Assigned to an inactive RN: suggestions stay unstaffed.
				ID: "pt-chen", Name: "Howard Chen", City: "Sugar Land",
				StartOfCare: p5Start, BenefitPeriodNumber: 1,
				BenefitPeriodStart: p5Start, BenefitPeriodEnd: p5End,
				Frequency: "1x/week", AssignedRN: "George RN",
			},
			{
				// No clinicians assigned yet.
				ID: "pt-brooks", Name: "Ruth Brooks", City: "Katy",
				StartOfCare: today.AddDays(-120), BenefitPeriodNumber: 2,
				BenefitPeriodStart: p6Start, BenefitPeriodEnd: p6End,
				Frequency: "1x/week",
			},
			{
				ID: "pt-ellis", Name: "Marion Ellis", City: "Houston",
				StartOfCare: today.AddDays(-150), BenefitPeriodNumber: 2,
				BenefitPeriodStart: today.AddDays(-60), BenefitPeriodEnd: today.AddDays(29),
				Frequency: "1x/week", AssignedRN: "Rachelle RN",
				Status: "discharged",
			},
		},
		Visits: []factory.VisitJSON{
			completedRN("hist-okafor", "pt-okafor", "Jermaine RN", today.AddDays(-9)),
			completedRN("hist-nguyen", "pt-nguyen", "Rachelle RN", today.AddDays(-7)),
			completedRN("hist-walker", "pt-walker", "Jermaine RN", today.AddDays(-15)),
			completedRN("hist-chen", "pt-chen", "George RN", today.AddDays(-16)),
			{
				// Locked-in LVN visit the regeneration must keep.
				ID: "conf-walker-lvn", PatientID: "pt-walker", Date: week.Start.AddDays(1),
				Discipline: "LVN", Staff: "Tej LVN", Status: "confirmed",
			},
			{
				ID: "prn-ramirez", PatientID: "pt-ramirez", Date: week.Start.AddDays(2),
				Discipline: "LVN", Staff: "Tej LVN", Status: "confirmed",
				Type: "prn", Tags: care.Tags(care.TagPRN), Priority: "urgent",
				Reason: "Family called about breakthrough pain",
			},
		},
	}
}

func overCapacity(today calendar.Date) factory.RosterJSON {
	rj := factory.RosterJSON{
		Staff: []factory.StaffJSON{{Name: "Rachelle RN", Role: "RN", Color: "#2563eb"}},
	}
	for i := 1; i <= 30; i++ {
		start, end := period(today, 40+i, 90)
		rj.Patients = append(rj.Patients, factory.PatientJSON{
			ID:                  fmt.Sprintf("pt-%02d", i),
			Name:                fmt.Sprintf("Patient %02d", i),
			StartOfCare:         start,
			BenefitPeriodNumber: 1,
			BenefitPeriodStart:  start,
			BenefitPeriodEnd:    end,
			Frequency:           "1x/week",
			AssignedRN:          "Rachelle RN",
		})
	}
	return rj
}
