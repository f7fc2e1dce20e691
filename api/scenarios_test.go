/*
scenarios_test.go - Tests for the demo rosters

PURPOSE:
	Each scenario must load through the same validation as a roster file
	and produce a scheduled week that shows what it claims to show.
*/
package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/factory"
)

func TestScenarioRoster_AllValid(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			roster, err := ScenarioRoster(s.ID, testToday)
			require.NoError(t, err)
			assert.NotEmpty(t, roster.Staff)
			assert.NotEmpty(t, roster.Patients)
		})
	}

	_, err := ScenarioRoster("nope", testToday)
	assert.True(t, care.IsClientError(err))
}

func TestScenario_WeeklyBoard(t *testing.T) {
	// GIVEN the weekly board scenario
	ts := setupTestServer(t)

	// WHEN it is loaded
	rec := ts.do(t, http.MethodPost, "/api/demo/load", LoadScenarioRequest{ScenarioID: "weekly-board"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN the week holds the confirmed and PRN visits plus new suggestions
	ctx := context.Background()
	store := ts.handler.Service.Store()
	keep, err := store.GetVisit(ctx, "conf-walker-lvn")
	require.NoError(t, err)
	assert.Equal(t, care.StatusConfirmed, keep.Status)
	_, err = store.GetVisit(ctx, "prn-ramirez")
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Greater(t, runs[0].Proposed, 0)

	visits, err := store.ListVisits(ctx, care.VisitFilter{PatientID: "pt-ramirez", Status: care.StatusSuggested})
	require.NoError(t, err)
	assert.NotEmpty(t, visits, "new admission gets suggestions")

	visits, err = store.ListVisits(ctx, care.VisitFilter{PatientID: "pt-ellis"})
	require.NoError(t, err)
	assert.Empty(t, visits, "discharged patients are not scheduled")

	// AND the current scenario is reported
	rec = ts.do(t, http.MethodGet, "/api/demo/current", nil)
	current := decodeBody[map[string]ScenarioDTO](t, rec)
	assert.Equal(t, "weekly-board", current["scenario"].ID)
}

func TestScenario_OverCapacity(t *testing.T) {
	// GIVEN one RN with thirty patients due this week
	ts := setupTestServer(t)

	// WHEN the scenario is loaded
	rec := ts.do(t, http.MethodPost, "/api/demo/load", LoadScenarioRequest{ScenarioID: "over-capacity"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN every weekday is at or over the daily cap
	loads, err := ts.handler.Service.Workload(context.Background(), testToday)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	total := 0
	for _, d := range loads[0].Days {
		assert.GreaterOrEqual(t, d.Suggested, 5)
		total += d.Suggested
	}
	assert.Equal(t, 30, total)
}

func TestScenario_UnknownID(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/demo/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_ExportRoundTrip(t *testing.T) {
	roster, err := ScenarioRoster("weekly-board", testToday)
	require.NoError(t, err)

	data, err := factory.MarshalRoster(roster)
	require.NoError(t, err)
	again, err := factory.ParseRoster(string(data))
	require.NoError(t, err)
	assert.Equal(t, len(roster.Patients), len(again.Patients))
	assert.Equal(t, len(roster.Visits), len(again.Visits))
}

func TestRegenerationScheduler(t *testing.T) {
	// GIVEN a loaded scenario and a scheduler covering one week ahead
	ts := setupTestServer(t)
	roster, err := ScenarioRoster("weekly-board", testToday)
	require.NoError(t, err)
	require.NoError(t, ts.handler.Service.ImportRoster(context.Background(), roster, true))

	rs := NewRegenerationScheduler(ts.handler.Service, nil)
	rs.WeeksAhead = 1
	rs.Interval = time.Hour

	// WHEN one pass runs
	weeks := rs.Weeks()
	done := rs.RunNow(context.Background())

	// THEN both weeks are regenerated by the scheduler trigger
	require.Len(t, weeks, 2)
	assert.True(t, weeks[0].Equal(testToday))
	assert.True(t, weeks[1].Equal(testToday.AddDays(7)))
	assert.Equal(t, 2, done)

	runs, err := ts.handler.Service.Store().ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "scheduler", r.Trigger)
	}

	// AND Start/Stop run a pass and shut down cleanly
	rs.Start()
	rs.Stop()
	runs, err = ts.handler.Service.Store().ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}
