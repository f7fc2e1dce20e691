package factory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
	"github.com/warp/visit-engine/factory"
)

// =============================================================================
// POLICY
// =============================================================================

func TestParsePolicy_EmptyDocumentIsDefault(t *testing.T) {
	p, err := factory.NewPolicyFactory().ParsePolicy(`{}`)
	require.NoError(t, err)
	assert.Equal(t, compliance.DefaultPolicy(), p)
}

func TestParsePolicy_Overrides(t *testing.T) {
	// GIVEN: a policy that moves the NP threshold and loosens the cap
	doc := `{
		"np_min_benefit_period": 3,
		"daily_cap": 6,
		"over_limit_counts_toward_load": false,
		"huv1": {"from": 5, "to": 14}
	}`

	// WHEN: parsed
	p, err := factory.NewPolicyFactory().ParsePolicy(doc)
	require.NoError(t, err)

	// THEN: named fields change, the rest keep their defaults
	assert.Equal(t, 3, p.NPMinBenefitPeriod)
	assert.Equal(t, 6, p.DailyCap)
	assert.False(t, p.OverLimitCountsTowardLoad)
	assert.Equal(t, compliance.Window{From: 5, To: 14}, p.HUV1)
	assert.Equal(t, 14, p.RNVisitInterval)
	assert.Equal(t, compliance.DefaultPolicy().HUV2, p.HUV2)
}

func TestParsePolicy_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy(`{"daily_cap": 0}`)
	assert.ErrorIs(t, err, compliance.ErrInvalidPolicy)

	_, err = f.ParsePolicy(`{"daily_cap": "five"}`)
	assert.Error(t, err)
}

func TestPolicy_ToJSONRoundTripsThroughFromJSON(t *testing.T) {
	f := factory.NewPolicyFactory()
	want := compliance.DefaultPolicy()
	want.RecertLeadDays = 21
	want.CountSuggestedLoad = true

	got, err := f.FromJSON(f.ToJSON(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPolicyFile(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.LoadPolicyFile("")
	require.NoError(t, err)
	assert.Equal(t, compliance.DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rn_visit_interval_days": 10}`), 0o600))
	p, err = f.LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.RNVisitInterval)

	_, err = f.LoadPolicyFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// =============================================================================
// ROSTER
// =============================================================================

const roster = `{
  "staff": [
    {"id": "s1", "name": "Rachelle RN", "role": "rn", "color": "#3b82f6"},
    {"name": "Tej LVN", "role": "LVN", "active": false}
  ],
  "patients": [
    {
      "id": "p1",
      "name": "Ada Brooks",
      "start_of_care": "2026-09-01",
      "benefit_period_number": 2,
      "benefit_period_start": "2026-09-01",
      "benefit_period_end": "2026-11-29",
      "frequency": "2x/week",
      "assigned_rn": "Rachelle RN",
      "assigned_lvn": "Tej LVN",
      "preferred_visit_days": ["Monday", "thu"]
    }
  ],
  "visits": [
    {
      "id": "v1",
      "patient_id": "p1",
      "date": "2026-10-19",
      "discipline": "RN",
      "staff": "Rachelle RN",
      "status": "confirmed",
      "tags": ["prn"],
      "type": "prn"
    },
    {
      "id": "v2",
      "patient_id": "p9",
      "date": "2026-10-20",
      "discipline": "Unassigned",
      "staff": "Unassigned",
      "priority": "urgent"
    }
  ]
}`

func TestParseRoster(t *testing.T) {
	r, err := factory.ParseRoster(roster)
	require.NoError(t, err)

	require.Len(t, r.Staff, 2)
	assert.Equal(t, care.Staff{ID: "s1", Name: "Rachelle RN", Role: care.DisciplineRN, Active: true, Color: "#3b82f6"}, r.Staff[0])
	assert.Equal(t, care.StaffID("Tej LVN"), r.Staff[1].ID)
	assert.False(t, r.Staff[1].Active)

	require.Len(t, r.Patients, 1)
	p := r.Patients[0]
	assert.Equal(t, care.PatientActive, p.Status)
	assert.Equal(t, calendar.NewDate(2026, time.November, 29), p.BenefitPeriodEnd)
	assert.Equal(t, []time.Weekday{time.Monday, time.Thursday}, p.PreferredVisitDays)

	require.Len(t, r.Visits, 2)
	assert.True(t, r.Visits[0].IsProtected())
	assert.Equal(t, care.TypePRN, r.Visits[0].Type)

	placeholder := r.Visits[1]
	assert.Equal(t, care.DisciplineUnassigned, placeholder.Discipline)
	assert.Empty(t, placeholder.Staff)
	assert.True(t, placeholder.Tags.Has(care.TagUnassigned))
	assert.Equal(t, care.StatusSuggested, placeholder.Status)
	assert.Equal(t, care.PriorityUrgent, placeholder.Priority)
}

func TestParseRoster_RejectsBadRecords(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"bad frequency", `{"patients":[{"id":"p1","frequency":"daily-ish"}]}`, care.ErrInvalidFrequency},
		{"bad role", `{"staff":[{"name":"X","role":"MD"}]}`, care.ErrInvalidValue},
		{"unsuggested prn", `{"visits":[{"id":"v","patient_id":"p","date":"2026-10-19","discipline":"RN","tags":["prn"]}]}`, care.ErrPRNMustBeConfirmed},
		{"bad weekday", `{"patients":[{"id":"p1","preferred_visit_days":["Someday"]}]}`, care.ErrInvalidValue},
		{"unknown tag", `{"visits":[{"id":"v","patient_id":"p","date":"2026-10-19","discipline":"RN","tags":["urgent"]}]}`, care.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseRoster(tt.doc)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMarshalRoster_ParsesBack(t *testing.T) {
	r, err := factory.ParseRoster(roster)
	require.NoError(t, err)

	data, err := factory.MarshalRoster(r)
	require.NoError(t, err)

	again, err := factory.ParseRoster(string(data))
	require.NoError(t, err)
	assert.Equal(t, r, again)
}
