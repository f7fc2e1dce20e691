/*
Package factory converts JSON documents into engine inputs.

PURPOSE:
  Scheduling rules and care rosters live outside the binary: a clinical
  manager edits a policy file, an intake system exports the roster. The
  factory turns those documents into compliance.Policy and care records,
  validating as it goes, so nothing downstream sees a half-parsed value.

POLICY SCHEMA (every field optional, missing = default):
  {
    "rn_visit_interval_days": 14,
    "recert_lead_days": 14,
    "huv1": {"from": 6, "to": 15},
    "huv2": {"from": 16, "to": 30},
    "np_min_benefit_period": 2,
    "daily_cap": 5,
    "over_limit_counts_toward_load": true,
    "count_suggested_load": false,
    "due_soon_days": 12,
    "countdown_warning_days": 14,
    "countdown_critical_days": 7
  }

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonString)
  engine := schedule.NewEngine(schedule.WithPolicy(policy))

SEE ALSO:
  - compliance/policy.go: Policy type and defaults
  - roster.go: Patients, staff and visits
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/visit-engine/compliance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy. Pointer fields
// distinguish "absent" from zero.
type PolicyJSON struct {
	RNVisitInterval           *int        `json:"rn_visit_interval_days,omitempty"`
	RecertLeadDays            *int        `json:"recert_lead_days,omitempty"`
	HUV1                      *WindowJSON `json:"huv1,omitempty"`
	HUV2                      *WindowJSON `json:"huv2,omitempty"`
	NPMinBenefitPeriod        *int        `json:"np_min_benefit_period,omitempty"`
	DailyCap                  *int        `json:"daily_cap,omitempty"`
	OverLimitCountsTowardLoad *bool       `json:"over_limit_counts_toward_load,omitempty"`
	CountSuggestedLoad        *bool       `json:"count_suggested_load,omitempty"`
	DueSoonDays               *int        `json:"due_soon_days,omitempty"`
	CountdownWarningDays      *int        `json:"countdown_warning_days,omitempty"`
	CountdownCriticalDays     *int        `json:"countdown_critical_days,omitempty"`
}

// WindowJSON is an inclusive day range.
type WindowJSON struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to compliance.Policy values.
type PolicyFactory struct {
	base compliance.Policy
}

// NewPolicyFactory fills missing fields from compliance.DefaultPolicy.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{base: compliance.DefaultPolicy()}
}

// ParsePolicy parses and validates a JSON policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (compliance.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return compliance.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// LoadPolicyFile reads a policy file. An empty path yields the defaults.
func (f *PolicyFactory) LoadPolicyFile(path string) (compliance.Policy, error) {
	if path == "" {
		return f.base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return compliance.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	p, err := f.ParsePolicy(string(data))
	if err != nil {
		return compliance.Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// FromJSON overlays pj on the defaults and validates the result.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (compliance.Policy, error) {
	p := f.base

	setInt(&p.RNVisitInterval, pj.RNVisitInterval)
	setInt(&p.RecertLeadDays, pj.RecertLeadDays)
	setInt(&p.NPMinBenefitPeriod, pj.NPMinBenefitPeriod)
	setInt(&p.DailyCap, pj.DailyCap)
	setInt(&p.DueSoonDays, pj.DueSoonDays)
	setInt(&p.CountdownWarningDays, pj.CountdownWarningDays)
	setInt(&p.CountdownCriticalDays, pj.CountdownCriticalDays)
	setBool(&p.OverLimitCountsTowardLoad, pj.OverLimitCountsTowardLoad)
	setBool(&p.CountSuggestedLoad, pj.CountSuggestedLoad)

	if pj.HUV1 != nil {
		p.HUV1 = compliance.Window{From: pj.HUV1.From, To: pj.HUV1.To}
	}
	if pj.HUV2 != nil {
		p.HUV2 = compliance.Window{From: pj.HUV2.From, To: pj.HUV2.To}
	}

	if err := p.Validate(); err != nil {
		return compliance.Policy{}, err
	}
	return p, nil
}

// ToJSON converts a Policy to PolicyJSON with every field set.
func (f *PolicyFactory) ToJSON(p compliance.Policy) PolicyJSON {
	return PolicyJSON{
		RNVisitInterval:           intPtr(p.RNVisitInterval),
		RecertLeadDays:            intPtr(p.RecertLeadDays),
		HUV1:                      &WindowJSON{From: p.HUV1.From, To: p.HUV1.To},
		HUV2:                      &WindowJSON{From: p.HUV2.From, To: p.HUV2.To},
		NPMinBenefitPeriod:        intPtr(p.NPMinBenefitPeriod),
		DailyCap:                  intPtr(p.DailyCap),
		OverLimitCountsTowardLoad: boolPtr(p.OverLimitCountsTowardLoad),
		CountSuggestedLoad:        boolPtr(p.CountSuggestedLoad),
		DueSoonDays:               intPtr(p.DueSoonDays),
		CountdownWarningDays:      intPtr(p.CountdownWarningDays),
		CountdownCriticalDays:     intPtr(p.CountdownCriticalDays),
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
