// Package store provides in-memory care.Store and care.RunStore
// implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	patients map[care.PatientID]care.Patient
	staff    map[care.StaffID]care.Staff
	visits   map[care.VisitID]care.Visit
	runs     []care.ScheduleRun
}

func NewMemory() *Memory {
	return &Memory{
		patients: make(map[care.PatientID]care.Patient),
		staff:    make(map[care.StaffID]care.Staff),
		visits:   make(map[care.VisitID]care.Visit),
	}
}

// =============================================================================
// PATIENTS
// =============================================================================

func (m *Memory) SavePatient(_ context.Context, p care.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.PreferredVisitDays = append(p.PreferredVisitDays[:0:0], p.PreferredVisitDays...)
	m.patients[p.ID] = p
	return nil
}

func (m *Memory) GetPatient(_ context.Context, id care.PatientID) (care.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return care.Patient{}, care.ErrPatientNotFound
	}
	return p, nil
}

func (m *Memory) ListPatients(_ context.Context) ([]care.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]care.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeletePatient(_ context.Context, id care.PatientID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return care.ErrPatientNotFound
	}
	delete(m.patients, id)
	return nil
}

// =============================================================================
// STAFF
// =============================================================================

func (m *Memory) SaveStaff(_ context.Context, s care.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[s.ID] = s
	return nil
}

func (m *Memory) GetStaff(_ context.Context, id care.StaffID) (care.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	if !ok {
		return care.Staff{}, care.ErrStaffNotFound
	}
	return s, nil
}

func (m *Memory) ListStaff(_ context.Context) ([]care.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]care.Staff, 0, len(m.staff))
	for _, s := range m.staff {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) DeleteStaff(_ context.Context, id care.StaffID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staff[id]; !ok {
		return care.ErrStaffNotFound
	}
	delete(m.staff, id)
	return nil
}

// =============================================================================
// VISITS
// =============================================================================

func (m *Memory) SaveVisit(_ context.Context, v care.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits[v.ID] = v
	return nil
}

func (m *Memory) GetVisit(_ context.Context, id care.VisitID) (care.Visit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visits[id]
	if !ok {
		return care.Visit{}, care.ErrVisitNotFound
	}
	return v, nil
}

func (m *Memory) ListVisits(_ context.Context, f care.VisitFilter) ([]care.Visit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []care.Visit
	for _, v := range m.visits {
		if f.Match(v) {
			result = append(result, v)
		}
	}
	sortByDateThenID(result)
	return result, nil
}

func (m *Memory) DeleteVisit(_ context.Context, id care.VisitID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visits[id]; !ok {
		return care.ErrVisitNotFound
	}
	delete(m.visits, id)
	return nil
}

// ReplaceVisitsInRange validates everything before touching the map, so a
// rejected call leaves the store unchanged.
func (m *Memory) ReplaceVisitsInRange(_ context.Context, r calendar.Period, visits []care.Visit) error {
	for _, v := range visits {
		if !r.Contains(v.Date) {
			return &care.ValidationError{Field: "date", Value: v.Date.String(), Err: care.ErrOutOfRange}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.visits {
		if r.Contains(v.Date) && !v.IsProtected() {
			delete(m.visits, id)
		}
	}
	for _, v := range visits {
		if v.IsProtected() {
			continue
		}
		if _, ok := m.visits[v.ID]; ok {
			continue
		}
		m.visits[v.ID] = v
	}
	return nil
}

// =============================================================================
// RUNS
// =============================================================================

func (m *Memory) RecordRun(_ context.Context, run care.ScheduleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]care.ScheduleRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]care.ScheduleRun, 0, n)
	for i := len(m.runs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.runs[i])
	}
	return result, nil
}

func sortByDateThenID(visits []care.Visit) {
	sort.Slice(visits, func(i, j int) bool {
		if !visits[i].Date.Equal(visits[j].Date) {
			return visits[i].Date.Before(visits[j].Date)
		}
		return visits[i].ID < visits[j].ID
	})
}
