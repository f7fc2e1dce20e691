/*
store.go - Persistence interfaces for patients, staff and visits

PURPOSE:
  Defines what the scheduling service needs from a database. The engine
  itself never touches a Store; it receives slices and returns a slice.
  The service loads a snapshot, runs the engine, and writes the week back
  with ReplaceVisitsInRange.

KEY INTERFACES:
  Store:    Patients, staff and visits (CRUD plus atomic week replacement)
  RunStore: Audit trail of scheduling runs

ATOMIC WEEK REPLACEMENT:
  ReplaceVisitsInRange deletes the unprotected visits dated inside the
  period and inserts the given unprotected ones, all or nothing.
  Regeneration therefore never leaves a half-written week behind.
  Protected visits (confirmed, completed, PRN) belong to record writes:
  the stored ones survive the swap, incoming protected visits are ignored,
  and an incoming suggestion never overwrites a stored row with the same
  id. A visit confirmed while a regeneration runs is kept.

IMPLEMENTATIONS:
  - care/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - service/scheduler.go: Load -> schedule -> replace -> record run
*/
package care

import (
	"context"
	"time"

	"github.com/warp/visit-engine/calendar"
)

// VisitFilter narrows ListVisits. Zero fields match everything; From and
// To are inclusive.
type VisitFilter struct {
	PatientID PatientID
	Staff     string
	From      calendar.Date
	To        calendar.Date
	Status    Status
}

// Match reports whether v passes the filter.
func (f VisitFilter) Match(v Visit) bool {
	if f.PatientID != "" && v.PatientID != f.PatientID {
		return false
	}
	if f.Staff != "" && v.Staff != f.Staff {
		return false
	}
	if !f.From.IsZero() && v.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && v.Date.After(f.To) {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	return true
}

type PatientStore interface {
	SavePatient(ctx context.Context, p Patient) error
	GetPatient(ctx context.Context, id PatientID) (Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	DeletePatient(ctx context.Context, id PatientID) error
}

type StaffStore interface {
	SaveStaff(ctx context.Context, s Staff) error
	GetStaff(ctx context.Context, id StaffID) (Staff, error)
	ListStaff(ctx context.Context) ([]Staff, error)
	DeleteStaff(ctx context.Context, id StaffID) error
}

type VisitStore interface {
	SaveVisit(ctx context.Context, v Visit) error
	GetVisit(ctx context.Context, id VisitID) (Visit, error)

	// ListVisits returns matching visits ordered by date, then id.
	ListVisits(ctx context.Context, f VisitFilter) ([]Visit, error)
	DeleteVisit(ctx context.Context, id VisitID) error

	// ReplaceVisitsInRange atomically swaps the unprotected visits dated
	// inside r for the unprotected elements of visits. Stored rows are never
	// overwritten. Every element of visits must fall inside r (ErrOutOfRange).
	ReplaceVisitsInRange(ctx context.Context, r calendar.Period, visits []Visit) error
}

// Store is the full record store.
type Store interface {
	PatientStore
	StaffStore
	VisitStore
}

// =============================================================================
// SCHEDULE RUNS - Audit of regeneration passes
// =============================================================================

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunDryRun    RunStatus = "dry_run"
)

// ScheduleRun records one regeneration of one week.
type ScheduleRun struct {
	ID          string
	WeekStart   calendar.Date
	Trigger     string // "api", "cli", "scheduler"
	StartedAt   time.Time
	FinishedAt  time.Time
	Proposed    int
	Removed     int
	Diagnostics int
	Status      RunStatus
	Error       string
}

type RunStore interface {
	RecordRun(ctx context.Context, run ScheduleRun) error

	// ListRuns returns the most recent runs first; limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]ScheduleRun, error)
}
