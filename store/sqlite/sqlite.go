/*
Package sqlite provides a SQLite-backed implementation of the care storage
interfaces.

PURPOSE:
  Implements care.Store and care.RunStore using SQLite. Every scheduling
  run loads its snapshot from here and writes the regenerated week back in
  one transaction.

INTERFACES IMPLEMENTED:
  care.PatientStore: Patient records
  care.StaffStore:   Clinician roster
  care.VisitStore:   Visits, including atomic week replacement
  care.RunStore:     Audit trail of scheduling runs

KEY TABLES:
  patients:       Patient records, assignments by staff name
  staff:          Clinicians
  visits:         Every visit, suggested or confirmed
  schedule_runs:  One row per week regeneration

INDEXES:
  - idx_visits_date:          Range scans for a week (hot path)
  - idx_visits_patient_date:  Per-patient history (RN due-check)
  - idx_visits_staff_date:    Daily load per clinician

DATES:
  Calendar dates are stored as ISO "YYYY-MM-DD" text, so string comparison
  orders them. Timestamps use RFC3339.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases alive across calls.

USAGE:
  store, err := sqlite.New("./data/visits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - care/store.go: Interface definitions
  - care/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ care.Store    = (*Store)(nil)
	_ care.RunStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		start_of_care TEXT NOT NULL DEFAULT '',
		benefit_period_number INTEGER NOT NULL DEFAULT 0,
		benefit_period_start TEXT NOT NULL DEFAULT '',
		benefit_period_end TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT '',
		assigned_rn TEXT NOT NULL DEFAULT '',
		assigned_lvn TEXT NOT NULL DEFAULT '',
		assigned_np TEXT NOT NULL DEFAULT '',
		last_rn_visit_date TEXT NOT NULL DEFAULT '',
		preferred_visit_days TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		color TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS visits (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		patient_name TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		discipline TEXT NOT NULL,
		staff TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_visits_date
		ON visits(date);
	CREATE INDEX IF NOT EXISTS idx_visits_patient_date
		ON visits(patient_id, date);
	CREATE INDEX IF NOT EXISTS idx_visits_staff_date
		ON visits(staff, date);

	CREATE TABLE IF NOT EXISTS schedule_runs (
		id TEXT PRIMARY KEY,
		week_start TEXT NOT NULL,
		trigger TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		proposed INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		diagnostics INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_runs_started
		ON schedule_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// PATIENT STORE (care.PatientStore interface)
// =============================================================================

func (s *Store) SavePatient(ctx context.Context, p care.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO patients (id, name, city, start_of_care, benefit_period_number,
			benefit_period_start, benefit_period_end, frequency, assigned_rn,
			assigned_lvn, assigned_np, last_rn_visit_date, preferred_visit_days,
			status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			city = excluded.city,
			start_of_care = excluded.start_of_care,
			benefit_period_number = excluded.benefit_period_number,
			benefit_period_start = excluded.benefit_period_start,
			benefit_period_end = excluded.benefit_period_end,
			frequency = excluded.frequency,
			assigned_rn = excluded.assigned_rn,
			assigned_lvn = excluded.assigned_lvn,
			assigned_np = excluded.assigned_np,
			last_rn_visit_date = excluded.last_rn_visit_date,
			preferred_visit_days = excluded.preferred_visit_days,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.City, p.StartOfCare.String(), p.BenefitPeriodNumber,
		p.BenefitPeriodStart.String(), p.BenefitPeriodEnd.String(), p.Frequency,
		p.AssignedRN, p.AssignedLVN, p.AssignedNP, p.LastRNVisitDate.String(),
		formatWeekdays(p.PreferredVisitDays), p.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save patient: %w", err)
	}
	return nil
}

const patientColumns = `id, name, city, start_of_care, benefit_period_number,
	benefit_period_start, benefit_period_end, frequency, assigned_rn,
	assigned_lvn, assigned_np, last_rn_visit_date, preferred_visit_days, status`

func (s *Store) GetPatient(ctx context.Context, id care.PatientID) (care.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+patientColumns+" FROM patients WHERE id = ?", id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return care.Patient{}, care.ErrPatientNotFound
	}
	return p, err
}

func (s *Store) ListPatients(ctx context.Context) ([]care.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+patientColumns+" FROM patients ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []care.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (s *Store) DeletePatient(ctx context.Context, id care.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteOne(ctx, s.db, "DELETE FROM patients WHERE id = ?", string(id), care.ErrPatientNotFound)
}

// =============================================================================
// STAFF STORE (care.StaffStore interface)
// =============================================================================

func (s *Store) SaveStaff(ctx context.Context, st care.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO staff (id, name, role, active, color)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			active = excluded.active,
			color = excluded.color
	`

	if _, err := s.db.ExecContext(ctx, query, st.ID, st.Name, st.Role, st.Active, st.Color); err != nil {
		if isUniqueConstraintError(err) {
			return &care.ValidationError{Field: "name", Value: st.Name, Err: care.ErrInvalidValue}
		}
		return fmt.Errorf("failed to save staff: %w", err)
	}
	return nil
}

func (s *Store) GetStaff(ctx context.Context, id care.StaffID) (care.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st care.Staff
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, active, color FROM staff WHERE id = ?", id,
	).Scan(&st.ID, &st.Name, &st.Role, &st.Active, &st.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return care.Staff{}, care.ErrStaffNotFound
	}
	return st, err
}

func (s *Store) ListStaff(ctx context.Context) ([]care.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, role, active, color FROM staff ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []care.Staff
	for rows.Next() {
		var st care.Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Role, &st.Active, &st.Color); err != nil {
			return nil, err
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

func (s *Store) DeleteStaff(ctx context.Context, id care.StaffID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteOne(ctx, s.db, "DELETE FROM staff WHERE id = ?", string(id), care.ErrStaffNotFound)
}

// =============================================================================
// VISIT STORE (care.VisitStore interface)
// =============================================================================

const visitColumns = `id, patient_id, patient_name, date, discipline, staff,
	status, completed, type, tags, notes, reason, priority`

func (s *Store) SaveVisit(ctx context.Context, v care.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveVisit(ctx, s.db, v)
}

func saveVisit(ctx context.Context, db execer, v care.Visit) error {
	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			patient_id = excluded.patient_id,
			patient_name = excluded.patient_name,
			date = excluded.date,
			discipline = excluded.discipline,
			staff = excluded.staff,
			status = excluded.status,
			completed = excluded.completed,
			type = excluded.type,
			tags = excluded.tags,
			notes = excluded.notes,
			reason = excluded.reason,
			priority = excluded.priority
	`

	_, err := db.ExecContext(ctx, query,
		v.ID, v.PatientID, v.PatientName, v.Date.String(), v.Discipline, v.Staff,
		v.Status, v.Completed, v.Type, v.Tags.String(), v.Notes, v.Reason, v.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to save visit %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) GetVisit(ctx context.Context, id care.VisitID) (care.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+visitColumns+" FROM visits WHERE id = ?", id)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return care.Visit{}, care.ErrVisitNotFound
	}
	return v, err
}

func (s *Store) ListVisits(ctx context.Context, f care.VisitFilter) ([]care.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.PatientID != "" {
		where = append(where, "patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.Staff != "" {
		where = append(where, "staff = ?")
		args = append(args, f.Staff)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := "SELECT " + visitColumns + " FROM visits"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []care.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (s *Store) DeleteVisit(ctx context.Context, id care.VisitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteOne(ctx, s.db, "DELETE FROM visits WHERE id = ?", string(id), care.ErrVisitNotFound)
}

// ReplaceVisitsInRange deletes the unprotected visits dated inside r and
// inserts the unprotected elements of visits, in one transaction. Protected
// rows are left alone and an existing id is never overwritten.
func (s *Store) ReplaceVisitsInRange(ctx context.Context, r calendar.Period, visits []care.Visit) error {
	for _, v := range visits {
		if !r.Contains(v.Date) {
			return &care.ValidationError{Field: "date", Value: v.Date.String(), Err: care.ErrOutOfRange}
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stale, err := unprotectedInRange(ctx, tx, r)
		if err != nil {
			return fmt.Errorf("failed to read range: %w", err)
		}
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx, "DELETE FROM visits WHERE id = ?", id); err != nil {
				return fmt.Errorf("failed to clear range: %w", err)
			}
		}
		for _, v := range visits {
			if v.IsProtected() {
				continue
			}
			if err := insertVisit(ctx, tx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// unprotectedInRange lists the ids a regeneration may replace. Protection
// depends on the decoded tag set, so rows are filtered after scanning.
func unprotectedInRange(ctx context.Context, tx *sql.Tx, r calendar.Period) ([]care.VisitID, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+visitColumns+" FROM visits WHERE date >= ? AND date <= ?",
		r.Start.String(), r.End.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []care.VisitID
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		if !v.IsProtected() {
			ids = append(ids, v.ID)
		}
	}
	return ids, rows.Err()
}

// insertVisit writes v unless its id is already stored.
func insertVisit(ctx context.Context, db execer, v care.Visit) error {
	query := `
		INSERT INTO visits (` + visitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := db.ExecContext(ctx, query,
		v.ID, v.PatientID, v.PatientName, v.Date.String(), v.Discipline, v.Staff,
		v.Status, v.Completed, v.Type, v.Tags.String(), v.Notes, v.Reason, v.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit %s: %w", v.ID, err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx executes fn within a database transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// RUN STORE (care.RunStore interface)
// =============================================================================

func (s *Store) RecordRun(ctx context.Context, r care.ScheduleRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedule_runs (id, week_start, trigger, started_at, finished_at,
			proposed, removed, diagnostics, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.WeekStart.String(), r.Trigger,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Proposed, r.Removed, r.Diagnostics, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]care.ScheduleRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, week_start, trigger, started_at, finished_at,
			proposed, removed, diagnostics, status, error
		FROM schedule_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []care.ScheduleRun
	for rows.Next() {
		var r care.ScheduleRun
		var weekStart, startedAt, finishedAt string
		if err := rows.Scan(
			&r.ID, &weekStart, &r.Trigger, &startedAt, &finishedAt,
			&r.Proposed, &r.Removed, &r.Diagnostics, &r.Status, &r.Error,
		); err != nil {
			return nil, err
		}
		r.WeekStart, _ = calendar.ParseDate(weekStart)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"visits", "patients", "staff", "schedule_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(row scanner) (care.Patient, error) {
	var (
		p                                         care.Patient
		soc, bpStart, bpEnd, lastRN, days, status string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.City, &soc, &p.BenefitPeriodNumber,
		&bpStart, &bpEnd, &p.Frequency, &p.AssignedRN,
		&p.AssignedLVN, &p.AssignedNP, &lastRN, &days, &status,
	)
	if err != nil {
		return care.Patient{}, err
	}
	p.StartOfCare, _ = calendar.ParseDate(soc)
	p.BenefitPeriodStart, _ = calendar.ParseDate(bpStart)
	p.BenefitPeriodEnd, _ = calendar.ParseDate(bpEnd)
	p.LastRNVisitDate, _ = calendar.ParseDate(lastRN)
	p.PreferredVisitDays = parseWeekdays(days)
	p.Status = care.PatientStatus(status)
	return p, nil
}

func scanVisit(row scanner) (care.Visit, error) {
	var (
		v          care.Visit
		date, tags string
	)
	err := row.Scan(
		&v.ID, &v.PatientID, &v.PatientName, &date, &v.Discipline, &v.Staff,
		&v.Status, &v.Completed, &v.Type, &tags, &v.Notes, &v.Reason, &v.Priority,
	)
	if err != nil {
		return care.Visit{}, err
	}
	if v.Date, err = calendar.ParseDate(date); err != nil {
		return care.Visit{}, fmt.Errorf("visit %s: %w", v.ID, err)
	}
	if tags != "" {
		if v.Tags, err = care.ParseTags(strings.Split(tags, ",")); err != nil {
			return care.Visit{}, fmt.Errorf("visit %s: %w", v.ID, err)
		}
	}
	return v, nil
}

func deleteOne(ctx context.Context, db execer, query, id string, notFound error) error {
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatWeekdays(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

func parseWeekdays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var days []time.Weekday
	for _, name := range strings.Split(s, ",") {
		if wd, ok := calendar.ParseWeekday(name); ok {
			days = append(days, wd)
		}
	}
	return days
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
