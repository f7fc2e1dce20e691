/*
scheduler.go - Week regeneration against a store

PURPOSE:
  The engine is a pure function over slices. This file is the glue that
  makes it a service: take the week lock, load a snapshot, run the engine,
  write the week back atomically, and record what happened.

FLOW (RegenerateWeek):
  1. Acquire lock.WeekKey(week start) or fail with lock.ErrWeekLocked
  2. Load patients, staff and every visit
  3. engine.ScheduleWeek
  4. ReplaceVisitsInRange(week, result.InWeek()) unless dry-run
  5. RecordRun + metrics + log

SEE ALSO:
  - schedule/engine.go: ScheduleWeek
  - care/store.go: Store / RunStore contracts
  - api/regenerate.go: Background regeneration on a ticker
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/compliance"
	"github.com/warp/visit-engine/lock"
	"github.com/warp/visit-engine/metrics"
	"github.com/warp/visit-engine/schedule"
	"go.uber.org/zap"
)

const (
	TriggerAPI       = "api"
	TriggerCLI       = "cli"
	TriggerScheduler = "scheduler"
)

// Store is what the service needs from persistence.
type Store interface {
	care.Store
	care.RunStore
}

type Scheduler struct {
	store   Store
	engine  *schedule.Engine
	locker  lock.Locker
	lockTTL time.Duration
	metrics *metrics.SchedulerMetrics
	logger  *zap.Logger
}

type Option func(*Scheduler)

func WithLocker(l lock.Locker, ttl time.Duration) Option {
	return func(s *Scheduler) { s.locker, s.lockTTL = l, ttl }
}
func WithMetrics(m *metrics.SchedulerMetrics) Option { return func(s *Scheduler) { s.metrics = m } }
func WithLogger(l *zap.Logger) Option                 { return func(s *Scheduler) { s.logger = l } }

// NewScheduler defaults to an in-process locker with a 30s TTL, no metrics
// and a no-op logger.
func NewScheduler(store Store, engine *schedule.Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:   store,
		engine:  engine,
		locker:  lock.NewLocalLocker(),
		lockTTL: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Engine() *schedule.Engine   { return s.engine }
func (s *Scheduler) Policy() compliance.Policy { return s.engine.Policy() }
func (s *Scheduler) Today() calendar.Date      { return s.engine.Today() }
func (s *Scheduler) Store() Store              { return s.store }

// =============================================================================
// REGENERATE
// =============================================================================

// Regeneration is the outcome of one RegenerateWeek call.
type Regeneration struct {
	Run    care.ScheduleRun
	Result *schedule.Result
}

// RegenerateWeek recomputes the suggestions for the week containing
// weekStart. With dryRun the result is computed and recorded but the store
// keeps its visits.
func (s *Scheduler) RegenerateWeek(ctx context.Context, weekStart calendar.Date, trigger string, dryRun bool) (*Regeneration, error) {
	if weekStart.IsZero() {
		return nil, schedule.ErrMissingWeekStart
	}
	week := calendar.WeekOf(weekStart)
	log := s.logger.With(zap.String("week", week.Start.String()), zap.String("trigger", trigger), zap.Bool("dry_run", dryRun))

	lease, err := s.locker.Acquire(ctx, lock.WeekKey(week.Start.String()), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrWeekLocked) {
			s.metrics.ObserveLockContention()
			log.Info("week regeneration already in progress")
		}
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release week lock", zap.Error(err))
		}
	}()

	run := care.ScheduleRun{
		ID:        uuid.NewString(),
		WeekStart: week.Start,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	res, err := s.regenerate(ctx, week, dryRun)
	run.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		run.Status = care.RunFailed
		run.Error = err.Error()
	case dryRun:
		run.Status = care.RunDryRun
	default:
		run.Status = care.RunSucceeded
	}
	if res != nil {
		run.Proposed = len(res.result.Proposed)
		run.Removed = res.removed
		run.Diagnostics = len(res.result.Diagnostics)
	}

	if recErr := s.store.RecordRun(ctx, run); recErr != nil {
		log.Error("failed to record schedule run", zap.Error(recErr))
	}
	s.metrics.ObserveRun(trigger, string(run.Status), run.FinishedAt.Sub(run.StartedAt).Seconds())

	if err != nil {
		log.Error("week regeneration failed", zap.Error(err))
		return nil, err
	}

	s.observe(res)
	log.Info("week regenerated",
		zap.Int("proposed", run.Proposed),
		zap.Int("removed", run.Removed),
		zap.Int("diagnostics", run.Diagnostics),
	)
	return &Regeneration{Run: run, Result: res.result}, nil
}

type regenerated struct {
	result  *schedule.Result
	staff   []care.Staff
	removed int
}

func (s *Scheduler) regenerate(ctx context.Context, week calendar.Week, dryRun bool) (*regenerated, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.ScheduleWeek(schedule.Input{
		Patients:  snap.Patients,
		Staff:     snap.Staff,
		Visits:    snap.Visits,
		WeekStart: week.Start,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule week: %w", err)
	}
	out := &regenerated{result: res, staff: snap.Staff, removed: res.Removed(snap.Visits)}

	if dryRun {
		return out, nil
	}
	if err := s.store.ReplaceVisitsInRange(ctx, week.Period(), res.InWeek()); err != nil {
		return out, fmt.Errorf("replace week: %w", err)
	}
	return out, nil
}

func (s *Scheduler) observe(r *regenerated) {
	res := r.result
	for _, v := range res.Proposed {
		s.metrics.ObserveProposed(string(v.Discipline))
	}
	for _, d := range res.Diagnostics {
		s.metrics.ObserveDiagnostic(string(d.Step), string(d.Outcome))
		if d.Outcome == schedule.OutcomeError {
			s.logger.Warn("patient skipped",
				zap.String("patient_id", string(d.PatientID)),
				zap.String("reason", d.Message),
			)
		}
	}
	overCap := 0
	for _, d := range res.Week.Weekdays() {
		overCap += len(schedule.StaffExceedingDailyLimit(d, res.Visits, r.staff, s.engine.Policy()))
	}
	s.metrics.SetOverCapStaffDays(overCap)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is everything the engine reads, loaded at one point in time.
type Snapshot struct {
	Patients []care.Patient
	Staff    []care.Staff
	Visits   []care.Visit
}

func (s *Scheduler) Snapshot(ctx context.Context) (*Snapshot, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	visits, err := s.store.ListVisits(ctx, care.VisitFilter{})
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}
	return &Snapshot{Patients: patients, Staff: staff, Visits: visits}, nil
}

// Alerts evaluates the compliance alerts as of today.
func (s *Scheduler) Alerts(ctx context.Context) ([]compliance.Alert, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return compliance.Alerts(snap.Patients, snap.Visits, snap.Staff, s.Today(), s.Policy()), nil
}

// Workload reports staff utilization for the week containing weekStart.
func (s *Scheduler) Workload(ctx context.Context, weekStart calendar.Date) ([]schedule.StaffLoad, error) {
	week := calendar.WeekOf(weekStart)
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	visits, err := s.store.ListVisits(ctx, care.VisitFilter{From: week.Start, To: week.End()})
	if err != nil {
		return nil, err
	}
	return schedule.Workload(staff, visits, week, s.Policy()), nil
}

// PatientCompliance is the compliance picture of one patient as of today.
type PatientCompliance struct {
	Patient    care.Patient
	RN         compliance.RNDue
	Recert     *compliance.RecertWindow
	Hope       care.TagSet
	NPRequired bool
	Countdown  compliance.Countdown
}

func (s *Scheduler) PatientCompliance(ctx context.Context, id care.PatientID) (*PatientCompliance, error) {
	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	visits, err := s.store.ListVisits(ctx, care.VisitFilter{PatientID: id})
	if err != nil {
		return nil, err
	}
	today, policy := s.Today(), s.Policy()
	return &PatientCompliance{
		Patient:    p,
		RN:         compliance.IsRNVisitDue(p, visits, today, policy),
		Recert:     compliance.RecertWindowFor(p, today, policy),
		Hope:       compliance.HopeTags(p, visits, today, policy),
		NPRequired: compliance.NPRequired(p.BenefitPeriodNumber, policy),
		Countdown:  compliance.BenefitPeriodCountdown(p, today, policy),
	}, nil
}
