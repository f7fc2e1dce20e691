package service

import (
	"context"
	"fmt"

	"github.com/warp/visit-engine/care"
	"github.com/warp/visit-engine/factory"
	"go.uber.org/zap"
)

// =============================================================================
// RECORDS - Validated writes through to the store
// =============================================================================

func (s *Scheduler) SavePatient(ctx context.Context, p care.Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = care.PatientActive
	}
	prev, err := s.store.GetPatient(ctx, p.ID)
	switch {
	case err == nil && !prev.StartOfCare.IsZero() && !prev.StartOfCare.Equal(p.StartOfCare):
		return &care.ValidationError{Field: "start_of_care", Value: p.StartOfCare.String(), Err: care.ErrStartOfCareImmutable}
	case err != nil && !care.IsNotFound(err):
		return err
	}
	visits, err := s.store.ListVisits(ctx, care.VisitFilter{PatientID: p.ID})
	if err != nil {
		return err
	}
	// A logged RN visit wins over whatever date the caller sent.
	if last, ok := care.LastRNVisit(p.ID, visits); ok {
		p.LastRNVisitDate = last.Date
	}
	return s.store.SavePatient(ctx, p)
}

func (s *Scheduler) SaveStaff(ctx context.Context, st care.Staff) error {
	if st.Name == "" {
		return &care.ValidationError{Field: "name", Err: care.ErrInvalidValue}
	}
	if st.ID == "" {
		st.ID = care.StaffID(st.Name)
	}
	return s.store.SaveStaff(ctx, st)
}

// SaveVisit creates or edits a visit. Completed visits are history and
// cannot be edited.
func (s *Scheduler) SaveVisit(ctx context.Context, v care.Visit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	prev, err := s.store.GetVisit(ctx, v.ID)
	switch {
	case err == nil && prev.Completed:
		return fmt.Errorf("%w: %s is completed", care.ErrProtectedVisit, v.ID)
	case err != nil && !care.IsNotFound(err):
		return err
	}
	if err := s.store.SaveVisit(ctx, v); err != nil {
		return err
	}
	if v.Completed && v.Discipline == care.DisciplineRN {
		return s.reconcilePatient(ctx, v.PatientID)
	}
	return nil
}

// DeleteVisit removes a visit unless it was completed.
func (s *Scheduler) DeleteVisit(ctx context.Context, id care.VisitID) error {
	v, err := s.store.GetVisit(ctx, id)
	if err != nil {
		return err
	}
	if v.Completed {
		return fmt.Errorf("%w: %s is completed", care.ErrProtectedVisit, id)
	}
	return s.store.DeleteVisit(ctx, id)
}

// ConfirmVisit locks a suggestion in, optionally reassigning the clinician.
func (s *Scheduler) ConfirmVisit(ctx context.Context, id care.VisitID, staff string) (care.Visit, error) {
	v, err := s.store.GetVisit(ctx, id)
	if err != nil {
		return care.Visit{}, err
	}
	v, err = care.Confirm(v, staff)
	if err != nil {
		return care.Visit{}, err
	}
	if err := s.store.SaveVisit(ctx, v); err != nil {
		return care.Visit{}, err
	}
	s.logger.Info("visit confirmed", zap.String("visit_id", string(id)), zap.String("staff", v.Staff))
	return v, nil
}

// CompleteVisit records the visit as performed. A completed RN visit
// refreshes the patient's cached last RN visit date.
func (s *Scheduler) CompleteVisit(ctx context.Context, id care.VisitID) (care.Visit, error) {
	v, err := s.store.GetVisit(ctx, id)
	if err != nil {
		return care.Visit{}, err
	}
	v, err = care.Complete(v)
	if err != nil {
		return care.Visit{}, err
	}
	if err := s.store.SaveVisit(ctx, v); err != nil {
		return care.Visit{}, err
	}
	if v.Discipline == care.DisciplineRN {
		if err := s.reconcilePatient(ctx, v.PatientID); err != nil {
			return care.Visit{}, err
		}
	}
	s.logger.Info("visit completed", zap.String("visit_id", string(id)), zap.String("patient_id", string(v.PatientID)))
	return v, nil
}

func (s *Scheduler) reconcilePatient(ctx context.Context, id care.PatientID) error {
	p, err := s.store.GetPatient(ctx, id)
	if care.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	visits, err := s.store.ListVisits(ctx, care.VisitFilter{PatientID: id})
	if err != nil {
		return err
	}
	return s.store.SavePatient(ctx, care.ReconcileLastRNVisit(p, visits))
}

// =============================================================================
// ROSTER IMPORT
// =============================================================================

// Resetter is implemented by stores that can be wiped (demo loads).
type Resetter interface {
	Reset(ctx context.Context) error
}

// ImportRoster writes every record of r. With replace the store is wiped
// first, which requires a Resetter.
func (s *Scheduler) ImportRoster(ctx context.Context, r *factory.Roster, replace bool) error {
	if replace {
		rs, ok := s.store.(Resetter)
		if !ok {
			return fmt.Errorf("store %T cannot be reset", s.store)
		}
		if err := rs.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
	}
	for _, st := range r.Staff {
		if err := s.store.SaveStaff(ctx, st); err != nil {
			return fmt.Errorf("staff %s: %w", st.Name, err)
		}
	}
	for _, v := range r.Visits {
		if err := s.store.SaveVisit(ctx, v); err != nil {
			return fmt.Errorf("visit %s: %w", v.ID, err)
		}
	}
	for _, p := range r.Patients {
		if err := s.SavePatient(ctx, p); err != nil {
			return fmt.Errorf("patient %s: %w", p.ID, err)
		}
	}
	s.logger.Info("roster imported",
		zap.Int("staff", len(r.Staff)),
		zap.Int("patients", len(r.Patients)),
		zap.Int("visits", len(r.Visits)),
	)
	return nil
}
