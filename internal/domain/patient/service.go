package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/pagination"
)

type Service struct {
	patients Repository
	reports  ReportRepository
	logger   zerolog.Logger
}

func NewService(patients Repository, reports ReportRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, reports: reports, logger: logger}
}

// Authorize returns nil when the actor may work with the patient. Admins see
// everything; doctors only their own patients. A missing patient is not found
// regardless of role.
func (s *Service) Authorize(ctx context.Context, actor auth.Principal, patientID int64) error {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	assigned, err := s.patients.IsAssigned(ctx, patientID, actor.ID)
	if err != nil {
		return err
	}
	if !assigned {
		return apperror.Forbidden("patient is not assigned to you")
	}
	return nil
}

// CreatePatient persists a new patient and associates the creating doctor.
// Inline reports are normalized first; a single invalid report rejects the
// whole create.
func (s *Service) CreatePatient(ctx context.Context, actor auth.Principal, in *CreateInput) (*Patient, error) {
	if err := in.Validate(time.Now()); err != nil {
		return nil, err
	}

	reports := make([]*Report, 0, len(in.Reports))
	for i, rin := range in.Reports {
		rep, err := rin.Normalize()
		if err != nil {
			return nil, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("reports[%d] invalid", i), err)
		}
		reports = append(reports, rep)
	}

	p := in.ToPatient()
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}

	if actor.Role == auth.RoleDoctor {
		if err := s.patients.AssignDoctor(ctx, p.ID, actor.ID); err != nil {
			return nil, err
		}
		p.Doctors = []int64{actor.ID}
	}

	for _, rep := range reports {
		rep.PatientID = p.ID
		rep.CreatedBy = actor.ID
		if err := s.reports.Create(ctx, rep); err != nil {
			return nil, err
		}
	}
	p.Reports = reports

	s.logger.Info().Int64("patient_id", p.ID).Int64("created_by", actor.ID).Msg("patient created")
	return p, nil
}

// GetPatient loads a patient with its doctor associations and reports.
func (s *Service) GetPatient(ctx context.Context, actor auth.Principal, id int64) (*Patient, error) {
	if err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Doctors, err = s.patients.DoctorIDs(ctx, id); err != nil {
		return nil, err
	}
	if p.Reports, err = s.reports.ListByPatient(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatients returns newest-first pages. Doctors only see their own
// patients.
func (s *Service) ListPatients(ctx context.Context, actor auth.Principal, search string, page pagination.Params) ([]*Patient, int64, error) {
	filter := ListFilter{Search: search}
	if !actor.IsAdmin() {
		filter.DoctorID = actor.ID
	}
	return s.patients.List(ctx, filter, page)
}

// UpdatePatient applies a partial update. Date of birth and gender are
// immutable.
func (s *Service) UpdatePatient(ctx context.Context, actor auth.Principal, id int64, in *UpdateInput) (*Patient, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(p)
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", id).Int64("updated_by", actor.ID).Msg("patient updated")
	return s.GetPatient(ctx, actor, id)
}

// DeletePatient removes the patient and everything hanging off it. Admin
// only; the route enforces the role, the repo cascades.
func (s *Service) DeletePatient(ctx context.Context, actor auth.Principal, id int64) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", id).Int64("deleted_by", actor.ID).Msg("patient deleted")
	return nil
}

// AssignDoctor associates a doctor with a patient. Idempotent.
func (s *Service) AssignDoctor(ctx context.Context, patientID, doctorID int64) ([]int64, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.patients.AssignDoctor(ctx, patientID, doctorID); err != nil {
		return nil, err
	}
	return s.patients.DoctorIDs(ctx, patientID)
}

// RemoveDoctor drops a doctor association.
func (s *Service) RemoveDoctor(ctx context.Context, patientID, doctorID int64) ([]int64, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.patients.RemoveDoctor(ctx, patientID, doctorID); err != nil {
		return nil, err
	}
	return s.patients.DoctorIDs(ctx, patientID)
}

// AddReports appends hospital reports to a patient. Elements are processed
// independently: valid ones persist even when siblings fail, and a mixed
// outcome surfaces as a partial-failure error carrying per-element results.
func (s *Service) AddReports(ctx context.Context, actor auth.Principal, patientID int64, inputs []*ReportInput) ([]*Report, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation(map[string]string{"reports": "at least one report is required"})
	}
	if err := s.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}

	var (
		created []*Report
		results []apperror.BulkResult
		failed  bool
	)
	for i, in := range inputs {
		rep, err := in.Normalize()
		if err == nil {
			rep.PatientID = patientID
			rep.CreatedBy = actor.ID
			err = s.reports.Create(ctx, rep)
		}
		if err != nil {
			failed = true
			res := apperror.BulkResult{Index: i, Error: err.Error()}
			var appErr *apperror.Error
			if errors.As(err, &appErr) && appErr.Kind == apperror.KindValidation {
				res.Fields = appErr.Fields
			}
			results = append(results, res)
			continue
		}
		created = append(created, rep)
		results = append(results, apperror.BulkResult{Index: i, ID: rep.ID})
	}

	if failed {
		return created, apperror.PartialFailure(
			fmt.Sprintf("%d of %d reports failed", len(results)-len(created), len(results)), results)
	}
	return created, nil
}

// GetReport loads one report, checking it belongs to the patient.
func (s *Service) GetReport(ctx context.Context, actor auth.Principal, patientID, reportID int64) (*Report, error) {
	if err := s.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.PatientID != patientID {
		return nil, apperror.NotFound("report")
	}
	return rep, nil
}

// DeleteReport removes one report and returns the patient's remaining ones.
func (s *Service) DeleteReport(ctx context.Context, actor auth.Principal, patientID, reportID int64) ([]*Report, error) {
	if err := s.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.PatientID != patientID {
		return nil, apperror.NotFound("report")
	}
	if err := s.reports.Delete(ctx, reportID); err != nil {
		return nil, err
	}
	return s.reports.ListByPatient(ctx, patientID)
}
