package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/domain/patient"
	"github.com/heartsync/api/internal/domain/vitals"
	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/internal/platform/prediction"
)

// PatientSource provides the demographic and report data the orchestrator
// snapshots. Satisfied by the patient service.
type PatientSource interface {
	GetPatient(ctx context.Context, actor auth.Principal, id int64) (*patient.Patient, error)
	GetReport(ctx context.Context, actor auth.Principal, patientID, reportID int64) (*patient.Report, error)
}

// VitalsSource provides the most recent observation. Satisfied by the vitals
// service.
type VitalsSource interface {
	Latest(ctx context.Context, actor auth.Principal, patientID int64) (*vitals.VitalSign, error)
}

// Predictor scores a clinical snapshot. Satisfied by the prediction client.
type Predictor interface {
	Predict(ctx context.Context, req *prediction.Request) (*prediction.Response, error)
}

type Service struct {
	assessments Repository
	patients    PatientSource
	vitals      VitalsSource
	predictor   Predictor
	logger      zerolog.Logger
}

func NewService(assessments Repository, patients PatientSource, vitalsSrc VitalsSource, predictor Predictor, logger zerolog.Logger) *Service {
	return &Service{
		assessments: assessments,
		patients:    patients,
		vitals:      vitalsSrc,
		predictor:   predictor,
		logger:      logger,
	}
}

// Create runs the full orchestration for a patient and persists the result.
// A failed prediction persists nothing.
func (s *Service) Create(ctx context.Context, actor auth.Principal, patientID int64) (*RiskAssessment, error) {
	resp, err := s.run(ctx, actor, patientID, nil)
	if err != nil {
		return nil, err
	}

	a := &RiskAssessment{
		PatientID:         patientID,
		HeartAttackRisk:   resp.HeartAttackRisk,
		StrokeRisk:        resp.StrokeRisk,
		CardiovascularAge: resp.CardiovascularAge,
		Factors:           resp.Factors,
		Recommendations:   resp.Recommendations,
		ConfidenceScore:   resp.ConfidenceScore,
		ModelVersion:      resp.ModelVersion,
		AssessedBy:        &actor.ID,
	}
	if err := s.assessments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("patient_id", patientID).
		Int64("assessment_id", a.ID).
		Str("model_version", a.ModelVersion).
		Msg("risk assessment persisted")
	return a, nil
}

// Preview runs the orchestration without persisting. With a report id the
// snapshot also carries that report's codes.
func (s *Service) Preview(ctx context.Context, actor auth.Principal, patientID, reportID int64) (*Preview, error) {
	var rep *patient.Report
	if reportID != 0 {
		var err error
		if rep, err = s.patients.GetReport(ctx, actor, patientID, reportID); err != nil {
			return nil, err
		}
	}

	resp, err := s.run(ctx, actor, patientID, rep)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Persisted:         false,
		PatientID:         patientID,
		ReportID:          reportID,
		HeartAttackRisk:   resp.HeartAttackRisk,
		StrokeRisk:        resp.StrokeRisk,
		CardiovascularAge: resp.CardiovascularAge,
		Factors:           resp.Factors,
		Recommendations:   resp.Recommendations,
		ConfidenceScore:   resp.ConfidenceScore,
		ModelVersion:      resp.ModelVersion,
	}, nil
}

// run drives the pending -> submitted -> completed|failed lifecycle: build
// the snapshot, submit it, validate the outcome.
func (s *Service) run(ctx context.Context, actor auth.Principal, patientID int64, rep *patient.Report) (*prediction.Response, error) {
	logger := s.logger.With().Int64("patient_id", patientID).Logger()
	logger.Info().Str("state", StatePending).Msg("assessment started")

	p, err := s.patients.GetPatient(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}

	req := s.snapshot(ctx, actor, p, rep)
	logger.Info().Str("state", StateSubmitted).Msg("snapshot submitted")

	resp, err := s.predictor.Predict(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Str("state", StateFailed).Msg("assessment failed")
		return nil, err
	}
	logger.Info().Str("state", StateCompleted).Msg("assessment completed")
	return resp, nil
}

// snapshot assembles the feature set: demographics, computed age and BMI,
// the latest vitals when any exist, comorbidity flags, and optionally one
// report's codes.
func (s *Service) snapshot(ctx context.Context, actor auth.Principal, p *patient.Patient, rep *patient.Report) *prediction.Request {
	req := &prediction.Request{
		Age:    p.Age(time.Now()),
		Gender: p.Gender,
	}
	if bmi, ok := p.BMI(); ok {
		req.BMI = &bmi
	}

	latest, err := s.vitals.Latest(ctx, actor, p.ID)
	if err == nil {
		req.HeartRate = intToFloat(latest.HeartRate)
		req.SystolicBP = intToFloat(latest.BloodPressureSystolic)
		req.DiastolicBP = intToFloat(latest.BloodPressureDiastolic)
		req.OxygenSat = latest.OxygenSaturation
	} else if !apperror.IsKind(err, apperror.KindNotFound) {
		// Vitals are optional input; anything worse than absence is logged
		// and the snapshot proceeds without them.
		s.logger.Warn().Err(err).Int64("patient_id", p.ID).Msg("latest vitals unavailable for snapshot")
	}

	if p.ChronicConditions != nil {
		conditions := strings.ToLower(*p.ChronicConditions)
		req.HasDiabetes = strings.Contains(conditions, "diabetes")
		req.HasHypertension = strings.Contains(conditions, "hypertension")
		req.HasHeartDisease = strings.Contains(conditions, "heart disease")
	}

	if rep != nil {
		if rep.DRGCode != nil {
			req.DRGCode = *rep.DRGCode
		}
		req.DRGSeverity = rep.DRGSeverity
		req.DRGMortality = rep.DRGMortality
		req.CPTCodes = rep.CPTCodes
		req.ICD9Codes = rep.ICD9Codes
		req.ProcedurePairs = rep.ProcedurePairs
		req.LabEvents = rep.LabEvents
	}
	return req
}

// List returns a patient's assessments, newest first.
func (s *Service) List(ctx context.Context, actor auth.Principal, patientID int64) ([]*RiskAssessment, error) {
	if _, err := s.patients.GetPatient(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.assessments.ListByPatient(ctx, patientID)
}

// Get loads one assessment, checking it belongs to the patient.
func (s *Service) Get(ctx context.Context, actor auth.Principal, patientID, id int64) (*RiskAssessment, error) {
	if _, err := s.patients.GetPatient(ctx, actor, patientID); err != nil {
		return nil, err
	}
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patientID {
		return nil, apperror.NotFound("risk assessment")
	}
	return a, nil
}

// UpdateRecommendations replaces the recommendation list wholesale. No other
// assessment field is mutable.
func (s *Service) UpdateRecommendations(ctx context.Context, actor auth.Principal, patientID, id int64, recommendations []string) (*RiskAssessment, error) {
	if _, err := s.Get(ctx, actor, patientID, id); err != nil {
		return nil, err
	}
	if err := s.assessments.UpdateRecommendations(ctx, id, recommendations); err != nil {
		return nil, err
	}
	return s.assessments.GetByID(ctx, id)
}

// Delete removes one assessment.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, patientID, id int64) error {
	if _, err := s.Get(ctx, actor, patientID, id); err != nil {
		return err
	}
	return s.assessments.Delete(ctx, id)
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
