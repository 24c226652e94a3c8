package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/pagination"
)

// PatientGuard checks that the actor may work with the patient. Satisfied by
// the patient service.
type PatientGuard interface {
	Authorize(ctx context.Context, actor auth.Principal, patientID int64) error
}

type Service struct {
	vitals Repository
	guard  PatientGuard
	logger zerolog.Logger
}

func NewService(vitals Repository, guard PatientGuard, logger zerolog.Logger) *Service {
	return &Service{vitals: vitals, guard: guard, logger: logger}
}

// RecordInput is one observation set. measured_at defaults to the time of
// recording when absent.
type RecordInput struct {
	HeartRate              *int       `json:"heart_rate"`
	BloodPressureSystolic  *int       `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int       `json:"blood_pressure_diastolic"`
	Temperature            *float64   `json:"temperature"`
	RespiratoryRate        *int       `json:"respiratory_rate"`
	OxygenSaturation       *float64   `json:"oxygen_saturation"`
	Notes                  *string    `json:"notes"`
	MeasuredAt             *time.Time `json:"measured_at"`
}

func (in *RecordInput) Validate() error {
	fields := apperror.FieldErrors{}

	checkInt := func(field string, v *int, max int) {
		if v != nil && (*v < 0 || *v > max) {
			fields.Add(field, fmt.Sprintf("must be between 0 and %d", max))
		}
	}
	checkInt("heart_rate", in.HeartRate, MaxHeartRate)
	checkInt("blood_pressure_systolic", in.BloodPressureSystolic, MaxBloodPressure)
	checkInt("blood_pressure_diastolic", in.BloodPressureDiastolic, MaxBloodPressure)
	checkInt("respiratory_rate", in.RespiratoryRate, MaxRespiratoryRate)

	if in.Temperature != nil && (*in.Temperature < MinTemperature || *in.Temperature > MaxTemperature) {
		fields.Add("temperature", fmt.Sprintf("must be between %.0f and %.0f", MinTemperature, MaxTemperature))
	}
	if in.OxygenSaturation != nil && (*in.OxygenSaturation < 0 || *in.OxygenSaturation > MaxOxygenSat) {
		fields.Add("oxygen_saturation", fmt.Sprintf("must be between 0 and %.0f", MaxOxygenSat))
	}

	return fields.Err()
}

// Record stores one observation set for a patient and stamps the caller as
// the measurer.
func (s *Service) Record(ctx context.Context, actor auth.Principal, patientID int64, in *RecordInput) (*VitalSign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}

	measuredAt := time.Now()
	if in.MeasuredAt != nil {
		measuredAt = *in.MeasuredAt
	}
	v := &VitalSign{
		PatientID:              patientID,
		HeartRate:              in.HeartRate,
		BloodPressureSystolic:  in.BloodPressureSystolic,
		BloodPressureDiastolic: in.BloodPressureDiastolic,
		Temperature:            in.Temperature,
		RespiratoryRate:        in.RespiratoryRate,
		OxygenSaturation:       in.OxygenSaturation,
		Notes:                  in.Notes,
		MeasuredAt:             measuredAt,
		MeasuredBy:             actor.ID,
	}
	if err := s.vitals.Create(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("patient_id", patientID).Int64("vital_id", v.ID).Msg("vitals recorded")
	return v, nil
}

// List returns observations newest-first, optionally bounded by measurement
// time.
func (s *Service) List(ctx context.Context, actor auth.Principal, patientID int64, filter ListFilter, page pagination.Params) ([]*VitalSign, int64, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, apperror.Validation(map[string]string{"to": "must not be before from"})
	}
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, 0, err
	}
	return s.vitals.ListByPatient(ctx, patientID, filter, page)
}

// Latest returns the patient's most recent observation.
func (s *Service) Latest(ctx context.Context, actor auth.Principal, patientID int64) (*VitalSign, error) {
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	return s.vitals.Latest(ctx, patientID)
}
