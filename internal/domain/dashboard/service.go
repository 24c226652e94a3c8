package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Risk bucket thresholds over the latest heart attack risk per patient.
const (
	lowRiskBelow  = 25.0
	highRiskAbove = 60.0
)

const trailingMonths = 12

// PatientStats is the slice of the patient repository the dashboard reads.
type PatientStats interface {
	CountAll(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

// RiskStats is the slice of the assessment repository the dashboard reads.
type RiskStats interface {
	LatestRiskPerPatient(ctx context.Context) (map[int64]float64, error)
}

// MonthCount is one month's new-patient tally. Month is formatted 2006-01.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// RiskBuckets counts patients by their latest assessment's heart attack
// risk. Patients without an assessment are in none of the buckets.
type RiskBuckets struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}

type Stats struct {
	TotalPatients      int64        `json:"total_patients"`
	MonthlyNewPatients []MonthCount `json:"monthly_new_patients"`
	RiskBuckets        RiskBuckets  `json:"risk_buckets"`
}

type Service struct {
	patients PatientStats
	risks    RiskStats
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(patients PatientStats, risks RiskStats, logger zerolog.Logger) *Service {
	return &Service{patients: patients, risks: risks, logger: logger, now: time.Now}
}

// Stats aggregates the dashboard numbers: total patients, new patients per
// calendar month for the trailing 12 months (oldest first, zero-filled), and
// risk buckets over each patient's latest assessment.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.patients.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	// Month keys are UTC on both ends: the repository buckets created_at
	// AT TIME ZONE 'UTC' and the window here is derived from UTC wall time.
	now := s.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(trailingMonths - 1), 0)
	counts, err := s.patients.CountCreatedSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}

	months := make([]MonthCount, 0, trailingMonths)
	for i := 0; i < trailingMonths; i++ {
		key := windowStart.AddDate(0, i, 0).Format("2006-01")
		months = append(months, MonthCount{Month: key, Count: counts[key]})
	}

	risks, err := s.risks.LatestRiskPerPatient(ctx)
	if err != nil {
		return nil, err
	}
	var buckets RiskBuckets
	for _, risk := range risks {
		switch {
		case risk < lowRiskBelow:
			buckets.Low++
		case risk > highRiskAbove:
			buckets.High++
		default:
			buckets.Medium++
		}
	}

	return &Stats{
		TotalPatients:      total,
		MonthlyNewPatients: months,
		RiskBuckets:        buckets,
	}, nil
}
