package assessment

import "context"

type Repository interface {
	Create(ctx context.Context, a *RiskAssessment) error
	ListByPatient(ctx context.Context, patientID int64) ([]*RiskAssessment, error)
	GetByID(ctx context.Context, id int64) (*RiskAssessment, error)
	UpdateRecommendations(ctx context.Context, id int64, recommendations []string) error
	Delete(ctx context.Context, id int64) error
	// LatestRiskPerPatient returns each patient's most recent heart attack
	// risk, keyed by patient id.
	LatestRiskPerPatient(ctx context.Context) (map[int64]float64, error)
}
