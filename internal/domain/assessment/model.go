package assessment

import "time"

// Orchestration states. A run starts pending, becomes submitted once the
// snapshot is sent to the prediction service, and ends completed or failed.
// Failed runs persist nothing.
const (
	StatePending   = "pending"
	StateSubmitted = "submitted"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// RiskAssessment is one completed prediction persisted for a patient.
// Recommendations is the only field mutable after creation.
type RiskAssessment struct {
	ID                int64              `db:"id" json:"id"`
	PatientID         int64              `db:"patient_id" json:"patient_id"`
	HeartAttackRisk   float64            `db:"heart_attack_risk" json:"heart_attack_risk"`
	StrokeRisk        float64            `db:"stroke_risk" json:"stroke_risk"`
	CardiovascularAge float64            `db:"cardiovascular_age" json:"cardiovascular_age"`
	Factors           map[string]float64 `db:"factors_considered" json:"factors_considered"`
	Recommendations   []string           `db:"recommendations" json:"recommendations"`
	ConfidenceScore   float64            `db:"confidence_score" json:"confidence_score"`
	ModelVersion      string             `db:"model_version" json:"model_version"`
	AssessedAt        time.Time          `db:"assessed_at" json:"assessed_at"`
	AssessedBy        *int64             `db:"assessed_by" json:"assessed_by,omitempty"`
}

// Preview is an unpersisted orchestrator run, returned by the preview
// endpoint. Persisted is always false and is serialized so callers cannot
// mistake it for a stored assessment.
type Preview struct {
	Persisted         bool               `json:"persisted"`
	PatientID         int64              `json:"patient_id"`
	ReportID          int64              `json:"report_id,omitempty"`
	HeartAttackRisk   float64            `json:"heart_attack_risk"`
	StrokeRisk        float64            `json:"stroke_risk"`
	CardiovascularAge float64            `json:"cardiovascular_age"`
	Factors           map[string]float64 `json:"factors_considered"`
	Recommendations   []string           `json:"recommendations"`
	ConfidenceScore   float64            `json:"confidence_score"`
	ModelVersion      string             `json:"model_version"`
}
