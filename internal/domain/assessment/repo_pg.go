package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartsync/api/internal/platform/apperror"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const assessmentCols = `id, patient_id, heart_attack_risk, stroke_risk, cardiovascular_age,
	factors_considered, recommendations, confidence_score, model_version, assessed_at, assessed_by`

func (r *repoPG) Create(ctx context.Context, a *RiskAssessment) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(a.Recommendations)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO risk_assessments (
			patient_id, heart_attack_risk, stroke_risk, cardiovascular_age,
			factors_considered, recommendations, confidence_score, model_version, assessed_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, assessed_at`,
		a.PatientID, a.HeartAttackRisk, a.StrokeRisk, a.CardiovascularAge,
		factors, recs, a.ConfidenceScore, a.ModelVersion, a.AssessedBy,
	).Scan(&a.ID, &a.AssessedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]*RiskAssessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentCols+` FROM risk_assessments
		 WHERE patient_id = $1 ORDER BY assessed_at DESC, id DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RiskAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*RiskAssessment, error) {
	a, err := scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM risk_assessments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("risk assessment")
	}
	return a, err
}

func (r *repoPG) UpdateRecommendations(ctx context.Context, id int64, recommendations []string) error {
	recs, err := json.Marshal(recommendations)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE risk_assessments SET recommendations = $2 WHERE id = $1`, id, recs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("risk assessment")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM risk_assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("risk assessment")
	}
	return nil
}

func (r *repoPG) LatestRiskPerPatient(ctx context.Context) (map[int64]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (patient_id) patient_id, heart_attack_risk
		FROM risk_assessments
		ORDER BY patient_id, assessed_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	risks := make(map[int64]float64)
	for rows.Next() {
		var patientID int64
		var risk float64
		if err := rows.Scan(&patientID, &risk); err != nil {
			return nil, err
		}
		risks[patientID] = risk
	}
	return risks, rows.Err()
}

func scanAssessment(row pgx.Row) (*RiskAssessment, error) {
	var a RiskAssessment
	var factors, recs []byte
	err := row.Scan(
		&a.ID, &a.PatientID, &a.HeartAttackRisk, &a.StrokeRisk, &a.CardiovascularAge,
		&factors, &recs, &a.ConfidenceScore, &a.ModelVersion, &a.AssessedAt, &a.AssessedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, fmt.Errorf("assessment %d factors_considered: %w", a.ID, err)
	}
	if err := json.Unmarshal(recs, &a.Recommendations); err != nil {
		return nil, fmt.Errorf("assessment %d recommendations: %w", a.ID, err)
	}
	return &a, nil
}
