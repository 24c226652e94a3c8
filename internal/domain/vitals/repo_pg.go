package vitals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const vitalCols = `id, patient_id, heart_rate, blood_pressure_systolic, blood_pressure_diastolic,
	temperature, respiratory_rate, oxygen_saturation, notes, measured_at, measured_by, created_at`

func (r *repoPG) Create(ctx context.Context, v *VitalSign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO vital_signs (
			patient_id, heart_rate, blood_pressure_systolic, blood_pressure_diastolic,
			temperature, respiratory_rate, oxygen_saturation, notes, measured_at, measured_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at`,
		v.PatientID, v.HeartRate, v.BloodPressureSystolic, v.BloodPressureDiastolic,
		v.Temperature, v.RespiratoryRate, v.OxygenSaturation, v.Notes, v.MeasuredAt, v.MeasuredBy,
	).Scan(&v.ID, &v.CreatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, filter ListFilter, page pagination.Params) ([]*VitalSign, int64, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2
	if !filter.From.IsZero() {
		where += fmt.Sprintf(` AND measured_at >= $%d`, idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		where += fmt.Sprintf(` AND measured_at <= $%d`, idx)
		args = append(args, filter.To)
		idx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vital_signs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+vitalCols+` FROM vital_signs`+where+
			fmt.Sprintf(` ORDER BY measured_at DESC, id DESC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vitals []*VitalSign
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, 0, err
		}
		vitals = append(vitals, v)
	}
	return vitals, total, rows.Err()
}

func (r *repoPG) Latest(ctx context.Context, patientID int64) (*VitalSign, error) {
	v, err := scanVital(r.pool.QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_signs WHERE patient_id = $1
		 ORDER BY measured_at DESC, id DESC LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("vital signs")
	}
	return v, err
}

func scanVital(row pgx.Row) (*VitalSign, error) {
	var v VitalSign
	err := row.Scan(
		&v.ID, &v.PatientID, &v.HeartRate, &v.BloodPressureSystolic, &v.BloodPressureDiastolic,
		&v.Temperature, &v.RespiratoryRate, &v.OxygenSaturation, &v.Notes, &v.MeasuredAt, &v.MeasuredBy, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
