package records

import (
	"context"
	"errors"

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

const recordCols = `id, patient_id, title, description, record_type, recorded_at,
	file_path, file_name, mime_type, created_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO medical_records (
			patient_id, title, description, record_type, recorded_at,
			file_path, file_name, mime_type, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		rec.PatientID, rec.Title, rec.Description, rec.RecordType, rec.RecordedAt,
		rec.FilePath, rec.FileName, rec.MimeType, rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*MedicalRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("medical record")
	}
	return rec, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, page pagination.Params) ([]*MedicalRecord, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE patient_id = $1
		 ORDER BY recorded_at DESC, id DESC LIMIT $2 OFFSET $3`,
		patientID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medical_records SET
			title=$2, description=$3, record_type=$4, recorded_at=$5,
			file_path=$6, file_name=$7, mime_type=$8, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Title, rec.Description, rec.RecordType, rec.RecordedAt,
		rec.FilePath, rec.FileName, rec.MimeType,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("medical record")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("medical record")
	}
	return nil
}

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.Title, &rec.Description, &rec.RecordType, &rec.RecordedAt,
		&rec.FilePath, &rec.FileName, &rec.MimeType, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
