package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

const patientCols = `id, full_name, date_of_birth, gender,
	contact_number, email, address, blood_type, height_cm, weight_kg,
	allergies, chronic_conditions, current_medications, family_history,
	emergency_contact_name, emergency_contact_number,
	insurance_provider, insurance_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO patients (
			full_name, date_of_birth, gender,
			contact_number, email, address, blood_type, height_cm, weight_kg,
			allergies, chronic_conditions, current_medications, family_history,
			emergency_contact_name, emergency_contact_number,
			insurance_provider, insurance_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id, created_at, updated_at`,
		p.FullName, p.DateOfBirth, p.Gender,
		p.ContactNumber, p.Email, p.Address, p.BloodType, p.HeightCM, p.WeightKG,
		p.Allergies, p.ChronicConditions, p.CurrentMedications, p.FamilyHistory,
		p.EmergencyContactName, p.EmergencyContactNumber,
		p.InsuranceProvider, p.InsuranceID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("patient")
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]*Patient, int64, error) {
	where := ""
	args := []interface{}{}
	idx := 1
	if filter.DoctorID != 0 {
		where = fmt.Sprintf(` WHERE id IN (SELECT patient_id FROM patient_doctors WHERE doctor_id = $%d)`, idx)
		args = append(args, filter.DoctorID)
		idx++
	}
	if filter.Search != "" {
		clause := fmt.Sprintf(`full_name ILIKE $%d`, idx)
		if where == "" {
			where = ` WHERE ` + clause
		} else {
			where += ` AND ` + clause
		}
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients`+where+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, idx, idx+1),
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET
			full_name=$2, contact_number=$3, email=$4, address=$5, blood_type=$6,
			height_cm=$7, weight_kg=$8, allergies=$9, chronic_conditions=$10,
			current_medications=$11, family_history=$12,
			emergency_contact_name=$13, emergency_contact_number=$14,
			insurance_provider=$15, insurance_id=$16, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.ContactNumber, p.Email, p.Address, p.BloodType,
		p.HeightCM, p.WeightKG, p.Allergies, p.ChronicConditions,
		p.CurrentMedications, p.FamilyHistory,
		p.EmergencyContactName, p.EmergencyContactNumber,
		p.InsuranceProvider, p.InsuranceID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("patient")
	}
	return nil
}

func (r *repoPG) AssignDoctor(ctx context.Context, patientID, doctorID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_doctors (patient_id, doctor_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, patientID, doctorID)
	return err
}

func (r *repoPG) RemoveDoctor(ctx context.Context, patientID, doctorID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM patient_doctors WHERE patient_id = $1 AND doctor_id = $2`, patientID, doctorID)
	return err
}

func (r *repoPG) DoctorIDs(ctx context.Context, patientID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id FROM patient_doctors WHERE patient_id = $1 ORDER BY doctor_id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) IsAssigned(ctx context.Context, patientID, doctorID int64) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patient_doctors WHERE patient_id = $1 AND doctor_id = $2)`,
		patientID, doctorID).Scan(&assigned)
	return assigned, err
}

func (r *repoPG) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}

// CountCreatedSince buckets patient creations by calendar month ("2006-01"
// keys) from since onward. Bucketing is done in UTC so keys line up with the
// UTC month window the dashboard emits regardless of the session timezone.
func (r *repoPG) CountCreatedSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month, COUNT(*)
		FROM patients WHERE created_at >= $1
		GROUP BY month`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var month string
		var n int64
		if err := rows.Scan(&month, &n); err != nil {
			return nil, err
		}
		counts[month] = n
	}
	return counts, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FullName, &p.DateOfBirth, &p.Gender,
		&p.ContactNumber, &p.Email, &p.Address, &p.BloodType, &p.HeightCM, &p.WeightKG,
		&p.Allergies, &p.ChronicConditions, &p.CurrentMedications, &p.FamilyHistory,
		&p.EmergencyContactName, &p.EmergencyContactNumber,
		&p.InsuranceProvider, &p.InsuranceID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Report Repository --

type reportRepoPG struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

const reportCols = `id, patient_id, drg_code, drg_description, drg_severity, drg_mortality,
	cpt_codes, icd9_codes, procedure_pairs, lab_events, created_by, created_at`

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	cpt, icd9, pairs, labs, err := marshalReportCodes(rep)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO patient_reports (
			patient_id, drg_code, drg_description, drg_severity, drg_mortality,
			cpt_codes, icd9_codes, procedure_pairs, lab_events, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at`,
		rep.PatientID, rep.DRGCode, rep.DRGDescription, rep.DRGSeverity, rep.DRGMortality,
		cpt, icd9, pairs, labs, rep.CreatedBy,
	).Scan(&rep.ID, &rep.CreatedAt)
}

func (r *reportRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Report, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportCols+` FROM patient_reports WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func (r *reportRepoPG) GetByID(ctx context.Context, id int64) (*Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM patient_reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("report")
	}
	return rep, err
}

func (r *reportRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patient_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("report")
	}
	return nil
}

func marshalReportCodes(rep *Report) (cpt, icd9, pairs, labs []byte, err error) {
	if cpt, err = json.Marshal(rep.CPTCodes); err != nil {
		return
	}
	if icd9, err = json.Marshal(rep.ICD9Codes); err != nil {
		return
	}
	if pairs, err = json.Marshal(rep.ProcedurePairs); err != nil {
		return
	}
	labs, err = json.Marshal(rep.LabEvents)
	return
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var cpt, icd9, pairs, labs []byte
	err := row.Scan(
		&rep.ID, &rep.PatientID, &rep.DRGCode, &rep.DRGDescription, &rep.DRGSeverity, &rep.DRGMortality,
		&cpt, &icd9, &pairs, &labs, &rep.CreatedBy, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cpt, &rep.CPTCodes); err != nil {
		return nil, fmt.Errorf("report %d cpt_codes: %w", rep.ID, err)
	}
	if err := json.Unmarshal(icd9, &rep.ICD9Codes); err != nil {
		return nil, fmt.Errorf("report %d icd9_codes: %w", rep.ID, err)
	}
	if err := json.Unmarshal(pairs, &rep.ProcedurePairs); err != nil {
		return nil, fmt.Errorf("report %d procedure_pairs: %w", rep.ID, err)
	}
	if err := json.Unmarshal(labs, &rep.LabEvents); err != nil {
		return nil, fmt.Errorf("report %d lab_events: %w", rep.ID, err)
	}
	return &rep, nil
}
