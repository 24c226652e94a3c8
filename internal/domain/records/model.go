package records

import "time"

const MaxTitleLen = 200

// MedicalRecord is a clinical document or note attached to a patient.
// FilePath and MimeType are nil for note-only records.
type MedicalRecord struct {
	ID          int64     `db:"id" json:"id"`
	PatientID   int64     `db:"patient_id" json:"patient_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	RecordType  *string   `db:"record_type" json:"record_type,omitempty"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
	FilePath    *string   `db:"file_path" json:"-"`
	FileName    *string   `db:"file_name" json:"file_name,omitempty"`
	MimeType    *string   `db:"mime_type" json:"mime_type,omitempty"`
	CreatedBy   int64     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasFile reports whether the record carries a stored document.
func (r *MedicalRecord) HasFile() bool {
	return r.FilePath != nil && *r.FilePath != ""
}
