package patient

import (
	"context"
	"time"

	"github.com/heartsync/api/pkg/pagination"
)

// ListFilter narrows the patient list. DoctorID restricts to patients the
// doctor is associated with; zero means no restriction.
type ListFilter struct {
	DoctorID int64
	Search   string
}

// Repository is the persistence boundary for patients and their doctor
// associations.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]*Patient, int64, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error

	AssignDoctor(ctx context.Context, patientID, doctorID int64) error
	RemoveDoctor(ctx context.Context, patientID, doctorID int64) error
	DoctorIDs(ctx context.Context, patientID int64) ([]int64, error)
	IsAssigned(ctx context.Context, patientID, doctorID int64) (bool, error)

	CountAll(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

// ReportRepository persists hospital reports attached to a patient.
type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	ListByPatient(ctx context.Context, patientID int64) ([]*Report, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	Delete(ctx context.Context, id int64) error
}
