package vitals

import (
	"context"
	"time"

	"github.com/heartsync/api/pkg/pagination"
)

// ListFilter narrows a vitals listing to a measurement window. Zero bounds
// are open.
type ListFilter struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	Create(ctx context.Context, v *VitalSign) error
	ListByPatient(ctx context.Context, patientID int64, filter ListFilter, page pagination.Params) ([]*VitalSign, int64, error)
	// Latest returns the most recent observation by measured_at, highest id
	// winning ties.
	Latest(ctx context.Context, patientID int64) (*VitalSign, error)
}
