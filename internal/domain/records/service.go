package records

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/internal/platform/storage"
	"github.com/heartsync/api/pkg/pagination"
)

// PatientGuard checks that the actor may work with the patient. Satisfied by
// the patient service.
type PatientGuard interface {
	Authorize(ctx context.Context, actor auth.Principal, patientID int64) error
}

type Service struct {
	records Repository
	files   storage.FileStore
	guard   PatientGuard
	logger  zerolog.Logger
}

func NewService(records Repository, files storage.FileStore, guard PatientGuard, logger zerolog.Logger) *Service {
	return &Service{records: records, files: files, guard: guard, logger: logger}
}

// Upload is an optional document accompanying a record.
type Upload struct {
	FileName string
	MimeType string
	Content  io.Reader
}

// CreateInput carries record metadata. recorded_at defaults to now.
type CreateInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	RecordType  *string    `json:"record_type"`
	RecordedAt  *time.Time `json:"recorded_at"`
}

func (in *CreateInput) Validate() error {
	fields := apperror.FieldErrors{}
	if in.Title == "" {
		fields.Add("title", "title is required")
	} else if len(in.Title) > MaxTitleLen {
		fields.Add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLen))
	}
	return fields.Err()
}

// Create stores a record, and its document when one is supplied.
func (s *Service) Create(ctx context.Context, actor auth.Principal, patientID int64, in *CreateInput, up *Upload) (*MedicalRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}

	recordedAt := time.Now()
	if in.RecordedAt != nil {
		recordedAt = *in.RecordedAt
	}
	rec := &MedicalRecord{
		PatientID:   patientID,
		Title:       in.Title,
		Description: in.Description,
		RecordType:  in.RecordType,
		RecordedAt:  recordedAt,
		CreatedBy:   actor.ID,
	}

	if up != nil {
		path, err := s.files.Save(ctx, patientID, up.FileName, up.Content)
		if err != nil {
			return nil, err
		}
		rec.FilePath = &path
		rec.FileName = &up.FileName
		if up.MimeType != "" {
			rec.MimeType = &up.MimeType
		}
	}

	if err := s.records.Create(ctx, rec); err != nil {
		if rec.FilePath != nil {
			// Stored file is orphaned if the row never lands.
			if derr := s.files.Delete(ctx, *rec.FilePath); derr != nil {
				s.logger.Warn().Err(derr).Str("path", *rec.FilePath).Msg("orphaned record file not cleaned up")
			}
		}
		return nil, err
	}

	s.logger.Info().Int64("patient_id", patientID).Int64("record_id", rec.ID).Msg("medical record created")
	return rec, nil
}

// Get loads one record, checking it belongs to the patient.
func (s *Service) Get(ctx context.Context, actor auth.Principal, patientID, recordID int64) (*MedicalRecord, error) {
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.PatientID != patientID {
		return nil, apperror.NotFound("medical record")
	}
	return rec, nil
}

// List returns a patient's records newest-first by recorded_at.
func (s *Service) List(ctx context.Context, actor auth.Principal, patientID int64, page pagination.Params) ([]*MedicalRecord, int64, error) {
	if err := s.guard.Authorize(ctx, actor, patientID); err != nil {
		return nil, 0, err
	}
	return s.records.ListByPatient(ctx, patientID, page)
}

// UpdateInput carries the mutable metadata. Nil fields keep the stored value.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	RecordType  *string    `json:"record_type"`
	RecordedAt  *time.Time `json:"recorded_at"`
}

func (in *UpdateInput) Validate() error {
	fields := apperror.FieldErrors{}
	if in.Title != nil {
		if *in.Title == "" {
			fields.Add("title", "title cannot be empty")
		} else if len(*in.Title) > MaxTitleLen {
			fields.Add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLen))
		}
	}
	return fields.Err()
}

// Update changes record metadata and optionally replaces the stored file,
// deleting the previous one.
func (s *Service) Update(ctx context.Context, actor auth.Principal, patientID, recordID int64, in *UpdateInput, up *Upload) (*MedicalRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.Get(ctx, actor, patientID, recordID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		rec.Title = *in.Title
	}
	if in.Description != nil {
		rec.Description = in.Description
	}
	if in.RecordType != nil {
		rec.RecordType = in.RecordType
	}
	if in.RecordedAt != nil {
		rec.RecordedAt = *in.RecordedAt
	}

	var previous string
	if up != nil {
		if rec.FilePath != nil {
			previous = *rec.FilePath
		}
		path, err := s.files.Save(ctx, patientID, up.FileName, up.Content)
		if err != nil {
			return nil, err
		}
		rec.FilePath = &path
		rec.FileName = &up.FileName
		if up.MimeType != "" {
			rec.MimeType = &up.MimeType
		} else {
			rec.MimeType = nil
		}
	}

	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	if previous != "" {
		if err := s.files.Delete(ctx, previous); err != nil {
			s.logger.Warn().Err(err).Str("path", previous).Msg("replaced record file not cleaned up")
		}
	}
	return rec, nil
}

// Delete removes the record and its stored file.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, patientID, recordID int64) error {
	rec, err := s.Get(ctx, actor, patientID, recordID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, recordID); err != nil {
		return err
	}
	if rec.HasFile() {
		if err := s.files.Delete(ctx, *rec.FilePath); err != nil {
			s.logger.Warn().Err(err).Str("path", *rec.FilePath).Msg("deleted record file not cleaned up")
		}
	}
	return nil
}

// OpenFile streams the stored document for a record. NotFound when the
// record is note-only.
func (s *Service) OpenFile(ctx context.Context, actor auth.Principal, patientID, recordID int64) (*MedicalRecord, io.ReadCloser, error) {
	rec, err := s.Get(ctx, actor, patientID, recordID)
	if err != nil {
		return nil, nil, err
	}
	if !rec.HasFile() {
		return nil, nil, apperror.NotFound("record file")
	}
	reader, err := s.files.Open(ctx, *rec.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return rec, reader, nil
}
