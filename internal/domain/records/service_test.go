package records

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/pagination"
)

// ---------- Fixtures ----------

type memRecordRepo struct {
	nextID int64
	rows   map[int64]*MedicalRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{nextID: 1, rows: make(map[int64]*MedicalRecord)}
}

func (m *memRecordRepo) Create(_ context.Context, r *MedicalRecord) error {
	r.ID = m.nextID
	m.nextID++
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRecordRepo) GetByID(_ context.Context, id int64) (*MedicalRecord, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, apperror.NotFound("medical record")
	}
	cp := *r
	return &cp, nil
}

func (m *memRecordRepo) ListByPatient(_ context.Context, patientID int64, page pagination.Params) ([]*MedicalRecord, int64, error) {
	var out []*MedicalRecord
	for _, r := range m.rows {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	total := int64(len(out))
	if page.Offset >= len(out) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[page.Offset:end], total, nil
}

func (m *memRecordRepo) Update(_ context.Context, r *MedicalRecord) error {
	if _, ok := m.rows[r.ID]; !ok {
		return apperror.NotFound("medical record")
	}
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRecordRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return apperror.NotFound("medical record")
	}
	delete(m.rows, id)
	return nil
}

// memFileStore keeps file bodies in a map.
type memFileStore struct {
	nextID int
	files  map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (m *memFileStore) Save(_ context.Context, patientID int64, fileName string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.nextID++
	path := fmt.Sprintf("patient_%d/%d_%s", patientID, m.nextID, fileName)
	m.files[path] = data
	return path, nil
}

func (m *memFileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, apperror.NotFound("file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFileStore) Delete(_ context.Context, path string) error {
	delete(m.files, path)
	return nil
}

type openGuard struct{}

func (openGuard) Authorize(_ context.Context, _ auth.Principal, _ int64) error { return nil }

var doctorAlice = auth.Principal{ID: 10, Role: auth.RoleDoctor}

func newTestService() (*Service, *memRecordRepo, *memFileStore) {
	repo := newMemRecordRepo()
	files := newMemFileStore()
	return NewService(repo, files, openGuard{}, zerolog.Nop()), repo, files
}

// ---------- Create ----------

func TestCreate_NoteOnly(t *testing.T) {
	svc, _, files := newTestService()

	rec, err := svc.Create(context.Background(), doctorAlice, 1, &CreateInput{Title: "Progress note"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.HasFile() {
		t.Error("note-only record should have no file")
	}
	if rec.CreatedBy != doctorAlice.ID {
		t.Errorf("created_by should be the caller, got %d", rec.CreatedBy)
	}
	if len(files.files) != 0 {
		t.Error("no file should be stored")
	}
}

func TestCreate_WithFile(t *testing.T) {
	svc, _, files := newTestService()

	up := &Upload{
		FileName: "echo.pdf",
		MimeType: "application/pdf",
		Content:  strings.NewReader("%PDF-1.4 fake"),
	}
	rec, err := svc.Create(context.Background(), doctorAlice, 1, &CreateInput{Title: "Echocardiogram"}, up)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.HasFile() {
		t.Fatal("expected stored file")
	}
	if rec.MimeType == nil || *rec.MimeType != "application/pdf" {
		t.Errorf("mime type not captured: %v", rec.MimeType)
	}
	if _, ok := files.files[*rec.FilePath]; !ok {
		t.Errorf("file body not stored at %s", *rec.FilePath)
	}
}

func TestCreate_TitleValidation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), doctorAlice, 1, &CreateInput{}, nil); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
	long := strings.Repeat("x", MaxTitleLen+1)
	if _, err := svc.Create(context.Background(), doctorAlice, 1, &CreateInput{Title: long}, nil); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for overlong title, got %v", err)
	}
}

func TestCreate_RecordedAtDefaultsToNow(t *testing.T) {
	svc, _, _ := newTestService()

	before := time.Now()
	rec, err := svc.Create(context.Background(), doctorAlice, 1, &CreateInput{Title: "Note"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RecordedAt.Before(before) || rec.RecordedAt.After(time.Now()) {
		t.Errorf("recorded_at should default to now, got %v", rec.RecordedAt)
	}
}

// ---------- Download ----------

func TestOpenFile_StreamsStoredBody(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	up := &Upload{FileName: "scan.png", MimeType: "image/png", Content: strings.NewReader("pngbytes")}
	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Scan"}, up)
	if err != nil {
		t.Fatal(err)
	}

	got, reader, err := svc.OpenFile(ctx, doctorAlice, 1, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reader.Close()
	body, _ := io.ReadAll(reader)
	if string(body) != "pngbytes" {
		t.Errorf("unexpected body %q", body)
	}
	if got.FileName == nil || *got.FileName != "scan.png" {
		t.Errorf("file name not preserved: %v", got.FileName)
	}
}

func TestOpenFile_NoteOnlyRecord(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Note"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.OpenFile(ctx, doctorAlice, 1, rec.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found for note-only record, got %v", err)
	}
}

// ---------- Update ----------

func TestUpdate_ReplacesFileAndDeletesOld(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Scan"},
		&Upload{FileName: "v1.png", MimeType: "image/png", Content: strings.NewReader("old")})
	if err != nil {
		t.Fatal(err)
	}
	oldPath := *rec.FilePath

	updated, err := svc.Update(ctx, doctorAlice, 1, rec.ID, &UpdateInput{},
		&Upload{FileName: "v2.png", MimeType: "image/png", Content: strings.NewReader("new")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *updated.FilePath == oldPath {
		t.Error("file path should change on replacement")
	}
	if _, ok := files.files[oldPath]; ok {
		t.Error("old file should be deleted")
	}
	if string(files.files[*updated.FilePath]) != "new" {
		t.Error("new body should be stored")
	}
}

func TestUpdate_MetadataOnlyKeepsFile(t *testing.T) {
	svc, _, files := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Scan"},
		&Upload{FileName: "v1.png", Content: strings.NewReader("body")})
	if err != nil {
		t.Fatal(err)
	}

	title := "Chest scan"
	updated, err := svc.Update(ctx, doctorAlice, 1, rec.ID, &UpdateInput{Title: &title}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Chest scan" {
		t.Errorf("title not updated: %q", updated.Title)
	}
	if *updated.FilePath != *rec.FilePath {
		t.Error("file should be untouched")
	}
	if len(files.files) != 1 {
		t.Errorf("expected 1 stored file, got %d", len(files.files))
	}
}

// ---------- Delete ----------

func TestDelete_RemovesStoredFile(t *testing.T) {
	svc, repo, files := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Scan"},
		&Upload{FileName: "v1.png", Content: strings.NewReader("body")})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, doctorAlice, 1, rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Error("record row should be deleted")
	}
	if len(files.files) != 0 {
		t.Error("stored file should be deleted")
	}
}

func TestGet_WrongPatient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Note"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, doctorAlice, 2, rec.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found for mismatched patient, got %v", err)
	}
}

func TestList_NewestFirstByRecordedAt(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "Old", RecordedAt: &older}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, doctorAlice, 1, &CreateInput{Title: "New", RecordedAt: &newer}, nil); err != nil {
		t.Fatal(err)
	}

	list, total, err := svc.List(ctx, doctorAlice, 1, pagination.Params{Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("expected 2 records, got %d (total %d)", len(list), total)
	}
	if list[0].Title != "New" {
		t.Errorf("expected newest first, got %q", list[0].Title)
	}
}
