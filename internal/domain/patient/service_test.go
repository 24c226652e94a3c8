package patient

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/internal/platform/auth"
	"github.com/heartsync/api/pkg/optional"
	"github.com/heartsync/api/pkg/pagination"
)

// ---------- In-memory repositories ----------

type memPatientRepo struct {
	nextID   int64
	patients map[int64]*Patient
	doctors  map[int64]map[int64]bool
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{
		nextID:   1,
		patients: make(map[int64]*Patient),
		doctors:  make(map[int64]map[int64]bool),
	}
}

func (m *memPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperror.NotFound("patient")
	}
	cp := *p
	return &cp, nil
}

func (m *memPatientRepo) List(_ context.Context, filter ListFilter, page pagination.Params) ([]*Patient, int64, error) {
	var all []*Patient
	for _, p := range m.patients {
		if filter.DoctorID != 0 && !m.doctors[p.ID][filter.DoctorID] {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if page.Offset >= len(all) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], total, nil
}

func (m *memPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperror.NotFound("patient")
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memPatientRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.patients[id]; !ok {
		return apperror.NotFound("patient")
	}
	delete(m.patients, id)
	delete(m.doctors, id)
	return nil
}

func (m *memPatientRepo) AssignDoctor(_ context.Context, patientID, doctorID int64) error {
	if m.doctors[patientID] == nil {
		m.doctors[patientID] = make(map[int64]bool)
	}
	m.doctors[patientID][doctorID] = true
	return nil
}

func (m *memPatientRepo) RemoveDoctor(_ context.Context, patientID, doctorID int64) error {
	delete(m.doctors[patientID], doctorID)
	return nil
}

func (m *memPatientRepo) DoctorIDs(_ context.Context, patientID int64) ([]int64, error) {
	var ids []int64
	for id := range m.doctors[patientID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memPatientRepo) IsAssigned(_ context.Context, patientID, doctorID int64) (bool, error) {
	return m.doctors[patientID][doctorID], nil
}

func (m *memPatientRepo) CountAll(_ context.Context) (int64, error) {
	return int64(len(m.patients)), nil
}

func (m *memPatientRepo) CountCreatedSince(_ context.Context, since time.Time) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, p := range m.patients {
		if !p.CreatedAt.Before(since) {
			counts[p.CreatedAt.Format("2006-01")]++
		}
	}
	return counts, nil
}

type memReportRepo struct {
	nextID  int64
	reports map[int64]*Report
	failOn  int // 1-based creation ordinal that fails, 0 disables
	calls   int
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{nextID: 1, reports: make(map[int64]*Report)}
}

func (m *memReportRepo) Create(_ context.Context, r *Report) error {
	m.calls++
	if m.failOn != 0 && m.calls == m.failOn {
		return errors.New("insert failed")
	}
	r.ID = m.nextID
	m.nextID++
	r.CreatedAt = time.Now()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memReportRepo) ListByPatient(_ context.Context, patientID int64) ([]*Report, error) {
	var out []*Report
	for _, r := range m.reports {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memReportRepo) GetByID(_ context.Context, id int64) (*Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperror.NotFound("report")
	}
	return r, nil
}

func (m *memReportRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.reports[id]; !ok {
		return apperror.NotFound("report")
	}
	delete(m.reports, id)
	return nil
}

// ---------- Helpers ----------

var (
	doctorAlice = auth.Principal{ID: 10, Email: "alice@clinic.test", Role: auth.RoleDoctor}
	doctorBob   = auth.Principal{ID: 11, Email: "bob@clinic.test", Role: auth.RoleDoctor}
	adminEve    = auth.Principal{ID: 1, Email: "eve@clinic.test", Role: auth.RoleAdmin}
)

func newTestService() (*Service, *memPatientRepo, *memReportRepo) {
	patients := newMemPatientRepo()
	reports := newMemReportRepo()
	return NewService(patients, reports, zerolog.Nop()), patients, reports
}

func validCreateInput() *CreateInput {
	return &CreateInput{
		FullName:    "Jane Roe",
		DateOfBirth: time.Date(1970, 5, 2, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
	}
}

func strptr(s string) *string   { return &s }
func f64ptr(f float64) *float64 { return &f }

// ---------- Create ----------

func TestCreatePatient_AssignsCreatingDoctor(t *testing.T) {
	svc, patients, _ := newTestService()

	p, err := svc.CreatePatient(context.Background(), doctorAlice, validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected assigned id")
	}
	assigned, _ := patients.IsAssigned(context.Background(), p.ID, doctorAlice.ID)
	if !assigned {
		t.Error("creating doctor should be associated with the patient")
	}
}

func TestCreatePatient_AdminCreatesWithoutAssociation(t *testing.T) {
	svc, patients, _ := newTestService()

	p, err := svc.CreatePatient(context.Background(), adminEve, validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids, _ := patients.DoctorIDs(context.Background(), p.ID)
	if len(ids) != 0 {
		t.Errorf("admin create should not associate a doctor, got %v", ids)
	}
}

func TestCreatePatient_CollectsAllFieldErrors(t *testing.T) {
	svc, _, _ := newTestService()

	in := &CreateInput{
		Gender:    "unknown",
		BloodType: strptr("Z+"),
		HeightCM:  f64ptr(-3),
		WeightKG:  f64ptr(5000),
	}
	_, err := svc.CreatePatient(context.Background(), doctorAlice, in)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"full_name", "date_of_birth", "gender", "blood_type", "height_cm", "weight_kg"} {
		if _, ok := appErr.Fields[field]; !ok {
			t.Errorf("expected field error for %s, got %v", field, appErr.Fields)
		}
	}
}

func TestCreatePatient_FutureDOBRejected(t *testing.T) {
	svc, _, _ := newTestService()

	in := validCreateInput()
	in.DateOfBirth = time.Now().Add(48 * time.Hour)
	_, err := svc.CreatePatient(context.Background(), doctorAlice, in)
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePatient_InlineReports(t *testing.T) {
	svc, _, reports := newTestService()

	in := validCreateInput()
	in.Reports = []*ReportInput{
		{CPTCodes: []byte(`["99213","93000"]`)},
	}
	p, err := svc.CreatePatient(context.Background(), doctorAlice, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(p.Reports))
	}
	if p.Reports[0].PatientID != p.ID {
		t.Error("report not linked to created patient")
	}
	if p.Reports[0].CreatedBy != doctorAlice.ID {
		t.Error("report creator should be the calling doctor")
	}
	if len(reports.reports) != 1 {
		t.Error("report should be persisted")
	}
}

func TestCreatePatient_InvalidInlineReportRejectsWholeCreate(t *testing.T) {
	svc, patients, _ := newTestService()

	in := validCreateInput()
	in.Reports = []*ReportInput{
		{LabEvents: []byte(`"a,b,c"`)}, // not divisible into groups of 4
	}
	_, err := svc.CreatePatient(context.Background(), doctorAlice, in)
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(patients.patients) != 0 {
		t.Error("nothing should persist when an inline report is invalid")
	}
}

// ---------- Visibility ----------

func TestGetPatient_DoctorVisibility(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.CreatePatient(context.Background(), doctorAlice, validCreateInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetPatient(context.Background(), doctorAlice, p.ID); err != nil {
		t.Errorf("associated doctor should see the patient: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), doctorBob, p.ID); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("unassociated doctor should get forbidden, got %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), adminEve, p.ID); err != nil {
		t.Errorf("admin should see every patient: %v", err)
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetPatient(context.Background(), adminEve, 999)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPatients_DoctorSeesOnlyOwn(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreatePatient(ctx, doctorBob, validCreateInput()); err != nil {
		t.Fatal(err)
	}

	page := pagination.Params{Limit: 20}
	mine, total, err := svc.ListPatients(ctx, doctorAlice, "", page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(mine) != 1 {
		t.Errorf("doctor should see 1 patient, got %d (total %d)", len(mine), total)
	}

	all, total, err := svc.ListPatients(ctx, adminEve, "", page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("admin should see 2 patients, got %d (total %d)", len(all), total)
	}
}

// ---------- Update ----------

func TestUpdatePatient_PartialSemantics(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := validCreateInput()
	in.ContactNumber = strptr("555-0100")
	in.Allergies = strptr("penicillin")
	p, err := svc.CreatePatient(ctx, doctorAlice, in)
	if err != nil {
		t.Fatal(err)
	}

	upd := &UpdateInput{
		FullName:  optional.Of("Jane R. Roe"),
		Allergies: optional.Null[string](),
	}
	got, err := svc.UpdatePatient(ctx, doctorAlice, p.ID, upd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FullName != "Jane R. Roe" {
		t.Errorf("full name not updated: %q", got.FullName)
	}
	if got.Allergies != nil {
		t.Errorf("explicit null should clear allergies, got %v", *got.Allergies)
	}
	if got.ContactNumber == nil || *got.ContactNumber != "555-0100" {
		t.Error("absent field should keep stored value")
	}
}

func TestUpdatePatient_ValidatesRanges(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}

	upd := &UpdateInput{HeightCM: optional.Of(350.0)}
	if _, err := svc.UpdatePatient(ctx, doctorAlice, p.ID, upd); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePatient_ForbiddenForOtherDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}
	upd := &UpdateInput{FullName: optional.Of("Hijacked")}
	if _, err := svc.UpdatePatient(ctx, doctorBob, p.ID, upd); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

// ---------- Doctor associations ----------

func TestAssignAndRemoveDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, adminEve, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}

	doctors, err := svc.AssignDoctor(ctx, p.ID, doctorAlice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 1 || doctors[0] != doctorAlice.ID {
		t.Errorf("expected [%d], got %v", doctorAlice.ID, doctors)
	}

	// Assigning twice stays idempotent.
	doctors, err = svc.AssignDoctor(ctx, p.ID, doctorAlice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 1 {
		t.Errorf("repeat assign should not duplicate, got %v", doctors)
	}

	doctors, err = svc.RemoveDoctor(ctx, p.ID, doctorAlice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 0 {
		t.Errorf("expected no doctors, got %v", doctors)
	}
}

func TestAssignDoctor_PatientNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.AssignDoctor(context.Background(), 42, doctorAlice.ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// ---------- Reports ----------

func TestAddReports_AllValid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}

	created, err := svc.AddReports(ctx, doctorAlice, p.ID, []*ReportInput{
		{CPTCodes: []byte(`["99213"]`), ICD9Codes: []byte(`"410.71, 428.0"`)},
		{ProcedurePairs: []byte(`[[1,3613],[2,3961]]`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(created))
	}
	if got := created[0].ICD9Codes; len(got) != 2 || got[0] != "410.71" {
		t.Errorf("comma string should normalize to list, got %v", got)
	}
}

func TestAddReports_PartialFailure(t *testing.T) {
	svc, _, reportRepo := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}

	bad := 7
	created, err := svc.AddReports(ctx, doctorAlice, p.ID, []*ReportInput{
		{CPTCodes: []byte(`["99213"]`)},
		{DRGSeverity: &bad},
	})
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindPartialFailure {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("valid sibling should persist, got %d created", len(created))
	}
	if len(reportRepo.reports) != 1 {
		t.Errorf("expected 1 persisted report, got %d", len(reportRepo.reports))
	}
	if len(appErr.Results) != 2 {
		t.Fatalf("expected 2 per-element results, got %d", len(appErr.Results))
	}
	if appErr.Results[0].ID == 0 || appErr.Results[0].Error != "" {
		t.Errorf("first element should be a success: %+v", appErr.Results[0])
	}
	if appErr.Results[1].Error == "" {
		t.Errorf("second element should carry an error: %+v", appErr.Results[1])
	}
}

func TestAddReports_EmptyListRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddReports(ctx, doctorAlice, p.ID, nil); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteReport_ReturnsRemaining(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, doctorAlice, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}
	created, err := svc.AddReports(ctx, doctorAlice, p.ID, []*ReportInput{
		{CPTCodes: []byte(`["99213"]`)},
		{CPTCodes: []byte(`["93000"]`)},
	})
	if err != nil {
		t.Fatal(err)
	}

	remaining, err := svc.DeleteReport(ctx, doctorAlice, p.ID, created[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != created[1].ID {
		t.Errorf("expected only the sibling report to remain, got %+v", remaining)
	}
}

func TestDeleteReport_WrongPatient(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p1, err := svc.CreatePatient(ctx, adminEve, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}
	p2, err := svc.CreatePatient(ctx, adminEve, validCreateInput())
	if err != nil {
		t.Fatal(err)
	}
	created, err := svc.AddReports(ctx, adminEve, p1.ID, []*ReportInput{{CPTCodes: []byte(`["99213"]`)}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.DeleteReport(ctx, adminEve, p2.ID, created[0].ID); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found for mismatched patient, got %v", err)
	}
}
