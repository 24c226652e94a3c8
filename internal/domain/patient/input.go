package patient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/heartsync/api/internal/platform/apperror"
	"github.com/heartsync/api/pkg/optional"
)

// CreateInput is the payload for creating a patient. Reports may be supplied
// inline; they go through the same normalization as the bulk endpoint.
type CreateInput struct {
	FullName               string         `json:"full_name"`
	DateOfBirth            time.Time      `json:"date_of_birth"`
	Gender                 string         `json:"gender"`
	ContactNumber          *string        `json:"contact_number"`
	Email                  *string        `json:"email"`
	Address                *string        `json:"address"`
	BloodType              *string        `json:"blood_type"`
	HeightCM               *float64       `json:"height_cm"`
	WeightKG               *float64       `json:"weight_kg"`
	Allergies              *string        `json:"allergies"`
	ChronicConditions      *string        `json:"chronic_conditions"`
	CurrentMedications     *string        `json:"current_medications"`
	FamilyHistory          *string        `json:"family_history"`
	EmergencyContactName   *string        `json:"emergency_contact_name"`
	EmergencyContactNumber *string        `json:"emergency_contact_number"`
	InsuranceProvider      *string        `json:"insurance_provider"`
	InsuranceID            *string        `json:"insurance_id"`
	Reports                []*ReportInput `json:"reports"`
}

// Validate checks mandatory fields and every range/enum, collecting all
// violations rather than stopping at the first.
func (in *CreateInput) Validate(now time.Time) error {
	fields := apperror.FieldErrors{}

	if in.FullName == "" {
		fields.Add("full_name", "full name is required")
	}
	if in.DateOfBirth.IsZero() {
		fields.Add("date_of_birth", "date of birth is required")
	} else if in.DateOfBirth.After(now) {
		fields.Add("date_of_birth", "date of birth cannot be in the future")
	}
	if in.Gender == "" {
		fields.Add("gender", "gender is required")
	} else if !ValidGenders[in.Gender] {
		fields.Add("gender", fmt.Sprintf("gender must be one of male, female, other; got %q", in.Gender))
	}

	validateOptionalFields(fields, in.BloodType, in.HeightCM, in.WeightKG)
	return fields.Err()
}

func validateOptionalFields(fields apperror.FieldErrors, bloodType *string, heightCM, weightKG *float64) {
	if bloodType != nil && !ValidBloodTypes[*bloodType] {
		fields.Add("blood_type", fmt.Sprintf("invalid blood type %q", *bloodType))
	}
	if heightCM != nil && (*heightCM < 0 || *heightCM > MaxHeightCM) {
		fields.Add("height_cm", fmt.Sprintf("height must be between 0 and %d cm", MaxHeightCM))
	}
	if weightKG != nil && (*weightKG < 0 || *weightKG > MaxWeightKG) {
		fields.Add("weight_kg", fmt.Sprintf("weight must be between 0 and %d kg", MaxWeightKG))
	}
}

// ToPatient builds a Patient row from validated input.
func (in *CreateInput) ToPatient() *Patient {
	return &Patient{
		FullName:               in.FullName,
		DateOfBirth:            in.DateOfBirth,
		Gender:                 in.Gender,
		ContactNumber:          in.ContactNumber,
		Email:                  in.Email,
		Address:                in.Address,
		BloodType:              in.BloodType,
		HeightCM:               in.HeightCM,
		WeightKG:               in.WeightKG,
		Allergies:              in.Allergies,
		ChronicConditions:      in.ChronicConditions,
		CurrentMedications:     in.CurrentMedications,
		FamilyHistory:          in.FamilyHistory,
		EmergencyContactName:   in.EmergencyContactName,
		EmergencyContactNumber: in.EmergencyContactNumber,
		InsuranceProvider:      in.InsuranceProvider,
		InsuranceID:            in.InsuranceID,
	}
}

// UpdateInput carries partial-update semantics: absent fields leave the
// stored value untouched, explicit nulls clear it. Date of birth and gender
// are immutable after creation and deliberately absent here.
type UpdateInput struct {
	FullName               optional.Field[string]  `json:"full_name"`
	ContactNumber          optional.Field[string]  `json:"contact_number"`
	Email                  optional.Field[string]  `json:"email"`
	Address                optional.Field[string]  `json:"address"`
	BloodType              optional.Field[string]  `json:"blood_type"`
	HeightCM               optional.Field[float64] `json:"height_cm"`
	WeightKG               optional.Field[float64] `json:"weight_kg"`
	Allergies              optional.Field[string]  `json:"allergies"`
	ChronicConditions      optional.Field[string]  `json:"chronic_conditions"`
	CurrentMedications     optional.Field[string]  `json:"current_medications"`
	FamilyHistory          optional.Field[string]  `json:"family_history"`
	EmergencyContactName   optional.Field[string]  `json:"emergency_contact_name"`
	EmergencyContactNumber optional.Field[string]  `json:"emergency_contact_number"`
	InsuranceProvider      optional.Field[string]  `json:"insurance_provider"`
	InsuranceID            optional.Field[string]  `json:"insurance_id"`
}

// Validate checks every supplied field against its range/enum.
func (in *UpdateInput) Validate() error {
	fields := apperror.FieldErrors{}

	if v, ok := in.FullName.Value(); ok && v == "" {
		fields.Add("full_name", "full name cannot be empty")
	}
	if in.FullName.IsNull() {
		fields.Add("full_name", "full name cannot be cleared")
	}
	if v, ok := in.BloodType.Value(); ok && !ValidBloodTypes[v] {
		fields.Add("blood_type", fmt.Sprintf("invalid blood type %q", v))
	}
	if v, ok := in.HeightCM.Value(); ok && (v < 0 || v > MaxHeightCM) {
		fields.Add("height_cm", fmt.Sprintf("height must be between 0 and %d cm", MaxHeightCM))
	}
	if v, ok := in.WeightKG.Value(); ok && (v < 0 || v > MaxWeightKG) {
		fields.Add("weight_kg", fmt.Sprintf("weight must be between 0 and %d kg", MaxWeightKG))
	}

	return fields.Err()
}

// Apply merges the supplied fields onto p.
func (in *UpdateInput) Apply(p *Patient) {
	if v, ok := in.FullName.Value(); ok {
		p.FullName = v
	}
	applyOptional(in.ContactNumber, &p.ContactNumber)
	applyOptional(in.Email, &p.Email)
	applyOptional(in.Address, &p.Address)
	applyOptional(in.BloodType, &p.BloodType)
	applyOptional(in.HeightCM, &p.HeightCM)
	applyOptional(in.WeightKG, &p.WeightKG)
	applyOptional(in.Allergies, &p.Allergies)
	applyOptional(in.ChronicConditions, &p.ChronicConditions)
	applyOptional(in.CurrentMedications, &p.CurrentMedications)
	applyOptional(in.FamilyHistory, &p.FamilyHistory)
	applyOptional(in.EmergencyContactName, &p.EmergencyContactName)
	applyOptional(in.EmergencyContactNumber, &p.EmergencyContactNumber)
	applyOptional(in.InsuranceProvider, &p.InsuranceProvider)
	applyOptional(in.InsuranceID, &p.InsuranceID)
}

func applyOptional[T any](f optional.Field[T], dst **T) {
	if !f.IsSet() {
		return
	}
	if f.IsNull() {
		*dst = nil
		return
	}
	v, _ := f.Value()
	*dst = &v
}

// ReportInput is the boundary form of a report: the four code fields are raw
// JSON until normalized.
type ReportInput struct {
	DRGCode        *string         `json:"drg_code"`
	DRGDescription *string         `json:"drg_description"`
	DRGSeverity    *int            `json:"drg_severity"`
	DRGMortality   *int            `json:"drg_mortality"`
	CPTCodes       json.RawMessage `json:"cpt_codes"`
	ICD9Codes      json.RawMessage `json:"icd9_codes"`
	ProcedurePairs json.RawMessage `json:"procedure_pairs"`
	LabEvents      json.RawMessage `json:"lab_events"`
}

// Normalize validates and converts the boundary form into a Report row. All
// field failures are collected into one Validation error.
func (in *ReportInput) Normalize() (*Report, error) {
	fields := apperror.FieldErrors{}
	r := &Report{
		DRGCode:        in.DRGCode,
		DRGDescription: in.DRGDescription,
		DRGSeverity:    in.DRGSeverity,
		DRGMortality:   in.DRGMortality,
	}

	if in.DRGSeverity != nil && (*in.DRGSeverity < 0 || *in.DRGSeverity > 4) {
		fields.Add("drg_severity", "severity must be between 0 and 4")
	}
	if in.DRGMortality != nil && (*in.DRGMortality < 0 || *in.DRGMortality > 4) {
		fields.Add("drg_mortality", "mortality must be between 0 and 4")
	}

	var err error
	if r.CPTCodes, err = normalizeCodeList(in.CPTCodes); err != nil {
		fields.Add("cpt_codes", err.Error())
	}
	if r.ICD9Codes, err = normalizeCodeList(in.ICD9Codes); err != nil {
		fields.Add("icd9_codes", err.Error())
	}
	if r.ProcedurePairs, err = normalizeProcedurePairs(in.ProcedurePairs); err != nil {
		fields.Add("procedure_pairs", err.Error())
	}
	if r.LabEvents, err = normalizeLabEvents(in.LabEvents); err != nil {
		fields.Add("lab_events", err.Error())
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}
	return r, nil
}
