package patient

import (
	"time"
)

// Gender values accepted at the boundary.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// ValidGenders is the closed set of accepted gender values.
var ValidGenders = map[string]bool{
	GenderMale:   true,
	GenderFemale: true,
	GenderOther:  true,
}

// ValidBloodTypes is the closed set of ABO/Rh combinations.
var ValidBloodTypes = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"O+": true, "O-": true,
	"AB+": true, "AB-": true,
}

// Physical measurement bounds.
const (
	MaxHeightCM = 300
	MaxWeightKG = 1000
)

// Patient maps to the patients table. Full name, date of birth and gender are
// mandatory; everything else is nullable.
type Patient struct {
	ID                     int64      `db:"id" json:"id"`
	FullName               string     `db:"full_name" json:"full_name"`
	DateOfBirth            time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender                 string     `db:"gender" json:"gender"`
	ContactNumber          *string    `db:"contact_number" json:"contact_number,omitempty"`
	Email                  *string    `db:"email" json:"email,omitempty"`
	Address                *string    `db:"address" json:"address,omitempty"`
	BloodType              *string    `db:"blood_type" json:"blood_type,omitempty"`
	HeightCM               *float64   `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG               *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	Allergies              *string    `db:"allergies" json:"allergies,omitempty"`
	ChronicConditions      *string    `db:"chronic_conditions" json:"chronic_conditions,omitempty"`
	CurrentMedications     *string    `db:"current_medications" json:"current_medications,omitempty"`
	FamilyHistory          *string    `db:"family_history" json:"family_history,omitempty"`
	EmergencyContactName   *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber *string    `db:"emergency_contact_number" json:"emergency_contact_number,omitempty"`
	InsuranceProvider      *string    `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsuranceID            *string    `db:"insurance_id" json:"insurance_id,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`

	// Doctors associated through the patient_doctors join table.
	Doctors []int64 `db:"-" json:"doctors"`

	// Reports is populated on detail reads only.
	Reports []*Report `db:"-" json:"reports,omitempty"`
}

// Age returns the patient's age in years at the given instant.
func (p *Patient) Age(now time.Time) float64 {
	return now.Sub(p.DateOfBirth).Hours() / 24 / 365.25
}

// BMI returns the body mass index when both measurements are present.
func (p *Patient) BMI() (float64, bool) {
	if p.HeightCM == nil || p.WeightKG == nil || *p.HeightCM <= 0 {
		return 0, false
	}
	hm := *p.HeightCM / 100
	return *p.WeightKG / (hm * hm), true
}

// Report maps to the patient_reports table. The four code collections are
// normalized from their boundary representations (see codes.go) and stored as
// JSONB.
type Report struct {
	ID             int64      `db:"id" json:"id"`
	PatientID      int64      `db:"patient_id" json:"patient_id"`
	DRGCode        *string    `db:"drg_code" json:"drg_code,omitempty"`
	DRGDescription *string    `db:"drg_description" json:"drg_description,omitempty"`
	DRGSeverity    *int       `db:"drg_severity" json:"drg_severity,omitempty"`
	DRGMortality   *int       `db:"drg_mortality" json:"drg_mortality,omitempty"`
	CPTCodes       []string   `db:"cpt_codes" json:"cpt_codes"`
	ICD9Codes      []string   `db:"icd9_codes" json:"icd9_codes"`
	ProcedurePairs [][2]int64 `db:"procedure_pairs" json:"procedure_pairs"`
	LabEvents      [][]string `db:"lab_events" json:"lab_events"`
	CreatedBy      int64      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
