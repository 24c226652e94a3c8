package vitals

import "time"

// Clinical plausibility bounds for a single measurement.
const (
	MaxHeartRate       = 300
	MaxBloodPressure   = 300
	MinTemperature     = 30.0
	MaxTemperature     = 45.0
	MaxRespiratoryRate = 100
	MaxOxygenSat       = 100.0
)

// VitalSign is one observation set for a patient. Every measurement is
// optional; a row with only a heart rate is valid.
type VitalSign struct {
	ID                     int64     `db:"id" json:"id"`
	PatientID              int64     `db:"patient_id" json:"patient_id"`
	HeartRate              *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	BloodPressureSystolic  *int      `db:"blood_pressure_systolic" json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int      `db:"blood_pressure_diastolic" json:"blood_pressure_diastolic,omitempty"`
	Temperature            *float64  `db:"temperature" json:"temperature,omitempty"`
	RespiratoryRate        *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation       *float64  `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Notes                  *string   `db:"notes" json:"notes,omitempty"`
	MeasuredAt             time.Time `db:"measured_at" json:"measured_at"`
	MeasuredBy             int64     `db:"measured_by" json:"measured_by"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}
