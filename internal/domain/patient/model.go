package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/renalreg/registry/internal/domain/assessment"
	"github.com/renalreg/registry/internal/domain/modality"
)

// Identity document types.
const (
	IDTypeNIC      = "NIC"
	IDTypePassport = "PASSPORT"
)

// Patient maps to the patients table: the root aggregate of the registry.
// CreatedAt doubles as the registration correlation timestamp: episodes,
// the AKI measurement and the assessment entered on the registration form
// all carry the same value.
type Patient struct {
	ID       uuid.UUID `db:"id" json:"id"`
	PID      string    `db:"pid" json:"pid"`
	IDType   string    `db:"id_type" json:"id_type"`
	IDNumber string    `db:"id_number" json:"id_number"`

	Name          string     `db:"name" json:"name"`
	Surname       string     `db:"surname" json:"surname"`
	DOB           *time.Time `db:"dob" json:"dob,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	Ethnicity     *string    `db:"ethnicity" json:"ethnicity,omitempty"`
	MaritalStatus *string    `db:"marital_status" json:"marital_status,omitempty"`
	Occupation    *string    `db:"occupation" json:"occupation,omitempty"`

	Address  *string `db:"address" json:"address,omitempty"`
	Postcode *string `db:"postcode" json:"postcode,omitempty"`
	Landline *string `db:"landline" json:"landline,omitempty"`
	Mobile   *string `db:"mobile" json:"mobile,omitempty"`
	Email    *string `db:"email" json:"email,omitempty"`

	HeightCM      *float64 `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG      *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	BirthWeightKG *float64 `db:"birth_weight_kg" json:"birth_weight_kg,omitempty"`

	InKRT bool `db:"in_krt" json:"in_krt_modality"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Registration maps to the registrations table: where the patient is
// registered, one row per patient. Institution changes append to
// registration history before the row is overwritten.
type Registration struct {
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	InstitutionID    uuid.UUID  `db:"institution_id" json:"institution_id"`
	UnitNo1          *string    `db:"unit_no1" json:"unit_no1,omitempty"`
	UnitNo2          *string    `db:"unit_no2" json:"unit_no2,omitempty"`
	UnitNo3          *string    `db:"unit_no3" json:"unit_no3,omitempty"`
	RegistrationDate *time.Time `db:"registration_date" json:"registration_date,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// RegistrationHistory is an append-only trail of past registrations.
type RegistrationHistory struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	InstitutionID uuid.UUID `db:"institution_id" json:"institution_id"`
	UnitNo1       *string   `db:"unit_no1" json:"unit_no1,omitempty"`
	UnitNo2       *string   `db:"unit_no2" json:"unit_no2,omitempty"`
	UnitNo3       *string   `db:"unit_no3" json:"unit_no3,omitempty"`
	ChangedAt     time.Time `db:"changed_at" json:"changed_at"`
}

// RenalDiagnosis maps to the renal_diagnoses table: the primary and
// secondary renal diagnosis recorded for a patient, one row per patient.
type RenalDiagnosis struct {
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	PrimaryCode   *string    `db:"primary_code" json:"primary_code,omitempty"`
	PrimaryText   *string    `db:"primary_text" json:"primary_text,omitempty"`
	SecondaryCode *string    `db:"secondary_code" json:"secondary_code,omitempty"`
	SecondaryText *string    `db:"secondary_text" json:"secondary_text,omitempty"`
	DiagnosisDate *time.Time `db:"diagnosis_date" json:"diagnosis_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Detail is the composed view handed back to the presentation layer.
type Detail struct {
	Patient      *Patient        `json:"patient"`
	Registration *Registration   `json:"registration,omitempty"`
	Diagnosis    *RenalDiagnosis `json:"diagnosis,omitempty"`

	Timeline       *modality.Timeline       `json:"timeline,omitempty"`
	CurrentEpisode *modality.Episode        `json:"current_episode,omitempty"`
	AKI            *modality.AKIMeasurement `json:"aki,omitempty"`
	Stop           *modality.StopRecord     `json:"stop,omitempty"`
	Assessment     *assessment.Detail       `json:"assessment,omitempty"`
}
