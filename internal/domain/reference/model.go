package reference

import (
	"time"

	"github.com/google/uuid"
)

// HealthInstitution maps to the health_institutions table. Institutions
// flagged with IsUnitRequired hold patients in numbered units, so a
// registration against them must carry at least one unit number.
type HealthInstitution struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	Type           string    `db:"type" json:"type"`
	IsUnitRequired bool      `db:"is_unit_required" json:"is_unit_required"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HDUnit maps to the hd_units table: a haemodialysis unit a patient can be
// assigned to when an episode runs on HD.
type HDUnit struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	InstitutionID *uuid.UUID `db:"institution_id" json:"institution_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Comorbidity maps to the comorbidities catalogue table.
type Comorbidity struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Disability maps to the disabilities catalogue table.
type Disability struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LabParameter maps to the lab_parameters table. Laboratory facets on an
// assessment are keyed by the parameter code, so the set of admissible keys
// is whatever this catalogue holds as active.
type LabParameter struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Unit      *string   `db:"unit" json:"unit,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Medication kinds. Dose medications take a numeric value on the facet,
// flag medications take a Y/N/U marker.
const (
	MedicationKindDose = "dose"
	MedicationKindFlag = "flag"
)

// Medication maps to the medications table.
type Medication struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Kind      string    `db:"kind" json:"kind"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
