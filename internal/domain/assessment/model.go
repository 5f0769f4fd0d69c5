package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Event maps to the assessment_events table: one periodic clinical
// assessment of a patient. CreatedAt is the correlation timestamp that ties
// the event to the episode entered in the same form submission; standalone
// monitoring assessments get their own submission time.
type Event struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AssessmentDate *time.Time `db:"assessment_date" json:"assessment_date,omitempty"`

	ComorbidityIDs []uuid.UUID `db:"-" json:"comorbidity_ids,omitempty"`
	DisabilityIDs  []uuid.UUID `db:"-" json:"disability_ids,omitempty"`

	Smoking            *string `db:"smoking" json:"smoking,omitempty"`
	Alcohol            *string `db:"alcohol" json:"alcohol,omitempty"`
	HepatitisB         *string `db:"hepatitis_b" json:"hepatitis_b,omitempty"`
	HepatitisC         *string `db:"hepatitis_c" json:"hepatitis_c,omitempty"`
	HIV                *string `db:"hiv" json:"hiv,omitempty"`
	ClinicalFrailty    *int    `db:"clinical_frailty" json:"clinical_frailty,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Facet types attachable to an assessment event.
const (
	FacetLab        = "lab"
	FacetMedication = "medication"
	FacetDialysis   = "dialysis"
)

// LabFacet holds the laboratory panel for an assessment. Results are keyed
// by lab parameter code; the admissible key set comes from the lab
// parameter catalogue, so new parameters need no schema change.
type LabFacet struct {
	AssessmentID uuid.UUID          `db:"assessment_id" json:"assessment_id"`
	Results      map[string]float64 `db:"results" json:"results"`
	SampleDate   *time.Time         `db:"sample_date" json:"sample_date,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// MedicationFacet holds the medication panel. Doses carry numeric values
// for dose-type medications (ESA and similar); Flags carry Y/N/U markers
// for flag-type medications (antihypertensives, antidiabetics).
type MedicationFacet struct {
	AssessmentID uuid.UUID          `db:"assessment_id" json:"assessment_id"`
	Doses        map[string]float64 `db:"doses" json:"doses"`
	Flags        map[string]string  `db:"flags" json:"flags"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// DialysisFacet holds the dialysis-adequacy panel. HD and PD episodes fill
// different subsets of the fields.
type DialysisFacet struct {
	AssessmentID      uuid.UUID `db:"assessment_id" json:"assessment_id"`
	PostHDWeight      *float64  `db:"post_hd_weight" json:"post_hd_weight,omitempty"`
	SessionsPerWeek   *int      `db:"sessions_per_week" json:"sessions_per_week,omitempty"`
	MinutesPerSession *int      `db:"minutes_per_session" json:"minutes_per_session,omitempty"`
	URR               *float64  `db:"urr" json:"urr,omitempty"`
	KtV               *float64  `db:"ktv" json:"ktv,omitempty"`
	PDExchangesPerDay *int      `db:"pd_exchanges_per_day" json:"pd_exchanges_per_day,omitempty"`
	PDFluidLitres     *float64  `db:"pd_fluid_litres" json:"pd_fluid_litres,omitempty"`
	BPSystolic        *int      `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic       *int      `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// EventInput carries a submitted assessment with its optional facets.
type EventInput struct {
	AssessmentDate *time.Time  `json:"assessment_date,omitempty"`
	ComorbidityIDs []uuid.UUID `json:"comorbidity_ids,omitempty"`
	DisabilityIDs  []uuid.UUID `json:"disability_ids,omitempty"`

	Smoking         *string `json:"smoking,omitempty"`
	Alcohol         *string `json:"alcohol,omitempty"`
	HepatitisB      *string `json:"hepatitis_b,omitempty"`
	HepatitisC      *string `json:"hepatitis_c,omitempty"`
	HIV             *string `json:"hiv,omitempty"`
	ClinicalFrailty *int    `json:"clinical_frailty,omitempty"`

	Lab        *LabInput        `json:"lab,omitempty"`
	Medication *MedicationInput `json:"medication,omitempty"`
	Dialysis   *DialysisInput   `json:"dialysis,omitempty"`
}

type LabInput struct {
	Results    map[string]float64 `json:"results,omitempty"`
	SampleDate *time.Time         `json:"sample_date,omitempty"`
}

func (in *LabInput) empty() bool {
	return in == nil || (len(in.Results) == 0 && in.SampleDate == nil)
}

type MedicationInput struct {
	Doses map[string]float64 `json:"doses,omitempty"`
	Flags map[string]string  `json:"flags,omitempty"`
}

func (in *MedicationInput) empty() bool {
	return in == nil || (len(in.Doses) == 0 && len(in.Flags) == 0)
}

type DialysisInput struct {
	PostHDWeight      *float64 `json:"post_hd_weight,omitempty"`
	SessionsPerWeek   *int     `json:"sessions_per_week,omitempty"`
	MinutesPerSession *int     `json:"minutes_per_session,omitempty"`
	URR               *float64 `json:"urr,omitempty"`
	KtV               *float64 `json:"ktv,omitempty"`
	PDExchangesPerDay *int     `json:"pd_exchanges_per_day,omitempty"`
	PDFluidLitres     *float64 `json:"pd_fluid_litres,omitempty"`
	BPSystolic        *int     `json:"bp_systolic,omitempty"`
	BPDiastolic       *int     `json:"bp_diastolic,omitempty"`
}

func (in *DialysisInput) empty() bool {
	return in == nil || (in.PostHDWeight == nil && in.SessionsPerWeek == nil &&
		in.MinutesPerSession == nil && in.URR == nil && in.KtV == nil &&
		in.PDExchangesPerDay == nil && in.PDFluidLitres == nil &&
		in.BPSystolic == nil && in.BPDiastolic == nil)
}

// Detail bundles an event with its attached facets for presentation.
type Detail struct {
	Event      *Event           `json:"event"`
	Lab        *LabFacet        `json:"lab,omitempty"`
	Medication *MedicationFacet `json:"medication,omitempty"`
	Dialysis   *DialysisFacet   `json:"dialysis,omitempty"`
}

// EpisodeSummary is the slice of episode state an assessment needs: which
// modality the patient is currently on, to pick HD or PD adequacy fields
// and to decide whether the patient is in dialysis at all.
type EpisodeSummary struct {
	ID       uuid.UUID `json:"id"`
	Modality string    `json:"modality"`
	Dialysis bool      `json:"dialysis"`
}
