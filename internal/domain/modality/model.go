package modality

import (
	"time"

	"github.com/google/uuid"
)

// Modality codes for a KRT episode.
type Modality string

const (
	ModalityNK Modality = "NK" // not on KRT
	ModalityHD Modality = "HD" // haemodialysis
	ModalityPD Modality = "PD" // peritoneal dialysis
	ModalityTX Modality = "TX" // transplant
)

var validModalities = map[Modality]bool{
	ModalityNK: true, ModalityHD: true, ModalityPD: true, ModalityTX: true,
}

// Dialysis reports whether the modality is a dialysis modality. Recurring
// monitoring assessments are only listed for dialysis patients.
func (m Modality) Dialysis() bool {
	return m == ModalityHD || m == ModalityPD
}

// Episode maps to the krt_episodes table: one continuous period on a single
// KRT modality. At most one episode per patient is current at any time.
// CreatedAt doubles as the correlation timestamp tying the episode to AKI
// and assessment records entered in the same form submission.
type Episode struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Modality  Modality  `db:"modality" json:"modality"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	StartDate time.Time `db:"start_date" json:"start_date"`

	// HD detail
	HDUnitID          *uuid.UUID `db:"hd_unit_id" json:"hd_unit_id,omitempty"`
	HDInitialAccess   *string    `db:"hd_initial_access" json:"hd_initial_access,omitempty"`
	HDNTCReason       *string    `db:"hd_ntc_reason" json:"hd_ntc_reason,omitempty"`
	HDUnusedAVFReason *string    `db:"hd_unused_avf_reason" json:"hd_unused_avf_reason,omitempty"`
	HDPrivateStart    *string    `db:"hd_private_start" json:"hd_private_start,omitempty"`

	// PD detail
	PDCatheterDays       *int    `db:"pd_catheter_days" json:"pd_catheter_days,omitempty"`
	PDInsertionTechnique *string `db:"pd_insertion_technique" json:"pd_insertion_technique,omitempty"`

	// Pre-KRT care
	BeforeKRT      *string `db:"before_krt" json:"before_krt,omitempty"`
	ROPDWeeks      *int    `db:"ropd_weeks" json:"ropd_weeks,omitempty"`
	HepBVaccinated *string `db:"hep_b_vaccinated" json:"hep_b_vaccinated,omitempty"`
	DelayedStart   *string `db:"delayed_start" json:"delayed_start,omitempty"`
	DelayWeeks     *int    `db:"delay_weeks" json:"delay_weeks,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HD vascular access codes.
var validHDAccesses = map[string]bool{
	"AVF": true, "AVG": true, "TC": true, "NTC": true, "U": true,
}

// Y/N/U tri-state used by several clinical flags.
var validYNU = map[string]bool{"Y": true, "N": true, "U": true}

// AKIMeasurement maps to the aki_measurements table: at most one per
// patient, collected only before the patient enters KRT. CreatedAt is the
// correlation timestamp of the form submission that carried it.
type AKIMeasurement struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	Creatinine      *float64   `db:"creatinine" json:"creatinine,omitempty"`
	EGFR            *float64   `db:"egfr" json:"egfr,omitempty"`
	Hb              *float64   `db:"hb" json:"hb,omitempty"`
	MeasurementDate *time.Time `db:"measurement_date" json:"measurement_date,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Stop reason codes: death, transplant, recovered function, transferred out,
// treatment withdrawn, other.
var validStopReasons = map[string]bool{
	"D": true, "T": true, "R": true, "O": true, "W": true, "X": true,
}

// StopRecord maps to the stop_records table: at most one per patient,
// marking the end of dialysis treatment.
type StopRecord struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	LastDialysisDate *time.Time `db:"last_dialysis_date" json:"last_dialysis_date,omitempty"`
	StopReason       string     `db:"stop_reason" json:"stop_reason"`
	DateOfDeath      *time.Time `db:"date_of_death" json:"date_of_death,omitempty"`
	CauseOfDeath     *string    `db:"cause_of_death" json:"cause_of_death,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// EpisodeInput carries the submitted fields for one episode slot or a
// start/change action.
type EpisodeInput struct {
	Modality  Modality   `json:"modality"`
	StartDate *time.Time `json:"start_date,omitempty"`

	HDUnitID          *uuid.UUID `json:"hd_unit_id,omitempty"`
	HDInitialAccess   *string    `json:"hd_initial_access,omitempty"`
	HDNTCReason       *string    `json:"hd_ntc_reason,omitempty"`
	HDUnusedAVFReason *string    `json:"hd_unused_avf_reason,omitempty"`
	HDPrivateStart    *string    `json:"hd_private_start,omitempty"`

	PDCatheterDays       *int    `json:"pd_catheter_days,omitempty"`
	PDInsertionTechnique *string `json:"pd_insertion_technique,omitempty"`

	BeforeKRT      *string `json:"before_krt,omitempty"`
	ROPDWeeks      *int    `json:"ropd_weeks,omitempty"`
	HepBVaccinated *string `json:"hep_b_vaccinated,omitempty"`
	DelayedStart   *string `json:"delayed_start,omitempty"`
	DelayWeeks     *int    `json:"delay_weeks,omitempty"`
}

func (in *EpisodeInput) applyClinical(e *Episode) {
	e.HDUnitID = in.HDUnitID
	e.HDInitialAccess = in.HDInitialAccess
	e.HDNTCReason = in.HDNTCReason
	e.HDUnusedAVFReason = in.HDUnusedAVFReason
	e.HDPrivateStart = in.HDPrivateStart
	e.PDCatheterDays = in.PDCatheterDays
	e.PDInsertionTechnique = in.PDInsertionTechnique
	e.BeforeKRT = in.BeforeKRT
	e.ROPDWeeks = in.ROPDWeeks
	e.HepBVaccinated = in.HepBVaccinated
	e.DelayedStart = in.DelayedStart
	e.DelayWeeks = in.DelayWeeks
}

// AKIInput carries a submitted AKI measurement.
type AKIInput struct {
	Creatinine      *float64   `json:"creatinine,omitempty"`
	EGFR            *float64   `json:"egfr,omitempty"`
	Hb              *float64   `json:"hb,omitempty"`
	MeasurementDate *time.Time `json:"measurement_date,omitempty"`
}

func (in *AKIInput) empty() bool {
	return in == nil || (in.Creatinine == nil && in.EGFR == nil && in.Hb == nil && in.MeasurementDate == nil)
}

// StopInput carries a submitted stop-of-treatment record.
type StopInput struct {
	LastDialysisDate *time.Time `json:"last_dialysis_date,omitempty"`
	StopReason       string     `json:"stop_reason"`
	DateOfDeath      *time.Time `json:"date_of_death,omitempty"`
	CauseOfDeath     *string    `json:"cause_of_death,omitempty"`
}
