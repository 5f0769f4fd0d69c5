package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renalreg/registry/internal/domain/assessment"
	"github.com/renalreg/registry/internal/domain/modality"
	"github.com/renalreg/registry/internal/platform/db"
	"github.com/renalreg/registry/internal/platform/validate"
)

// InstitutionDirectory is the slice of reference data registration
// validation needs. Implemented by the reference service.
type InstitutionDirectory interface {
	IsUnitRequired(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service owns patient registration: demographics, the multi-slot episode
// timeline, the renal diagnosis and the records co-submitted on the
// registration form.
type Service struct {
	patients      PatientRepository
	registrations RegistrationRepository
	diagnoses     DiagnosisRepository
	institutions  InstitutionDirectory
	episodes      *modality.Service
	assessments   *assessment.Service
	logger        zerolog.Logger
}

func NewService(
	patients PatientRepository,
	registrations RegistrationRepository,
	diagnoses DiagnosisRepository,
	institutions InstitutionDirectory,
	episodes *modality.Service,
	assessments *assessment.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients:      patients,
		registrations: registrations,
		diagnoses:     diagnoses,
		institutions:  institutions,
		episodes:      episodes,
		assessments:   assessments,
		logger:        logger,
	}
}

// PatientInput carries the demographic fields of the registration form.
type PatientInput struct {
	PID      string `json:"pid"`
	IDType   string `json:"id_type"`
	IDNumber string `json:"id_number"`

	Name          string     `json:"name"`
	Surname       string     `json:"surname"`
	DOB           *time.Time `json:"dob,omitempty"`
	Gender        *string    `json:"gender,omitempty"`
	Ethnicity     *string    `json:"ethnicity,omitempty"`
	MaritalStatus *string    `json:"marital_status,omitempty"`
	Occupation    *string    `json:"occupation,omitempty"`

	Address  *string `json:"address,omitempty"`
	Postcode *string `json:"postcode,omitempty"`
	Landline *string `json:"landline,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Email    *string `json:"email,omitempty"`

	HeightCM      *float64 `json:"height_cm,omitempty"`
	WeightKG      *float64 `json:"weight_kg,omitempty"`
	BirthWeightKG *float64 `json:"birth_weight_kg,omitempty"`
}

// RegistrationInput carries the institution part of the registration form.
type RegistrationInput struct {
	InstitutionID    uuid.UUID  `json:"institution_id"`
	UnitNo1          *string    `json:"unit_no1,omitempty"`
	UnitNo2          *string    `json:"unit_no2,omitempty"`
	UnitNo3          *string    `json:"unit_no3,omitempty"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
}

func (in *RegistrationInput) hasUnit() bool {
	for _, u := range []*string{in.UnitNo1, in.UnitNo2, in.UnitNo3} {
		if u != nil && *u != "" {
			return true
		}
	}
	return false
}

// DiagnosisInput carries the renal diagnosis part of the form.
type DiagnosisInput struct {
	PrimaryCode   *string    `json:"primary_code,omitempty"`
	PrimaryText   *string    `json:"primary_text,omitempty"`
	SecondaryCode *string    `json:"secondary_code,omitempty"`
	SecondaryText *string    `json:"secondary_text,omitempty"`
	DiagnosisDate *time.Time `json:"diagnosis_date,omitempty"`
}

// RegisterInput is the full registration form: demographics, institution,
// diagnosis, up to five historical episode slots plus the current one, and
// the AKI measurement and assessment entered alongside.
type RegisterInput struct {
	Patient      PatientInput      `json:"patient"`
	Registration RegistrationInput `json:"registration"`
	Diagnosis    *DiagnosisInput   `json:"diagnosis,omitempty"`

	Episodes       []*modality.EpisodeInput `json:"episodes,omitempty"`
	CurrentEpisode *modality.EpisodeInput   `json:"current_episode,omitempty"`

	AKI        *modality.AKIInput     `json:"aki,omitempty"`
	Assessment *assessment.EventInput `json:"assessment,omitempty"`
}

func validatePatientInput(ve *validate.Errors, in *PatientInput) {
	if in.PID == "" {
		ve.Add("Registry number is required.")
	}
	switch in.IDType {
	case IDTypeNIC:
		if !validate.NIC(in.IDNumber) {
			ve.Add("N.I.C. must be 14 characters and match expected pattern: 1letter12digits1alphanumeric.")
		}
	case IDTypePassport:
		if !validate.Passport(in.IDNumber) {
			ve.Add("Passport number must be 13 alphanumeric characters.")
		}
	default:
		ve.Add("Identity document type must be NIC or PASSPORT.")
	}
	if in.Name == "" {
		ve.Add("Name is required.")
	}
	if in.Surname == "" {
		ve.Add("Surname is required.")
	}
	if in.DOB != nil && !validate.NotFuture(*in.DOB) {
		ve.Add("Date of birth cannot be in the future.")
	}
	if in.Postcode != nil && *in.Postcode != "" && !validate.Digits(*in.Postcode, 5) {
		ve.Add("Postcode must be exactly 5 digits.")
	}
	if in.Landline != nil && *in.Landline != "" && !validate.Digits(*in.Landline, 7) {
		ve.Add("Landline number must be exactly 7 digits.")
	}
	if in.Mobile != nil && *in.Mobile != "" && !validate.Digits(*in.Mobile, 8) {
		ve.Add("Mobile number must be exactly 8 digits.")
	}
	if in.Email != nil && *in.Email != "" && !validate.Email(*in.Email) {
		ve.Add("Enter a valid email address.")
	}
	if in.HeightCM != nil && !validate.InRange(*in.HeightCM, 40, 272) {
		ve.Add("Height valid range is 40 - 272 cm.")
	}
	if in.WeightKG != nil {
		if !validate.InRange(*in.WeightKG, 0.86, 250) {
			ve.Add("Weight valid range is 0.86 - 250 kg.")
		} else if !validate.TwoDecimals(*in.WeightKG) {
			ve.Add("Weight accepts at most 2 decimal places.")
		}
	}
	if in.BirthWeightKG != nil {
		if !validate.InRange(*in.BirthWeightKG, 0.86, 9.9) {
			ve.Add("Birth weight valid range is 0.86 - 9.9 kg.")
		} else if !validate.TwoDecimals(*in.BirthWeightKG) {
			ve.Add("Birth weight accepts at most 2 decimal places.")
		}
	}
}

func (s *Service) validateRegistration(ctx context.Context, ve *validate.Errors, in *RegistrationInput) error {
	if in.InstitutionID == uuid.Nil {
		ve.Add("Health institution is required.")
		return nil
	}
	required, err := s.institutions.IsUnitRequired(ctx, in.InstitutionID)
	if err != nil {
		if !db.NoRows(err) {
			return err
		}
		ve.Add("Selected health institution does not exist.")
		return nil
	}
	if required && !in.hasUnit() {
		ve.Add("Unit number for the selected health institution is required.")
	}
	for _, u := range []*string{in.UnitNo1, in.UnitNo2, in.UnitNo3} {
		if u != nil && *u != "" && !validate.Numeric(*u) {
			ve.Add("Unit numbers must be numeric.")
			break
		}
	}
	if in.RegistrationDate != nil && !validate.NotFuture(*in.RegistrationDate) {
		ve.Add("Registration date cannot be in the future.")
	}
	return nil
}

func (in *PatientInput) apply(p *Patient) {
	p.PID = in.PID
	p.IDType = in.IDType
	p.IDNumber = in.IDNumber
	p.Name = in.Name
	p.Surname = in.Surname
	p.DOB = in.DOB
	p.Gender = in.Gender
	p.Ethnicity = in.Ethnicity
	p.MaritalStatus = in.MaritalStatus
	p.Occupation = in.Occupation
	p.Address = in.Address
	p.Postcode = in.Postcode
	p.Landline = in.Landline
	p.Mobile = in.Mobile
	p.Email = in.Email
	p.HeightCM = in.HeightCM
	p.WeightKG = in.WeightKG
	p.BirthWeightKG = in.BirthWeightKG
}

// Register runs the full registration submission. Every validation rule is
// evaluated before any write so the caller gets the complete error list in
// one response; the caller wraps the call in a transaction so the whole
// cascade commits or rolls back together.
func (s *Service) Register(ctx context.Context, in *RegisterInput) (*Patient, error) {
	var ve validate.Errors
	validatePatientInput(&ve, &in.Patient)
	if err := s.validateRegistration(ctx, &ve, &in.Registration); err != nil {
		return nil, err
	}
	modality.ValidateSlots(&ve, in.Episodes, in.CurrentEpisode)
	modality.ValidateAKI(&ve, in.AKI)
	if in.Diagnosis != nil && in.Diagnosis.DiagnosisDate != nil && !validate.NotFuture(*in.Diagnosis.DiagnosisDate) {
		ve.Add("Diagnosis date cannot be in the future.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	existing, err := s.patients.GetByPID(ctx, in.Patient.PID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		ve.Add(fmt.Sprintf("A patient with registry number %s already exists.", in.Patient.PID))
		return nil, ve.Err()
	}

	p := &Patient{CreatedAt: time.Now()}
	in.Patient.apply(p)
	p.InKRT = in.CurrentEpisode != nil && in.CurrentEpisode.Modality != modality.ModalityNK
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}

	reg := &Registration{
		PatientID:        p.ID,
		InstitutionID:    in.Registration.InstitutionID,
		UnitNo1:          in.Registration.UnitNo1,
		UnitNo2:          in.Registration.UnitNo2,
		UnitNo3:          in.Registration.UnitNo3,
		RegistrationDate: in.Registration.RegistrationDate,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, err
	}

	if in.Diagnosis != nil {
		d := &RenalDiagnosis{PatientID: p.ID}
		applyDiagnosis(d, in.Diagnosis)
		if err := s.diagnoses.Upsert(ctx, d); err != nil {
			return nil, err
		}
	}

	if err := s.episodes.ReconcileSlots(ctx, p.ID, p.CreatedAt, in.Episodes, in.CurrentEpisode); err != nil {
		return nil, err
	}

	// AKI is pre-KRT data: skipped entirely once the patient enters a
	// KRT modality.
	if !p.InKRT && in.AKI != nil {
		if _, err := s.episodes.RecordAKI(ctx, p.ID, &p.CreatedAt, in.AKI); err != nil {
			return nil, err
		}
	}
	if in.Assessment != nil {
		if _, err := s.assessments.UpsertAt(ctx, p.ID, p.CreatedAt, in.Assessment); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("patient_id", p.ID.String()).Str("pid", p.PID).Msg("patient registered")
	return p, nil
}

// UpdateRegistration re-submits the registration form for an existing
// patient. Episode slots are reconciled against the original registration
// correlation timestamp; an institution change appends the old registration
// to history before overwriting.
func (s *Service) UpdateRegistration(ctx context.Context, patientID uuid.UUID, in *RegisterInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var ve validate.Errors
	validatePatientInput(&ve, &in.Patient)
	if err := s.validateRegistration(ctx, &ve, &in.Registration); err != nil {
		return nil, err
	}
	modality.ValidateSlots(&ve, in.Episodes, in.CurrentEpisode)
	modality.ValidateAKI(&ve, in.AKI)
	if err := ve.Err(); err != nil {
		return nil, err
	}

	in.Patient.apply(p)
	if in.CurrentEpisode != nil {
		p.InKRT = in.CurrentEpisode.Modality != modality.ModalityNK
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = &Registration{PatientID: patientID}
		reg.InstitutionID = in.Registration.InstitutionID
		reg.UnitNo1 = in.Registration.UnitNo1
		reg.UnitNo2 = in.Registration.UnitNo2
		reg.UnitNo3 = in.Registration.UnitNo3
		reg.RegistrationDate = in.Registration.RegistrationDate
		if err := s.registrations.Create(ctx, reg); err != nil {
			return nil, err
		}
	} else {
		if reg.InstitutionID != in.Registration.InstitutionID {
			if err := s.registrations.AppendHistory(ctx, &RegistrationHistory{
				PatientID:     patientID,
				InstitutionID: reg.InstitutionID,
				UnitNo1:       reg.UnitNo1,
				UnitNo2:       reg.UnitNo2,
				UnitNo3:       reg.UnitNo3,
			}); err != nil {
				return nil, err
			}
		}
		reg.InstitutionID = in.Registration.InstitutionID
		reg.UnitNo1 = in.Registration.UnitNo1
		reg.UnitNo2 = in.Registration.UnitNo2
		reg.UnitNo3 = in.Registration.UnitNo3
		reg.RegistrationDate = in.Registration.RegistrationDate
		if err := s.registrations.Update(ctx, reg); err != nil {
			return nil, err
		}
	}

	if in.Diagnosis != nil {
		d := &RenalDiagnosis{PatientID: patientID}
		applyDiagnosis(d, in.Diagnosis)
		if err := s.diagnoses.Upsert(ctx, d); err != nil {
			return nil, err
		}
	}

	if err := s.episodes.ReconcileSlots(ctx, patientID, p.CreatedAt, in.Episodes, in.CurrentEpisode); err != nil {
		return nil, err
	}
	if !p.InKRT && in.AKI != nil {
		if _, err := s.episodes.RecordAKI(ctx, patientID, &p.CreatedAt, in.AKI); err != nil {
			return nil, err
		}
	}
	if in.Assessment != nil {
		if _, err := s.assessments.UpsertAt(ctx, patientID, p.CreatedAt, in.Assessment); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func applyDiagnosis(d *RenalDiagnosis, in *DiagnosisInput) {
	d.PrimaryCode = in.PrimaryCode
	d.PrimaryText = in.PrimaryText
	d.SecondaryCode = in.SecondaryCode
	d.SecondaryText = in.SecondaryText
	d.DiagnosisDate = in.DiagnosisDate
}

// Get returns the composed patient view.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Patient: p}
	if d.Registration, err = s.registrations.GetByPatient(ctx, id); err != nil {
		return nil, err
	}
	if d.Diagnosis, err = s.diagnoses.GetByPatient(ctx, id); err != nil {
		return nil, err
	}
	tl, err := s.episodes.Timeline(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	d.Timeline = tl
	d.CurrentEpisode = tl.Current()
	if d.AKI, err = s.episodes.GetAKI(ctx, id); err != nil {
		return nil, err
	}
	if d.Stop, err = s.episodes.GetStop(ctx, id); err != nil {
		return nil, err
	}
	if d.Assessment, err = s.assessments.AtTime(ctx, id, p.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

// Search lists patients matching the query by registry number, name or
// identity document number.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, query, limit, offset)
}

// History returns the registration history trail for a patient.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*RegistrationHistory, error) {
	return s.registrations.ListHistory(ctx, patientID)
}
