package reference

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	institutions  InstitutionRepository
	hdUnits       HDUnitRepository
	comorbidities ComorbidityRepository
	disabilities  DisabilityRepository
	labParams     LabParameterRepository
	medications   MedicationRepository
}

func NewService(
	institutions InstitutionRepository,
	hdUnits HDUnitRepository,
	comorbidities ComorbidityRepository,
	disabilities DisabilityRepository,
	labParams LabParameterRepository,
	medications MedicationRepository,
) *Service {
	return &Service{
		institutions:  institutions,
		hdUnits:       hdUnits,
		comorbidities: comorbidities,
		disabilities:  disabilities,
		labParams:     labParams,
		medications:   medications,
	}
}

var validInstitutionTypes = map[string]bool{
	"hospital": true, "dialysis_center": true, "clinic": true, "other": true,
}

func (s *Service) CreateInstitution(ctx context.Context, hi *HealthInstitution) error {
	if hi.Name == "" {
		return fmt.Errorf("name is required")
	}
	if hi.Type == "" {
		hi.Type = "other"
	}
	if !validInstitutionTypes[hi.Type] {
		return fmt.Errorf("invalid institution type: %s", hi.Type)
	}
	return s.institutions.Create(ctx, hi)
}

func (s *Service) GetInstitution(ctx context.Context, id uuid.UUID) (*HealthInstitution, error) {
	return s.institutions.GetByID(ctx, id)
}

func (s *Service) UpdateInstitution(ctx context.Context, hi *HealthInstitution) error {
	if hi.Type != "" && !validInstitutionTypes[hi.Type] {
		return fmt.Errorf("invalid institution type: %s", hi.Type)
	}
	return s.institutions.Update(ctx, hi)
}

func (s *Service) ListInstitutions(ctx context.Context, limit, offset int) ([]*HealthInstitution, int, error) {
	return s.institutions.List(ctx, limit, offset)
}

// IsUnitRequired reports whether the institution holds patients in numbered
// units, in which case registrations against it must carry a unit number.
func (s *Service) IsUnitRequired(ctx context.Context, id uuid.UUID) (bool, error) {
	hi, err := s.institutions.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return hi.IsUnitRequired, nil
}

func (s *Service) CreateHDUnit(ctx context.Context, u *HDUnit) error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.hdUnits.Create(ctx, u)
}

func (s *Service) GetHDUnit(ctx context.Context, id uuid.UUID) (*HDUnit, error) {
	return s.hdUnits.GetByID(ctx, id)
}

func (s *Service) ListHDUnits(ctx context.Context, limit, offset int) ([]*HDUnit, int, error) {
	return s.hdUnits.List(ctx, limit, offset)
}

func (s *Service) CreateComorbidity(ctx context.Context, c *Comorbidity) error {
	if c.Code == "" || c.Name == "" {
		return fmt.Errorf("code and name are required")
	}
	c.Active = true
	return s.comorbidities.Create(ctx, c)
}

func (s *Service) ListComorbidities(ctx context.Context) ([]*Comorbidity, error) {
	return s.comorbidities.ListActive(ctx)
}

func (s *Service) CreateDisability(ctx context.Context, d *Disability) error {
	if d.Code == "" || d.Name == "" {
		return fmt.Errorf("code and name are required")
	}
	d.Active = true
	return s.disabilities.Create(ctx, d)
}

func (s *Service) CreateLabParameter(ctx context.Context, p *LabParameter) error {
	if p.Code == "" || p.Name == "" {
		return fmt.Errorf("code and name are required")
	}
	p.Active = true
	return s.labParams.Create(ctx, p)
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if m.Code == "" || m.Name == "" {
		return fmt.Errorf("code and name are required")
	}
	if m.Kind != MedicationKindDose && m.Kind != MedicationKindFlag {
		return fmt.Errorf("kind must be %q or %q", MedicationKindDose, MedicationKindFlag)
	}
	m.Active = true
	return s.medications.Create(ctx, m)
}

func (s *Service) ListDisabilities(ctx context.Context) ([]*Disability, error) {
	return s.disabilities.ListActive(ctx)
}

func (s *Service) ListLabParameters(ctx context.Context) ([]*LabParameter, error) {
	return s.labParams.ListActive(ctx)
}

func (s *Service) ListMedications(ctx context.Context) ([]*Medication, error) {
	return s.medications.ListActive(ctx)
}

// LabParameterCodes returns the set of active laboratory parameter codes.
// Assessment lab facets are validated against this set.
func (s *Service) LabParameterCodes(ctx context.Context) (map[string]bool, error) {
	params, err := s.labParams.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]bool, len(params))
	for _, p := range params {
		codes[p.Code] = true
	}
	return codes, nil
}

// MedicationKinds returns active medication codes mapped to their kind
// (dose or flag), which decides the value a medication facet may carry.
func (s *Service) MedicationKinds(ctx context.Context) (map[string]string, error) {
	meds, err := s.medications.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]string, len(meds))
	for _, m := range meds {
		kinds[m.Code] = m.Kind
	}
	return kinds, nil
}

// UnknownComorbidityIDs returns the subset of ids that do not exist in the
// comorbidity catalogue.
func (s *Service) UnknownComorbidityIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	found, err := s.comorbidities.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return missingFrom(ids, found), nil
}

// UnknownDisabilityIDs returns the subset of ids that do not exist in the
// disability catalogue.
func (s *Service) UnknownDisabilityIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	found, err := s.disabilities.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return missingFrom(ids, found), nil
}

func missingFrom(ids []uuid.UUID, found map[uuid.UUID]bool) []uuid.UUID {
	var missing []uuid.UUID
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
