package reference

import (
	"context"

	"github.com/google/uuid"
)

type InstitutionRepository interface {
	Create(ctx context.Context, hi *HealthInstitution) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthInstitution, error)
	Update(ctx context.Context, hi *HealthInstitution) error
	List(ctx context.Context, limit, offset int) ([]*HealthInstitution, int, error)
}

type HDUnitRepository interface {
	Create(ctx context.Context, u *HDUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*HDUnit, error)
	List(ctx context.Context, limit, offset int) ([]*HDUnit, int, error)
}

type ComorbidityRepository interface {
	Create(ctx context.Context, c *Comorbidity) error
	ListActive(ctx context.Context) ([]*Comorbidity, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type DisabilityRepository interface {
	Create(ctx context.Context, d *Disability) error
	ListActive(ctx context.Context) ([]*Disability, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type LabParameterRepository interface {
	Create(ctx context.Context, p *LabParameter) error
	ListActive(ctx context.Context) ([]*LabParameter, error)
}

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	ListActive(ctx context.Context) ([]*Medication, error)
}
