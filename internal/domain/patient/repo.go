package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByPID returns (nil, nil) when no patient carries the registry
	// number.
	GetByPID(ctx context.Context, pid string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)

	// The methods below serve the modality and assessment services,
	// which see this repository through their own narrow interfaces.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	InKRT(ctx context.Context, id uuid.UUID) (bool, error)
	SetInKRT(ctx context.Context, id uuid.UUID, in bool) error
	RegisteredAt(ctx context.Context, id uuid.UUID) (time.Time, error)
}

type RegistrationRepository interface {
	// GetByPatient returns (nil, nil) when the patient has no
	// registration row.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Registration, error)
	Create(ctx context.Context, r *Registration) error
	Update(ctx context.Context, r *Registration) error
	AppendHistory(ctx context.Context, h *RegistrationHistory) error
	ListHistory(ctx context.Context, patientID uuid.UUID) ([]*RegistrationHistory, error)
}

type DiagnosisRepository interface {
	// GetByPatient returns (nil, nil) when no diagnosis is recorded.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*RenalDiagnosis, error)
	Upsert(ctx context.Context, d *RenalDiagnosis) error
}
