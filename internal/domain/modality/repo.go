package modality

import (
	"context"

	"github.com/google/uuid"
)

type EpisodeRepository interface {
	Create(ctx context.Context, e *Episode) error
	GetByID(ctx context.Context, id uuid.UUID) (*Episode, error)
	Update(ctx context.Context, e *Episode) error
	SetCurrent(ctx context.Context, id uuid.UUID, current bool) error
	// ListByPatient returns all of a patient's episodes ordered by
	// start_date ascending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Episode, error)
	// CurrentByPatient returns every is_current episode for the patient,
	// most recently created first. More than one entry signals a
	// partially applied transition.
	CurrentByPatient(ctx context.Context, patientID uuid.UUID) ([]*Episode, error)
}

type AKIRepository interface {
	// GetByPatient returns (nil, nil) when the patient has no measurement.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*AKIMeasurement, error)
	Create(ctx context.Context, a *AKIMeasurement) error
	Update(ctx context.Context, a *AKIMeasurement) error
}

type StopRepository interface {
	// GetByPatient returns (nil, nil) when the patient has no stop record.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*StopRecord, error)
	Create(ctx context.Context, s *StopRecord) error
	Update(ctx context.Context, s *StopRecord) error
	Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// PatientStore is the slice of patient state the transition policy touches:
// flipping the in-KRT flag when a patient's first episode starts outside
// registration. Implemented by the patient repository, wired in main.
type PatientStore interface {
	Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
	InKRT(ctx context.Context, patientID uuid.UUID) (bool, error)
	SetInKRT(ctx context.Context, patientID uuid.UUID, in bool) error
}
