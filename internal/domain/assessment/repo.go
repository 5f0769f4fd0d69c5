package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// GetByPatientCreatedAt finds the event entered in a specific form
	// submission, identified by the shared correlation timestamp, or
	// (nil, nil) when that submission carried no assessment.
	GetByPatientCreatedAt(ctx context.Context, patientID uuid.UUID, at time.Time) (*Event, error)
	Update(ctx context.Context, e *Event) error
	// ListByPatientAfter returns the patient's events created strictly
	// after the given timestamp, newest first.
	ListByPatientAfter(ctx context.Context, patientID uuid.UUID, after time.Time, limit, offset int) ([]*Event, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error)
	SetComorbidities(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) error
	SetDisabilities(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) error
}

// FacetRepository stores the attached panels. The Get methods return
// (nil, nil) when the assessment has no row for that panel.
type FacetRepository interface {
	GetLab(ctx context.Context, assessmentID uuid.UUID) (*LabFacet, error)
	UpsertLab(ctx context.Context, f *LabFacet) error
	GetMedication(ctx context.Context, assessmentID uuid.UUID) (*MedicationFacet, error)
	UpsertMedication(ctx context.Context, f *MedicationFacet) error
	GetDialysis(ctx context.Context, assessmentID uuid.UUID) (*DialysisFacet, error)
	UpsertDialysis(ctx context.Context, f *DialysisFacet) error
}

// EpisodeSource answers which episode is currently active for a patient.
// Implemented by the modality service through an adapter wired in main.
type EpisodeSource interface {
	CurrentEpisodeFor(ctx context.Context, patientID uuid.UUID) (*EpisodeSummary, error)
}

// StopSource reports whether a patient's treatment has been stopped, for
// the configurable policy that blocks assessments after a stop record.
type StopSource interface {
	HasStopRecord(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// Catalogue provides the reference lists the facet panels are validated
// against. Implemented by the reference service.
type Catalogue interface {
	LabParameterCodes(ctx context.Context) (map[string]bool, error)
	MedicationKinds(ctx context.Context) (map[string]string, error)
	UnknownComorbidityIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	UnknownDisabilityIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}
