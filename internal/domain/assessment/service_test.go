package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/renalreg/registry/internal/platform/validate"
)

// -- Mock Repositories --

type mockEventRepo struct {
	events        map[uuid.UUID]*Event
	comorbidities map[uuid.UUID][]uuid.UUID
	disabilities  map[uuid.UUID][]uuid.UUID
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{
		events:        make(map[uuid.UUID]*Event),
		comorbidities: make(map[uuid.UUID][]uuid.UUID),
		disabilities:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockEventRepo) Create(_ context.Context, e *Event) error {
	e.ID = uuid.New()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id uuid.UUID) (*Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEventRepo) GetByPatientCreatedAt(_ context.Context, patientID uuid.UUID, at time.Time) (*Event, error) {
	for _, e := range m.events {
		if e.PatientID == patientID && e.CreatedAt.Equal(at) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockEventRepo) Update(_ context.Context, e *Event) error {
	if _, ok := m.events[e.ID]; !ok {
		return fmt.Errorf("not found")
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *mockEventRepo) ListByPatientAfter(_ context.Context, patientID uuid.UUID, after time.Time, limit, offset int) ([]*Event, int, error) {
	var out []*Event
	for _, e := range m.events {
		if e.PatientID == patientID && e.CreatedAt.After(after) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockEventRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var out []*Event
	for _, e := range m.events {
		if e.PatientID == patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockEventRepo) SetComorbidities(_ context.Context, eventID uuid.UUID, ids []uuid.UUID) error {
	m.comorbidities[eventID] = ids
	return nil
}

func (m *mockEventRepo) SetDisabilities(_ context.Context, eventID uuid.UUID, ids []uuid.UUID) error {
	m.disabilities[eventID] = ids
	return nil
}

type mockFacetRepo struct {
	labs        map[uuid.UUID]*LabFacet
	medications map[uuid.UUID]*MedicationFacet
	dialysis    map[uuid.UUID]*DialysisFacet
	labWrites   int
}

func newMockFacetRepo() *mockFacetRepo {
	return &mockFacetRepo{
		labs:        make(map[uuid.UUID]*LabFacet),
		medications: make(map[uuid.UUID]*MedicationFacet),
		dialysis:    make(map[uuid.UUID]*DialysisFacet),
	}
}

func (m *mockFacetRepo) GetLab(_ context.Context, id uuid.UUID) (*LabFacet, error) {
	f, ok := m.labs[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

func (m *mockFacetRepo) UpsertLab(_ context.Context, f *LabFacet) error {
	m.labWrites++
	m.labs[f.AssessmentID] = f
	return nil
}

func (m *mockFacetRepo) GetMedication(_ context.Context, id uuid.UUID) (*MedicationFacet, error) {
	f, ok := m.medications[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

func (m *mockFacetRepo) UpsertMedication(_ context.Context, f *MedicationFacet) error {
	m.medications[f.AssessmentID] = f
	return nil
}

func (m *mockFacetRepo) GetDialysis(_ context.Context, id uuid.UUID) (*DialysisFacet, error) {
	f, ok := m.dialysis[id]
	if !ok {
		return nil, nil
	}
	return f, nil
}

func (m *mockFacetRepo) UpsertDialysis(_ context.Context, f *DialysisFacet) error {
	m.dialysis[f.AssessmentID] = f
	return nil
}

type mockEpisodeSource struct {
	current map[uuid.UUID]*EpisodeSummary
}

func (m *mockEpisodeSource) CurrentEpisodeFor(_ context.Context, patientID uuid.UUID) (*EpisodeSummary, error) {
	return m.current[patientID], nil
}

type mockStopSource struct {
	stopped map[uuid.UUID]bool
}

func (m *mockStopSource) HasStopRecord(_ context.Context, patientID uuid.UUID) (bool, error) {
	return m.stopped[patientID], nil
}

type mockPatientSource struct {
	registered map[uuid.UUID]time.Time
}

func (m *mockPatientSource) RegisteredAt(_ context.Context, patientID uuid.UUID) (time.Time, error) {
	at, ok := m.registered[patientID]
	if !ok {
		return time.Time{}, fmt.Errorf("not found")
	}
	return at, nil
}

type mockCatalogue struct {
	labCodes map[string]bool
	medKinds map[string]string
}

func (m *mockCatalogue) LabParameterCodes(_ context.Context) (map[string]bool, error) {
	return m.labCodes, nil
}

func (m *mockCatalogue) MedicationKinds(_ context.Context) (map[string]string, error) {
	return m.medKinds, nil
}

func (m *mockCatalogue) UnknownComorbidityIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockCatalogue) UnknownDisabilityIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type testEnv struct {
	svc      *Service
	events   *mockEventRepo
	facets   *mockFacetRepo
	episodes *mockEpisodeSource
	stops    *mockStopSource
	patients *mockPatientSource
}

func newTestEnv(stopBlocks bool) *testEnv {
	env := &testEnv{
		events:   newMockEventRepo(),
		facets:   newMockFacetRepo(),
		episodes: &mockEpisodeSource{current: make(map[uuid.UUID]*EpisodeSummary)},
		stops:    &mockStopSource{stopped: make(map[uuid.UUID]bool)},
		patients: &mockPatientSource{registered: make(map[uuid.UUID]time.Time)},
	}
	catalogue := &mockCatalogue{
		labCodes: map[string]bool{"creatinine": true, "hb": true},
		medKinds: map[string]string{"epo": "dose", "amlodipine": "flag"},
	}
	env.svc = NewService(env.events, env.facets, env.episodes, env.stops, env.patients, catalogue, stopBlocks, zerolog.Nop())
	return env
}

// -- Tests --

func TestRecord_WithFacets(t *testing.T) {
	env := newTestEnv(false)
	pid := uuid.New()
	frailty := 4

	e, err := env.svc.Record(context.Background(), pid, &EventInput{
		ClinicalFrailty: &frailty,
		Lab:             &LabInput{Results: map[string]float64{"hb": 11.2}},
		Medication:      &MedicationInput{Doses: map[string]float64{"epo": 4000}, Flags: map[string]string{"amlodipine": "Y"}},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, ok := env.facets.labs[e.ID]; !ok {
		t.Error("lab facet should be attached")
	}
	if _, ok := env.facets.medications[e.ID]; !ok {
		t.Error("medication facet should be attached")
	}
	if _, ok := env.facets.dialysis[e.ID]; ok {
		t.Error("empty dialysis panel must not create a facet row")
	}
}

func TestRecord_ValidationAccumulates(t *testing.T) {
	env := newTestEnv(false)
	frailty := 12
	future := time.Now().Add(48 * time.Hour)

	_, err := env.svc.Record(context.Background(), uuid.New(), &EventInput{
		AssessmentDate:  &future,
		ClinicalFrailty: &frailty,
		Lab:             &LabInput{Results: map[string]float64{"unknown_param": 1}},
		Medication:      &MedicationInput{Doses: map[string]float64{"amlodipine": 5}},
	})
	ve, ok := validate.AsErrors(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(ve.Messages()) != 4 {
		t.Errorf("expected all 4 violations reported together, got %v", ve.Messages())
	}
	if len(env.events.events) != 0 {
		t.Error("rejected submission must not write an event")
	}
}

func TestAttachFacet_DirtyCheck(t *testing.T) {
	env := newTestEnv(false)
	pid := uuid.New()
	in := &EventInput{Lab: &LabInput{Results: map[string]float64{"hb": 10.0}}}

	e, err := env.svc.Record(context.Background(), pid, in)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if env.facets.labWrites != 1 {
		t.Fatalf("expected 1 lab write, got %d", env.facets.labWrites)
	}

	// Unchanged panel on update is a no-op; a changed value writes.
	if _, err := env.svc.Update(context.Background(), e.ID, in); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if env.facets.labWrites != 1 {
		t.Errorf("unchanged facet should not be rewritten, got %d writes", env.facets.labWrites)
	}
	changed := &EventInput{Lab: &LabInput{Results: map[string]float64{"hb": 9.1}}}
	if _, err := env.svc.Update(context.Background(), e.ID, changed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if env.facets.labWrites != 2 {
		t.Errorf("changed facet should be rewritten, got %d writes", env.facets.labWrites)
	}
}

func TestUpsertAt_InheritsCorrelationTimestamp(t *testing.T) {
	env := newTestEnv(false)
	pid := uuid.New()
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	smoking := "N"
	e, err := env.svc.UpsertAt(context.Background(), pid, at, &EventInput{Smoking: &smoking})
	if err != nil {
		t.Fatalf("UpsertAt failed: %v", err)
	}
	if !e.CreatedAt.Equal(at) {
		t.Error("first-time assessment should inherit the correlation timestamp")
	}

	smoking2 := "Y"
	e2, err := env.svc.UpsertAt(context.Background(), pid, at, &EventInput{Smoking: &smoking2})
	if err != nil {
		t.Fatalf("UpsertAt re-submission failed: %v", err)
	}
	if e2.ID != e.ID {
		t.Error("re-submission should update the correlated event, not create another")
	}
	if len(env.events.events) != 1 {
		t.Errorf("expected a single event, got %d", len(env.events.events))
	}
}

func TestRecord_BlockedAfterStop(t *testing.T) {
	env := newTestEnv(true)
	pid := uuid.New()
	env.stops.stopped[pid] = true

	_, err := env.svc.Record(context.Background(), pid, &EventInput{})
	if _, ok := validate.AsErrors(err); !ok {
		t.Fatalf("expected stop policy rejection, got %v", err)
	}

	// Policy off: the same submission goes through.
	open := newTestEnv(false)
	open.stops.stopped[pid] = true
	if _, err := open.svc.Record(context.Background(), pid, &EventInput{}); err != nil {
		t.Errorf("stop must not block when the policy is off: %v", err)
	}
}

func TestListDialysis(t *testing.T) {
	env := newTestEnv(false)
	pid := uuid.New()
	registered := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.patients.registered[pid] = registered
	env.episodes.current[pid] = &EpisodeSummary{ID: uuid.New(), Modality: "HD", Dialysis: true}

	// One assessment from the registration submission, one monitoring
	// assessment after it.
	if _, err := env.svc.UpsertAt(context.Background(), pid, registered, &EventInput{}); err != nil {
		t.Fatalf("UpsertAt failed: %v", err)
	}
	if _, err := env.svc.Record(context.Background(), pid, &EventInput{}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	items, total, err := env.svc.ListDialysis(context.Background(), pid, 20, 0)
	if err != nil {
		t.Fatalf("ListDialysis failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected only the monitoring assessment, got %d", total)
	}

	// A transplant patient has no dialysis listing.
	env.episodes.current[pid] = &EpisodeSummary{ID: uuid.New(), Modality: "TX", Dialysis: false}
	items, total, err = env.svc.ListDialysis(context.Background(), pid, 20, 0)
	if err != nil {
		t.Fatalf("ListDialysis failed: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Error("non-dialysis patients should have an empty listing")
	}
}

func TestGet_BundlesFacets(t *testing.T) {
	env := newTestEnv(false)
	pid := uuid.New()
	w := 72.5
	e, err := env.svc.Record(context.Background(), pid, &EventInput{
		Dialysis: &DialysisInput{PostHDWeight: &w},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	d, err := env.svc.Get(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if d.Dialysis == nil || d.Dialysis.PostHDWeight == nil || *d.Dialysis.PostHDWeight != w {
		t.Error("dialysis facet should be bundled in the detail view")
	}
	if d.Lab != nil {
		t.Error("absent facets should stay nil")
	}
}

// failingEventLookup simulates a store outage on the correlation lookup.
type failingEventLookup struct{ *mockEventRepo }

func (failingEventLookup) GetByPatientCreatedAt(_ context.Context, _ uuid.UUID, _ time.Time) (*Event, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestUpsertAt_StoreFailureSurfaces(t *testing.T) {
	env := newTestEnv(false)
	events := failingEventLookup{env.events}
	svc := NewService(events, env.facets, env.episodes, env.stops, env.patients, &mockCatalogue{
		labCodes: map[string]bool{"creatinine": true},
		medKinds: map[string]string{},
	}, false, zerolog.Nop())

	pid := uuid.New()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	smoking := "N"
	_, err := svc.UpsertAt(context.Background(), pid, at, &EventInput{Smoking: &smoking})
	if err == nil {
		t.Fatal("expected the store failure to surface")
	}
	if _, ok := validate.AsErrors(err); ok {
		t.Fatalf("store failure must not read as a validation error: %v", err)
	}
	if len(env.events.events) != 0 {
		t.Error("a failed lookup must not fall through to creating an event")
	}
}
