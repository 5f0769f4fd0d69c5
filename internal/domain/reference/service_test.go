package reference

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockInstitutionRepo struct {
	items map[uuid.UUID]*HealthInstitution
}

func newMockInstitutionRepo() *mockInstitutionRepo {
	return &mockInstitutionRepo{items: make(map[uuid.UUID]*HealthInstitution)}
}

func (m *mockInstitutionRepo) Create(_ context.Context, hi *HealthInstitution) error {
	hi.ID = uuid.New()
	m.items[hi.ID] = hi
	return nil
}

func (m *mockInstitutionRepo) GetByID(_ context.Context, id uuid.UUID) (*HealthInstitution, error) {
	hi, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return hi, nil
}

func (m *mockInstitutionRepo) Update(_ context.Context, hi *HealthInstitution) error {
	m.items[hi.ID] = hi
	return nil
}

func (m *mockInstitutionRepo) List(_ context.Context, limit, offset int) ([]*HealthInstitution, int, error) {
	var items []*HealthInstitution
	for _, hi := range m.items {
		items = append(items, hi)
	}
	return items, len(items), nil
}

type mockLabParameterRepo struct {
	items []*LabParameter
}

func (m *mockLabParameterRepo) Create(_ context.Context, p *LabParameter) error {
	p.ID = uuid.New()
	m.items = append(m.items, p)
	return nil
}

func (m *mockLabParameterRepo) ListActive(_ context.Context) ([]*LabParameter, error) {
	var active []*LabParameter
	for _, p := range m.items {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

type mockMedicationRepo struct {
	items []*Medication
}

func (m *mockMedicationRepo) Create(_ context.Context, med *Medication) error {
	med.ID = uuid.New()
	m.items = append(m.items, med)
	return nil
}

func (m *mockMedicationRepo) ListActive(_ context.Context) ([]*Medication, error) {
	var active []*Medication
	for _, med := range m.items {
		if med.Active {
			active = append(active, med)
		}
	}
	return active, nil
}

type mockCatalogueRepo struct {
	ids map[uuid.UUID]bool
}

func (m *mockCatalogueRepo) ExistingIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if m.ids[id] {
			found[id] = true
		}
	}
	return found, nil
}

type mockComorbidityRepo struct{ mockCatalogueRepo }

func (m *mockComorbidityRepo) Create(_ context.Context, c *Comorbidity) error { return nil }
func (m *mockComorbidityRepo) ListActive(_ context.Context) ([]*Comorbidity, error) {
	return nil, nil
}

type mockDisabilityRepo struct{ mockCatalogueRepo }

func (m *mockDisabilityRepo) Create(_ context.Context, d *Disability) error { return nil }
func (m *mockDisabilityRepo) ListActive(_ context.Context) ([]*Disability, error) {
	return nil, nil
}

func newTestService(inst *mockInstitutionRepo, labs *mockLabParameterRepo, meds *mockMedicationRepo, com *mockComorbidityRepo, dis *mockDisabilityRepo) *Service {
	if inst == nil {
		inst = newMockInstitutionRepo()
	}
	if labs == nil {
		labs = &mockLabParameterRepo{}
	}
	if meds == nil {
		meds = &mockMedicationRepo{}
	}
	if com == nil {
		com = &mockComorbidityRepo{mockCatalogueRepo{ids: map[uuid.UUID]bool{}}}
	}
	if dis == nil {
		dis = &mockDisabilityRepo{mockCatalogueRepo{ids: map[uuid.UUID]bool{}}}
	}
	return NewService(inst, nil, com, dis, labs, meds)
}

// -- Tests --

func TestCreateInstitution(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	hi := &HealthInstitution{Name: "Central Hospital", Type: "hospital", IsUnitRequired: true}
	if err := svc.CreateInstitution(context.Background(), hi); err != nil {
		t.Fatalf("CreateInstitution failed: %v", err)
	}
	if hi.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}

	required, err := svc.IsUnitRequired(context.Background(), hi.ID)
	if err != nil {
		t.Fatalf("IsUnitRequired failed: %v", err)
	}
	if !required {
		t.Error("expected IsUnitRequired = true")
	}
}

func TestCreateInstitution_Invalid(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	if err := svc.CreateInstitution(context.Background(), &HealthInstitution{}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.CreateInstitution(context.Background(), &HealthInstitution{Name: "X", Type: "spaceship"}); err == nil {
		t.Error("expected error for invalid type")
	}
}

func TestLabParameterCodes(t *testing.T) {
	labs := &mockLabParameterRepo{}
	svc := newTestService(nil, labs, nil, nil, nil)

	labs.Create(context.Background(), &LabParameter{Code: "creatinine", Name: "Serum creatinine", Active: true})
	labs.Create(context.Background(), &LabParameter{Code: "hb", Name: "Haemoglobin", Active: true})
	labs.Create(context.Background(), &LabParameter{Code: "retired", Name: "Retired", Active: false})

	codes, err := svc.LabParameterCodes(context.Background())
	if err != nil {
		t.Fatalf("LabParameterCodes failed: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 active codes, got %d", len(codes))
	}
	if !codes["creatinine"] || !codes["hb"] {
		t.Errorf("unexpected code set: %v", codes)
	}
	if codes["retired"] {
		t.Error("inactive parameter should not be listed")
	}
}

func TestMedicationKinds(t *testing.T) {
	meds := &mockMedicationRepo{}
	svc := newTestService(nil, nil, meds, nil, nil)

	meds.Create(context.Background(), &Medication{Code: "epo", Name: "Erythropoietin", Kind: MedicationKindDose, Active: true})
	meds.Create(context.Background(), &Medication{Code: "iron", Name: "IV iron", Kind: MedicationKindFlag, Active: true})

	kinds, err := svc.MedicationKinds(context.Background())
	if err != nil {
		t.Fatalf("MedicationKinds failed: %v", err)
	}
	if kinds["epo"] != MedicationKindDose {
		t.Errorf("expected epo to be a dose medication, got %q", kinds["epo"])
	}
	if kinds["iron"] != MedicationKindFlag {
		t.Errorf("expected iron to be a flag medication, got %q", kinds["iron"])
	}
}

func TestUnknownCatalogueIDs(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()
	com := &mockComorbidityRepo{mockCatalogueRepo{ids: map[uuid.UUID]bool{known: true}}}
	svc := newTestService(nil, nil, nil, com, nil)

	missing, err := svc.UnknownComorbidityIDs(context.Background(), []uuid.UUID{known, unknown})
	if err != nil {
		t.Fatalf("UnknownComorbidityIDs failed: %v", err)
	}
	if len(missing) != 1 || missing[0] != unknown {
		t.Errorf("expected only the unknown id, got %v", missing)
	}

	missing, err = svc.UnknownComorbidityIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("UnknownComorbidityIDs failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing ids for empty input, got %v", missing)
	}
}
