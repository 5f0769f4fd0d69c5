package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renalreg/registry/internal/platform/validate"
)

// PatientSource answers when a patient was registered. The registration
// correlation timestamp separates the assessment entered on the
// registration form from the recurring monitoring assessments that follow.
type PatientSource interface {
	RegisteredAt(ctx context.Context, patientID uuid.UUID) (time.Time, error)
}

// Service links assessment events to their facets and to the modality
// episode active at the time of assessment.
type Service struct {
	events     EventRepository
	facets     FacetRepository
	episodes   EpisodeSource
	stops      StopSource
	patients   PatientSource
	catalogue  Catalogue
	stopBlocks bool
	logger     zerolog.Logger
}

func NewService(events EventRepository, facets FacetRepository, episodes EpisodeSource, stops StopSource, patients PatientSource, catalogue Catalogue, stopBlocks bool, logger zerolog.Logger) *Service {
	return &Service{
		events:     events,
		facets:     facets,
		episodes:   episodes,
		stops:      stops,
		patients:   patients,
		catalogue:  catalogue,
		stopBlocks: stopBlocks,
		logger:     logger,
	}
}

var validYNU = map[string]bool{"Y": true, "N": true, "U": true}

func (s *Service) validateInput(ctx context.Context, in *EventInput) error {
	var ve validate.Errors
	if in.AssessmentDate != nil && !validate.NotFuture(*in.AssessmentDate) {
		ve.Add("Assessment date cannot be in the future.")
	}
	if in.ClinicalFrailty != nil && (*in.ClinicalFrailty < 1 || *in.ClinicalFrailty > 9) {
		ve.Add("Clinical frailty scale valid range is 1 - 9.")
	}
	for name, f := range map[string]*string{
		"Smoking": in.Smoking, "Alcohol": in.Alcohol,
		"Hepatitis B": in.HepatitisB, "Hepatitis C": in.HepatitisC, "HIV": in.HIV,
	} {
		if f != nil && !validYNU[*f] {
			ve.Add(fmt.Sprintf("%s must be Y, N or U.", name))
		}
	}

	if missing, err := s.catalogue.UnknownComorbidityIDs(ctx, in.ComorbidityIDs); err != nil {
		return err
	} else if len(missing) > 0 {
		ve.Add(fmt.Sprintf("Unknown comorbidity: %s.", missing[0]))
	}
	if missing, err := s.catalogue.UnknownDisabilityIDs(ctx, in.DisabilityIDs); err != nil {
		return err
	} else if len(missing) > 0 {
		ve.Add(fmt.Sprintf("Unknown disability: %s.", missing[0]))
	}

	if !in.Lab.empty() {
		codes, err := s.catalogue.LabParameterCodes(ctx)
		if err != nil {
			return err
		}
		for code, v := range in.Lab.Results {
			if !codes[code] {
				ve.Add(fmt.Sprintf("Unknown lab parameter: %s.", code))
			}
			if v < 0 {
				ve.Add(fmt.Sprintf("Lab result for %s cannot be negative.", code))
			}
		}
		if in.Lab.SampleDate != nil && !validate.NotFuture(*in.Lab.SampleDate) {
			ve.Add("Sample date cannot be in the future.")
		}
	}
	if !in.Medication.empty() {
		kinds, err := s.catalogue.MedicationKinds(ctx)
		if err != nil {
			return err
		}
		for code, v := range in.Medication.Doses {
			if kinds[code] != "dose" {
				ve.Add(fmt.Sprintf("Medication %s does not take a dose value.", code))
			}
			if v < 0 {
				ve.Add(fmt.Sprintf("Dose for %s cannot be negative.", code))
			}
		}
		for code, v := range in.Medication.Flags {
			if kinds[code] != "flag" {
				ve.Add(fmt.Sprintf("Medication %s does not take a yes/no value.", code))
			}
			if !validYNU[v] {
				ve.Add(fmt.Sprintf("Medication flag for %s must be Y, N or U.", code))
			}
		}
	}
	if !in.Dialysis.empty() {
		d := in.Dialysis
		if d.PostHDWeight != nil {
			if !validate.InRange(*d.PostHDWeight, 0.86, 250) {
				ve.Add("Weight valid range is 0.86 - 250 kg.")
			} else if !validate.TwoDecimals(*d.PostHDWeight) {
				ve.Add("Weight accepts at most 2 decimal places.")
			}
		}
		if d.URR != nil && !validate.InRange(*d.URR, 0, 100) {
			ve.Add("URR valid range is 0 - 100 %.")
		}
		if d.SessionsPerWeek != nil && *d.SessionsPerWeek < 0 {
			ve.Add("Sessions per week cannot be negative.")
		}
		if d.MinutesPerSession != nil && *d.MinutesPerSession < 0 {
			ve.Add("Minutes per session cannot be negative.")
		}
		if d.BPSystolic != nil && !validate.InRange(float64(*d.BPSystolic), 50, 300) {
			ve.Add("Systolic BP valid range is 50 - 300 mmHg.")
		}
		if d.BPDiastolic != nil && !validate.InRange(float64(*d.BPDiastolic), 20, 200) {
			ve.Add("Diastolic BP valid range is 20 - 200 mmHg.")
		}
	}
	return ve.Err()
}

func (s *Service) checkStop(ctx context.Context, patientID uuid.UUID) error {
	if !s.stopBlocks {
		return nil
	}
	stopped, err := s.stops.HasStopRecord(ctx, patientID)
	if err != nil {
		return err
	}
	if stopped {
		var ve validate.Errors
		ve.Add("Patient has stopped treatment; new assessments are not accepted.")
		return ve.Err()
	}
	return nil
}

func (in *EventInput) apply(e *Event) {
	e.AssessmentDate = in.AssessmentDate
	e.ComorbidityIDs = in.ComorbidityIDs
	e.DisabilityIDs = in.DisabilityIDs
	e.Smoking = in.Smoking
	e.Alcohol = in.Alcohol
	e.HepatitisB = in.HepatitisB
	e.HepatitisC = in.HepatitisC
	e.HIV = in.HIV
	e.ClinicalFrailty = in.ClinicalFrailty
}

// Record creates a standalone monitoring assessment stamped with its own
// submission time.
func (s *Service) Record(ctx context.Context, patientID uuid.UUID, in *EventInput) (*Event, error) {
	if err := s.checkStop(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}
	e := &Event{PatientID: patientID}
	in.apply(e)
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	if err := s.writeLinks(ctx, e, in); err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertAt creates or updates the assessment tied to one specific form
// submission, identified by the shared correlation timestamp. A first-time
// assessment inherits that timestamp; re-submissions update the existing
// event in place.
func (s *Service) UpsertAt(ctx context.Context, patientID uuid.UUID, at time.Time, in *EventInput) (*Event, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}
	e, err := s.events.GetByPatientCreatedAt(ctx, patientID, at)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &Event{PatientID: patientID, CreatedAt: at}
		in.apply(e)
		if err := s.events.Create(ctx, e); err != nil {
			return nil, err
		}
	} else {
		in.apply(e)
		if err := s.events.Update(ctx, e); err != nil {
			return nil, err
		}
	}
	if err := s.writeLinks(ctx, e, in); err != nil {
		return nil, err
	}
	return e, nil
}

// Update edits an existing assessment and its facets in place.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in *EventInput) (*Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}
	in.apply(e)
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	if err := s.writeLinks(ctx, e, in); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) writeLinks(ctx context.Context, e *Event, in *EventInput) error {
	if in.ComorbidityIDs != nil {
		if err := s.events.SetComorbidities(ctx, e.ID, in.ComorbidityIDs); err != nil {
			return err
		}
	}
	if in.DisabilityIDs != nil {
		if err := s.events.SetDisabilities(ctx, e.ID, in.DisabilityIDs); err != nil {
			return err
		}
	}
	if err := s.attachLab(ctx, e.ID, in.Lab); err != nil {
		return err
	}
	if err := s.attachMedication(ctx, e.ID, in.Medication); err != nil {
		return err
	}
	return s.attachDialysis(ctx, e.ID, in.Dialysis)
}

// Facet attachment is dirty-checked: an empty panel is never written, and
// an unchanged re-submission is a no-op so history is not polluted with
// identical extension rows.

func (s *Service) attachLab(ctx context.Context, id uuid.UUID, in *LabInput) error {
	if in.empty() {
		return nil
	}
	existing, err := s.facets.GetLab(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil &&
		floatMapsEqual(existing.Results, in.Results) && timesEqual(existing.SampleDate, in.SampleDate) {
		s.logger.Debug().Str("assessment_id", id.String()).Msg("lab panel unchanged, skipping write")
		return nil
	}
	return s.facets.UpsertLab(ctx, &LabFacet{AssessmentID: id, Results: in.Results, SampleDate: in.SampleDate})
}

func (s *Service) attachMedication(ctx context.Context, id uuid.UUID, in *MedicationInput) error {
	if in.empty() {
		return nil
	}
	existing, err := s.facets.GetMedication(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil &&
		floatMapsEqual(existing.Doses, in.Doses) && stringMapsEqual(existing.Flags, in.Flags) {
		s.logger.Debug().Str("assessment_id", id.String()).Msg("medication panel unchanged, skipping write")
		return nil
	}
	return s.facets.UpsertMedication(ctx, &MedicationFacet{AssessmentID: id, Doses: in.Doses, Flags: in.Flags})
}

func (s *Service) attachDialysis(ctx context.Context, id uuid.UUID, in *DialysisInput) error {
	if in.empty() {
		return nil
	}
	f := &DialysisFacet{
		AssessmentID:      id,
		PostHDWeight:      in.PostHDWeight,
		SessionsPerWeek:   in.SessionsPerWeek,
		MinutesPerSession: in.MinutesPerSession,
		URR:               in.URR,
		KtV:               in.KtV,
		PDExchangesPerDay: in.PDExchangesPerDay,
		PDFluidLitres:     in.PDFluidLitres,
		BPSystolic:        in.BPSystolic,
		BPDiastolic:       in.BPDiastolic,
	}
	existing, err := s.facets.GetDialysis(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil && dialysisEqual(existing, f) {
		s.logger.Debug().Str("assessment_id", id.String()).Msg("dialysis panel unchanged, skipping write")
		return nil
	}
	return s.facets.UpsertDialysis(ctx, f)
}

// Get returns the event with its attached facets.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Event: e}
	if d.Lab, err = s.facets.GetLab(ctx, id); err != nil {
		return nil, err
	}
	if d.Medication, err = s.facets.GetMedication(ctx, id); err != nil {
		return nil, err
	}
	if d.Dialysis, err = s.facets.GetDialysis(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}

// AtTime returns the assessment carrying the given correlation timestamp
// with its facets, or nil when the submission carried no assessment.
func (s *Service) AtTime(ctx context.Context, patientID uuid.UUID, at time.Time) (*Detail, error) {
	e, err := s.events.GetByPatientCreatedAt(ctx, patientID, at)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return s.Get(ctx, e.ID)
}

// CurrentEpisodeFor returns the patient's active episode, used to pick the
// HD or PD portion of the adequacy panel.
func (s *Service) CurrentEpisodeFor(ctx context.Context, patientID uuid.UUID) (*EpisodeSummary, error) {
	return s.episodes.CurrentEpisodeFor(ctx, patientID)
}

// ListDialysis returns the patient's recurring monitoring assessments:
// events entered after the registration submission, newest first. Only
// patients currently on a dialysis modality have entries to show; for
// anyone else the listing is empty.
func (s *Service) ListDialysis(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	ep, err := s.episodes.CurrentEpisodeFor(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if ep == nil || !ep.Dialysis {
		return nil, 0, nil
	}
	registeredAt, err := s.patients.RegisteredAt(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	return s.events.ListByPatientAfter(ctx, patientID, registeredAt, limit, offset)
}

// ListByPatient returns all of a patient's assessments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	return s.events.ListByPatient(ctx, patientID, limit, offset)
}

func floatMapsEqual(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func stringMapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func dialysisEqual(a, b *DialysisFacet) bool {
	return floatPtrEqual(a.PostHDWeight, b.PostHDWeight) &&
		intPtrEqual(a.SessionsPerWeek, b.SessionsPerWeek) &&
		intPtrEqual(a.MinutesPerSession, b.MinutesPerSession) &&
		floatPtrEqual(a.URR, b.URR) &&
		floatPtrEqual(a.KtV, b.KtV) &&
		intPtrEqual(a.PDExchangesPerDay, b.PDExchangesPerDay) &&
		floatPtrEqual(a.PDFluidLitres, b.PDFluidLitres) &&
		intPtrEqual(a.BPSystolic, b.BPSystolic) &&
		intPtrEqual(a.BPDiastolic, b.BPDiastolic)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
