package modality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renalreg/registry/internal/platform/validate"
)

// ErrPatientNotFound is returned when an operation references a patient id
// that does not exist. Handlers map it to 404; any other non-validation
// error is a server fault.
var ErrPatientNotFound = errors.New("patient not found")

// Service enforces the episode transition rules: a single current episode
// per patient, correlation timestamps shared with co-submitted records, and
// the stop-of-treatment demotion.
type Service struct {
	episodes   EpisodeRepository
	aki        AKIRepository
	stops      StopRepository
	patients   PatientStore
	stopBlocks bool
	logger     zerolog.Logger
}

func NewService(episodes EpisodeRepository, aki AKIRepository, stops StopRepository, patients PatientStore, stopBlocks bool, logger zerolog.Logger) *Service {
	return &Service{
		episodes:   episodes,
		aki:        aki,
		stops:      stops,
		patients:   patients,
		stopBlocks: stopBlocks,
		logger:     logger,
	}
}

// Timeline returns the six-slot episode view for a patient. When asOf is
// non-nil only episodes entered in that form submission are considered,
// which is how the registration form re-populates its own slots.
func (s *Service) Timeline(ctx context.Context, patientID uuid.UUID, asOf *time.Time) (*Timeline, error) {
	if ok, err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrPatientNotFound
	}
	episodes, err := s.episodes.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if asOf != nil {
		episodes = FilterByCreatedAt(episodes, *asOf)
	}
	tl, extras := BuildTimeline(episodes)
	if extras > 0 {
		s.logger.Warn().
			Str("patient_id", patientID.String()).
			Int("extra_current", extras).
			Msg("patient has more than one current episode, tie-broken by most recent")
	}
	if inKRT, err := s.patients.InKRT(ctx, patientID); err == nil && inKRT && tl.Current() == nil && asOf == nil {
		s.logger.Warn().
			Str("patient_id", patientID.String()).
			Msg("patient flagged in KRT but has no current episode")
	}
	return &tl, nil
}

// Current returns the patient's current episode, tie-broken to the most
// recently created when storage holds more than one, or nil when the
// patient is not on KRT.
func (s *Service) Current(ctx context.Context, patientID uuid.UUID) (*Episode, error) {
	currents, err := s.episodes.CurrentByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(currents) == 0 {
		return nil, nil
	}
	if len(currents) > 1 {
		s.logger.Warn().
			Str("patient_id", patientID.String()).
			Int("count", len(currents)).
			Msg("patient has more than one current episode, tie-broken by most recent")
	}
	return currents[0], nil
}

// First returns the patient's earliest episode, or nil if none exist.
func (s *Service) First(ctx context.Context, patientID uuid.UUID) (*Episode, error) {
	episodes, err := s.episodes.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, nil
	}
	return episodes[0], nil
}

func (s *Service) GetEpisode(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return s.episodes.GetByID(ctx, id)
}

// Episodes returns the patient's full episode history, oldest first.
func (s *Service) Episodes(ctx context.Context, patientID uuid.UUID) ([]*Episode, error) {
	return s.episodes.ListByPatient(ctx, patientID)
}

func validateEpisodeInput(ve *validate.Errors, in *EpisodeInput, requireStart bool) {
	if in.Modality == "" {
		ve.Add("Modality is required.")
	} else if !validModalities[in.Modality] {
		ve.Add(fmt.Sprintf("Invalid modality: %s.", in.Modality))
	}
	if in.StartDate == nil {
		if requireStart {
			ve.Add("Episode start date is required.")
		}
	} else if !validate.NotFuture(*in.StartDate) {
		ve.Add("Episode start date cannot be in the future.")
	}
	if in.HDInitialAccess != nil && !validHDAccesses[*in.HDInitialAccess] {
		ve.Add(fmt.Sprintf("Invalid vascular access: %s.", *in.HDInitialAccess))
	}
	for _, f := range []*string{in.HDPrivateStart, in.HepBVaccinated, in.DelayedStart, in.BeforeKRT} {
		if f != nil && !validYNU[*f] {
			ve.Add(fmt.Sprintf("Flag values must be Y, N or U, got %s.", *f))
		}
	}
	if in.Modality != ModalityHD && (in.HDUnitID != nil || in.HDInitialAccess != nil) {
		ve.Add("HD details are only valid on an HD episode.")
	}
	if in.Modality != ModalityPD && (in.PDCatheterDays != nil || in.PDInsertionTechnique != nil) {
		ve.Add("PD details are only valid on a PD episode.")
	}
	if in.PDCatheterDays != nil && *in.PDCatheterDays < 0 {
		ve.Add("PD catheter days cannot be negative.")
	}
}

// StartOrChange begins a new modality episode for the patient, demoting the
// previously current episode to historical. If the patient had no current
// episode this is their first KRT entry outside the registration form and
// the in-KRT flag is flipped.
//
// The new episode carries a fresh correlation timestamp; the caller stamps
// any co-submitted AKI or assessment records with Episode.CreatedAt so they
// stay tied to this transition. The caller must run this inside a
// transaction so demotion and creation commit together.
func (s *Service) StartOrChange(ctx context.Context, patientID uuid.UUID, in *EpisodeInput) (*Episode, error) {
	if ok, err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrPatientNotFound
	}

	var ve validate.Errors
	validateEpisodeInput(&ve, in, false)
	if s.stopBlocks {
		stopped, err := s.stops.Exists(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if stopped {
			ve.Add("Patient has stopped treatment; new episodes are not accepted.")
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	currents, err := s.episodes.CurrentByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, c := range currents {
		if err := s.episodes.SetCurrent(ctx, c.ID, false); err != nil {
			return nil, err
		}
	}
	if len(currents) == 0 {
		if err := s.patients.SetInKRT(ctx, patientID, true); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}
	e := &Episode{
		PatientID: patientID,
		Modality:  in.Modality,
		IsCurrent: true,
		StartDate: start,
		CreatedAt: now,
	}
	in.applyClinical(e)
	if err := s.episodes.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Edit mutates an episode's clinical detail fields in place. It never
// touches is_current, and the start date only moves when the episode is the
// patient's earliest entry; for any later episode the submitted start date
// is ignored.
func (s *Service) Edit(ctx context.Context, episodeID uuid.UUID, in *EpisodeInput) (*Episode, error) {
	e, err := s.episodes.GetByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	var ve validate.Errors
	validateEpisodeInput(&ve, in, false)
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if in.StartDate != nil {
		first, err := s.First(ctx, e.PatientID)
		if err != nil {
			return nil, err
		}
		if first != nil && first.ID == e.ID {
			e.StartDate = *in.StartDate
		}
	}
	if in.Modality != "" {
		e.Modality = in.Modality
	}
	in.applyClinical(e)
	if err := s.episodes.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Stop records the end of the patient's dialysis treatment and demotes the
// current episode. After a successful call the patient has zero current
// episodes until a new StartOrChange. The caller runs this inside a
// transaction.
func (s *Service) Stop(ctx context.Context, patientID uuid.UUID, in *StopInput) (*StopRecord, error) {
	if ok, err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrPatientNotFound
	}

	var ve validate.Errors
	if in.StopReason == "" {
		ve.Add("Stop reason is required.")
	} else if !validStopReasons[in.StopReason] {
		ve.Add(fmt.Sprintf("Invalid stop reason: %s.", in.StopReason))
	}
	if in.LastDialysisDate != nil && !validate.NotFuture(*in.LastDialysisDate) {
		ve.Add("Last dialysis date cannot be in the future.")
	}
	if in.DateOfDeath != nil && !validate.NotFuture(*in.DateOfDeath) {
		ve.Add("Date of death cannot be in the future.")
	}
	if in.StopReason == "D" && in.DateOfDeath == nil {
		ve.Add("Date of death is required when the stop reason is death.")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	currents, err := s.episodes.CurrentByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, c := range currents {
		if err := s.episodes.SetCurrent(ctx, c.ID, false); err != nil {
			return nil, err
		}
	}

	rec, err := s.stops.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &StopRecord{PatientID: patientID}
	}
	rec.LastDialysisDate = in.LastDialysisDate
	rec.StopReason = in.StopReason
	rec.DateOfDeath = in.DateOfDeath
	rec.CauseOfDeath = in.CauseOfDeath
	if rec.ID == uuid.Nil {
		err = s.stops.Create(ctx, rec)
	} else {
		err = s.stops.Update(ctx, rec)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetStop returns the patient's stop record, or nil if treatment has not
// been stopped.
func (s *Service) GetStop(ctx context.Context, patientID uuid.UUID) (*StopRecord, error) {
	return s.stops.GetByPatient(ctx, patientID)
}

// HasStopRecord reports whether the patient's treatment has been stopped.
func (s *Service) HasStopRecord(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return s.stops.Exists(ctx, patientID)
}

// RecordAKI creates or updates the patient's single AKI measurement. AKI is
// only collected before the patient enters KRT; callers submitting a form
// for a patient already on KRT skip the call entirely. When at is non-nil
// the record is stamped with that correlation timestamp so it stays tied to
// the episode entered in the same submission; a first-time measurement with
// at == nil gets its own submission time.
func (s *Service) RecordAKI(ctx context.Context, patientID uuid.UUID, at *time.Time, in *AKIInput) (*AKIMeasurement, error) {
	if in.empty() {
		return nil, nil
	}

	var ve validate.Errors
	ValidateAKI(&ve, in)
	if err := ve.Err(); err != nil {
		return nil, err
	}

	a, err := s.aki.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = &AKIMeasurement{PatientID: patientID}
		if at != nil {
			a.CreatedAt = *at
		}
	}
	a.Creatinine = in.Creatinine
	a.EGFR = in.EGFR
	a.Hb = in.Hb
	a.MeasurementDate = in.MeasurementDate
	if a.ID == uuid.Nil {
		err = s.aki.Create(ctx, a)
	} else {
		err = s.aki.Update(ctx, a)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAKI returns the patient's AKI measurement, or nil if none recorded.
func (s *Service) GetAKI(ctx context.Context, patientID uuid.UUID) (*AKIMeasurement, error) {
	return s.aki.GetByPatient(ctx, patientID)
}

// ReconcileSlots upserts the episodes submitted on the multi-slot
// registration form. Historical slots carry the shared correlation
// timestamp at; the current slot demotes any previously current episode.
// Existing episodes from the same submission are matched by their slot
// position and updated only when the submitted values differ, so an
// unchanged re-submission writes nothing.
func (s *Service) ReconcileSlots(ctx context.Context, patientID uuid.UUID, at time.Time, historical []*EpisodeInput, current *EpisodeInput) error {
	all, err := s.episodes.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	tl, extras := BuildTimeline(FilterByCreatedAt(all, at))
	if extras > 0 {
		s.logger.Warn().
			Str("patient_id", patientID.String()).
			Int("extra_current", extras).
			Msg("patient has more than one current episode, tie-broken by most recent")
	}

	if len(historical) > TimelineSlots-1 {
		historical = historical[:TimelineSlots-1]
	}
	for i, in := range historical {
		if in == nil {
			continue
		}
		existing := tl.Slots[i]
		if existing == nil {
			e := &Episode{
				PatientID: patientID,
				Modality:  in.Modality,
				StartDate: derefDate(in.StartDate),
				CreatedAt: at,
			}
			in.applyClinical(e)
			if err := s.episodes.Create(ctx, e); err != nil {
				return err
			}
			continue
		}
		if existing.Modality == in.Modality && in.StartDate != nil && sameDay(existing.StartDate, *in.StartDate) {
			continue
		}
		existing.Modality = in.Modality
		if in.StartDate != nil {
			existing.StartDate = *in.StartDate
		}
		if err := s.episodes.Update(ctx, existing); err != nil {
			return err
		}
	}

	if current == nil {
		return nil
	}
	existing := tl.Current()
	if existing != nil && existing.Modality == current.Modality &&
		(current.StartDate == nil || sameDay(existing.StartDate, *current.StartDate)) {
		return nil
	}
	currents, err := s.episodes.CurrentByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, c := range currents {
		if err := s.episodes.SetCurrent(ctx, c.ID, false); err != nil {
			return err
		}
	}
	if existing != nil {
		existing.Modality = current.Modality
		if current.StartDate != nil {
			existing.StartDate = *current.StartDate
		}
		existing.IsCurrent = true
		current.applyClinical(existing)
		return s.episodes.Update(ctx, existing)
	}
	e := &Episode{
		PatientID: patientID,
		Modality:  current.Modality,
		IsCurrent: true,
		StartDate: derefDate(current.StartDate),
		CreatedAt: at,
	}
	current.applyClinical(e)
	return s.episodes.Create(ctx, e)
}

// ValidateAKI runs the AKI measurement field rules, accumulating any
// violations into ve.
func ValidateAKI(ve *validate.Errors, in *AKIInput) {
	if in.empty() {
		return
	}
	if in.Creatinine != nil {
		if !validate.InRange(*in.Creatinine, 60, 1500) {
			ve.Add("Creatinine valid range is 60 - 1500 umol/l.")
		} else if !validate.TwoDecimals(*in.Creatinine) {
			ve.Add("Creatinine accepts at most 2 decimal places.")
		}
	}
	if in.EGFR != nil {
		if !validate.InRange(*in.EGFR, 1, 150) {
			ve.Add("eGFR valid range is 1 - 150 ml/min.")
		} else if !validate.TwoDecimals(*in.EGFR) {
			ve.Add("eGFR accepts at most 2 decimal places.")
		}
	}
	if in.Hb != nil {
		if !validate.InRange(*in.Hb, 3, 20) {
			ve.Add("Hb valid range is 3 - 20 g/dl.")
		} else if !validate.TwoDecimals(*in.Hb) {
			ve.Add("Hb accepts at most 2 decimal places.")
		}
	}
	if in.MeasurementDate != nil && !validate.NotFuture(*in.MeasurementDate) {
		ve.Add("Measurement date cannot be in the future.")
	}
}

// ValidateSlots runs the slot-level field rules without writing anything,
// so a registration submission can accumulate episode errors alongside
// patient and registration errors.
func ValidateSlots(ve *validate.Errors, historical []*EpisodeInput, current *EpisodeInput) {
	for i, in := range historical {
		if in == nil {
			continue
		}
		var slot validate.Errors
		validateEpisodeInput(&slot, in, true)
		for _, msg := range slot.Messages() {
			ve.Add(fmt.Sprintf("Episode %d: %s", i+1, msg))
		}
	}
	if current != nil {
		var slot validate.Errors
		validateEpisodeInput(&slot, current, true)
		for _, msg := range slot.Messages() {
			ve.Add(fmt.Sprintf("Current episode: %s", msg))
		}
	}
}

func derefDate(d *time.Time) time.Time {
	if d == nil {
		return time.Time{}
	}
	return *d
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
