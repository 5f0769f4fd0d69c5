package assessment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/renalreg/registry/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, patient_id, assessment_date, smoking, alcohol,
	hepatitis_b, hepatitis_c, hiv, clinical_frailty, created_at, updated_at`

func (r *eventRepoPG) scanRow(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.PatientID, &e.AssessmentDate, &e.Smoking, &e.Alcohol,
		&e.HepatitisB, &e.HepatitisC, &e.HIV, &e.ClinicalFrailty, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *eventRepoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	var createdAt interface{}
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO assessment_events (id, patient_id, assessment_date, smoking, alcohol,
			hepatitis_b, hepatitis_c, hiv, clinical_frailty, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, NOW()))`,
		e.ID, e.PatientID, e.AssessmentDate, e.Smoking, e.Alcohol,
		e.HepatitisB, e.HepatitisC, e.HIV, e.ClinicalFrailty, createdAt)
	return err
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM assessment_events WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByPatientCreatedAt returns (nil, nil) when no assessment carries the
// correlation timestamp.
func (r *eventRepoPG) GetByPatientCreatedAt(ctx context.Context, patientID uuid.UUID, at time.Time) (*Event, error) {
	e, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+eventCols+` FROM assessment_events
		WHERE patient_id = $1 AND created_at = $2`, patientID, at))
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepoPG) loadLinks(ctx context.Context, e *Event) error {
	com, err := r.linkedIDs(ctx, `SELECT comorbidity_id FROM assessment_comorbidities WHERE assessment_id = $1`, e.ID)
	if err != nil {
		return err
	}
	dis, err := r.linkedIDs(ctx, `SELECT disability_id FROM assessment_disabilities WHERE assessment_id = $1`, e.ID)
	if err != nil {
		return err
	}
	e.ComorbidityIDs = com
	e.DisabilityIDs = dis
	return nil
}

func (r *eventRepoPG) linkedIDs(ctx context.Context, sql string, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *eventRepoPG) Update(ctx context.Context, e *Event) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE assessment_events SET assessment_date=$2, smoking=$3, alcohol=$4,
			hepatitis_b=$5, hepatitis_c=$6, hiv=$7, clinical_frailty=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.AssessmentDate, e.Smoking, e.Alcohol,
		e.HepatitisB, e.HepatitisC, e.HIV, e.ClinicalFrailty)
	return err
}

func (r *eventRepoPG) ListByPatientAfter(ctx context.Context, patientID uuid.UUID, after time.Time, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM assessment_events WHERE patient_id = $1 AND created_at > $2`,
		patientID, after).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM assessment_events
		WHERE patient_id = $1 AND created_at > $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, patientID, after, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *eventRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM assessment_events WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM assessment_events
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *eventRepoPG) collect(rows pgx.Rows, total int) ([]*Event, int, error) {
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *eventRepoPG) SetComorbidities(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) error {
	return r.setLinks(ctx, "assessment_comorbidities", "comorbidity_id", eventID, ids)
}

func (r *eventRepoPG) SetDisabilities(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) error {
	return r.setLinks(ctx, "assessment_disabilities", "disability_id", eventID, ids)
}

func (r *eventRepoPG) setLinks(ctx context.Context, table, col string, eventID uuid.UUID, ids []uuid.UUID) error {
	c := r.conn(ctx)
	if _, err := c.Exec(ctx, `DELETE FROM `+table+` WHERE assessment_id = $1`, eventID); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := c.Exec(ctx, `INSERT INTO `+table+` (assessment_id, `+col+`) VALUES ($1,$2)`, eventID, id); err != nil {
			return err
		}
	}
	return nil
}

type facetRepoPG struct{ pool *pgxpool.Pool }

func NewFacetRepoPG(pool *pgxpool.Pool) FacetRepository {
	return &facetRepoPG{pool: pool}
}

func (r *facetRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *facetRepoPG) GetLab(ctx context.Context, assessmentID uuid.UUID) (*LabFacet, error) {
	var f LabFacet
	var results []byte
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT assessment_id, results, sample_date, created_at, updated_at
		FROM lab_assessments WHERE assessment_id = $1`, assessmentID).
		Scan(&f.AssessmentID, &results, &f.SampleDate, &f.CreatedAt, &f.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &f.Results); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *facetRepoPG) UpsertLab(ctx context.Context, f *LabFacet) error {
	results, err := json.Marshal(f.Results)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_assessments (assessment_id, results, sample_date)
		VALUES ($1,$2,$3)
		ON CONFLICT (assessment_id)
		DO UPDATE SET results = EXCLUDED.results, sample_date = EXCLUDED.sample_date, updated_at = NOW()`,
		f.AssessmentID, results, f.SampleDate)
	return err
}

func (r *facetRepoPG) GetMedication(ctx context.Context, assessmentID uuid.UUID) (*MedicationFacet, error) {
	var f MedicationFacet
	var doses, flags []byte
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT assessment_id, doses, flags, created_at, updated_at
		FROM medication_assessments WHERE assessment_id = $1`, assessmentID).
		Scan(&f.AssessmentID, &doses, &flags, &f.CreatedAt, &f.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doses, &f.Doses); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(flags, &f.Flags); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *facetRepoPG) UpsertMedication(ctx context.Context, f *MedicationFacet) error {
	doses, err := json.Marshal(f.Doses)
	if err != nil {
		return err
	}
	flags, err := json.Marshal(f.Flags)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO medication_assessments (assessment_id, doses, flags)
		VALUES ($1,$2,$3)
		ON CONFLICT (assessment_id)
		DO UPDATE SET doses = EXCLUDED.doses, flags = EXCLUDED.flags, updated_at = NOW()`,
		f.AssessmentID, doses, flags)
	return err
}

func (r *facetRepoPG) GetDialysis(ctx context.Context, assessmentID uuid.UUID) (*DialysisFacet, error) {
	var f DialysisFacet
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT assessment_id, post_hd_weight, sessions_per_week, minutes_per_session,
			urr, ktv, pd_exchanges_per_day, pd_fluid_litres, bp_systolic, bp_diastolic,
			created_at, updated_at
		FROM dialysis_assessments WHERE assessment_id = $1`, assessmentID).
		Scan(&f.AssessmentID, &f.PostHDWeight, &f.SessionsPerWeek, &f.MinutesPerSession,
			&f.URR, &f.KtV, &f.PDExchangesPerDay, &f.PDFluidLitres,
			&f.BPSystolic, &f.BPDiastolic, &f.CreatedAt, &f.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *facetRepoPG) UpsertDialysis(ctx context.Context, f *DialysisFacet) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dialysis_assessments (assessment_id, post_hd_weight, sessions_per_week,
			minutes_per_session, urr, ktv, pd_exchanges_per_day, pd_fluid_litres,
			bp_systolic, bp_diastolic)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (assessment_id)
		DO UPDATE SET post_hd_weight = EXCLUDED.post_hd_weight,
			sessions_per_week = EXCLUDED.sessions_per_week,
			minutes_per_session = EXCLUDED.minutes_per_session,
			urr = EXCLUDED.urr, ktv = EXCLUDED.ktv,
			pd_exchanges_per_day = EXCLUDED.pd_exchanges_per_day,
			pd_fluid_litres = EXCLUDED.pd_fluid_litres,
			bp_systolic = EXCLUDED.bp_systolic, bp_diastolic = EXCLUDED.bp_diastolic,
			updated_at = NOW()`,
		f.AssessmentID, f.PostHDWeight, f.SessionsPerWeek, f.MinutesPerSession,
		f.URR, f.KtV, f.PDExchangesPerDay, f.PDFluidLitres, f.BPSystolic, f.BPDiastolic)
	return err
}
