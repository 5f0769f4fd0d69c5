package modality

import (
	"context"
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

type episodeRepoPG struct{ pool *pgxpool.Pool }

func NewEpisodeRepoPG(pool *pgxpool.Pool) EpisodeRepository {
	return &episodeRepoPG{pool: pool}
}

func (r *episodeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const episodeCols = `id, patient_id, modality, is_current, start_date,
	hd_unit_id, hd_initial_access, hd_ntc_reason, hd_unused_avf_reason, hd_private_start,
	pd_catheter_days, pd_insertion_technique,
	before_krt, ropd_weeks, hep_b_vaccinated, delayed_start, delay_weeks,
	created_at, updated_at`

func (r *episodeRepoPG) scanRow(row pgx.Row) (*Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.PatientID, &e.Modality, &e.IsCurrent, &e.StartDate,
		&e.HDUnitID, &e.HDInitialAccess, &e.HDNTCReason, &e.HDUnusedAVFReason, &e.HDPrivateStart,
		&e.PDCatheterDays, &e.PDInsertionTechnique,
		&e.BeforeKRT, &e.ROPDWeeks, &e.HepBVaccinated, &e.DelayedStart, &e.DelayWeeks,
		&e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *episodeRepoPG) Create(ctx context.Context, e *Episode) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO krt_episodes (id, patient_id, modality, is_current, start_date,
			hd_unit_id, hd_initial_access, hd_ntc_reason, hd_unused_avf_reason, hd_private_start,
			pd_catheter_days, pd_insertion_technique,
			before_krt, ropd_weeks, hep_b_vaccinated, delayed_start, delay_weeks,
			created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,COALESCE($18, NOW()))`,
		e.ID, e.PatientID, e.Modality, e.IsCurrent, e.StartDate,
		e.HDUnitID, e.HDInitialAccess, e.HDNTCReason, e.HDUnusedAVFReason, e.HDPrivateStart,
		e.PDCatheterDays, e.PDInsertionTechnique,
		e.BeforeKRT, e.ROPDWeeks, e.HepBVaccinated, e.DelayedStart, e.DelayWeeks,
		nullTime(e.CreatedAt))
	return err
}

func (r *episodeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Episode, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+episodeCols+` FROM krt_episodes WHERE id = $1`, id))
}

func (r *episodeRepoPG) Update(ctx context.Context, e *Episode) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE krt_episodes SET modality=$2, is_current=$3, start_date=$4,
			hd_unit_id=$5, hd_initial_access=$6, hd_ntc_reason=$7, hd_unused_avf_reason=$8, hd_private_start=$9,
			pd_catheter_days=$10, pd_insertion_technique=$11,
			before_krt=$12, ropd_weeks=$13, hep_b_vaccinated=$14, delayed_start=$15, delay_weeks=$16,
			updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Modality, e.IsCurrent, e.StartDate,
		e.HDUnitID, e.HDInitialAccess, e.HDNTCReason, e.HDUnusedAVFReason, e.HDPrivateStart,
		e.PDCatheterDays, e.PDInsertionTechnique,
		e.BeforeKRT, e.ROPDWeeks, e.HepBVaccinated, e.DelayedStart, e.DelayWeeks)
	return err
}

func (r *episodeRepoPG) SetCurrent(ctx context.Context, id uuid.UUID, current bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE krt_episodes SET is_current=$2, updated_at=NOW() WHERE id = $1`, id, current)
	return err
}

func (r *episodeRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Episode, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+episodeCols+` FROM krt_episodes WHERE patient_id = $1 ORDER BY start_date`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Episode
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *episodeRepoPG) CurrentByPatient(ctx context.Context, patientID uuid.UUID) ([]*Episode, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+episodeCols+` FROM krt_episodes
		WHERE patient_id = $1 AND is_current ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Episode
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

type akiRepoPG struct{ pool *pgxpool.Pool }

func NewAKIRepoPG(pool *pgxpool.Pool) AKIRepository {
	return &akiRepoPG{pool: pool}
}

func (r *akiRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const akiCols = `id, patient_id, creatinine, egfr, hb, measurement_date, created_at, updated_at`

func (r *akiRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*AKIMeasurement, error) {
	var a AKIMeasurement
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+akiCols+` FROM aki_measurements WHERE patient_id = $1`, patientID).
		Scan(&a.ID, &a.PatientID, &a.Creatinine, &a.EGFR, &a.Hb, &a.MeasurementDate, &a.CreatedAt, &a.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *akiRepoPG) Create(ctx context.Context, a *AKIMeasurement) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO aki_measurements (id, patient_id, creatinine, egfr, hb, measurement_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, NOW()))`,
		a.ID, a.PatientID, a.Creatinine, a.EGFR, a.Hb, a.MeasurementDate, nullTime(a.CreatedAt))
	return err
}

func (r *akiRepoPG) Update(ctx context.Context, a *AKIMeasurement) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE aki_measurements SET creatinine=$2, egfr=$3, hb=$4, measurement_date=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Creatinine, a.EGFR, a.Hb, a.MeasurementDate)
	return err
}

type stopRepoPG struct{ pool *pgxpool.Pool }

func NewStopRepoPG(pool *pgxpool.Pool) StopRepository {
	return &stopRepoPG{pool: pool}
}

func (r *stopRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const stopCols = `id, patient_id, last_dialysis_date, stop_reason, date_of_death, cause_of_death, created_at, updated_at`

func (r *stopRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*StopRecord, error) {
	var s StopRecord
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+stopCols+` FROM stop_records WHERE patient_id = $1`, patientID).
		Scan(&s.ID, &s.PatientID, &s.LastDialysisDate, &s.StopReason, &s.DateOfDeath, &s.CauseOfDeath, &s.CreatedAt, &s.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stopRepoPG) Create(ctx context.Context, s *StopRecord) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stop_records (id, patient_id, last_dialysis_date, stop_reason, date_of_death, cause_of_death)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.PatientID, s.LastDialysisDate, s.StopReason, s.DateOfDeath, s.CauseOfDeath)
	return err
}

func (r *stopRepoPG) Update(ctx context.Context, s *StopRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE stop_records SET last_dialysis_date=$2, stop_reason=$3, date_of_death=$4, cause_of_death=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.LastDialysisDate, s.StopReason, s.DateOfDeath, s.CauseOfDeath)
	return err
}

func (r *stopRepoPG) Exists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM stop_records WHERE patient_id = $1)`, patientID).Scan(&exists)
	return exists, err
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
