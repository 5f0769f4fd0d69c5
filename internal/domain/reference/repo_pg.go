package reference

import (
	"context"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- institutions --

type institutionRepoPG struct{ pool *pgxpool.Pool }

func NewInstitutionRepoPG(pool *pgxpool.Pool) InstitutionRepository {
	return &institutionRepoPG{pool: pool}
}

const institutionCols = `id, code, name, type, is_unit_required, created_at, updated_at`

func (r *institutionRepoPG) scanRow(row pgx.Row) (*HealthInstitution, error) {
	var hi HealthInstitution
	err := row.Scan(&hi.ID, &hi.Code, &hi.Name, &hi.Type, &hi.IsUnitRequired, &hi.CreatedAt, &hi.UpdatedAt)
	return &hi, err
}

func (r *institutionRepoPG) Create(ctx context.Context, hi *HealthInstitution) error {
	hi.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO health_institutions (id, code, name, type, is_unit_required)
		VALUES ($1,$2,$3,$4,$5)`,
		hi.ID, hi.Code, hi.Name, hi.Type, hi.IsUnitRequired)
	return err
}

func (r *institutionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HealthInstitution, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+institutionCols+` FROM health_institutions WHERE id = $1`, id))
}

func (r *institutionRepoPG) Update(ctx context.Context, hi *HealthInstitution) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE health_institutions SET code=$2, name=$3, type=$4, is_unit_required=$5, updated_at=NOW()
		WHERE id = $1`,
		hi.ID, hi.Code, hi.Name, hi.Type, hi.IsUnitRequired)
	return err
}

func (r *institutionRepoPG) List(ctx context.Context, limit, offset int) ([]*HealthInstitution, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM health_institutions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+institutionCols+` FROM health_institutions ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HealthInstitution
	for rows.Next() {
		hi, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, hi)
	}
	return items, total, rows.Err()
}

// -- HD units --

type hdUnitRepoPG struct{ pool *pgxpool.Pool }

func NewHDUnitRepoPG(pool *pgxpool.Pool) HDUnitRepository {
	return &hdUnitRepoPG{pool: pool}
}

const hdUnitCols = `id, name, institution_id, created_at, updated_at`

func (r *hdUnitRepoPG) scanRow(row pgx.Row) (*HDUnit, error) {
	var u HDUnit
	err := row.Scan(&u.ID, &u.Name, &u.InstitutionID, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *hdUnitRepoPG) Create(ctx context.Context, u *HDUnit) error {
	u.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO hd_units (id, name, institution_id) VALUES ($1,$2,$3)`,
		u.ID, u.Name, u.InstitutionID)
	return err
}

func (r *hdUnitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HDUnit, error) {
	return r.scanRow(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+hdUnitCols+` FROM hd_units WHERE id = $1`, id))
}

func (r *hdUnitRepoPG) List(ctx context.Context, limit, offset int) ([]*HDUnit, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM hd_units`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+hdUnitCols+` FROM hd_units ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*HDUnit
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// -- comorbidities --

type comorbidityRepoPG struct{ pool *pgxpool.Pool }

func NewComorbidityRepoPG(pool *pgxpool.Pool) ComorbidityRepository {
	return &comorbidityRepoPG{pool: pool}
}

func (r *comorbidityRepoPG) Create(ctx context.Context, c *Comorbidity) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO comorbidities (id, code, name, active) VALUES ($1,$2,$3,$4)`,
		c.ID, c.Code, c.Name, c.Active)
	return err
}

func (r *comorbidityRepoPG) ListActive(ctx context.Context) ([]*Comorbidity, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM comorbidities WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Comorbidity
	for rows.Next() {
		var c Comorbidity
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func (r *comorbidityRepoPG) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	return existingIDs(ctx, conn(ctx, r.pool), "comorbidities", ids)
}

// -- disabilities --

type disabilityRepoPG struct{ pool *pgxpool.Pool }

func NewDisabilityRepoPG(pool *pgxpool.Pool) DisabilityRepository {
	return &disabilityRepoPG{pool: pool}
}

func (r *disabilityRepoPG) Create(ctx context.Context, d *Disability) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO disabilities (id, code, name, active) VALUES ($1,$2,$3,$4)`,
		d.ID, d.Code, d.Name, d.Active)
	return err
}

func (r *disabilityRepoPG) ListActive(ctx context.Context) ([]*Disability, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, code, name, active, created_at, updated_at
		FROM disabilities WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Disability
	for rows.Next() {
		var d Disability
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *disabilityRepoPG) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	return existingIDs(ctx, conn(ctx, r.pool), "disabilities", ids)
}

func existingIDs(ctx context.Context, q queryable, table string, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := q.Query(ctx, `SELECT id FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

// -- lab parameters --

type labParameterRepoPG struct{ pool *pgxpool.Pool }

func NewLabParameterRepoPG(pool *pgxpool.Pool) LabParameterRepository {
	return &labParameterRepoPG{pool: pool}
}

func (r *labParameterRepoPG) Create(ctx context.Context, p *LabParameter) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO lab_parameters (id, code, name, unit, active) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Code, p.Name, p.Unit, p.Active)
	return err
}

func (r *labParameterRepoPG) ListActive(ctx context.Context) ([]*LabParameter, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, code, name, unit, active, created_at, updated_at
		FROM lab_parameters WHERE active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LabParameter
	for rows.Next() {
		var p LabParameter
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

// -- medications --

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medications (id, code, name, kind, active) VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.Code, m.Name, m.Kind, m.Active)
	return err
}

func (r *medicationRepoPG) ListActive(ctx context.Context) ([]*Medication, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, code, name, kind, active, created_at, updated_at
		FROM medications WHERE active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Kind, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
