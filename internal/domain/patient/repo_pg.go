package patient

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

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, pid, id_type, id_number, name, surname, dob, gender,
	ethnicity, marital_status, occupation, address, postcode, landline, mobile, email,
	height_cm, weight_kg, birth_weight_kg, in_krt, created_at, updated_at`

func (r *patientRepoPG) scanRow(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PID, &p.IDType, &p.IDNumber, &p.Name, &p.Surname, &p.DOB, &p.Gender,
		&p.Ethnicity, &p.MaritalStatus, &p.Occupation, &p.Address, &p.Postcode, &p.Landline, &p.Mobile, &p.Email,
		&p.HeightCM, &p.WeightKG, &p.BirthWeightKG, &p.InKRT, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, pid, id_type, id_number, name, surname, dob, gender,
			ethnicity, marital_status, occupation, address, postcode, landline, mobile, email,
			height_cm, weight_kg, birth_weight_kg, in_krt, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.PID, p.IDType, p.IDNumber, p.Name, p.Surname, p.DOB, p.Gender,
		p.Ethnicity, p.MaritalStatus, p.Occupation, p.Address, p.Postcode, p.Landline, p.Mobile, p.Email,
		p.HeightCM, p.WeightKG, p.BirthWeightKG, p.InKRT, p.CreatedAt)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

// GetByPID returns (nil, nil) when no patient carries the registry number,
// so the duplicate check can tell absence from a query failure.
func (r *patientRepoPG) GetByPID(ctx context.Context, pid string) (*Patient, error) {
	p, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE pid = $1`, pid))
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET id_type=$2, id_number=$3, name=$4, surname=$5, dob=$6, gender=$7,
			ethnicity=$8, marital_status=$9, occupation=$10, address=$11, postcode=$12,
			landline=$13, mobile=$14, email=$15, height_cm=$16, weight_kg=$17,
			birth_weight_kg=$18, in_krt=$19, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.IDType, p.IDNumber, p.Name, p.Surname, p.DOB, p.Gender,
		p.Ethnicity, p.MaritalStatus, p.Occupation, p.Address, p.Postcode,
		p.Landline, p.Mobile, p.Email, p.HeightCM, p.WeightKG,
		p.BirthWeightKG, p.InKRT)
	return err
}

func (r *patientRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE pid ILIKE $1 OR name ILIKE $1 OR surname ILIKE $1 OR id_number ILIKE $1`,
		pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE pid ILIKE $1 OR name ILIKE $1 OR surname ILIKE $1 OR id_number ILIKE $1
		ORDER BY surname, name LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *patientRepoPG) InKRT(ctx context.Context, id uuid.UUID) (bool, error) {
	var in bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT in_krt FROM patients WHERE id = $1`, id).Scan(&in)
	return in, err
}

func (r *patientRepoPG) SetInKRT(ctx context.Context, id uuid.UUID, in bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patients SET in_krt=$2, updated_at=NOW() WHERE id = $1`, id, in)
	return err
}

func (r *patientRepoPG) RegisteredAt(ctx context.Context, id uuid.UUID) (time.Time, error) {
	var at time.Time
	err := r.conn(ctx).QueryRow(ctx, `SELECT created_at FROM patients WHERE id = $1`, id).Scan(&at)
	return at, err
}

type registrationRepoPG struct{ pool *pgxpool.Pool }

func NewRegistrationRepoPG(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepoPG{pool: pool}
}

func (r *registrationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const registrationCols = `patient_id, institution_id, unit_no1, unit_no2, unit_no3,
	registration_date, created_at, updated_at`

func (r *registrationRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Registration, error) {
	var reg Registration
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+registrationCols+` FROM registrations WHERE patient_id = $1`, patientID).
		Scan(&reg.PatientID, &reg.InstitutionID, &reg.UnitNo1, &reg.UnitNo2, &reg.UnitNo3,
			&reg.RegistrationDate, &reg.CreatedAt, &reg.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepoPG) Create(ctx context.Context, reg *Registration) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO registrations (patient_id, institution_id, unit_no1, unit_no2, unit_no3, registration_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		reg.PatientID, reg.InstitutionID, reg.UnitNo1, reg.UnitNo2, reg.UnitNo3, reg.RegistrationDate)
	return err
}

func (r *registrationRepoPG) Update(ctx context.Context, reg *Registration) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE registrations SET institution_id=$2, unit_no1=$3, unit_no2=$4, unit_no3=$5,
			registration_date=$6, updated_at=NOW()
		WHERE patient_id = $1`,
		reg.PatientID, reg.InstitutionID, reg.UnitNo1, reg.UnitNo2, reg.UnitNo3, reg.RegistrationDate)
	return err
}

func (r *registrationRepoPG) AppendHistory(ctx context.Context, h *RegistrationHistory) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO registration_history (id, patient_id, institution_id, unit_no1, unit_no2, unit_no3)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.PatientID, h.InstitutionID, h.UnitNo1, h.UnitNo2, h.UnitNo3)
	return err
}

func (r *registrationRepoPG) ListHistory(ctx context.Context, patientID uuid.UUID) ([]*RegistrationHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, institution_id, unit_no1, unit_no2, unit_no3, changed_at
		FROM registration_history WHERE patient_id = $1 ORDER BY changed_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*RegistrationHistory
	for rows.Next() {
		var h RegistrationHistory
		if err := rows.Scan(&h.ID, &h.PatientID, &h.InstitutionID, &h.UnitNo1, &h.UnitNo2, &h.UnitNo3, &h.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *diagnosisRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*RenalDiagnosis, error) {
	var d RenalDiagnosis
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, primary_code, primary_text, secondary_code, secondary_text,
			diagnosis_date, created_at, updated_at
		FROM renal_diagnoses WHERE patient_id = $1`, patientID).
		Scan(&d.PatientID, &d.PrimaryCode, &d.PrimaryText, &d.SecondaryCode, &d.SecondaryText,
			&d.DiagnosisDate, &d.CreatedAt, &d.UpdatedAt)
	if db.NoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *diagnosisRepoPG) Upsert(ctx context.Context, d *RenalDiagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO renal_diagnoses (patient_id, primary_code, primary_text, secondary_code, secondary_text, diagnosis_date)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (patient_id)
		DO UPDATE SET primary_code = EXCLUDED.primary_code, primary_text = EXCLUDED.primary_text,
			secondary_code = EXCLUDED.secondary_code, secondary_text = EXCLUDED.secondary_text,
			diagnosis_date = EXCLUDED.diagnosis_date, updated_at = NOW()`,
		d.PatientID, d.PrimaryCode, d.PrimaryText, d.SecondaryCode, d.SecondaryText, d.DiagnosisDate)
	return err
}
