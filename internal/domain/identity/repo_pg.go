package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hadadahealth/hadada/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, date_of_birth, gender, email, phone, address,
	medical_aid_name, medical_aid_number, medical_aid_plan, assigned_therapist_id,
	created_at, updated_at`

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, first_name, last_name, date_of_birth, gender, email, phone, address,
			medical_aid_name, medical_aid_number, medical_aid_plan, assigned_therapist_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Email, p.Phone, p.Address,
		p.MedicalAidName, p.MedicalAidNumber, p.MedicalAidPlan, p.AssignedTherapistID,
	)
	return err
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) UpdatePatient(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			first_name=$2, last_name=$3, date_of_birth=$4, gender=$5, email=$6, phone=$7,
			address=$8, medical_aid_name=$9, medical_aid_number=$10, medical_aid_plan=$11,
			assigned_therapist_id=$12, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Email, p.Phone,
		p.Address, p.MedicalAidName, p.MedicalAidNumber, p.MedicalAidPlan,
		p.AssignedTherapistID,
	)
	return err
}

func (r *repoPG) DeletePatient(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + name + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE first_name ILIKE $1 OR last_name ILIKE $1`,
		pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient
		WHERE first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

const therapistCols = `id, first_name, last_name, profession, email, phone, active, created_at, updated_at`

func (r *repoPG) CreateTherapist(ctx context.Context, t *Therapist) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO therapist (id, first_name, last_name, profession, email, phone, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.FirstName, t.LastName, t.Profession, t.Email, t.Phone, t.Active,
	)
	return err
}

func (r *repoPG) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return scanTherapist(r.conn(ctx).QueryRow(ctx, `SELECT `+therapistCols+` FROM therapist WHERE id = $1`, id))
}

func (r *repoPG) UpdateTherapist(ctx context.Context, t *Therapist) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE therapist SET
			first_name=$2, last_name=$3, profession=$4, email=$5, phone=$6, active=$7,
			updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.FirstName, t.LastName, t.Profession, t.Email, t.Phone, t.Active,
	)
	return err
}

func (r *repoPG) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM therapist WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListTherapists(ctx context.Context, activeOnly bool, limit, offset int) ([]*Therapist, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM therapist`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+therapistCols+` FROM therapist`+where+` ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var therapists []*Therapist
	for rows.Next() {
		var t Therapist
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Profession, &t.Email, &t.Phone,
			&t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		therapists = append(therapists, &t)
	}
	return therapists, total, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Email, &p.Phone,
		&p.Address, &p.MedicalAidName, &p.MedicalAidNumber, &p.MedicalAidPlan,
		&p.AssignedTherapistID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTherapist(row pgx.Row) (*Therapist, error) {
	var t Therapist
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Profession, &t.Email, &t.Phone,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Email, &p.Phone,
			&p.Address, &p.MedicalAidName, &p.MedicalAidNumber, &p.MedicalAidPlan,
			&p.AssignedTherapistID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, &p)
	}
	return patients, total, nil
}
