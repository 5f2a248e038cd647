package notes

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

const noteCols = `id, booking_id, patient_id, therapist_id, discipline,
	subjective, objective, assessment, plan, signed, signed_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, n *TreatmentNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_note (
			id, booking_id, patient_id, therapist_id, discipline,
			subjective, objective, assessment, plan, signed, signed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		n.ID, n.BookingID, n.PatientID, n.TherapistID, n.Discipline,
		n.Subjective, n.Objective, n.Assessment, n.Plan, n.Signed, n.SignedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM treatment_note WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *TreatmentNote) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_note SET
			booking_id=$2, discipline=$3, subjective=$4, objective=$5, assessment=$6,
			plan=$7, signed=$8, signed_at=$9, updated_at=NOW()
		WHERE id = $1`,
		n.ID, n.BookingID, n.Discipline, n.Subjective, n.Objective, n.Assessment,
		n.Plan, n.Signed, n.SignedAt,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_note WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*TreatmentNote, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment_note`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM treatment_note ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectNotes(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentNote, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment_note WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM treatment_note WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectNotes(rows, total)
}

func (r *repoPG) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*TreatmentNote, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM treatment_note WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ns, _, err := collectNotes(rows, 0)
	return ns, err
}

func scanNote(row pgx.Row) (*TreatmentNote, error) {
	var n TreatmentNote
	err := row.Scan(&n.ID, &n.BookingID, &n.PatientID, &n.TherapistID, &n.Discipline,
		&n.Subjective, &n.Objective, &n.Assessment, &n.Plan, &n.Signed, &n.SignedAt,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNotes(rows pgx.Rows, total int) ([]*TreatmentNote, int, error) {
	var ns []*TreatmentNote
	for rows.Next() {
		var n TreatmentNote
		err := rows.Scan(&n.ID, &n.BookingID, &n.PatientID, &n.TherapistID, &n.Discipline,
			&n.Subjective, &n.Objective, &n.Assessment, &n.Plan, &n.Signed, &n.SignedAt,
			&n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		ns = append(ns, &n)
	}
	return ns, total, nil
}
