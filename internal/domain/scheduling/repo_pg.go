package scheduling

import (
	"context"
	"time"

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

const bookingCols = `id, patient_id, therapist_id, start_time, end_time, status, notes,
	billing_session_id, reminder_sent_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO booking (id, patient_id, therapist_id, start_time, end_time, status, notes, billing_session_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.PatientID, b.TherapistID, b.StartTime, b.EndTime, b.Status, b.Notes, b.BillingSessionID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, b *Booking) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE booking SET
			patient_id=$2, therapist_id=$3, start_time=$4, end_time=$5, status=$6, notes=$7,
			billing_session_id=$8, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.PatientID, b.TherapistID, b.StartTime, b.EndTime, b.Status, b.Notes, b.BillingSessionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM booking WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM booking ORDER BY start_time DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectBookings(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM booking WHERE patient_id = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectBookings(rows, total)
}

func (r *repoPG) ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking WHERE therapist_id = $1`, therapistID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM booking WHERE therapist_id = $1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		therapistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectBookings(rows, total)
}

func (r *repoPG) FindOverlapping(ctx context.Context, therapistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error) {
	query := `SELECT ` + bookingCols + ` FROM booking
		WHERE therapist_id = $1 AND status <> 'cancelled'
		AND start_time < $3 AND $2 < end_time`
	args := []interface{}{therapistID, start, end}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings, _, err := collectBookings(rows, 0)
	return bookings, err
}

func (r *repoPG) ListDueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+bookingCols+` FROM booking
		WHERE status IN ('scheduled', 'confirmed')
		AND reminder_sent_at IS NULL
		AND start_time >= $1 AND start_time < $2
		ORDER BY start_time`,
		now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings, _, err := collectBookings(rows, 0)
	return bookings, err
}

func (r *repoPG) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE booking SET reminder_sent_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	return err
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.PatientID, &b.TherapistID, &b.StartTime, &b.EndTime, &b.Status,
		&b.Notes, &b.BillingSessionID, &b.ReminderSentAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows, total int) ([]*Booking, int, error) {
	var bookings []*Booking
	for rows.Next() {
		var b Booking
		err := rows.Scan(&b.ID, &b.PatientID, &b.TherapistID, &b.StartTime, &b.EndTime, &b.Status,
			&b.Notes, &b.BillingSessionID, &b.ReminderSentAt, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, &b)
	}
	return bookings, total, nil
}
