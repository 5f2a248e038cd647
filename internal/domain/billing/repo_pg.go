package billing

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

// -- Codes --

const codeCols = `id, code, description, discipline, base_rate, created_at, updated_at`

func (r *repoPG) CreateCode(ctx context.Context, c *BillingCode) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_code (id, code, description, discipline, base_rate)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Code, c.Description, c.Discipline, c.BaseRate,
	)
	return err
}

func (r *repoPG) GetCode(ctx context.Context, id uuid.UUID) (*BillingCode, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM billing_code WHERE id = $1`, id))
}

func (r *repoPG) GetCodeByCode(ctx context.Context, code string) (*BillingCode, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM billing_code WHERE code = $1`, code))
}

func (r *repoPG) UpdateCode(ctx context.Context, c *BillingCode) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE billing_code SET code=$2, description=$3, discipline=$4, base_rate=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Code, c.Description, c.Discipline, c.BaseRate,
	)
	return err
}

func (r *repoPG) DeleteCode(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM billing_code WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListCodes(ctx context.Context, discipline string, limit, offset int) ([]*BillingCode, int, error) {
	where := ""
	args := []interface{}{}
	if discipline != "" {
		where = ` WHERE discipline = $1`
		args = append(args, discipline)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing_code`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + codeCols + ` FROM billing_code` + where + ` ORDER BY code`
	if discipline != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var codes []*BillingCode
	for rows.Next() {
		var c BillingCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Description, &c.Discipline, &c.BaseRate,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		codes = append(codes, &c)
	}
	return codes, total, nil
}

// -- Sessions --

const sessionCols = `id, booking_id, patient_id, therapist_id, session_date, total, created_at, updated_at`

func (r *repoPG) CreateSession(ctx context.Context, s *BillingSession) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_session (id, booking_id, patient_id, therapist_id, session_date, total)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.BookingID, s.PatientID, s.TherapistID, s.SessionDate, s.Total,
	)
	return err
}

func (r *repoPG) GetSession(ctx context.Context, id uuid.UUID) (*BillingSession, error) {
	var s BillingSession
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM billing_session WHERE id = $1`, id).
		Scan(&s.ID, &s.BookingID, &s.PatientID, &s.TherapistID, &s.SessionDate, &s.Total,
			&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	entries, err := r.ListEntriesBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Entries = entries
	return &s, nil
}

func (r *repoPG) UpdateSessionTotal(ctx context.Context, id uuid.UUID, total float64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE billing_session SET total = $2, updated_at = NOW() WHERE id = $1`, id, total)
	return err
}

func (r *repoPG) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM billing_session WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*BillingSession, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM billing_session WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+sessionCols+` FROM billing_session WHERE patient_id = $1 ORDER BY session_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*BillingSession
	for rows.Next() {
		var s BillingSession
		if err := rows.Scan(&s.ID, &s.BookingID, &s.PatientID, &s.TherapistID, &s.SessionDate,
			&s.Total, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, total, nil
}

// -- Entries --

const entryCols = `id, session_id, code, quantity, rate, total, created_at`

func (r *repoPG) AddEntry(ctx context.Context, e *BillingEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_entry (id, session_id, code, quantity, rate, total)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.SessionID, e.Code, e.Quantity, e.Rate, e.Total,
	)
	return err
}

func (r *repoPG) GetEntry(ctx context.Context, id uuid.UUID) (*BillingEntry, error) {
	var e BillingEntry
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM billing_entry WHERE id = $1`, id).
		Scan(&e.ID, &e.SessionID, &e.Code, &e.Quantity, &e.Rate, &e.Total, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) UpdateEntry(ctx context.Context, e *BillingEntry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE billing_entry SET code=$2, quantity=$3, rate=$4, total=$5 WHERE id = $1`,
		e.ID, e.Code, e.Quantity, e.Rate, e.Total,
	)
	return err
}

func (r *repoPG) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM billing_entry WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListEntriesBySession(ctx context.Context, sessionID uuid.UUID) ([]*BillingEntry, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM billing_entry WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*BillingEntry
	for rows.Next() {
		var e BillingEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Code, &e.Quantity, &e.Rate, &e.Total, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// -- Invoices --

const invoiceCols = `id, patient_id, status, total, issued_at, due_date, paid_at, created_at, updated_at`

func (r *repoPG) CreateInvoice(ctx context.Context, inv *Invoice, sessionIDs []uuid.UUID) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, patient_id, status, total, issued_at, due_date, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inv.ID, inv.PatientID, inv.Status, inv.Total, inv.IssuedAt, inv.DueDate, inv.PaidAt,
	)
	if err != nil {
		return err
	}
	for _, sid := range sessionIDs {
		if _, err := r.conn(ctx).Exec(ctx,
			`INSERT INTO invoice_session (invoice_id, session_id) VALUES ($1,$2)`, inv.ID, sid); err != nil {
			return err
		}
	}
	inv.SessionIDs = sessionIDs
	return nil
}

func (r *repoPG) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var inv Invoice
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id).
		Scan(&inv.ID, &inv.PatientID, &inv.Status, &inv.Total, &inv.IssuedAt, &inv.DueDate,
			&inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT session_id FROM invoice_session WHERE invoice_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sid uuid.UUID
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		inv.SessionIDs = append(inv.SessionIDs, sid)
	}
	return &inv, nil
}

func (r *repoPG) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice SET status=$2, total=$3, issued_at=$4, due_date=$5, paid_at=$6, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Status, inv.Total, inv.IssuedAt, inv.DueDate, inv.PaidAt,
	)
	return err
}

func (r *repoPG) ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoice WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.PatientID, &inv.Status, &inv.Total, &inv.IssuedAt,
			&inv.DueDate, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, total, nil
}

func scanCode(row pgx.Row) (*BillingCode, error) {
	var c BillingCode
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.Discipline, &c.BaseRate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
