package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hadadahealth/hadada/internal/platform/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTotalMismatch is returned when an entry's total does not equal
// quantity times rate within tolerance.
var ErrTotalMismatch = errors.New("entry total does not equal quantity times rate")

var validInvoiceStatuses = map[string]bool{
	"draft":   true,
	"sent":    true,
	"paid":    true,
	"overdue": true,
}

type Service struct {
	repo Repository
	pool *pgxpool.Pool
}

// NewService constructs a Service. pool may be nil in tests; entry
// mutations then run without a wrapping transaction.
func NewService(repo Repository, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, s.pool, fn)
}

// -- Codes --

func (s *Service) CreateCode(ctx context.Context, c *BillingCode) error {
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if c.BaseRate < 0 {
		return fmt.Errorf("base_rate cannot be negative")
	}
	return s.repo.CreateCode(ctx, c)
}

func (s *Service) GetCode(ctx context.Context, id uuid.UUID) (*BillingCode, error) {
	return s.repo.GetCode(ctx, id)
}

func (s *Service) UpdateCode(ctx context.Context, c *BillingCode) error {
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if c.BaseRate < 0 {
		return fmt.Errorf("base_rate cannot be negative")
	}
	if _, err := s.repo.GetCode(ctx, c.ID); err != nil {
		return fmt.Errorf("billing code not found: %w", err)
	}
	return s.repo.UpdateCode(ctx, c)
}

func (s *Service) DeleteCode(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCode(ctx, id)
}

func (s *Service) ListCodes(ctx context.Context, discipline string, limit, offset int) ([]*BillingCode, int, error) {
	return s.repo.ListCodes(ctx, discipline, limit, offset)
}

// -- Sessions --

func (s *Service) CreateSession(ctx context.Context, sess *BillingSession) error {
	if sess.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if sess.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if sess.SessionDate.IsZero() {
		sess.SessionDate = time.Now().UTC()
	}
	sess.Total = 0
	return s.repo.CreateSession(ctx, sess)
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*BillingSession, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*BillingSession, int, error) {
	return s.repo.ListSessionsByPatient(ctx, patientID, limit, offset)
}

// -- Entries --

func validateEntry(e *BillingEntry) error {
	if e.Code == "" {
		return fmt.Errorf("code is required")
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if e.Rate < 0 {
		return fmt.Errorf("rate cannot be negative")
	}
	if !e.TotalConsistent() {
		return ErrTotalMismatch
	}
	return nil
}

// AddEntry appends an entry to a session and recomputes the session total.
func (s *Service) AddEntry(ctx context.Context, e *BillingEntry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	if _, err := s.repo.GetSession(ctx, e.SessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddEntry(ctx, e); err != nil {
			return err
		}
		return s.recomputeSessionTotal(ctx, e.SessionID)
	})
}

func (s *Service) UpdateEntry(ctx context.Context, e *BillingEntry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	existing, err := s.repo.GetEntry(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("entry not found: %w", err)
	}
	e.SessionID = existing.SessionID
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateEntry(ctx, e); err != nil {
			return err
		}
		return s.recomputeSessionTotal(ctx, e.SessionID)
	})
}

func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("entry not found: %w", err)
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteEntry(ctx, id); err != nil {
			return err
		}
		return s.recomputeSessionTotal(ctx, existing.SessionID)
	})
}

func (s *Service) recomputeSessionTotal(ctx context.Context, sessionID uuid.UUID) error {
	entries, err := s.repo.ListEntriesBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	var total float64
	for _, e := range entries {
		total += e.Total
	}
	return s.repo.UpdateSessionTotal(ctx, sessionID, total)
}

// -- Invoices --

// CreateInvoice builds a draft invoice from the given sessions; the invoice
// total is the sum of the session totals.
func (s *Service) CreateInvoice(ctx context.Context, patientID uuid.UUID, sessionIDs []uuid.UUID, dueDate *time.Time) (*Invoice, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if len(sessionIDs) == 0 {
		return nil, fmt.Errorf("at least one session is required")
	}

	var total float64
	for _, sid := range sessionIDs {
		sess, err := s.repo.GetSession(ctx, sid)
		if err != nil {
			return nil, fmt.Errorf("session %s not found: %w", sid, err)
		}
		if sess.PatientID != patientID {
			return nil, fmt.Errorf("session %s belongs to another patient", sid)
		}
		total += sess.Total
	}

	inv := &Invoice{
		PatientID: patientID,
		Status:    "draft",
		Total:     total,
		DueDate:   dueDate,
	}
	// The invoice row and its session links must land together.
	err := s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.CreateInvoice(ctx, inv, sessionIDs)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status string) (*Invoice, error) {
	if !validInvoiceStatuses[status] {
		return nil, fmt.Errorf("invalid invoice status: %s", status)
	}
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}

	now := time.Now().UTC()
	inv.Status = status
	switch status {
	case "sent":
		if inv.IssuedAt == nil {
			inv.IssuedAt = &now
		}
	case "paid":
		inv.PaidAt = &now
	}
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.ListInvoicesByPatient(ctx, patientID, limit, offset)
}
