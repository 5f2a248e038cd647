package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateCode(ctx context.Context, c *BillingCode) error
	GetCode(ctx context.Context, id uuid.UUID) (*BillingCode, error)
	GetCodeByCode(ctx context.Context, code string) (*BillingCode, error)
	UpdateCode(ctx context.Context, c *BillingCode) error
	DeleteCode(ctx context.Context, id uuid.UUID) error
	ListCodes(ctx context.Context, discipline string, limit, offset int) ([]*BillingCode, int, error)

	CreateSession(ctx context.Context, s *BillingSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*BillingSession, error)
	UpdateSessionTotal(ctx context.Context, id uuid.UUID, total float64) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSessionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*BillingSession, int, error)

	AddEntry(ctx context.Context, e *BillingEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*BillingEntry, error)
	UpdateEntry(ctx context.Context, e *BillingEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ListEntriesBySession(ctx context.Context, sessionID uuid.UUID) ([]*BillingEntry, error)

	CreateInvoice(ctx context.Context, inv *Invoice, sessionIDs []uuid.UUID) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
}
