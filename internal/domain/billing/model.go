package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TotalTolerance is the maximum allowed difference between a stored total
// and the computed quantity times rate.
const TotalTolerance = 0.01

// BillingCode maps to the billing_code table.
type BillingCode struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	Discipline  string    `db:"discipline" json:"discipline"`
	BaseRate    float64   `db:"base_rate" json:"base_rate"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BillingEntry maps to the billing_entry table.
type BillingEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	Code      string    `db:"code" json:"code"`
	Quantity  float64   `db:"quantity" json:"quantity"`
	Rate      float64   `db:"rate" json:"rate"`
	Total     float64   `db:"total" json:"total"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TotalConsistent reports whether the entry total matches quantity times
// rate within tolerance.
func (e *BillingEntry) TotalConsistent() bool {
	return math.Abs(e.Total-e.Quantity*e.Rate) <= TotalTolerance
}

// BillingSession maps to the billing_session table. The session total is
// always the sum of its entries.
type BillingSession struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BookingID   *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	TherapistID uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	SessionDate time.Time  `db:"session_date" json:"session_date"`
	Total       float64    `db:"total" json:"total"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Entries []*BillingEntry `db:"-" json:"entries,omitempty"`
}

// Invoice maps to the invoice table; sessions attach through
// invoice_session.
type Invoice struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	Status    string     `db:"status" json:"status"`
	Total     float64    `db:"total" json:"total"`
	IssuedAt  *time.Time `db:"issued_at" json:"issued_at,omitempty"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	PaidAt    *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`

	SessionIDs []uuid.UUID `db:"-" json:"session_ids,omitempty"`
}
