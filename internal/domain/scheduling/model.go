package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Booking maps to the booking table.
type Booking struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	TherapistID      uuid.UUID  `db:"therapist_id" json:"therapist_id"`
	StartTime        time.Time  `db:"start_time" json:"start_time"`
	EndTime          time.Time  `db:"end_time" json:"end_time"`
	Status           string     `db:"status" json:"status"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	BillingSessionID *uuid.UUID `db:"billing_session_id" json:"billing_session_id,omitempty"`
	ReminderSentAt   *time.Time `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the booking's period intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}
