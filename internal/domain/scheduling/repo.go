package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Booking, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	ListByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Booking, int, error)

	// FindOverlapping returns non-cancelled bookings for the therapist whose
	// period intersects [start, end), excluding excludeID when non-nil.
	FindOverlapping(ctx context.Context, therapistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error)

	// ListDueForReminder returns scheduled or confirmed bookings starting
	// within [now, now+window) that have not yet had a reminder sent.
	ListDueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}
