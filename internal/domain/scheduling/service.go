package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hadadahealth/hadada/internal/platform/metrics"
	"github.com/hadadahealth/hadada/internal/platform/notification"
)

// ErrOverlap is returned when a booking would intersect another
// non-cancelled booking for the same therapist.
var ErrOverlap = errors.New("booking overlaps an existing booking for this therapist")

var validStatuses = map[string]bool{
	"scheduled": true,
	"confirmed": true,
	"completed": true,
	"cancelled": true,
	"no-show":   true,
}

// Directory resolves patient and therapist display details for reminders.
// The identity service satisfies it through an adapter in cmd wiring.
type Directory interface {
	PatientInfo(ctx context.Context, id uuid.UUID) (name, email string, err error)
	TherapistInfo(ctx context.Context, id uuid.UUID) (name, email string, err error)
}

type Service struct {
	repo     Repository
	dir      Directory
	notifier notification.Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, dir Directory, notifier notification.Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, notifier: notifier, logger: logger}
}

func (s *Service) CreateBooking(ctx context.Context, b *Booking) error {
	if err := s.validate(b); err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = "scheduled"
	}
	if !validStatuses[b.Status] {
		return fmt.Errorf("invalid status: %s", b.Status)
	}

	overlapping, err := s.repo.FindOverlapping(ctx, b.TherapistID, b.StartTime, b.EndTime, nil)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return ErrOverlap
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}
	metrics.RecordBookingCreated()
	return nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateBooking(ctx context.Context, b *Booking) error {
	if err := s.validate(b); err != nil {
		return err
	}
	if !validStatuses[b.Status] {
		return fmt.Errorf("invalid status: %s", b.Status)
	}
	if _, err := s.repo.GetByID(ctx, b.ID); err != nil {
		return fmt.Errorf("booking not found: %w", err)
	}

	if b.Status != "cancelled" {
		overlapping, err := s.repo.FindOverlapping(ctx, b.TherapistID, b.StartTime, b.EndTime, &b.ID)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if len(overlapping) > 0 {
			return ErrOverlap
		}
	}

	return s.repo.Update(ctx, b)
}

func (s *Service) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (*Booking, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking not found: %w", err)
	}

	// Reinstating a cancelled booking puts it back in the therapist's
	// diary, so the slot must be free again.
	if b.Status == "cancelled" && status != "cancelled" {
		overlapping, err := s.repo.FindOverlapping(ctx, b.TherapistID, b.StartTime, b.EndTime, &b.ID)
		if err != nil {
			return nil, fmt.Errorf("check overlap: %w", err)
		}
		if len(overlapping) > 0 {
			return nil, ErrOverlap
		}
	}

	b.Status = status
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListBookingsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListBookingsByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return s.repo.ListByTherapist(ctx, therapistID, limit, offset)
}

// SendReminders delivers appointment reminders for bookings starting within
// the window and marks them so they are not reminded twice. Returns the
// number of reminders sent.
func (s *Service) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	now := time.Now().UTC()
	due, err := s.repo.ListDueForReminder(ctx, now, window)
	if err != nil {
		return 0, fmt.Errorf("list due bookings: %w", err)
	}

	sent := 0
	for _, b := range due {
		patientName, patientEmail, err := s.dir.PatientInfo(ctx, b.PatientID)
		if err != nil || patientEmail == "" {
			s.logger.Warn().Str("booking_id", b.ID.String()).Msg("skipping reminder, patient has no email")
			continue
		}
		therapistName, _, err := s.dir.TherapistInfo(ctx, b.TherapistID)
		if err != nil {
			therapistName = "your therapist"
		}

		data := map[string]string{
			"patient_name":   patientName,
			"therapist_name": therapistName,
			"date":           b.StartTime.Format("2006-01-02"),
			"time":           b.StartTime.Format("15:04"),
		}
		if err := s.notifier.Notify(ctx, "appointment-reminder", data, patientEmail); err != nil {
			s.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("reminder send failed")
			continue
		}
		if err := s.repo.MarkReminderSent(ctx, b.ID, now); err != nil {
			return sent, fmt.Errorf("mark reminder sent: %w", err)
		}
		sent++
	}
	return sent, nil
}

func (s *Service) validate(b *Booking) error {
	if b.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if b.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if b.StartTime.IsZero() || b.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !b.EndTime.After(b.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}
