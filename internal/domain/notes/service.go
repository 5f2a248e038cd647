package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hadadahealth/hadada/internal/platform/metrics"
)

// ErrNoteSigned is returned on any attempt to modify or delete a signed
// treatment note.
var ErrNoteSigned = errors.New("treatment note is signed and cannot be modified")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateNote(ctx context.Context, n *TreatmentNote) error {
	if n.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n.TherapistID == uuid.Nil {
		return fmt.Errorf("therapist_id is required")
	}
	if n.Discipline == "" {
		return fmt.Errorf("discipline is required")
	}
	n.Signed = false
	n.SignedAt = nil
	return s.repo.Create(ctx, n)
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*TreatmentNote, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateNote(ctx context.Context, n *TreatmentNote) error {
	existing, err := s.repo.GetByID(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("note not found: %w", err)
	}
	if existing.Signed {
		return ErrNoteSigned
	}
	if n.Discipline == "" {
		return fmt.Errorf("discipline is required")
	}
	// The signature state only changes through SignNote.
	n.PatientID = existing.PatientID
	n.TherapistID = existing.TherapistID
	n.Signed = false
	n.SignedAt = nil
	return s.repo.Update(ctx, n)
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("note not found: %w", err)
	}
	if existing.Signed {
		return ErrNoteSigned
	}
	return s.repo.Delete(ctx, id)
}

// SignNote marks the note as signed, freezing its content.
func (s *Service) SignNote(ctx context.Context, id uuid.UUID) (*TreatmentNote, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("note not found: %w", err)
	}
	if n.Signed {
		return nil, ErrNoteSigned
	}
	now := time.Now().UTC()
	n.Signed = true
	n.SignedAt = &now
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	metrics.RecordNoteSigned()
	return n, nil
}

func (s *Service) ListNotes(ctx context.Context, limit, offset int) ([]*TreatmentNote, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListNotesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentNote, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// RecentNotesByPatient returns the newest notes for a patient, used when
// assembling AI prompt context.
func (s *Service) RecentNotesByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*TreatmentNote, error) {
	return s.repo.ListRecentByPatient(ctx, patientID, limit)
}
