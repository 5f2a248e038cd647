package identity

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validatePatient(p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.Email != nil && *p.Email != "" && !emailPattern.MatchString(*p.Email) {
		return fmt.Errorf("invalid email: %s", *p.Email)
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("date_of_birth cannot be in the future")
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	if _, err := s.repo.GetPatient(ctx, p.ID); err != nil {
		return fmt.Errorf("patient not found: %w", err)
	}
	return s.repo.UpdatePatient(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeletePatient(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListPatients(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.SearchPatients(ctx, name, limit, offset)
}

// GetPatientSummary returns a patient together with their assigned therapist.
func (s *Service) GetPatientSummary(ctx context.Context, id uuid.UUID) (*PatientSummary, error) {
	p, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := &PatientSummary{Patient: p}
	if p.AssignedTherapistID != nil {
		if t, err := s.repo.GetTherapist(ctx, *p.AssignedTherapistID); err == nil {
			summary.Therapist = t
		}
	}
	return summary, nil
}

func validateTherapist(t *Therapist) error {
	if t.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if t.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if t.Profession == "" {
		return fmt.Errorf("profession is required")
	}
	if t.Email != nil && *t.Email != "" && !emailPattern.MatchString(*t.Email) {
		return fmt.Errorf("invalid email: %s", *t.Email)
	}
	return nil
}

func (s *Service) CreateTherapist(ctx context.Context, t *Therapist) error {
	if err := validateTherapist(t); err != nil {
		return err
	}
	t.Active = true
	return s.repo.CreateTherapist(ctx, t)
}

func (s *Service) GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	return s.repo.GetTherapist(ctx, id)
}

func (s *Service) UpdateTherapist(ctx context.Context, t *Therapist) error {
	if err := validateTherapist(t); err != nil {
		return err
	}
	if _, err := s.repo.GetTherapist(ctx, t.ID); err != nil {
		return fmt.Errorf("therapist not found: %w", err)
	}
	return s.repo.UpdateTherapist(ctx, t)
}

func (s *Service) DeleteTherapist(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTherapist(ctx, id)
}

func (s *Service) ListTherapists(ctx context.Context, activeOnly bool, limit, offset int) ([]*Therapist, int, error) {
	return s.repo.ListTherapists(ctx, activeOnly, limit, offset)
}
