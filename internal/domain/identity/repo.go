package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	DeletePatient(ctx context.Context, id uuid.UUID) error
	ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error)

	CreateTherapist(ctx context.Context, t *Therapist) error
	GetTherapist(ctx context.Context, id uuid.UUID) (*Therapist, error)
	UpdateTherapist(ctx context.Context, t *Therapist) error
	DeleteTherapist(ctx context.Context, id uuid.UUID) error
	ListTherapists(ctx context.Context, activeOnly bool, limit, offset int) ([]*Therapist, int, error)
}
