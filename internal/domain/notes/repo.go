package notes

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *TreatmentNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentNote, error)
	Update(ctx context.Context, n *TreatmentNote) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*TreatmentNote, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentNote, int, error)
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*TreatmentNote, error)
}
