package aicontent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetEntry(ctx context.Context, patientID uuid.UUID, contentType, discipline string) (*CacheEntry, error)
	UpsertEntry(ctx context.Context, e *CacheEntry) error
	CountHit(ctx context.Context, id uuid.UUID) error
	InvalidateEntry(ctx context.Context, patientID uuid.UUID, contentType, discipline string) error
	InvalidatePatient(ctx context.Context, patientID uuid.UUID) error

	CreateAudit(ctx context.Context, a *GenerationAudit) error
	ListAuditByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*GenerationAudit, int, error)
}
