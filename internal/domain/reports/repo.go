package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]*Report, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	ListByAssignee(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Report, int, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*Report, error)

	CreateTemplate(ctx context.Context, t *ReportTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*ReportTemplate, error)
	UpdateTemplate(ctx context.Context, t *ReportTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ListTemplates(ctx context.Context, activeOnly bool, limit, offset int) ([]*ReportTemplate, int, error)

	CreateNotification(ctx context.Context, n *ReportNotification) error
	ListNotificationsByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*ReportNotification, int, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) error
}
