package reports

import (
	"time"

	"github.com/google/uuid"
)

// Report is a clinical report assembled by one or more therapists for a
// patient, e.g. a progress report for a medical aid or school.
type Report struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	PatientID            uuid.UUID         `db:"patient_id" json:"patient_id"`
	TemplateID           *uuid.UUID        `db:"template_id" json:"template_id,omitempty"`
	Title                string            `db:"title" json:"title"`
	Status               string            `db:"status" json:"status"`
	Priority             string            `db:"priority" json:"priority"`
	Disciplines          []string          `db:"disciplines" json:"disciplines"`
	AssignedTherapistIDs []uuid.UUID       `db:"assigned_therapist_ids" json:"assigned_therapist_ids"`
	Deadline             *time.Time        `db:"deadline" json:"deadline,omitempty"`
	Content              map[string]string `db:"content" json:"content"`
	ContentVersion       int               `db:"content_version" json:"content_version"`
	AIGeneratedKeys      []string          `db:"ai_generated_keys" json:"ai_generated_keys,omitempty"`
	CompletedAt          *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`

	// Overdue is derived on read, never stored.
	Overdue bool `db:"-" json:"overdue"`
}

// IsOverdue reports whether the deadline has passed while the report is
// still open.
func (r *Report) IsOverdue(now time.Time) bool {
	if r.Deadline == nil {
		return false
	}
	if r.Status != "pending" && r.Status != "in_progress" {
		return false
	}
	return r.Deadline.Before(now)
}

// AIGenerated reports whether the given content key was filled by the AI
// content service.
func (r *Report) AIGenerated(key string) bool {
	for _, k := range r.AIGeneratedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// TemplateField describes one field of a report template's content schema.
type TemplateField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ReportTemplate defines the content structure of a class of reports.
type ReportTemplate struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Discipline string          `db:"discipline" json:"discipline"`
	Fields     []TemplateField `db:"fields" json:"fields"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ReportNotification is an in-app notification about a report, addressed
// to one therapist.
type ReportNotification struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ReportID    uuid.UUID `db:"report_id" json:"report_id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	Message     string    `db:"message" json:"message"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
