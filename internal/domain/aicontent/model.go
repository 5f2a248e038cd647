package aicontent

import (
	"time"

	"github.com/google/uuid"
)

// CacheEntry is one cached piece of AI-drafted clinical content, keyed by
// patient, content type, and optional discipline.
type CacheEntry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	ContentType string    `db:"content_type" json:"content_type"`
	Discipline  string    `db:"discipline" json:"discipline,omitempty"`
	Content     string    `db:"content" json:"content"`
	TokensUsed  int       `db:"tokens_used" json:"tokens_used"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	UsageCount  int       `db:"usage_count" json:"usage_count"`
	Valid       bool      `db:"valid" json:"valid"`
}

// Usable reports whether the entry may be served instead of a fresh
// generation.
func (e *CacheEntry) Usable(now time.Time) bool {
	return e.Valid && e.ExpiresAt.After(now)
}

// GenerationAudit records one call to the AI provider.
type GenerationAudit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	ContentType string    `db:"content_type" json:"content_type"`
	Discipline  string    `db:"discipline" json:"discipline,omitempty"`
	TokensUsed  int       `db:"tokens_used" json:"tokens_used"`
	RequestedBy string    `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GeneratedContent is what callers receive, whether from cache or from a
// fresh generation.
type GeneratedContent struct {
	Content     string    `json:"content"`
	Source      string    `json:"source"`
	TokensUsed  int       `json:"tokens_used"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
