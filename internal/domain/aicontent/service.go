package aicontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hadadahealth/hadada/internal/platform/ai"
	"github.com/hadadahealth/hadada/internal/platform/auth"
	"github.com/hadadahealth/hadada/internal/platform/metrics"
)

// ErrAIUnavailable is returned when the completion API call fails. Callers
// map it to 503; there is no retry.
var ErrAIUnavailable = errors.New("ai content generation unavailable")

var validContentTypes = map[string]bool{
	"medical_history":   true,
	"treatment_summary": true,
	"recommendations":   true,
}

// NoteSummary is a condensed treatment note used to build prompts.
type NoteSummary struct {
	Date       time.Time
	Discipline string
	Subjective string
	Objective  string
	Assessment string
	Plan       string
}

// BookingSummary is a condensed booking used to build prompts.
type BookingSummary struct {
	Date   time.Time
	Status string
}

// PatientContext is everything the prompt builder knows about a patient.
type PatientContext struct {
	Name        string
	DateOfBirth string
	Gender      string
	MedicalAid  string
	Notes       []NoteSummary
	Bookings    []BookingSummary
}

// ContextProvider aggregates patient demographics, recent treatment notes,
// and bookings. The cmd wiring composes the identity, notes, and scheduling
// services into one.
type ContextProvider interface {
	PatientContext(ctx context.Context, patientID uuid.UUID, discipline string) (*PatientContext, error)
}

// Completer is the slice of the AI client the service needs.
type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) (*ai.Completion, error)
}

type Service struct {
	repo      Repository
	provider  ContextProvider
	completer Completer
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

func NewService(repo Repository, provider ContextProvider, completer Completer, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, provider: provider, completer: completer, cacheTTL: cacheTTL, logger: logger}
}

// GetContent returns cached content for the key when a valid, unexpired
// entry exists, counting the hit. Otherwise it generates fresh content,
// caches it, and writes an audit record.
func (s *Service) GetContent(ctx context.Context, patientID uuid.UUID, contentType, discipline string) (*GeneratedContent, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if !validContentTypes[contentType] {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}

	now := time.Now().UTC()
	if entry, err := s.repo.GetEntry(ctx, patientID, contentType, discipline); err == nil && entry.Usable(now) {
		if err := s.repo.CountHit(ctx, entry.ID); err != nil {
			s.logger.Warn().Err(err).Msg("cache hit count failed")
		}
		metrics.RecordAIGeneration("cache", "success", 0)
		return &GeneratedContent{
			Content:     entry.Content,
			Source:      "cache",
			TokensUsed:  entry.TokensUsed,
			GeneratedAt: entry.GeneratedAt,
			ExpiresAt:   entry.ExpiresAt,
		}, nil
	}

	return s.generate(ctx, patientID, contentType, discipline, now)
}

// Regenerate bypasses the cache and always calls the AI provider.
func (s *Service) Regenerate(ctx context.Context, patientID uuid.UUID, contentType, discipline string) (*GeneratedContent, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if !validContentTypes[contentType] {
		return nil, fmt.Errorf("invalid content type: %s", contentType)
	}
	return s.generate(ctx, patientID, contentType, discipline, time.Now().UTC())
}

func (s *Service) generate(ctx context.Context, patientID uuid.UUID, contentType, discipline string, now time.Time) (*GeneratedContent, error) {
	pc, err := s.provider.PatientContext(ctx, patientID, discipline)
	if err != nil {
		return nil, fmt.Errorf("patient context: %w", err)
	}

	start := time.Now()
	completion, err := s.completer.Complete(ctx, buildPrompt(contentType, discipline, pc))
	duration := time.Since(start)
	if err != nil {
		metrics.RecordAIGeneration("api", "error", duration)
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	metrics.RecordAIGeneration("api", "success", duration)

	entry := &CacheEntry{
		PatientID:   patientID,
		ContentType: contentType,
		Discipline:  discipline,
		Content:     completion.Content,
		TokensUsed:  completion.TotalTokens,
		GeneratedAt: now,
		ExpiresAt:   now.Add(s.cacheTTL),
		Valid:       true,
	}
	if err := s.repo.UpsertEntry(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("ai content cache write failed")
	}

	audit := &GenerationAudit{
		PatientID:   patientID,
		ContentType: contentType,
		Discipline:  discipline,
		TokensUsed:  completion.TotalTokens,
		RequestedBy: auth.UserIDFromContext(ctx),
	}
	if err := s.repo.CreateAudit(ctx, audit); err != nil {
		s.logger.Error().Err(err).Msg("ai generation audit write failed")
	}

	return &GeneratedContent{
		Content:     completion.Content,
		Source:      "api",
		TokensUsed:  completion.TotalTokens,
		GeneratedAt: entry.GeneratedAt,
		ExpiresAt:   entry.ExpiresAt,
	}, nil
}

// Invalidate clears the validity flag for one cache key.
func (s *Service) Invalidate(ctx context.Context, patientID uuid.UUID, contentType, discipline string) error {
	if !validContentTypes[contentType] {
		return fmt.Errorf("invalid content type: %s", contentType)
	}
	return s.repo.InvalidateEntry(ctx, patientID, contentType, discipline)
}

// InvalidatePatient clears every cached entry for a patient, typically after
// new clinical data arrives.
func (s *Service) InvalidatePatient(ctx context.Context, patientID uuid.UUID) error {
	return s.repo.InvalidatePatient(ctx, patientID)
}

func (s *Service) ListAudit(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*GenerationAudit, int, error) {
	return s.repo.ListAuditByPatient(ctx, patientID, limit, offset)
}

var contentTypeInstructions = map[string]string{
	"medical_history":   "Write a concise medical and treatment history for this patient based on the notes below.",
	"treatment_summary": "Summarise the treatment provided to this patient, covering progress, response, and current status.",
	"recommendations":   "Suggest evidence-based next steps and recommendations for this patient's continued care.",
}

func buildPrompt(contentType, discipline string, pc *PatientContext) []ai.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\n", pc.Name)
	if pc.DateOfBirth != "" {
		fmt.Fprintf(&b, "Date of birth: %s\n", pc.DateOfBirth)
	}
	if pc.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", pc.Gender)
	}
	if pc.MedicalAid != "" {
		fmt.Fprintf(&b, "Medical aid: %s\n", pc.MedicalAid)
	}
	if discipline != "" {
		fmt.Fprintf(&b, "Discipline: %s\n", discipline)
	}

	if len(pc.Notes) > 0 {
		b.WriteString("\nRecent treatment notes:\n")
		for _, n := range pc.Notes {
			fmt.Fprintf(&b, "- %s (%s):", n.Date.Format("2006-01-02"), n.Discipline)
			for _, part := range []string{n.Subjective, n.Objective, n.Assessment, n.Plan} {
				if part != "" {
					b.WriteString(" " + part)
				}
			}
			b.WriteString("\n")
		}
	}
	if len(pc.Bookings) > 0 {
		b.WriteString("\nAppointment history:\n")
		for _, bk := range pc.Bookings {
			fmt.Fprintf(&b, "- %s: %s\n", bk.Date.Format("2006-01-02"), bk.Status)
		}
	}

	return []ai.Message{
		{
			Role: "system",
			Content: "You are a clinical documentation assistant for a multi-disciplinary " +
				"therapy practice. Write professional, factual clinical text. Do not invent " +
				"findings that are not supported by the provided notes.",
		},
		{
			Role:    "user",
			Content: contentTypeInstructions[contentType] + "\n\n" + b.String(),
		},
	}
}
