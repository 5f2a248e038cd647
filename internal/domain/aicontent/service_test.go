package aicontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hadadahealth/hadada/internal/platform/ai"
)

// -- Mock Repository --

type cacheKey struct {
	patientID   uuid.UUID
	contentType string
	discipline  string
}

type mockRepo struct {
	entries map[cacheKey]*CacheEntry
	audits  []*GenerationAudit
}

func newMockRepo() *mockRepo {
	return &mockRepo{entries: make(map[cacheKey]*CacheEntry)}
}

func (m *mockRepo) GetEntry(_ context.Context, patientID uuid.UUID, contentType, discipline string) (*CacheEntry, error) {
	e, ok := m.entries[cacheKey{patientID, contentType, discipline}]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockRepo) UpsertEntry(_ context.Context, e *CacheEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.UsageCount = 0
	e.Valid = true
	m.entries[cacheKey{e.PatientID, e.ContentType, e.Discipline}] = e
	return nil
}

func (m *mockRepo) CountHit(_ context.Context, id uuid.UUID) error {
	for _, e := range m.entries {
		if e.ID == id {
			e.UsageCount++
			return nil
		}
	}
	return fmt.Errorf("not found")
}

func (m *mockRepo) InvalidateEntry(_ context.Context, patientID uuid.UUID, contentType, discipline string) error {
	if e, ok := m.entries[cacheKey{patientID, contentType, discipline}]; ok {
		e.Valid = false
	}
	return nil
}

func (m *mockRepo) InvalidatePatient(_ context.Context, patientID uuid.UUID) error {
	for _, e := range m.entries {
		if e.PatientID == patientID {
			e.Valid = false
		}
	}
	return nil
}

func (m *mockRepo) CreateAudit(_ context.Context, a *GenerationAudit) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.audits = append(m.audits, a)
	return nil
}

func (m *mockRepo) ListAuditByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*GenerationAudit, int, error) {
	var result []*GenerationAudit
	for _, a := range m.audits {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

// -- Mock provider and completer --

type mockProvider struct{}

func (p *mockProvider) PatientContext(_ context.Context, id uuid.UUID, discipline string) (*PatientContext, error) {
	return &PatientContext{
		Name: "Thandi Mokoena",
		Notes: []NoteSummary{
			{Date: time.Now().Add(-72 * time.Hour), Discipline: "physiotherapy", Assessment: "Improving range of motion."},
		},
		Bookings: []BookingSummary{
			{Date: time.Now().Add(-72 * time.Hour), Status: "completed"},
		},
	}, nil
}

type mockCompleter struct {
	calls      int
	shouldFail bool
	content    string
	lastPrompt []ai.Message
}

func (c *mockCompleter) Complete(_ context.Context, messages []ai.Message) (*ai.Completion, error) {
	c.calls++
	c.lastPrompt = messages
	if c.shouldFail {
		return nil, fmt.Errorf("upstream timeout")
	}
	content := c.content
	if content == "" {
		content = "Generated clinical text."
	}
	return &ai.Completion{Content: content, TotalTokens: 420}, nil
}

func newTestService(repo *mockRepo, completer *mockCompleter) *Service {
	return NewService(repo, &mockProvider{}, completer, 7*24*time.Hour, zerolog.Nop())
}

// -- Tests --

func TestGetContent_MissGenerates(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	gc, err := svc.GetContent(context.Background(), uuid.New(), "medical_history", "")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if gc.Source != "api" {
		t.Errorf("expected api source on miss, got %s", gc.Source)
	}
	if completer.calls != 1 {
		t.Errorf("expected 1 completion call, got %d", completer.calls)
	}
	if gc.TokensUsed != 420 {
		t.Errorf("expected token usage carried through, got %d", gc.TokensUsed)
	}
}

func TestGetContent_HitServedFromCache(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	patient := uuid.New()
	svc.GetContent(context.Background(), patient, "medical_history", "")

	gc, err := svc.GetContent(context.Background(), patient, "medical_history", "")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if gc.Source != "cache" {
		t.Errorf("expected cache source on hit, got %s", gc.Source)
	}
	if completer.calls != 1 {
		t.Errorf("expected no second completion call, got %d", completer.calls)
	}

	entry, _ := repo.GetEntry(context.Background(), patient, "medical_history", "")
	if entry.UsageCount != 1 {
		t.Errorf("expected usage count 1 after hit, got %d", entry.UsageCount)
	}
}

func TestGetContent_ExpiredEntryRegenerated(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	patient := uuid.New()
	repo.entries[cacheKey{patient, "medical_history", ""}] = &CacheEntry{
		ID:          uuid.New(),
		PatientID:   patient,
		ContentType: "medical_history",
		Content:     "Stale text.",
		GeneratedAt: time.Now().Add(-10 * 24 * time.Hour),
		ExpiresAt:   time.Now().Add(-3 * 24 * time.Hour),
		Valid:       true,
	}

	gc, err := svc.GetContent(context.Background(), patient, "medical_history", "")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if gc.Source != "api" {
		t.Errorf("expected regeneration for expired entry, got source %s", gc.Source)
	}
	if gc.Content == "Stale text." {
		t.Error("expired content must never be returned")
	}
}

func TestGetContent_InvalidatedEntryRegenerated(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	patient := uuid.New()
	svc.GetContent(context.Background(), patient, "treatment_summary", "physiotherapy")
	svc.Invalidate(context.Background(), patient, "treatment_summary", "physiotherapy")

	gc, err := svc.GetContent(context.Background(), patient, "treatment_summary", "physiotherapy")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if gc.Source != "api" {
		t.Errorf("expected regeneration after invalidation, got source %s", gc.Source)
	}
	if completer.calls != 2 {
		t.Errorf("expected 2 completion calls, got %d", completer.calls)
	}
}

func TestGetContent_DisciplineKeysAreSeparate(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	patient := uuid.New()
	svc.GetContent(context.Background(), patient, "treatment_summary", "physiotherapy")
	svc.GetContent(context.Background(), patient, "treatment_summary", "speech therapy")

	if completer.calls != 2 {
		t.Errorf("expected separate cache entries per discipline, got %d calls", completer.calls)
	}
}

func TestGetContent_APIFailure(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockCompleter{shouldFail: true})

	_, err := svc.GetContent(context.Background(), uuid.New(), "medical_history", "")
	if !errors.Is(err, ErrAIUnavailable) {
		t.Errorf("expected ErrAIUnavailable, got %v", err)
	}
	if len(repo.audits) != 0 {
		t.Error("failed generation must not write an audit record")
	}
}

func TestGetContent_InvalidContentType(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockCompleter{})

	if _, err := svc.GetContent(context.Background(), uuid.New(), "horoscope", ""); err == nil {
		t.Error("expected error for unknown content type")
	}
}

func TestGenerate_WritesAudit(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockCompleter{})

	patient := uuid.New()
	if _, err := svc.GetContent(context.Background(), patient, "recommendations", ""); err != nil {
		t.Fatalf("get content: %v", err)
	}

	if len(repo.audits) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(repo.audits))
	}
	a := repo.audits[0]
	if a.PatientID != patient || a.ContentType != "recommendations" || a.TokensUsed != 420 {
		t.Errorf("audit record incomplete: %+v", a)
	}
}

func TestRegenerate_BypassesCache(t *testing.T) {
	repo := newMockRepo()
	completer := &mockCompleter{}
	svc := newTestService(repo, completer)

	patient := uuid.New()
	svc.GetContent(context.Background(), patient, "medical_history", "")

	completer.content = "Updated clinical text."
	gc, err := svc.Regenerate(context.Background(), patient, "medical_history", "")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if gc.Source != "api" || completer.calls != 2 {
		t.Errorf("expected forced regeneration, source=%s calls=%d", gc.Source, completer.calls)
	}

	// Last write wins in the cache.
	entry, _ := repo.GetEntry(context.Background(), patient, "medical_history", "")
	if entry.Content != "Updated clinical text." {
		t.Errorf("expected cache replaced, got %q", entry.Content)
	}
}

func TestInvalidatePatient_ClearsAllEntries(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockCompleter{})

	patient := uuid.New()
	svc.GetContent(context.Background(), patient, "medical_history", "")
	svc.GetContent(context.Background(), patient, "treatment_summary", "")

	if err := svc.InvalidatePatient(context.Background(), patient); err != nil {
		t.Fatalf("invalidate patient: %v", err)
	}
	for _, e := range repo.entries {
		if e.Valid {
			t.Error("expected all entries invalidated")
		}
	}
}

func TestBuildPrompt_IncludesClinicalContext(t *testing.T) {
	completer := &mockCompleter{}
	svc := newTestService(newMockRepo(), completer)

	svc.GetContent(context.Background(), uuid.New(), "treatment_summary", "physiotherapy")

	if len(completer.lastPrompt) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(completer.lastPrompt))
	}
	user := completer.lastPrompt[1].Content
	for _, want := range []string{"Thandi Mokoena", "Improving range of motion.", "physiotherapy"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
