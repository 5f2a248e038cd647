package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hadadahealth/hadada/internal/platform/metrics"
	"github.com/hadadahealth/hadada/internal/platform/notification"
	"github.com/hadadahealth/hadada/internal/platform/pdf"
)

// ErrInvalidTransition is returned when a status change is not allowed by
// the report workflow.
var ErrInvalidTransition = errors.New("invalid report status transition")

// ErrReportClosed is returned when content is edited on a completed or
// cancelled report.
var ErrReportClosed = errors.New("report is completed or cancelled")

var validPriorities = map[string]bool{
	"low":    true,
	"normal": true,
	"high":   true,
}

// validTransitions is the report workflow. Anything not listed is
// rejected. Overdue is not a status; it is derived from the deadline.
var validTransitions = map[string]map[string]bool{
	"pending":     {"in_progress": true, "cancelled": true},
	"in_progress": {"completed": true, "cancelled": true},
}

// Directory resolves patient and therapist display details for
// notifications and PDF headers. The identity service satisfies it through
// an adapter in cmd wiring.
type Directory interface {
	PatientInfo(ctx context.Context, id uuid.UUID) (name, email string, err error)
	TherapistInfo(ctx context.Context, id uuid.UUID) (name, email string, err error)
}

type Service struct {
	repo     Repository
	dir      Directory
	notifier notification.Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, dir Directory, notifier notification.Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, notifier: notifier, logger: logger}
}

func (s *Service) validate(r *Report) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(r.AssignedTherapistIDs) == 0 {
		return fmt.Errorf("at least one assigned therapist is required")
	}
	if r.Priority == "" {
		r.Priority = "normal"
	}
	if !validPriorities[r.Priority] {
		return fmt.Errorf("invalid priority: %s", r.Priority)
	}
	return nil
}

// CreateReport creates a pending report and notifies every assigned
// therapist.
func (s *Service) CreateReport(ctx context.Context, r *Report) error {
	if err := s.validate(r); err != nil {
		return err
	}
	if r.TemplateID != nil {
		tpl, err := s.repo.GetTemplate(ctx, *r.TemplateID)
		if err != nil {
			return fmt.Errorf("report template not found: %w", err)
		}
		if !tpl.Active {
			return fmt.Errorf("report template %q is inactive", tpl.Name)
		}
	}
	r.Status = "pending"
	r.ContentVersion = 1
	if r.Content == nil {
		r.Content = map[string]string{}
	}
	r.CompletedAt = nil

	if err := s.repo.Create(ctx, r); err != nil {
		return err
	}
	metrics.RecordReportCreated(reportType(r))

	patientName, _, err := s.dir.PatientInfo(ctx, r.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", r.ID.String()).Msg("patient lookup failed for report notification")
	}
	for _, tid := range r.AssignedTherapistIDs {
		s.notifyAssignee(ctx, r, tid, patientName, "report-assigned", map[string]string{
			"report_title": r.Title,
			"patient_name": patientName,
			"deadline":     deadlineString(r.Deadline),
		}, fmt.Sprintf("You have been assigned to report %q.", r.Title))
	}
	return nil
}

func reportType(r *Report) string {
	if len(r.Disciplines) > 0 {
		return r.Disciplines[0]
	}
	return "general"
}

func deadlineString(d *time.Time) string {
	if d == nil {
		return "not set"
	}
	return d.Format("2006-01-02")
}

// notifyAssignee persists an in-app notification and dispatches an email
// when the therapist can be resolved. Delivery failures are logged, not
// returned; the report mutation has already succeeded.
func (s *Service) notifyAssignee(ctx context.Context, r *Report, therapistID uuid.UUID, patientName, templateID string, data map[string]string, message string) {
	if err := s.repo.CreateNotification(ctx, &ReportNotification{
		ReportID:    r.ID,
		RecipientID: therapistID,
		Message:     message,
	}); err != nil {
		s.logger.Error().Err(err).Str("report_id", r.ID.String()).Msg("persist report notification failed")
	}

	name, email, err := s.dir.TherapistInfo(ctx, therapistID)
	if err != nil || email == "" {
		return
	}
	data["therapist_name"] = name
	if patientName != "" {
		data["patient_name"] = patientName
	}
	if err := s.notifier.Notify(ctx, templateID, data, email); err != nil {
		s.logger.Warn().Err(err).
			Str("report_id", r.ID.String()).
			Str("therapist_id", therapistID.String()).
			Msg("report notification delivery failed")
	}
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Overdue = r.IsOverdue(time.Now().UTC())
	return r, nil
}

// UpdateReport changes metadata (title, priority, deadline, assignees,
// disciplines). Status and content have dedicated operations.
func (s *Service) UpdateReport(ctx context.Context, r *Report) error {
	existing, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("report not found: %w", err)
	}
	if err := s.validate(r); err != nil {
		return err
	}
	r.PatientID = existing.PatientID
	r.Status = existing.Status
	r.Content = existing.Content
	r.ContentVersion = existing.ContentVersion
	r.AIGeneratedKeys = existing.AIGeneratedKeys
	r.CompletedAt = existing.CompletedAt
	return s.repo.Update(ctx, r)
}

func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("report not found: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

// TransitionStatus moves a report through the workflow and notifies every
// assigned therapist except the actor.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, actorID uuid.UUID, actorName string) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}
	if !validTransitions[r.Status][newStatus] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, newStatus)
	}

	from := r.Status
	r.Status = newStatus
	if newStatus == "completed" {
		now := time.Now().UTC()
		r.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	metrics.RecordReportStatusChange(from, newStatus)

	patientName, _, err := s.dir.PatientInfo(ctx, r.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", r.ID.String()).Msg("patient lookup failed for report notification")
	}
	for _, tid := range r.AssignedTherapistIDs {
		if tid == actorID {
			continue
		}
		s.notifyAssignee(ctx, r, tid, patientName, "report-status-changed", map[string]string{
			"report_title": r.Title,
			"patient_name": patientName,
			"from_status":  from,
			"to_status":    newStatus,
			"actor_name":   actorName,
		}, fmt.Sprintf("Report %q moved from %s to %s.", r.Title, from, newStatus))
	}

	r.Overdue = r.IsOverdue(time.Now().UTC())
	return r, nil
}

// UpdateContent replaces the report content and bumps the content version.
// Keys listed in aiGeneratedKeys are marked as AI assisted.
func (s *Service) UpdateContent(ctx context.Context, id uuid.UUID, content map[string]string, aiGeneratedKeys []string) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}
	if r.Status == "completed" || r.Status == "cancelled" {
		return nil, ErrReportClosed
	}
	if content == nil {
		content = map[string]string{}
	}
	r.Content = content
	r.ContentVersion++
	r.AIGeneratedKeys = aiGeneratedKeys
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	r.Overdue = r.IsOverdue(time.Now().UTC())
	return r, nil
}

// SetContentField writes a single content field, used by AI generation to
// place a drafted section into the report.
func (s *Service) SetContentField(ctx context.Context, id uuid.UUID, key, value string, aiGenerated bool) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}
	if r.Status == "completed" || r.Status == "cancelled" {
		return nil, ErrReportClosed
	}
	if r.Content == nil {
		r.Content = map[string]string{}
	}
	r.Content[key] = value
	r.ContentVersion++
	if aiGenerated && !r.AIGenerated(key) {
		r.AIGeneratedKeys = append(r.AIGeneratedKeys, key)
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	r.Overdue = r.IsOverdue(time.Now().UTC())
	return r, nil
}

func (s *Service) ListReports(ctx context.Context, status string, limit, offset int) ([]*Report, int, error) {
	reps, total, err := s.repo.List(ctx, status, limit, offset)
	markOverdue(reps)
	return reps, total, err
}

func (s *Service) ListReportsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	reps, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	markOverdue(reps)
	return reps, total, err
}

func (s *Service) ListReportsByAssignee(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	reps, total, err := s.repo.ListByAssignee(ctx, therapistID, limit, offset)
	markOverdue(reps)
	return reps, total, err
}

func markOverdue(reps []*Report) {
	now := time.Now().UTC()
	for _, r := range reps {
		r.Overdue = r.IsOverdue(now)
	}
}

// NotifyOverdue sends an overdue notice for every open report whose
// deadline has passed. Returns the number of reports processed.
func (s *Service) NotifyOverdue(ctx context.Context) (int, error) {
	reps, err := s.repo.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, r := range reps {
		patientName, _, err := s.dir.PatientInfo(ctx, r.PatientID)
		if err != nil {
			s.logger.Warn().Err(err).Str("report_id", r.ID.String()).Msg("patient lookup failed for overdue notice")
		}
		for _, tid := range r.AssignedTherapistIDs {
			s.notifyAssignee(ctx, r, tid, patientName, "report-overdue", map[string]string{
				"report_title": r.Title,
				"patient_name": patientName,
				"deadline":     deadlineString(r.Deadline),
			}, fmt.Sprintf("Report %q is overdue.", r.Title))
		}
	}
	return len(reps), nil
}

// RenderPDF builds the PDF document for a report from its stored content.
// AI assisted sections are annotated in their headings.
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID) (pdf.ReportDocument, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return pdf.ReportDocument{}, fmt.Errorf("report not found: %w", err)
	}

	patientName, _, err := s.dir.PatientInfo(ctx, r.PatientID)
	if err != nil {
		return pdf.ReportDocument{}, fmt.Errorf("patient lookup failed: %w", err)
	}
	var therapistNames []string
	for _, tid := range r.AssignedTherapistIDs {
		name, _, err := s.dir.TherapistInfo(ctx, tid)
		if err == nil {
			therapistNames = append(therapistNames, name)
		}
	}

	keys := make([]string, 0, len(r.Content))
	for k := range r.Content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sections := make([]pdf.Section, 0, len(keys))
	for _, k := range keys {
		title := sectionTitle(k)
		if r.AIGenerated(k) {
			title += " (AI assisted draft)"
		}
		sections = append(sections, pdf.Section{Title: title, Body: r.Content[k]})
	}

	return pdf.ReportDocument{
		Title:         r.Title,
		PatientName:   patientName,
		TherapistName: strings.Join(therapistNames, ", "),
		Disciplines:   r.Disciplines,
		Status:        r.Status,
		Deadline:      r.Deadline,
		GeneratedAt:   time.Now().UTC(),
		Sections:      sections,
	}, nil
}

// sectionTitle turns a snake_case content key into a heading.
func sectionTitle(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// -- Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *ReportTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("template field name is required")
		}
	}
	return s.repo.CreateTemplate(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*ReportTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *ReportTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := s.repo.GetTemplate(ctx, t.ID); err != nil {
		return fmt.Errorf("report template not found: %w", err)
	}
	return s.repo.UpdateTemplate(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, activeOnly bool, limit, offset int) ([]*ReportTemplate, int, error) {
	return s.repo.ListTemplates(ctx, activeOnly, limit, offset)
}

// -- Notifications --

func (s *Service) ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*ReportNotification, int, error) {
	return s.repo.ListNotificationsByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkNotificationRead(ctx, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.repo.MarkAllNotificationsRead(ctx, recipientID)
}
