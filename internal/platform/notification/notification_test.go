package notification

import (
	"context"
	"strings"
	"testing"
)

func newTestManager() (*Manager, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	return NewManager(email, sms, NewTemplateEngine()), email, sms
}

func TestTemplateEngine_RenderBuiltIn(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render("appointment-reminder", map[string]string{
		"patient_name":   "Jane Doe",
		"date":           "2026-09-01",
		"time":           "09:00",
		"therapist_name": "Dr. Mokoena",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "Jane Doe") {
		t.Errorf("subject missing patient name: %q", subject)
	}
	if !strings.Contains(body, "Dr. Mokoena") || !strings.Contains(body, "09:00") {
		t.Errorf("body missing substitutions: %q", body)
	}
}

func TestTemplateEngine_RenderUnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render("report-assigned", map[string]string{
		"therapist_name": "Dr. Mokoena",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "{{report_title}}") {
		t.Errorf("expected unresolved placeholder to remain, got %q", body)
	}
}

func TestTemplateEngine_RegisterTemplate(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{
		ID:      "invoice-ready",
		Subject: "Invoice {{number}}",
		Body:    "Your invoice {{number}} is ready.",
		Type:    TypeEmail,
	})
	subject, _, err := e.Render("invoice-ready", map[string]string{"number": "INV-7"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Invoice INV-7" {
		t.Errorf("unexpected subject: %q", subject)
	}
}

func TestManager_SendEmail(t *testing.T) {
	mgr, email, _ := newTestManager()

	n := &Notification{Type: TypeEmail, Recipient: "jane@example.com", Subject: "Hello", Body: "Hi"}
	if err := mgr.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if n.Status != "sent" {
		t.Errorf("expected sent, got %s", n.Status)
	}
	if n.SentAt == nil {
		t.Error("expected SentAt to be set")
	}
	if len(email.Calls()) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(email.Calls()))
	}
	if email.Calls()[0].To != "jane@example.com" {
		t.Errorf("unexpected recipient: %s", email.Calls()[0].To)
	}
}

func TestManager_SendSMS(t *testing.T) {
	mgr, _, sms := newTestManager()

	n := &Notification{Type: TypeSMS, Recipient: "+27821234567", Body: "Reminder"}
	if err := mgr.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sms.Calls()) != 1 {
		t.Fatalf("expected 1 sms call, got %d", len(sms.Calls()))
	}
}

func TestManager_SendFailureRecorded(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	n := &Notification{Type: TypeEmail, Recipient: "jane@example.com", Body: "Hi"}
	if err := mgr.Send(context.Background(), n); err == nil {
		t.Fatal("expected error")
	}
	if n.Status != "failed" {
		t.Errorf("expected failed, got %s", n.Status)
	}
	if n.Error != "smtp down" {
		t.Errorf("unexpected error text: %s", n.Error)
	}
}

func TestManager_Retry(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	n := &Notification{Type: TypeEmail, Recipient: "jane@example.com", Body: "Hi"}
	_ = mgr.Send(context.Background(), n)

	email.ShouldFail = false
	if err := mgr.Retry(context.Background(), n.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	got, err := mgr.Get(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "sent" {
		t.Errorf("expected sent after retry, got %s", got.Status)
	}
	if got.Error != "" {
		t.Errorf("expected error cleared, got %q", got.Error)
	}
}

func TestManager_RetryNonFailed(t *testing.T) {
	mgr, _, _ := newTestManager()

	n := &Notification{Type: TypeEmail, Recipient: "jane@example.com", Body: "Hi"}
	_ = mgr.Send(context.Background(), n)

	if err := mgr.Retry(context.Background(), n.ID); err == nil {
		t.Error("expected error retrying a sent notification")
	}
}

func TestManager_RetryUnknownID(t *testing.T) {
	mgr, _, _ := newTestManager()
	if err := mgr.Retry(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown notification")
	}
}

func TestManager_SendFromTemplate(t *testing.T) {
	mgr, email, _ := newTestManager()

	n, err := mgr.SendFromTemplate(context.Background(), "report-assigned", map[string]string{
		"therapist_name": "Dr. Mokoena",
		"report_title":   "Progress Report",
		"patient_name":   "Jane Doe",
		"deadline":       "2026-09-15",
	}, "mokoena@example.com")
	if err != nil {
		t.Fatalf("send from template: %v", err)
	}
	if n.TemplateID != "report-assigned" {
		t.Errorf("unexpected template id: %s", n.TemplateID)
	}
	if len(email.Calls()) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(email.Calls()))
	}
	if !strings.Contains(email.Calls()[0].Body, "Progress Report") {
		t.Errorf("body missing report title: %q", email.Calls()[0].Body)
	}
}

func TestManager_SendFromTemplateUnknown(t *testing.T) {
	mgr, _, _ := newTestManager()
	if _, err := mgr.SendFromTemplate(context.Background(), "nope", nil, "x@example.com"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestManager_ListByRecipient(t *testing.T) {
	mgr, _, _ := newTestManager()

	for i := 0; i < 3; i++ {
		_ = mgr.Send(context.Background(), &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "x"})
	}
	_ = mgr.Send(context.Background(), &Notification{Type: TypeEmail, Recipient: "b@example.com", Body: "y"})

	list, err := mgr.ListByRecipient(context.Background(), "a@example.com", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3, got %d", len(list))
	}
}

func TestManager_Stats(t *testing.T) {
	email := &MockEmailSender{}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	_ = mgr.Send(context.Background(), &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "x"})
	email.ShouldFail = true
	email.FailError = "down"
	_ = mgr.Send(context.Background(), &Notification{Type: TypeEmail, Recipient: "a@example.com", Body: "y"})

	stats := mgr.Stats(context.Background())
	if stats["sent"] != 1 || stats["failed"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
