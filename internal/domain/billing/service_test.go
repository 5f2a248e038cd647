package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	codes           map[uuid.UUID]*BillingCode
	sessions        map[uuid.UUID]*BillingSession
	entries         map[uuid.UUID]*BillingEntry
	invoices        map[uuid.UUID]*Invoice
	invoiceSessions map[uuid.UUID][]uuid.UUID

	failCreateInvoice bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		codes:           make(map[uuid.UUID]*BillingCode),
		sessions:        make(map[uuid.UUID]*BillingSession),
		entries:         make(map[uuid.UUID]*BillingEntry),
		invoices:        make(map[uuid.UUID]*Invoice),
		invoiceSessions: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockRepo) CreateCode(_ context.Context, c *BillingCode) error {
	c.ID = uuid.New()
	m.codes[c.ID] = c
	return nil
}

func (m *mockRepo) GetCode(_ context.Context, id uuid.UUID) (*BillingCode, error) {
	c, ok := m.codes[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (m *mockRepo) GetCodeByCode(_ context.Context, code string) (*BillingCode, error) {
	for _, c := range m.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) UpdateCode(_ context.Context, c *BillingCode) error {
	m.codes[c.ID] = c
	return nil
}

func (m *mockRepo) DeleteCode(_ context.Context, id uuid.UUID) error {
	delete(m.codes, id)
	return nil
}

func (m *mockRepo) ListCodes(_ context.Context, discipline string, limit, offset int) ([]*BillingCode, int, error) {
	var result []*BillingCode
	for _, c := range m.codes {
		if discipline != "" && c.Discipline != discipline {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateSession(_ context.Context, s *BillingSession) error {
	s.ID = uuid.New()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) GetSession(_ context.Context, id uuid.UUID) (*BillingSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	entries, _ := m.ListEntriesBySession(context.Background(), id)
	s.Entries = entries
	return s, nil
}

func (m *mockRepo) UpdateSessionTotal(_ context.Context, id uuid.UUID, total float64) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	s.Total = total
	return nil
}

func (m *mockRepo) DeleteSession(_ context.Context, id uuid.UUID) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) ListSessionsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*BillingSession, int, error) {
	var result []*BillingSession
	for _, s := range m.sessions {
		if s.PatientID == patientID {
			result = append(result, s)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) AddEntry(_ context.Context, e *BillingEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepo) GetEntry(_ context.Context, id uuid.UUID) (*BillingEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockRepo) UpdateEntry(_ context.Context, e *BillingEntry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *mockRepo) DeleteEntry(_ context.Context, id uuid.UUID) error {
	delete(m.entries, id)
	return nil
}

func (m *mockRepo) ListEntriesBySession(_ context.Context, sessionID uuid.UUID) ([]*BillingEntry, error) {
	var result []*BillingEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockRepo) CreateInvoice(_ context.Context, inv *Invoice, sessionIDs []uuid.UUID) error {
	if m.failCreateInvoice {
		return fmt.Errorf("insert failed")
	}
	inv.ID = uuid.New()
	inv.SessionIDs = sessionIDs
	m.invoices[inv.ID] = inv
	m.invoiceSessions[inv.ID] = sessionIDs
	return nil
}

func (m *mockRepo) GetInvoice(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return inv, nil
}

func (m *mockRepo) UpdateInvoice(_ context.Context, inv *Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockRepo) ListInvoicesByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var result []*Invoice
	for _, inv := range m.invoices {
		if inv.PatientID == patientID {
			result = append(result, inv)
		}
	}
	return result, len(result), nil
}

func newSession(t *testing.T, svc *Service) *BillingSession {
	t.Helper()
	sess := &BillingSession{PatientID: uuid.New(), TherapistID: uuid.New()}
	if err := svc.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

// -- Tests --

func TestAddEntry_TotalMatches(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	sess := newSession(t, svc)

	e := &BillingEntry{SessionID: sess.ID, Code: "72501", Quantity: 2, Rate: 350, Total: 700}
	if err := svc.AddEntry(context.Background(), e); err != nil {
		t.Fatalf("add entry: %v", err)
	}
}

func TestAddEntry_TotalMismatchRejected(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	sess := newSession(t, svc)

	e := &BillingEntry{SessionID: sess.ID, Code: "72501", Quantity: 2, Rate: 350, Total: 650}
	if err := svc.AddEntry(context.Background(), e); !errors.Is(err, ErrTotalMismatch) {
		t.Errorf("expected ErrTotalMismatch, got %v", err)
	}
}

func TestAddEntry_WithinTolerance(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	sess := newSession(t, svc)

	// 3 x 116.67 = 350.01; stored total 350.00 is within the 0.01 tolerance.
	e := &BillingEntry{SessionID: sess.ID, Code: "72501", Quantity: 3, Rate: 116.67, Total: 350.00}
	if err := svc.AddEntry(context.Background(), e); err != nil {
		t.Errorf("expected entry within tolerance to pass, got %v", err)
	}
}

func TestSessionTotal_RecomputedOnAdd(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	sess := newSession(t, svc)

	_ = svc.AddEntry(context.Background(), &BillingEntry{SessionID: sess.ID, Code: "a", Quantity: 1, Rate: 100, Total: 100})
	_ = svc.AddEntry(context.Background(), &BillingEntry{SessionID: sess.ID, Code: "b", Quantity: 2, Rate: 50, Total: 100})

	got, _ := repo.GetSession(context.Background(), sess.ID)
	if got.Total != 200 {
		t.Errorf("expected session total 200, got %v", got.Total)
	}
}

func TestSessionTotal_RecomputedOnDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	sess := newSession(t, svc)

	e1 := &BillingEntry{SessionID: sess.ID, Code: "a", Quantity: 1, Rate: 100, Total: 100}
	_ = svc.AddEntry(context.Background(), e1)
	_ = svc.AddEntry(context.Background(), &BillingEntry{SessionID: sess.ID, Code: "b", Quantity: 1, Rate: 80, Total: 80})

	if err := svc.DeleteEntry(context.Background(), e1.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	got, _ := repo.GetSession(context.Background(), sess.ID)
	if got.Total != 80 {
		t.Errorf("expected session total 80, got %v", got.Total)
	}
}

func TestSessionTotal_RecomputedOnUpdate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	sess := newSession(t, svc)

	e := &BillingEntry{SessionID: sess.ID, Code: "a", Quantity: 1, Rate: 100, Total: 100}
	_ = svc.AddEntry(context.Background(), e)

	e.Quantity = 3
	e.Total = 300
	if err := svc.UpdateEntry(context.Background(), e); err != nil {
		t.Fatalf("update entry: %v", err)
	}

	got, _ := repo.GetSession(context.Background(), sess.ID)
	if got.Total != 300 {
		t.Errorf("expected session total 300, got %v", got.Total)
	}
}

func TestAddEntry_ZeroQuantityRejected(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	sess := newSession(t, svc)

	e := &BillingEntry{SessionID: sess.ID, Code: "a", Quantity: 0, Rate: 100, Total: 0}
	if err := svc.AddEntry(context.Background(), e); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestCreateInvoice_SumsSessionTotals(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	patient := uuid.New()
	s1 := &BillingSession{PatientID: patient, TherapistID: uuid.New()}
	s2 := &BillingSession{PatientID: patient, TherapistID: uuid.New()}
	_ = svc.CreateSession(context.Background(), s1)
	_ = svc.CreateSession(context.Background(), s2)
	_ = svc.AddEntry(context.Background(), &BillingEntry{SessionID: s1.ID, Code: "a", Quantity: 1, Rate: 500, Total: 500})
	_ = svc.AddEntry(context.Background(), &BillingEntry{SessionID: s2.ID, Code: "b", Quantity: 1, Rate: 250, Total: 250})

	inv, err := svc.CreateInvoice(context.Background(), patient, []uuid.UUID{s1.ID, s2.ID}, nil)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if inv.Total != 750 {
		t.Errorf("expected invoice total 750, got %v", inv.Total)
	}
	if inv.Status != "draft" {
		t.Errorf("expected draft status, got %s", inv.Status)
	}
}

func TestCreateInvoice_RepoFailureLeavesNothingBehind(t *testing.T) {
	repo := newMockRepo()
	repo.failCreateInvoice = true
	svc := NewService(repo, nil)

	sess := newSession(t, svc)
	if _, err := svc.CreateInvoice(context.Background(), sess.PatientID, []uuid.UUID{sess.ID}, nil); err == nil {
		t.Fatal("expected error when the invoice write fails")
	}
	if len(repo.invoices) != 0 || len(repo.invoiceSessions) != 0 {
		t.Error("failed invoice creation must not persist partial state")
	}
}

func TestCreateInvoice_WrongPatientRejected(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	sess := newSession(t, svc)
	if _, err := svc.CreateInvoice(context.Background(), uuid.New(), []uuid.UUID{sess.ID}, nil); err == nil {
		t.Error("expected error for session belonging to another patient")
	}
}

func TestUpdateInvoiceStatus(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	sess := newSession(t, svc)
	inv, err := svc.CreateInvoice(context.Background(), sess.PatientID, []uuid.UUID{sess.ID}, nil)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	sent, err := svc.UpdateInvoiceStatus(context.Background(), inv.ID, "sent")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if sent.IssuedAt == nil {
		t.Error("expected issued_at set when invoice sent")
	}

	paid, err := svc.UpdateInvoiceStatus(context.Background(), inv.ID, "paid")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if paid.PaidAt == nil {
		t.Error("expected paid_at set when invoice paid")
	}
}

func TestUpdateInvoiceStatus_Invalid(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	sess := newSession(t, svc)
	inv, _ := svc.CreateInvoice(context.Background(), sess.PatientID, []uuid.UUID{sess.ID}, nil)

	if _, err := svc.UpdateInvoiceStatus(context.Background(), inv.ID, "void"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestCreateCode_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	if err := svc.CreateCode(context.Background(), &BillingCode{Description: "x"}); err == nil {
		t.Error("expected error for missing code")
	}
	if err := svc.CreateCode(context.Background(), &BillingCode{Code: "72501", BaseRate: -5}); err == nil {
		t.Error("expected error for negative base rate")
	}
}
