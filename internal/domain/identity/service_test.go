package identity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	patients   map[uuid.UUID]*Patient
	therapists map[uuid.UUID]*Therapist
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:   make(map[uuid.UUID]*Patient),
		therapists: make(map[uuid.UUID]*Therapist),
	}
}

func (m *mockRepo) CreatePatient(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) UpdatePatient(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) DeletePatient(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) ListPatients(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) SearchPatients(_ context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(name)) ||
			strings.Contains(strings.ToLower(p.LastName), strings.ToLower(name)) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateTherapist(_ context.Context, t *Therapist) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	m.therapists[t.ID] = t
	return nil
}

func (m *mockRepo) GetTherapist(_ context.Context, id uuid.UUID) (*Therapist, error) {
	t, ok := m.therapists[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (m *mockRepo) UpdateTherapist(_ context.Context, t *Therapist) error {
	m.therapists[t.ID] = t
	return nil
}

func (m *mockRepo) DeleteTherapist(_ context.Context, id uuid.UUID) error {
	delete(m.therapists, id)
	return nil
}

func (m *mockRepo) ListTherapists(_ context.Context, activeOnly bool, limit, offset int) ([]*Therapist, int, error) {
	var result []*Therapist
	for _, t := range m.therapists {
		if activeOnly && !t.Active {
			continue
		}
		result = append(result, t)
	}
	return result, len(result), nil
}

func strPtr(s string) *string { return &s }

// -- Tests --

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{FirstName: "Jane", LastName: "Doe", Email: strPtr("jane@example.com")}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
}

func TestCreatePatient_MissingName(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.CreatePatient(context.Background(), &Patient{LastName: "Doe"}); err == nil {
		t.Error("expected error for missing first name")
	}
	if err := svc.CreatePatient(context.Background(), &Patient{FirstName: "Jane"}); err == nil {
		t.Error("expected error for missing last name")
	}
}

func TestCreatePatient_InvalidEmail(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{FirstName: "Jane", LastName: "Doe", Email: strPtr("not-an-email")}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Error("expected error for invalid email")
	}
}

func TestCreatePatient_FutureDateOfBirth(t *testing.T) {
	svc := NewService(newMockRepo())

	future := time.Now().Add(24 * time.Hour)
	p := &Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: &future}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Error("expected error for future date of birth")
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{ID: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	if err := svc.UpdatePatient(context.Background(), p); err == nil {
		t.Error("expected error for unknown patient")
	}
}

func TestSearchPatients(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_ = svc.CreatePatient(context.Background(), &Patient{FirstName: "Jane", LastName: "Doe"})
	_ = svc.CreatePatient(context.Background(), &Patient{FirstName: "Thabo", LastName: "Mokoena"})

	results, total, err := svc.SearchPatients(context.Background(), "mokoena", 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", total)
	}
	if results[0].LastName != "Mokoena" {
		t.Errorf("unexpected result: %s", results[0].LastName)
	}
}

func TestGetPatientSummary(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	therapist := &Therapist{FirstName: "Thabo", LastName: "Mokoena", Profession: "physiotherapy"}
	if err := svc.CreateTherapist(context.Background(), therapist); err != nil {
		t.Fatalf("create therapist: %v", err)
	}

	p := &Patient{FirstName: "Jane", LastName: "Doe", AssignedTherapistID: &therapist.ID}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	summary, err := svc.GetPatientSummary(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Patient.ID != p.ID {
		t.Error("summary patient mismatch")
	}
	if summary.Therapist == nil || summary.Therapist.ID != therapist.ID {
		t.Error("expected assigned therapist in summary")
	}
}

func TestGetPatientSummary_NoTherapist(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{FirstName: "Jane", LastName: "Doe"}
	_ = svc.CreatePatient(context.Background(), p)

	summary, err := svc.GetPatientSummary(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Therapist != nil {
		t.Error("expected no therapist in summary")
	}
}

func TestCreateTherapist(t *testing.T) {
	svc := NewService(newMockRepo())

	th := &Therapist{FirstName: "Thabo", LastName: "Mokoena", Profession: "occupational therapy"}
	if err := svc.CreateTherapist(context.Background(), th); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !th.Active {
		t.Error("expected new therapist to be active")
	}
}

func TestCreateTherapist_MissingProfession(t *testing.T) {
	svc := NewService(newMockRepo())

	th := &Therapist{FirstName: "Thabo", LastName: "Mokoena"}
	if err := svc.CreateTherapist(context.Background(), th); err == nil {
		t.Error("expected error for missing profession")
	}
}

func TestListTherapists_ActiveOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	active := &Therapist{FirstName: "A", LastName: "One", Profession: "physiotherapy"}
	_ = svc.CreateTherapist(context.Background(), active)

	inactive := &Therapist{FirstName: "B", LastName: "Two", Profession: "speech therapy"}
	_ = svc.CreateTherapist(context.Background(), inactive)
	inactive.Active = false
	_ = svc.UpdateTherapist(context.Background(), inactive)

	list, total, err := svc.ListTherapists(context.Background(), true, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 active therapist, got %d", total)
	}
	if list[0].ID != active.ID {
		t.Error("unexpected therapist returned")
	}
}
