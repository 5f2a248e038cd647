package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	return NewHandler(NewService(repo)), repo
}

func request(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _ := newTestHandler()

	rec := request(t, h.CreatePatient, http.MethodPost, "/patients",
		`{"first_name":"Jane","last_name":"Doe"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
}

func TestHandler_CreatePatient_Invalid(t *testing.T) {
	h, _ := newTestHandler()

	rec := request(t, h.CreatePatient, http.MethodPost, "/patients",
		`{"first_name":"Jane"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, _ := newTestHandler()

	rec := request(t, h.GetPatient, http.MethodGet, "/patients/x", "",
		map[string]string{"id": uuid.New().String()})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_InvalidID(t *testing.T) {
	h, _ := newTestHandler()

	rec := request(t, h.GetPatient, http.MethodGet, "/patients/x", "",
		map[string]string{"id": "not-a-uuid"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, repo := newTestHandler()
	_ = repo.CreatePatient(nil, &Patient{FirstName: "Jane", LastName: "Doe"})
	_ = repo.CreatePatient(nil, &Patient{FirstName: "John", LastName: "Smith"})

	rec := request(t, h.ListPatients, http.MethodGet, "/patients", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}

func TestHandler_ListPatients_SearchByName(t *testing.T) {
	h, repo := newTestHandler()
	_ = repo.CreatePatient(nil, &Patient{FirstName: "Jane", LastName: "Doe"})
	_ = repo.CreatePatient(nil, &Patient{FirstName: "Thabo", LastName: "Mokoena"})

	rec := request(t, h.ListPatients, http.MethodGet, "/patients?name=doe", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
}

func TestHandler_CreateTherapist(t *testing.T) {
	h, _ := newTestHandler()

	rec := request(t, h.CreateTherapist, http.MethodPost, "/therapists",
		`{"first_name":"Thabo","last_name":"Mokoena","profession":"physiotherapy"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	h, repo := newTestHandler()
	p := &Patient{FirstName: "Jane", LastName: "Doe"}
	_ = repo.CreatePatient(nil, p)

	rec := request(t, h.DeletePatient, http.MethodDelete, "/patients/x", "",
		map[string]string{"id": p.ID.String()})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(repo.patients) != 0 {
		t.Error("expected patient removed")
	}
}
