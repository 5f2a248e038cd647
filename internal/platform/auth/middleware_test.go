package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{SigningKey: []byte("0123456789abcdef0123456789abcdef"), Issuer: "hadada"}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(handler)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	rec := doRequest(t, JWTMiddleware(testCfg), "", okHandler)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_BadFormat(t *testing.T) {
	rec := doRequest(t, JWTMiddleware(testCfg), "Basic abc123", okHandler)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	rec := doRequest(t, JWTMiddleware(testCfg), "Bearer not-a-token", okHandler)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testCfg, "user-1", "A Therapist", []string{"therapist"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotID string
	var gotRoles []string
	handler := func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}

	rec := doRequest(t, JWTMiddleware(testCfg), "Bearer "+token, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != "user-1" {
		t.Errorf("expected user-1, got %q", gotID)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "therapist" {
		t.Errorf("unexpected roles: %v", gotRoles)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token, err := IssueToken(testCfg, "user-1", "A Therapist", []string{"therapist"}, -time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := doRequest(t, JWTMiddleware(testCfg), "Bearer "+token, okHandler)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	other := JWTConfig{SigningKey: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "hadada"}
	token, err := IssueToken(other, "user-1", "A Therapist", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := doRequest(t, JWTMiddleware(testCfg), "Bearer "+token, okHandler)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong key, got %d", rec.Code)
	}
}

func TestDevAuthMiddleware_SetsAdmin(t *testing.T) {
	var gotRoles []string
	handler := func(c echo.Context) error {
		gotRoles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}
	rec := doRequest(t, DevAuthMiddleware(), "", handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "admin" {
		t.Errorf("expected admin role, got %v", gotRoles)
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	token, _ := IssueToken(testCfg, "user-2", "B Therapist", []string{"therapist"}, time.Hour)
	mw := JWTMiddleware(testCfg)
	guarded := func(c echo.Context) error {
		return RequireRole("therapist")(okHandler)(c)
	}
	rec := doRequest(t, mw, "Bearer "+token, guarded)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	token, _ := IssueToken(testCfg, "user-3", "Admin", []string{"admin"}, time.Hour)
	mw := JWTMiddleware(testCfg)
	guarded := func(c echo.Context) error {
		return RequireRole("manager")(okHandler)(c)
	}
	rec := doRequest(t, mw, "Bearer "+token, guarded)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin bypass, got %d", rec.Code)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	token, _ := IssueToken(testCfg, "user-4", "Reception", []string{"reception"}, time.Hour)
	mw := JWTMiddleware(testCfg)
	guarded := func(c echo.Context) error {
		return RequireRole("therapist", "manager")(okHandler)(c)
	}
	rec := doRequest(t, mw, "Bearer "+token, guarded)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
