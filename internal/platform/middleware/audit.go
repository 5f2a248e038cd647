package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hadadahealth/hadada/internal/platform/auth"
)

// AuditEntry captures who did what to which resource.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RemoteIP   string    `json:"remote_ip"`
}

// AuditRecorder persists audit entries. Recording must not block the
// request path for long; implementations should buffer or write async.
type AuditRecorder interface {
	Record(entry AuditEntry)
}

// AuditRecorderFunc adapts a function to the AuditRecorder interface.
type AuditRecorderFunc func(entry AuditEntry)

func (f AuditRecorderFunc) Record(entry AuditEntry) { f(entry) }

// LogAuditRecorder writes audit entries to the given logger.
func LogAuditRecorder(logger zerolog.Logger) AuditRecorder {
	return AuditRecorderFunc(func(e AuditEntry) {
		logger.Info().
			Str("request_id", e.RequestID).
			Str("user_id", e.UserID).
			Str("action", e.Action).
			Str("resource", e.Resource).
			Str("resource_id", e.ResourceID).
			Str("path", e.Path).
			Int("status", e.Status).
			Str("remote_ip", e.RemoteIP).
			Msg("audit")
	})
}

var methodActions = map[string]string{
	"GET":    "read",
	"POST":   "create",
	"PUT":    "update",
	"PATCH":  "update",
	"DELETE": "delete",
}

// Audit records an entry for every mutating request and for reads of
// individual resources. Collection listings are not audited.
func Audit(recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			action, ok := methodActions[req.Method]
			if !ok {
				return err
			}

			resource, resourceID := parseResourcePath(req.URL.Path)
			if resource == "" {
				return err
			}
			if action == "read" && resourceID == "" {
				return err
			}

			rid, _ := c.Get("request_id").(string)
			recorder.Record(AuditEntry{
				Timestamp:  time.Now().UTC(),
				RequestID:  rid,
				UserID:     auth.UserIDFromContext(req.Context()),
				Action:     action,
				Resource:   resource,
				ResourceID: resourceID,
				Path:       req.URL.Path,
				Status:     c.Response().Status,
				RemoteIP:   c.RealIP(),
			})
			return err
		}
	}
}

// parseResourcePath extracts the resource name and optional ID from an
// /api/v1/<resource>[/<id>[/...]] path.
func parseResourcePath(path string) (resource, id string) {
	const prefix = "/api/v1/"
	if !strings.HasPrefix(path, prefix) {
		return "", ""
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	resource = parts[0]
	if len(parts) > 1 {
		id = parts[1]
	}
	return resource, id
}
