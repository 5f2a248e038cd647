package aicontent

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hadadahealth/hadada/internal/platform/auth"
	"github.com/hadadahealth/hadada/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "therapist"))
	staff.POST("/ai-content/generate", h.Generate)
	staff.POST("/ai-content/invalidate", h.Invalidate)
	staff.GET("/ai-content/audit", h.ListAudit)
}

type generateRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ContentType string    `json:"content_type"`
	Discipline  string    `json:"discipline"`
	Force       bool      `json:"force"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var (
		gc  *GeneratedContent
		err error
	)
	if req.Force {
		gc, err = h.svc.Regenerate(ctx, req.PatientID, req.ContentType, req.Discipline)
	} else {
		gc, err = h.svc.GetContent(ctx, req.PatientID, req.ContentType, req.Discipline)
	}
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, gc)
}

type invalidateRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ContentType string    `json:"content_type"`
	Discipline  string    `json:"discipline"`
}

func (h *Handler) Invalidate(c echo.Context) error {
	var req invalidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	ctx := c.Request().Context()
	if req.ContentType == "" {
		if err := h.svc.InvalidatePatient(ctx, req.PatientID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if err := h.svc.Invalidate(ctx, req.PatientID, req.ContentType, req.Discipline); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAudit(c echo.Context) error {
	pid := c.QueryParam("patient_id")
	if pid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter is required")
	}
	id, err := uuid.Parse(pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	as, total, err := h.svc.ListAudit(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(as, total, pg.Limit, pg.Offset))
}
