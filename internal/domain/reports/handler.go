package reports

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hadadahealth/hadada/internal/platform/auth"
	"github.com/hadadahealth/hadada/internal/platform/pdf"
	"github.com/hadadahealth/hadada/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "therapist", "reception"))
	staff.POST("/reports", h.CreateReport)
	staff.GET("/reports", h.ListReports)
	staff.GET("/reports/:id", h.GetReport)
	staff.PUT("/reports/:id", h.UpdateReport)
	staff.DELETE("/reports/:id", h.DeleteReport)
	staff.POST("/reports/:id/status", h.TransitionStatus)
	staff.PUT("/reports/:id/content", h.UpdateContent)
	staff.GET("/reports/:id/pdf", h.ExportPDF)
	staff.GET("/report-templates", h.ListTemplates)
	staff.GET("/report-templates/:id", h.GetTemplate)
	staff.GET("/report-notifications", h.ListNotifications)
	staff.POST("/report-notifications/:id/read", h.MarkNotificationRead)
	staff.POST("/report-notifications/read-all", h.MarkAllNotificationsRead)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/report-templates", h.CreateTemplate)
	admin.PUT("/report-templates/:id", h.UpdateTemplate)
	admin.DELETE("/report-templates/:id", h.DeleteTemplate)
	admin.POST("/reports/overdue/notify", h.NotifyOverdue)
}

func (h *Handler) CreateReport(c echo.Context) error {
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateReport(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		reps, total, err := h.svc.ListReportsByPatient(ctx, id, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(reps, total, pg.Limit, pg.Offset))
	}
	if tid := c.QueryParam("therapist_id"); tid != "" {
		id, err := uuid.Parse(tid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
		}
		reps, total, err := h.svc.ListReportsByAssignee(ctx, id, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(reps, total, pg.Limit, pg.Offset))
	}

	reps, total, err := h.svc.ListReports(ctx, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reps, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var r Report
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateReport(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) TransitionStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	actorID, _ := uuid.Parse(auth.UserIDFromContext(ctx))
	actorName := auth.UserNameFromContext(ctx)

	r, err := h.svc.TransitionStatus(ctx, id, body.Status, actorID, actorName)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateContent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Content         map[string]string `json:"content"`
		AIGeneratedKeys []string          `json:"ai_generated_keys"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.UpdateContent(c.Request().Context(), id, body.Content, body.AIGeneratedKeys)
	if err != nil {
		if errors.Is(err, ErrReportClosed) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ExportPDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.svc.RenderPDF(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Render(&buf, doc); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="report-%s.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) NotifyOverdue(c echo.Context) error {
	n, err := h.svc.NotifyOverdue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"notified": n})
}

// -- Templates --

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t ReportTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report template not found")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t ReportTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTemplate(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	ts, total, err := h.svc.ListTemplates(c.Request().Context(), c.QueryParam("active") == "true", pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(ts, total, pg.Limit, pg.Offset))
}

// -- Notifications --

func (h *Handler) ListNotifications(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticated user id is not a uuid")
	}
	pg := pagination.FromContext(c)
	ns, total, err := h.svc.ListNotifications(c.Request().Context(), uid, c.QueryParam("unread") == "true", pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(ns, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkNotificationRead(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticated user id is not a uuid")
	}
	if err := h.svc.MarkAllNotificationsRead(c.Request().Context(), uid); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
