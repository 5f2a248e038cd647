package billing

import (
	"errors"
	"net/http"
	"time"

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
	staff := api.Group("", auth.RequireRole("admin", "therapist", "reception"))
	staff.GET("/billing-codes", h.ListCodes)
	staff.GET("/billing-codes/:id", h.GetCode)
	staff.GET("/billing-sessions/:id", h.GetSession)
	staff.POST("/billing-sessions", h.CreateSession)
	staff.DELETE("/billing-sessions/:id", h.DeleteSession)
	staff.POST("/billing-sessions/:id/entries", h.AddEntry)
	staff.PUT("/billing-entries/:id", h.UpdateEntry)
	staff.DELETE("/billing-entries/:id", h.DeleteEntry)
	staff.GET("/billing-sessions", h.ListSessions)
	staff.GET("/invoices", h.ListInvoices)
	staff.GET("/invoices/:id", h.GetInvoice)
	staff.POST("/invoices", h.CreateInvoice)
	staff.PATCH("/invoices/:id/status", h.UpdateInvoiceStatus)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/billing-codes", h.CreateCode)
	admin.PUT("/billing-codes/:id", h.UpdateCode)
	admin.DELETE("/billing-codes/:id", h.DeleteCode)
}

func (h *Handler) CreateCode(c echo.Context) error {
	var code BillingCode
	if err := c.Bind(&code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCode(c.Request().Context(), &code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, code)
}

func (h *Handler) GetCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	code, err := h.svc.GetCode(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "billing code not found")
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) ListCodes(c echo.Context) error {
	pg := pagination.FromContext(c)
	codes, total, err := h.svc.ListCodes(c.Request().Context(), c.QueryParam("discipline"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(codes, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var code BillingCode
	if err := c.Bind(&code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code.ID = id
	if err := h.svc.UpdateCode(c.Request().Context(), &code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) DeleteCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCode(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateSession(c echo.Context) error {
	var sess BillingSession
	if err := c.Bind(&sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSession(c.Request().Context(), &sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "billing session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter is required")
	}
	pid, err := uuid.Parse(patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessionsByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSession(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddEntry(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e BillingEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.SessionID = sessionID
	if err := h.svc.AddEntry(c.Request().Context(), &e); err != nil {
		if errors.Is(err, ErrTotalMismatch) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e BillingEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateEntry(c.Request().Context(), &e); err != nil {
		if errors.Is(err, ErrTotalMismatch) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEntry(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type createInvoiceRequest struct {
	PatientID  uuid.UUID   `json:"patient_id"`
	SessionIDs []uuid.UUID `json:"session_ids"`
	DueDate    *time.Time  `json:"due_date"`
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), req.PatientID, req.SessionIDs, req.DueDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter is required")
	}
	pid, err := uuid.Parse(patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	invoices, total, err := h.svc.ListInvoicesByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateInvoiceStatus(c echo.Context) error {
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
	inv, err := h.svc.UpdateInvoiceStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, inv)
}
