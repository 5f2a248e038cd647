package scheduling

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
	svc            *Service
	reminderWindow time.Duration
}

func NewHandler(svc *Service, reminderWindow time.Duration) *Handler {
	return &Handler{svc: svc, reminderWindow: reminderWindow}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "therapist", "reception"))
	staff.GET("/bookings", h.ListBookings)
	staff.GET("/bookings/:id", h.GetBooking)
	staff.POST("/bookings", h.CreateBooking)
	staff.PUT("/bookings/:id", h.UpdateBooking)
	staff.DELETE("/bookings/:id", h.DeleteBooking)
	staff.PATCH("/bookings/:id/status", h.UpdateBookingStatus)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/bookings/reminders/run", h.RunReminders)
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBooking(c.Request().Context(), &b); err != nil {
		if errors.Is(err, ErrOverlap) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBookings(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		bookings, total, err := h.svc.ListBookingsByPatient(ctx, pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(bookings, total, pg.Limit, pg.Offset))
	}

	if therapistID := c.QueryParam("therapist_id"); therapistID != "" {
		tid, err := uuid.Parse(therapistID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
		}
		bookings, total, err := h.svc.ListBookingsByTherapist(ctx, tid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(bookings, total, pg.Limit, pg.Offset))
	}

	bookings, total, err := h.svc.ListBookings(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bookings, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID = id
	if err := h.svc.UpdateBooking(c.Request().Context(), &b); err != nil {
		if errors.Is(err, ErrOverlap) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpdateBookingStatus(c echo.Context) error {
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
	b, err := h.svc.UpdateBookingStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteBooking(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RunReminders(c echo.Context) error {
	sent, err := h.svc.SendReminders(c.Request().Context(), h.reminderWindow)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"sent": sent})
}
