package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/service"
)

// SelectionHandler serves /v1/selections, the click-driven range picker.
type SelectionHandler struct {
	Svc *service.SelectionService
	Log *zap.Logger
}

func NewSelectionHandler(svc *service.SelectionService, log *zap.Logger) *SelectionHandler {
	log = orNop(log)
	return &SelectionHandler{Svc: svc, Log: log}
}

type selectionDateReq struct {
	Date string `json:"date" validate:"required"`
}

type clickReq struct {
	SeatID uint64 `json:"seatId" validate:"required"`
	Time   string `json:"time" validate:"required"`
}

type submitSelectionReq struct {
	Headcount int    `json:"headcount" validate:"gte=0"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// Create: POST /v1/selections
func (h *SelectionHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req selectionDateReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	v, err := h.Svc.Create(c.Request().Context(), uid, req.Date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Get: GET /v1/selections/:id
func (h *SelectionHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	v, err := h.Svc.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Click: POST /v1/selections/:id/clicks
func (h *SelectionHandler) Click(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req clickReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	at, err := booking.ParseClock(req.Time)
	if err != nil {
		return writeError(c, h.Log, booking.Invalid("time", err.Error()))
	}
	v, tr, err := h.Svc.Click(c.Request().Context(), uid, c.Param("id"), req.SeatID, at)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"transition":       tr,
		"selection":        v.State,
		"quote":            v.Quote,
		"blocked_seat_ids": v.Blocked,
	})
}

// ChangeDate: PUT /v1/selections/:id/date clears every seat.
func (h *SelectionHandler) ChangeDate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req selectionDateReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	v, err := h.Svc.ChangeDate(c.Request().Context(), uid, c.Param("id"), req.Date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Submit: POST /v1/selections/:id/submit books the complete seats.  The
// session is gone afterwards whatever the outcome.
func (h *SelectionHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req submitSelectionReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	rs, err := h.Svc.Submit(c.Request().Context(), uid, c.Param("id"), req.Headcount, req.Notes)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": viewsOf(rs)})
}

// Discard: DELETE /v1/selections/:id
func (h *SelectionHandler) Discard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := h.Svc.Discard(c.Request().Context(), uid, c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
