package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
)

// ReservationHandler serves /v1/reservations.  Every route requires an
// authenticated member and only ever touches the caller's reservations.
type ReservationHandler struct {
	Svc *service.ReservationService
	Log *zap.Logger
}

func NewReservationHandler(svc *service.ReservationService, log *zap.Logger) *ReservationHandler {
	log = orNop(log)
	return &ReservationHandler{Svc: svc, Log: log}
}

// ----- DTOs -----

type createReservationReq struct {
	SeatID    uint64 `json:"seatId" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type batchItemReq struct {
	SeatID    uint64 `json:"seatId" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

type batchReservationReq struct {
	Date      string         `json:"date" validate:"required"`
	Headcount int            `json:"headcount" validate:"gte=0"`
	Items     []batchItemReq `json:"items" validate:"required,min=1,dive"`
	Notes     string         `json:"notes" validate:"max=1000"`
}

type patchReservationReq struct {
	Notes  *string `json:"notes"`
	Status *string `json:"status"`
}

// reservationView adds wall-clock start and end to a stored reservation.
type reservationView struct {
	model.Reservation
	StartTime booking.Clock `json:"start_time"`
	EndTime   booking.Clock `json:"end_time"`
}

func viewOf(r model.Reservation) reservationView {
	return reservationView{Reservation: r, StartTime: booking.Clock(r.StartMinute), EndTime: booking.Clock(r.EndMinute)}
}

func viewsOf(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, viewOf(r))
	}
	return out
}

// ----- handlers -----

// List: GET /v1/reservations?status&dateFrom&dateTo
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rs, err := h.Svc.List(c.Request().Context(), uid, service.ReservationFilter{
		Status:   c.QueryParam("status"),
		DateFrom: c.QueryParam("dateFrom"),
		DateTo:   c.QueryParam("dateTo"),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": viewsOf(rs)})
}

// Create: POST /v1/reservations books a single seat interval.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	start, end, err := parseClocks("startTime", req.StartTime, "endTime", req.EndTime)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rs, err := h.Svc.Submit(c.Request().Context(), uid, booking.BookingRequest{
		Date:      req.Date,
		Headcount: 1,
		Notes:     req.Notes,
		Items:     []booking.RequestItem{{SeatID: req.SeatID, Start: start, End: end}},
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation": viewOf(rs[0])})
}

// Batch: POST /v1/reservations/batch books several seat intervals on one
// date, all or nothing.
func (h *ReservationHandler) Batch(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req batchReservationReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	breq := booking.BookingRequest{Date: req.Date, Headcount: req.Headcount, Notes: req.Notes}
	verr := &booking.ValidationError{}
	for i, it := range req.Items {
		start, end, err := parseClocks(
			itemField(i, "startTime"), it.StartTime,
			itemField(i, "endTime"), it.EndTime)
		var v *booking.ValidationError
		if errors.As(err, &v) {
			verr.Fields = append(verr.Fields, v.Fields...)
			continue
		}
		breq.Items = append(breq.Items, booking.RequestItem{SeatID: it.SeatID, Start: start, End: end})
	}
	if err := verr.OrNil(); err != nil {
		return writeError(c, h.Log, err)
	}
	rs, err := h.Svc.Submit(c.Request().Context(), uid, breq)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": viewsOf(rs)})
}

// Get: GET /v1/reservations/:id
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Svc.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(r)})
}

// Patch: PATCH /v1/reservations/:id edits notes or cancels.
func (h *ReservationHandler) Patch(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req patchReservationReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Svc.Update(c.Request().Context(), uid, c.Param("id"), service.Patch{Notes: req.Notes, Status: req.Status})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(r)})
}

// Cancel: DELETE /v1/reservations/:id sets the status to cancelled.  The
// row is kept.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Svc.Cancel(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": viewOf(r)})
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
