package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/repository"
	"github.com/seatclub/seat-reservation/internal/service"
)

// SeatAdmin is the writable seat catalog.  Implemented by
// repository.SeatRepo and repository.MemoryCatalog.
type SeatAdmin interface {
	Get(ctx context.Context, id uint64) (model.Seat, error)
	Create(ctx context.Context, s *model.Seat) error
	Update(ctx context.Context, id uint64, p model.SeatPatch) (model.Seat, error)
}

// AdminHandler serves staff-only catalog maintenance.
type AdminHandler struct {
	Svc      *service.ReservationService
	Seats    SeatAdmin
	Branches BranchStore
	Log      *zap.Logger
}

func NewAdminHandler(svc *service.ReservationService, seats SeatAdmin, branches BranchStore, log *zap.Logger) *AdminHandler {
	log = orNop(log)
	return &AdminHandler{Svc: svc, Seats: seats, Branches: branches, Log: log}
}

type createBranchReq struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"max=255"`
}

type createSeatReq struct {
	BranchID      uint64  `json:"branchId" validate:"required"`
	Name          string  `json:"name" validate:"required,max=60"`
	RatePerMinute float64 `json:"ratePerMinute" validate:"gte=0"`
	HourlyRate    int64   `json:"hourlyRate" validate:"gte=0"`
	Status        string  `json:"status" validate:"omitempty,oneof=available in-use maintenance"`
}

type patchSeatReq struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=60"`
	RatePerMinute *float64 `json:"ratePerMinute" validate:"omitempty,gte=0"`
	HourlyRate    *int64   `json:"hourlyRate" validate:"omitempty,gte=0"`
	Status        *string  `json:"status" validate:"omitempty,oneof=available in-use maintenance"`
}

// CreateBranch: POST /v1/admin/branches
func (h *AdminHandler) CreateBranch(c echo.Context) error {
	var req createBranchReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	b := model.Branch{Name: strings.TrimSpace(req.Name), Address: strings.TrimSpace(req.Address)}
	if err := h.Branches.Create(c.Request().Context(), &b); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"branch": b})
}

// CreateSeat: POST /v1/admin/seats
func (h *AdminHandler) CreateSeat(c echo.Context) error {
	var req createSeatReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ctx := c.Request().Context()
	if _, err := h.Branches.Get(ctx, req.BranchID); err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return writeError(c, h.Log, booking.Invalid("branchId", "unknown branch"))
		}
		return writeError(c, h.Log, err)
	}
	s := model.Seat{
		BranchID:      req.BranchID,
		Name:          strings.TrimSpace(req.Name),
		RatePerMinute: req.RatePerMinute,
		HourlyRate:    req.HourlyRate,
		Status:        req.Status,
	}
	if s.Status == "" {
		s.Status = model.SeatAvailable
	}
	if err := h.Seats.Create(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrSeatNameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return writeError(c, h.Log, err)
	}
	h.Log.Info("seat created", zap.Uint64("seat_id", s.ID), zap.Uint64("branch_id", s.BranchID))
	return c.JSON(http.StatusCreated, echo.Map{"seat": s})
}

// UpdateSeat: PATCH /v1/admin/seats/:id changes name, rates or status.
// Existing reservations are untouched when a seat goes into maintenance.
func (h *AdminHandler) UpdateSeat(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req patchSeatReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	p := model.SeatPatch{Name: req.Name, RatePerMinute: req.RatePerMinute, HourlyRate: req.HourlyRate, Status: req.Status}
	if p.Name == nil && p.RatePerMinute == nil && p.HourlyRate == nil && p.Status == nil {
		return writeError(c, h.Log, booking.Invalid("body", "nothing to update"))
	}
	s, err := h.Seats.Update(c.Request().Context(), id, p)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return writeError(c, h.Log, err)
	}
	h.Log.Info("seat updated", zap.Uint64("seat_id", s.ID), zap.String("status", s.Status))
	return c.JSON(http.StatusOK, echo.Map{"seat": s})
}

// Board: GET /v1/admin/reservations?date&branchId lists the confirmed
// reservations of one day.
func (h *AdminHandler) Board(c echo.Context) error {
	branchID, err := queryUint(c, "branchId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rs, err := h.Svc.Board(c.Request().Context(), branchID, c.QueryParam("date"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewsOf(rs), "count": len(rs)})
}
