package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
)

// BranchStore is the branch catalog.  Implemented by repository.BranchRepo
// and repository.MemoryBranches.
type BranchStore interface {
	List(ctx context.Context) ([]model.Branch, error)
	Get(ctx context.Context, id uint64) (model.Branch, error)
	Create(ctx context.Context, b *model.Branch) error
}

// CatalogHandler serves seat listings, interval previews, the date
// availability calendar and the public branch list.
type CatalogHandler struct {
	Svc      *service.ReservationService
	Branches BranchStore
	Log      *zap.Logger
}

func NewCatalogHandler(svc *service.ReservationService, branches BranchStore, log *zap.Logger) *CatalogHandler {
	log = orNop(log)
	return &CatalogHandler{Svc: svc, Branches: branches, Log: log}
}

type previewReq struct {
	BranchID  uint64 `json:"branchId"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// Seats: GET /v1/seats?date&status&branchId
func (h *CatalogHandler) Seats(c echo.Context) error {
	branchID, err := queryUint(c, "branchId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	seats, err := h.Svc.Seats(c.Request().Context(), service.SeatQuery{
		BranchID: branchID,
		Status:   c.QueryParam("status"),
		Date:     c.QueryParam("date"),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// Preview: POST /v1/seats reports per-seat availability and cost for one
// interval.  Nothing is persisted.
func (h *CatalogHandler) Preview(c echo.Context) error {
	var req previewReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	start, end, err := parseClocks("startTime", req.StartTime, "endTime", req.EndTime)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out, err := h.Svc.Preview(c.Request().Context(), service.PreviewQuery{
		BranchID: req.BranchID, Date: req.Date, Start: start, End: end,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": req.Date, "start_time": start, "end_time": end, "seats": out})
}

// Availability: GET /v1/availability?from&to&branchId
func (h *CatalogHandler) Availability(c echo.Context) error {
	branchID, err := queryUint(c, "branchId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if to == "" {
		to = from
	}
	days, err := h.Svc.Calendar(c.Request().Context(), branchID, from, to)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": days})
}

// Branches: GET /v1/branches (public).
func (h *CatalogHandler) ListBranches(c echo.Context) error {
	out, err := h.Branches.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"branches": out})
}
