package router

import (
	"github.com/labstack/echo/v4"

	"github.com/seatclub/seat-reservation/internal/handler"
	"github.com/seatclub/seat-reservation/internal/middleware"
	"github.com/seatclub/seat-reservation/internal/model"
)

// RegisterStaff registers catalog maintenance and the front-desk board
// under /v1/admin.  STAFF role only.
func RegisterStaff(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
		limit)

	g.POST("/branches", a.CreateBranch)
	g.POST("/seats", a.CreateSeat)
	g.PATCH("/seats/:id", a.UpdateSeat)
	g.GET("/reservations", a.Board)
}
