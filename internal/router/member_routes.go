package router

import (
	"github.com/labstack/echo/v4"

	"github.com/seatclub/seat-reservation/internal/handler"
	"github.com/seatclub/seat-reservation/internal/middleware"
	"github.com/seatclub/seat-reservation/internal/model"
)

// RegisterMember registers the booking endpoints.  Every route requires
// a valid access token; staff may book like members.
func RegisterMember(e *echo.Echo, res *handler.ReservationHandler, cat *handler.CatalogHandler, sel *handler.SelectionHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleMember, model.RoleStaff),
		limit)

	g.GET("/reservations", res.List)
	g.POST("/reservations", res.Create)
	g.POST("/reservations/batch", res.Batch)
	g.GET("/reservations/:id", res.Get)
	g.PATCH("/reservations/:id", res.Patch)
	g.DELETE("/reservations/:id", res.Cancel)

	g.GET("/seats", cat.Seats)
	g.POST("/seats", cat.Preview)
	g.GET("/availability", cat.Availability)

	g.POST("/selections", sel.Create)
	g.GET("/selections/:id", sel.Get)
	g.POST("/selections/:id/clicks", sel.Click)
	g.PUT("/selections/:id/date", sel.ChangeDate)
	g.POST("/selections/:id/submit", sel.Submit)
	g.DELETE("/selections/:id", sel.Discard)
}
