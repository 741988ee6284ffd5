// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/seatclub/seat-reservation/internal/handler"
	"github.com/seatclub/seat-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers the account endpoints.  Register and login live
// under /v1/auth; /v1/me needs a valid access token.  limit runs after
// authentication so per-user rate limit keys see the caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), limit)
}

// RegisterPublic registers unauthenticated browse endpoints.  cache is
// applied to the branch list only; seat occupancy changes too often.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, cache, limit echo.MiddlewareFunc) {
	e.GET("/v1/branches", cat.ListBranches, limit, cache)
}
