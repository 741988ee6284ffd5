package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

// Health returns a health-check handler for load balancers.  Each pinger
// is probed with a short timeout; any failure turns the answer into 503.
func Health(pingers map[string]Pinger) echo.HandlerFunc {
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status, code := "ok", http.StatusOK
		checks := make(map[string]string, len(names))
		for _, name := range names {
			if err := pingers[name](ctx); err != nil {
				checks[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		return c.JSON(code, echo.Map{"status": status, "checks": checks})
	}
}
