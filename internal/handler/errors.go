// Package handler holds the echo HTTP handlers.  Handlers bind and
// validate input, call a service and translate errors once at the edge.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/middleware"
)

// writeError maps a service error onto an HTTP response.  Unknown errors
// are logged and reported as 500 without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var verr *booking.ValidationError
	var cerr *booking.ConflictError
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &herr):
		return c.JSON(herr.Code, echo.Map{"error": herr.Message})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, booking.ErrInvalidInterval):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "seat already reserved for the requested time",
			"date":     cerr.Date,
			"seat_ids": cerr.SeatIDs,
		})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if log != nil {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// errUnauthenticated is returned by getUserID when JWTAuth did not run.
var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")

// getUserID returns the member id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errUnauthenticated
	}
	return id, nil
}

// bind decodes the body into req and runs the registered validator.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return booking.Invalid("body", "invalid JSON body")
	}
	return c.Validate(req)
}

// queryUint parses an optional unsigned query parameter; "" yields 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, booking.Invalid(name, "must be a positive integer")
	}
	return n, nil
}

// pathUint parses a numeric path parameter.  A malformed id is a 404.
func pathUint(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, booking.ErrNotFound
	}
	return n, nil
}

// parseClocks parses "HH:MM" start and end inputs, reporting both fields.
func parseClocks(startField, start, endField, end string) (booking.Clock, booking.Clock, error) {
	verr := &booking.ValidationError{}
	s, err := booking.ParseClock(start)
	if err != nil {
		verr.Add(startField, err.Error())
	}
	e, err := booking.ParseClock(end)
	if err != nil {
		verr.Add(endField, err.Error())
	}
	return s, e, verr.OrNil()
}
