package booking

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors shared by the engine, the stores and the handlers.
var (
	// ErrNotFound is returned when a reservation, seat or selection session
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrContention is returned by a store when a concurrent writer forced
	// the transaction to abort (deadlock, lock wait timeout).  The
	// coordinator retries once before reporting a conflict.
	ErrContention = errors.New("write contention")
	// ErrInvalidInterval marks a candidate interval whose start is not
	// before its end.
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")
)

// FieldError names one offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input.  It is never retried.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field problem.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// OrNil returns nil when no problems were recorded so callers can write
// `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// ConflictError reports that one or more requested seats overlap an
// existing confirmed reservation at submission time.
type ConflictError struct {
	Date    string
	SeatIDs []uint64
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.SeatIDs))
	for _, id := range e.SeatIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	return fmt.Sprintf("reservation conflict on %s for seat(s) %s", e.Date, strings.Join(ids, ","))
}

// NewConflictError builds a ConflictError with de-duplicated, sorted seat ids.
func NewConflictError(date string, seatIDs ...uint64) *ConflictError {
	seen := make(map[uint64]struct{}, len(seatIDs))
	out := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return &ConflictError{Date: date, SeatIDs: out}
}

// IsValidation reports whether err is (or wraps) a ValidationError or an
// invalid interval.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, ErrInvalidInterval)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
