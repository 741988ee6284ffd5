// Package service coordinates the booking engine with storage: it runs
// submissions inside per seat+date critical sections, answers catalog
// and availability queries and keeps selection sessions.
package service

import (
	"context"
	"time"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/queue"
)

// ReservationTx is the view of the reservation table available inside a
// seat lock.  Reads observe every write committed before the lock was
// taken.
type ReservationTx interface {
	// Confirmed returns the confirmed reservations of seatIDs on date.
	Confirmed(ctx context.Context, date string, seatIDs []uint64) ([]model.Reservation, error)
	// Insert stores every record or none.
	Insert(ctx context.Context, rs []model.Reservation) error
	// Cancel moves a confirmed reservation to cancelled.  It reports false
	// when the reservation is no longer confirmed.
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
	// SetNotes replaces the notes of reservation id.
	SetNotes(ctx context.Context, id, notes string, at time.Time) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	// WithSeatLock runs fn while holding exclusive write access to every
	// (seat, date) pair of seatIDs.  fn's writes commit when it returns nil
	// and are discarded otherwise.  A store may return booking.ErrContention
	// when a concurrent writer forced an abort.
	WithSeatLock(ctx context.Context, date string, seatIDs []uint64, fn func(ReservationTx) error) error
	Get(ctx context.Context, id string) (model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64, f ReservationFilter) ([]model.Reservation, error)
	// ConfirmedBetween returns the confirmed reservations of seatIDs on
	// every day in [from, to].  An empty seatIDs means every seat.
	ConfirmedBetween(ctx context.Context, from, to string, seatIDs []uint64) ([]model.Reservation, error)
	UpdateNotes(ctx context.Context, id, notes string, at time.Time) error
	// CompletePast marks confirmed reservations that ended before
	// (today, minute) as completed and returns how many changed.
	CompletePast(ctx context.Context, today string, minute int, at time.Time) (int64, error)
}

// ReservationFilter narrows a member's reservation listing.  Empty
// fields do not filter.
type ReservationFilter struct {
	Status   string
	DateFrom string
	DateTo   string
}

// SeatFilter narrows a catalog listing.
type SeatFilter struct {
	BranchID uint64
	Status   string
}

// SeatCatalog is read access to the staff-maintained seat catalog.
type SeatCatalog interface {
	ListSeats(ctx context.Context, f SeatFilter) ([]model.Seat, error)
	// GetSeats returns the seats found among ids; missing ids are absent
	// from the map.
	GetSeats(ctx context.Context, ids []uint64) (map[uint64]model.Seat, error)
}

// EventPublisher delivers reservation events.  Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// SelectionStore keeps selection sessions between requests.
type SelectionStore interface {
	Save(ctx context.Context, s booking.SelectionState, ttl time.Duration) error
	// Load returns booking.ErrNotFound for unknown or expired sessions.
	Load(ctx context.Context, id string) (booking.SelectionState, error)
	Delete(ctx context.Context, id string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }
