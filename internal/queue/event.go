// Package queue carries reservation lifecycle events over RabbitMQ.
package queue

import (
	"time"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
)

// Event types, also used as routing keys.
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
)

// SeatInterval is one booked seat range inside an event.
type SeatInterval struct {
	ReservationID string `json:"reservation_id"`
	SeatID        uint64 `json:"seat_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// ReservationEvent is published after a booking request commits or a
// reservation is cancelled.  It carries enough for downstream consumers
// to log or notify without querying the database.  Headcount is the
// party size given with the booking request; it is not stored with the
// reservations and is zero on cancellations.
type ReservationEvent struct {
	Type       string         `json:"type"`
	UserID     uint64         `json:"user_id"`
	Date       string         `json:"date"`
	Headcount  int            `json:"headcount,omitempty"`
	Seats      []SeatInterval `json:"seats"`
	OccurredAt string         `json:"occurred_at"`
}

// NewReservationEvent builds an event of type typ for rs.  All records are
// expected to share the same member and date.
func NewReservationEvent(typ string, rs []model.Reservation, at time.Time) ReservationEvent {
	ev := ReservationEvent{Type: typ, OccurredAt: at.UTC().Format(time.RFC3339)}
	for _, r := range rs {
		ev.UserID = r.UserID
		ev.Date = r.Date
		iv := booking.IntervalOf(r)
		ev.Seats = append(ev.Seats, SeatInterval{
			ReservationID: r.ID,
			SeatID:        r.SeatID,
			StartTime:     iv.Start.String(),
			EndTime:       iv.End.String(),
		})
	}
	return ev
}
