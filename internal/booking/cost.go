package booking

import (
	"fmt"
	"math"

	"github.com/seatclub/seat-reservation/internal/model"
)

// Cost prices one seat for one interval: rate per minute times the
// interval length, rounded to the nearest whole currency unit.
func Cost(seat model.Seat, iv Interval) (int64, error) {
	if iv.Start >= iv.End {
		return 0, ErrInvalidInterval
	}
	return int64(math.Round(seat.RatePerMinute * float64(iv.Minutes()))), nil
}

// LineQuote is the priced form of one booking request item.
type LineQuote struct {
	SeatID   uint64 `json:"seat_id"`
	SeatName string `json:"seat_name"`
	Start    Clock  `json:"start_time"`
	End      Clock  `json:"end_time"`
	Minutes  int    `json:"minutes"`
	Cost     int64  `json:"cost"`
}

// Quote sums duration and cost over a booking request.
type Quote struct {
	Lines        []LineQuote `json:"lines"`
	TotalMinutes int         `json:"total_minutes"`
	TotalCost    int64       `json:"total_cost"`
}

// QuoteRequest prices every item of req against the seat catalog.  An
// item whose seat is missing from seats yields ErrNotFound.
func QuoteRequest(seats map[uint64]model.Seat, req BookingRequest) (Quote, error) {
	q := Quote{Lines: make([]LineQuote, 0, len(req.Items))}
	for _, it := range req.Items {
		seat, ok := seats[it.SeatID]
		if !ok {
			return Quote{}, fmt.Errorf("seat %d: %w", it.SeatID, ErrNotFound)
		}
		iv := it.Interval()
		c, err := Cost(seat, iv)
		if err != nil {
			return Quote{}, fmt.Errorf("seat %d: %w", it.SeatID, err)
		}
		q.Lines = append(q.Lines, LineQuote{
			SeatID:   seat.ID,
			SeatName: seat.Name,
			Start:    iv.Start,
			End:      iv.End,
			Minutes:  iv.Minutes(),
			Cost:     c,
		})
		q.TotalMinutes += iv.Minutes()
		q.TotalCost += c
	}
	return q, nil
}
