package booking

import (
	"fmt"
	"sort"
)

// RequestItem is one seat's interval inside a booking request.
type RequestItem struct {
	SeatID uint64 `json:"seat_id"`
	Start  Clock  `json:"start_time"`
	End    Clock  `json:"end_time"`
}

// Interval returns the item's half-open interval.
func (it RequestItem) Interval() Interval { return Interval{Start: it.Start, End: it.End} }

// BookingRequest is the set of per-seat intervals submitted together.  It
// is accepted or rejected as a whole.
type BookingRequest struct {
	Date      string        `json:"date"`
	Headcount int           `json:"headcount"`
	Notes     string        `json:"notes,omitempty"`
	Items     []RequestItem `json:"items"`
}

// SeatIDs lists the distinct seats of the request in ascending order.
func (r BookingRequest) SeatIDs() []uint64 {
	seen := make(map[uint64]struct{}, len(r.Items))
	out := make([]uint64, 0, len(r.Items))
	for _, it := range r.Items {
		if _, ok := seen[it.SeatID]; ok {
			continue
		}
		seen[it.SeatID] = struct{}{}
		out = append(out, it.SeatID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MaxNotesLength bounds the free-text notes stored with a reservation.
const MaxNotesLength = 1000

// Validate checks the structural preconditions of a submission: a valid
// date, at least one item, every interval non-empty, aligned and inside
// the operating window, and no two items of the same seat overlapping.
// All offending entries are reported together.
func (r BookingRequest) Validate(g Grid) error {
	verr := &ValidationError{}
	if _, err := ParseDate(r.Date); err != nil {
		verr.Add("date", err.Error())
	}
	if len(r.Items) == 0 {
		verr.Add("items", "at least one seat interval is required")
	}
	if r.Headcount < 0 {
		verr.Add("headcount", "must not be negative")
	}
	if len(r.Notes) > MaxNotesLength {
		verr.Add("notes", fmt.Sprintf("must be at most %d characters", MaxNotesLength))
	}
	for i, it := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.SeatID == 0 {
			verr.Add(field+".seat_id", "is required")
		}
		for _, p := range g.ValidateInterval(it.Interval()) {
			verr.Add(field, p)
		}
		for j := 0; j < i; j++ {
			prev := r.Items[j]
			if prev.SeatID == it.SeatID && it.Start < it.End && prev.Start < prev.End && Overlaps(prev.Interval(), it.Interval()) {
				verr.Add(field, fmt.Sprintf("overlaps items[%d] for the same seat", j))
			}
		}
	}
	return verr.OrNil()
}
