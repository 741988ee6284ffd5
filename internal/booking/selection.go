package booking

import (
	"fmt"
	"sort"
	"time"
)

// Per-seat selection phases.
const (
	PhaseUnselected = "unselected"
	PhaseStartOnly  = "start_only"
	PhaseComplete   = "complete"
)

// Transition describes what a click did to a seat's selection.
type Transition string

const (
	// TransitionIgnored: the clicked slot is already reserved.
	TransitionIgnored Transition = "ignored"
	// TransitionStarted: Unselected -> StartOnly(t).
	TransitionStarted Transition = "started"
	// TransitionDeselected: StartOnly(t) clicked again at t -> Unselected.
	TransitionDeselected Transition = "deselected"
	// TransitionCompleted: StartOnly(t0) -> Complete(min, max).
	TransitionCompleted Transition = "completed"
	// TransitionRestarted: Complete -> StartOnly(t), previous range dropped.
	TransitionRestarted Transition = "restarted"
)

// SeatSelection is the in-progress range of one seat.  Start and End are
// the clicked slot instants; the effective booking interval of a complete
// selection ends one slot after End.
type SeatSelection struct {
	Phase string `json:"phase"`
	Start Clock  `json:"start"`
	End   Clock  `json:"end,omitempty"`
}

// SelectionState is a member's in-progress multi-seat booking request for
// one date.  It is a plain value: every transition returns a new state and
// leaves its input untouched, so it can be stored and reloaded between
// requests.  Unselected seats are not stored.
type SelectionState struct {
	SessionID string                   `json:"session_id"`
	UserID    uint64                   `json:"user_id"`
	Date      string                   `json:"date"`
	Seats     map[uint64]SeatSelection `json:"seats"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewSelection starts an empty selection for date.
func NewSelection(sessionID string, userID uint64, date string) (SelectionState, error) {
	d, err := ParseDate(date)
	if err != nil {
		return SelectionState{}, Invalid("date", err.Error())
	}
	return SelectionState{
		SessionID: sessionID,
		UserID:    userID,
		Date:      d,
		Seats:     map[uint64]SeatSelection{},
	}, nil
}

// Seat returns the selection of seatID (Unselected when absent).
func (s SelectionState) Seat(seatID uint64) SeatSelection {
	if sel, ok := s.Seats[seatID]; ok {
		return sel
	}
	return SeatSelection{Phase: PhaseUnselected}
}

func (s SelectionState) clone() SelectionState {
	out := s
	out.Seats = make(map[uint64]SeatSelection, len(s.Seats))
	for k, v := range s.Seats {
		out.Seats[k] = v
	}
	return out
}

// Click applies one slot click for seatID at instant t.
//
//  1. t already reserved for seatID: ignored, state unchanged.
//  2. Unselected: StartOnly(t).
//  3. StartOnly(t0), t == t0: Unselected.
//  4. StartOnly(t0), t != t0: Complete(min(t0,t), max(t0,t)).
//  5. Complete: StartOnly(t), the previous range is discarded.
//
// reserved may be nil when nothing is known to be taken.  Clicking an
// instant that is not a slot of g is a ValidationError.
func Click(g Grid, s SelectionState, seatID uint64, t Clock, reserved SlotMap) (SelectionState, Transition, error) {
	if seatID == 0 {
		return s, TransitionIgnored, Invalid("seat_id", "is required")
	}
	if !g.IsSlot(t) {
		return s, TransitionIgnored, Invalid("time", fmt.Sprintf("%s is not a slot between %s and %s", t, g.Open, g.Close))
	}
	if reserved.Reserved(seatID, t) {
		return s, TransitionIgnored, nil
	}

	next := s.clone()
	cur := s.Seat(seatID)
	var tr Transition
	switch cur.Phase {
	case PhaseStartOnly:
		if t == cur.Start {
			delete(next.Seats, seatID)
			tr = TransitionDeselected
			break
		}
		lo, hi := cur.Start, t
		if hi < lo {
			lo, hi = hi, lo
		}
		next.Seats[seatID] = SeatSelection{Phase: PhaseComplete, Start: lo, End: hi}
		tr = TransitionCompleted
	case PhaseComplete:
		next.Seats[seatID] = SeatSelection{Phase: PhaseStartOnly, Start: t}
		tr = TransitionRestarted
	default:
		next.Seats[seatID] = SeatSelection{Phase: PhaseStartOnly, Start: t}
		tr = TransitionStarted
	}
	return next, tr, nil
}

// ChangeDate moves the selection to another date, resetting every seat.
func ChangeDate(s SelectionState, date string) (SelectionState, error) {
	d, err := ParseDate(date)
	if err != nil {
		return s, Invalid("date", err.Error())
	}
	next := s
	next.Date = d
	next.Seats = map[uint64]SeatSelection{}
	return next, nil
}

// Effective returns the booking interval of a complete seat selection:
// [start, end + one slot).
func (s SelectionState) Effective(g Grid, seatID uint64) (Interval, bool) {
	sel := s.Seat(seatID)
	if sel.Phase != PhaseComplete {
		return Interval{}, false
	}
	return Interval{Start: sel.Start, End: g.SlotEnd(sel.End)}, true
}

// CompleteSeats lists seats in the Complete phase in ascending order.
func (s SelectionState) CompleteSeats() []uint64 {
	out := make([]uint64, 0, len(s.Seats))
	for id, sel := range s.Seats {
		if sel.Phase == PhaseComplete {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Request composes the booking request from every complete seat.
func (s SelectionState) Request(g Grid, headcount int, notes string) BookingRequest {
	req := BookingRequest{Date: s.Date, Headcount: headcount, Notes: notes}
	for _, id := range s.CompleteSeats() {
		iv, _ := s.Effective(g, id)
		req.Items = append(req.Items, RequestItem{SeatID: id, Start: iv.Start, End: iv.End})
	}
	return req
}

// Blocked lists complete seats whose effective interval covers a slot
// that reserved marks as taken.  Such a request would be rejected on
// submission, so clients can warn before the member submits.
func (s SelectionState) Blocked(g Grid, reserved SlotMap) []uint64 {
	var out []uint64
	for _, id := range s.CompleteSeats() {
		iv, _ := s.Effective(g, id)
		for _, t := range reserved.Occupied(id) {
			if t >= iv.Start && t < iv.End {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
