package booking

import "github.com/seatclub/seat-reservation/internal/model"

// Overlaps is the canonical half-open interval intersection test.  Adjacent
// intervals ([10:00,11:00) and [11:00,12:00)) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// IntervalOf returns the interval covered by a persisted reservation.
func IntervalOf(r model.Reservation) Interval {
	return Interval{Start: Clock(r.StartMinute), End: Clock(r.EndMinute)}
}

// HasConflict reports whether candidate overlaps any confirmed reservation
// of seatID on date.  Reservations for other seats, other dates or with a
// non-confirmed status are ignored, so callers may pass a superset.
func HasConflict(seatID uint64, date string, candidate Interval, existing []model.Reservation) (bool, error) {
	found, err := Conflicting(seatID, date, candidate, existing)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Conflicting returns the confirmed reservations of seatID on date that
// overlap candidate.
func Conflicting(seatID uint64, date string, candidate Interval, existing []model.Reservation) ([]model.Reservation, error) {
	if candidate.Start >= candidate.End {
		return nil, ErrInvalidInterval
	}
	var out []model.Reservation
	for _, r := range existing {
		if r.SeatID != seatID || r.Date != date || !r.IsConfirmed() {
			continue
		}
		if Overlaps(IntervalOf(r), candidate) {
			out = append(out, r)
		}
	}
	return out, nil
}
