package booking

import (
	"sort"

	"github.com/seatclub/seat-reservation/internal/model"
)

// Coarse per-date availability levels for calendar display.
const (
	StatusAvailable = "available"
	StatusLimited   = "limited"
	StatusBooked    = "booked"
)

// DefaultLimitedThreshold marks a date as limited when fewer than a
// quarter of its seat-slots are free.
const DefaultLimitedThreshold = 0.25

// SlotMap records, per seat, which slot instants of the grid are covered
// by a confirmed reservation.  Every grid slot of every requested seat is
// present, so a missing entry means "not part of the grid".
type SlotMap map[uint64]map[Clock]bool

// Reserved reports whether slot t of seatID is taken.
func (m SlotMap) Reserved(seatID uint64, t Clock) bool {
	return m[seatID][t]
}

// Occupied lists the reserved slot instants of seatID in ascending order.
func (m SlotMap) Occupied(seatID uint64) []Clock {
	out := make([]Clock, 0)
	for t, taken := range m[seatID] {
		if taken {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FreeCount returns the number of free slots of seatID.
func (m SlotMap) FreeCount(seatID uint64) int {
	n := 0
	for _, taken := range m[seatID] {
		if !taken {
			n++
		}
	}
	return n
}

// FullyBooked reports whether seatID has no free slot left.
func (m SlotMap) FullyBooked(seatID uint64) bool {
	return m.FreeCount(seatID) == 0
}

// BuildSlotMap derives the per-slot reserved map for seatIDs on date from
// the confirmed reservations.  A slot is reserved when its start instant
// lies inside a confirmed reservation's [start, end).
func BuildSlotMap(g Grid, date string, seatIDs []uint64, reservations []model.Reservation) SlotMap {
	slots := g.Slots()
	m := make(SlotMap, len(seatIDs))
	for _, id := range seatIDs {
		row := make(map[Clock]bool, len(slots))
		for _, t := range slots {
			row[t] = false
		}
		m[id] = row
	}
	for _, r := range reservations {
		if r.Date != date || !r.IsConfirmed() {
			continue
		}
		row, ok := m[r.SeatID]
		if !ok {
			continue
		}
		iv := IntervalOf(r)
		for _, t := range slots {
			if t >= iv.Start && t < iv.End {
				row[t] = true
			}
		}
	}
	return m
}

// DateAvailability is the calendar summary of one day.
type DateAvailability struct {
	Date       string `json:"date"`
	Status     string `json:"status"`
	FreeSlots  int    `json:"free_slots"`
	TotalSlots int    `json:"total_slots"`
}

// Summarize classifies a day from the same confirmed reservations that
// feed the slot grid.  A day with no free seat-slot (or no seats at all)
// is booked; a day whose free fraction is below threshold is limited.
func Summarize(g Grid, date string, seatIDs []uint64, reservations []model.Reservation, threshold float64) DateAvailability {
	m := BuildSlotMap(g, date, seatIDs, reservations)
	total := len(seatIDs) * g.SlotCount()
	free := 0
	for _, id := range seatIDs {
		free += m.FreeCount(id)
	}
	out := DateAvailability{Date: date, FreeSlots: free, TotalSlots: total}
	switch {
	case free == 0:
		out.Status = StatusBooked
	case float64(free)/float64(total) < threshold:
		out.Status = StatusLimited
	default:
		out.Status = StatusAvailable
	}
	return out
}
