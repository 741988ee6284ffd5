package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
)

// MaxCalendarDays bounds a calendar query.
const MaxCalendarDays = 62

// SeatQuery selects catalog seats and, when Date is set, their occupancy.
type SeatQuery struct {
	BranchID uint64
	Status   string
	Date     string
}

// SeatAvailability is a catalog seat with its occupancy on one day.
type SeatAvailability struct {
	model.Seat
	Date          string          `json:"date,omitempty"`
	OccupiedSlots []booking.Clock `json:"occupied_slots,omitempty"`
	FreeSlots     int             `json:"free_slots"`
	FullyBooked   bool            `json:"fully_booked"`
}

// Seats lists catalog seats.  With a date it adds the reserved slot
// instants of each seat on that day.
func (s *ReservationService) Seats(ctx context.Context, q SeatQuery) ([]SeatAvailability, error) {
	verr := &booking.ValidationError{}
	if q.Status != "" && !model.ValidSeatStatus(q.Status) {
		verr.Add("status", fmt.Sprintf("unknown seat status %q", q.Status))
	}
	if q.Date != "" {
		if _, err := booking.ParseDate(q.Date); err != nil {
			verr.Add("date", err.Error())
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	seats, err := s.catalog.ListSeats(ctx, SeatFilter{BranchID: q.BranchID, Status: q.Status})
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	out := make([]SeatAvailability, 0, len(seats))
	if q.Date == "" {
		for _, seat := range seats {
			out = append(out, SeatAvailability{Seat: seat, FreeSlots: s.grid.SlotCount()})
		}
		return out, nil
	}

	ids := seatIDsOf(seats)
	m, err := s.ReservedSlots(ctx, q.Date, ids)
	if err != nil {
		return nil, err
	}
	for _, seat := range seats {
		out = append(out, SeatAvailability{
			Seat:          seat,
			Date:          q.Date,
			OccupiedSlots: m.Occupied(seat.ID),
			FreeSlots:     m.FreeCount(seat.ID),
			FullyBooked:   m.FullyBooked(seat.ID),
		})
	}
	return out, nil
}

// ReservedSlots reads the confirmed set of seatIDs on date and derives the
// per-slot reserved map.
func (s *ReservationService) ReservedSlots(ctx context.Context, date string, seatIDs []uint64) (booking.SlotMap, error) {
	if len(seatIDs) == 0 {
		return booking.SlotMap{}, nil
	}
	rs, err := s.store.ConfirmedBetween(ctx, date, date, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return booking.BuildSlotMap(s.grid, date, seatIDs, rs), nil
}

// PreviewQuery asks which seats of a branch are free for one interval.
type PreviewQuery struct {
	BranchID uint64
	Date     string
	Start    booking.Clock
	End      booking.Clock
}

// SeatPreview is one seat's answer to a PreviewQuery.  Nothing is
// persisted.
type SeatPreview struct {
	Seat      model.Seat `json:"seat"`
	Available bool       `json:"available"`
	Reason    string     `json:"reason,omitempty"`
	Minutes   int        `json:"minutes"`
	Cost      int64      `json:"cost"`
}

// Preview reports, for every seat of the branch, whether the interval is
// bookable and what it would cost.
func (s *ReservationService) Preview(ctx context.Context, q PreviewQuery) ([]SeatPreview, error) {
	iv := booking.Interval{Start: q.Start, End: q.End}
	verr := &booking.ValidationError{}
	if _, err := booking.ParseDate(q.Date); err != nil {
		verr.Add("date", err.Error())
	}
	for _, p := range s.grid.ValidateInterval(iv) {
		verr.Add("interval", p)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	seats, err := s.catalog.ListSeats(ctx, SeatFilter{BranchID: q.BranchID})
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	if len(seats) == 0 {
		return []SeatPreview{}, nil
	}
	existing, err := s.store.ConfirmedBetween(ctx, q.Date, q.Date, seatIDsOf(seats))
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	out := make([]SeatPreview, 0, len(seats))
	for _, seat := range seats {
		cost, err := booking.Cost(seat, iv)
		if err != nil {
			return nil, err
		}
		p := SeatPreview{Seat: seat, Available: true, Minutes: iv.Minutes(), Cost: cost}
		if seat.Status == model.SeatMaintenance {
			p.Available, p.Reason = false, "maintenance"
		} else if hit, err := booking.HasConflict(seat.ID, q.Date, iv, existing); err != nil {
			return nil, err
		} else if hit {
			p.Available, p.Reason = false, "reserved"
		}
		out = append(out, p)
	}
	return out, nil
}

// Calendar summarizes every day in [from, to] for the bookable seats of a
// branch (every branch when branchID is 0).  Seats under maintenance are
// left out of the totals.
func (s *ReservationService) Calendar(ctx context.Context, branchID uint64, from, to string) ([]booking.DateAvailability, error) {
	verr := &booking.ValidationError{}
	start, errFrom := time.Parse(booking.DateLayout, from)
	if errFrom != nil {
		verr.Add("from", fmt.Sprintf("invalid date %q: want YYYY-MM-DD", from))
	}
	end, errTo := time.Parse(booking.DateLayout, to)
	if errTo != nil {
		verr.Add("to", fmt.Sprintf("invalid date %q: want YYYY-MM-DD", to))
	}
	if errFrom == nil && errTo == nil {
		switch days := int(end.Sub(start).Hours()/24) + 1; {
		case days < 1:
			verr.Add("to", "must not be before from")
		case days > MaxCalendarDays:
			verr.Add("to", fmt.Sprintf("range must not exceed %d days", MaxCalendarDays))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	seats, err := s.catalog.ListSeats(ctx, SeatFilter{BranchID: branchID})
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	bookable := make([]uint64, 0, len(seats))
	for _, seat := range seats {
		if seat.Status != model.SeatMaintenance {
			bookable = append(bookable, seat.ID)
		}
	}
	var rs []model.Reservation
	if len(bookable) > 0 {
		rs, err = s.store.ConfirmedBetween(ctx, from, to, bookable)
		if err != nil {
			return nil, fmt.Errorf("load reservations: %w", err)
		}
	}
	byDay := make(map[string][]model.Reservation)
	for _, r := range rs {
		byDay[r.Date] = append(byDay[r.Date], r)
	}
	var out []booking.DateAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := d.Format(booking.DateLayout)
		out = append(out, booking.Summarize(s.grid, day, bookable, byDay[day], s.threshold))
	}
	return out, nil
}

// Board lists the confirmed reservations of a branch on one day, for
// front-desk staff.
func (s *ReservationService) Board(ctx context.Context, branchID uint64, date string) ([]model.Reservation, error) {
	if _, err := booking.ParseDate(date); err != nil {
		return nil, booking.Invalid("date", err.Error())
	}
	seats, err := s.catalog.ListSeats(ctx, SeatFilter{BranchID: branchID})
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	if len(seats) == 0 {
		return []model.Reservation{}, nil
	}
	rs, err := s.store.ConfirmedBetween(ctx, date, date, seatIDsOf(seats))
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].SeatID != rs[j].SeatID {
			return rs[i].SeatID < rs[j].SeatID
		}
		return rs[i].StartMinute < rs[j].StartMinute
	})
	return rs, nil
}

func seatIDsOf(seats []model.Seat) []uint64 {
	ids := make([]uint64, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}
	return ids
}
