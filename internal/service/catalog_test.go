package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/service"
)

func TestSeatsWithOccupancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "22:00"), item(2, "12:00", "13:00"))); err != nil {
		t.Fatal(err)
	}
	seats, err := f.svc.Seats(ctx, service.SeatQuery{Date: day})
	if err != nil {
		t.Fatalf("Seats() error = %v", err)
	}
	if len(seats) != 3 {
		t.Fatalf("len(Seats()) = %d, want 3", len(seats))
	}
	byID := map[uint64]service.SeatAvailability{}
	for _, s := range seats {
		byID[s.ID] = s
	}
	if !byID[1].FullyBooked || byID[1].FreeSlots != 0 {
		t.Errorf("seat 1 = %+v, want fully booked", byID[1])
	}
	if got := byID[2].OccupiedSlots; len(got) != 2 || got[0] != booking.MustClock("12:00") || got[1] != booking.MustClock("12:30") {
		t.Errorf("seat 2 occupied = %v, want [12:00 12:30]", got)
	}
	if byID[3].FreeSlots != 24 {
		t.Errorf("seat 3 free = %d, want 24", byID[3].FreeSlots)
	}

	if _, err := f.svc.Seats(ctx, service.SeatQuery{Status: "broken"}); !booking.IsValidation(err) {
		t.Errorf("Seats(status=broken) error = %v, want validation error", err)
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:30", "11:00"))); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Preview(ctx, service.PreviewQuery{
		Date: day, Start: booking.MustClock("10:00"), End: booking.MustClock("11:00"),
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	want := map[uint64]string{1: "reserved", 2: "", 3: "maintenance"}
	for _, p := range got {
		if p.Reason != want[p.Seat.ID] || p.Available != (want[p.Seat.ID] == "") {
			t.Errorf("seat %d = available %v reason %q, want reason %q", p.Seat.ID, p.Available, p.Reason, want[p.Seat.ID])
		}
		if p.Cost != 600 || p.Minutes != 60 {
			t.Errorf("seat %d cost = %d for %d minutes, want 600 for 60", p.Seat.ID, p.Cost, p.Minutes)
		}
	}

	_, err = f.svc.Preview(ctx, service.PreviewQuery{Date: day, Start: booking.MustClock("11:00"), End: booking.MustClock("10:00")})
	if !booking.IsValidation(err) {
		t.Errorf("Preview(reversed) error = %v, want validation error", err)
	}
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Seats 1 and 2 are bookable; fill both on day, one on the next day.
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "22:00"), item(2, "10:00", "22:00"))); err != nil {
		t.Fatal(err)
	}
	next := booking.BookingRequest{Date: "2026-10-21", Items: []booking.RequestItem{
		item(1, "10:00", "22:00"), item(2, "10:00", "19:00"),
	}}
	if _, err := f.svc.Submit(ctx, 7, next); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Calendar(ctx, 0, "2026-10-19", "2026-10-21")
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	want := []string{booking.StatusAvailable, booking.StatusBooked, booking.StatusLimited}
	if len(got) != len(want) {
		t.Fatalf("len(Calendar()) = %d, want %d", len(got), len(want))
	}
	for i, d := range got {
		if d.Status != want[i] {
			t.Errorf("%s status = %q, want %q", d.Date, d.Status, want[i])
		}
	}

	if _, err := f.svc.Calendar(ctx, 0, "2026-10-21", "2026-10-19"); !booking.IsValidation(err) {
		t.Errorf("Calendar(reversed) error = %v, want validation error", err)
	}
	if _, err := f.svc.Calendar(ctx, 0, "2026-01-01", "2026-12-31"); !booking.IsValidation(err) {
		t.Errorf("Calendar(year) error = %v, want validation error", err)
	}
}

func TestCalendarUnknownBranchIsBooked(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.Calendar(context.Background(), 42, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Status != booking.StatusBooked {
		t.Errorf("Calendar() = %+v, want one booked day", got)
	}
}

func TestGetOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, 7, rs[0].ID); err != nil {
		t.Errorf("Get(owner) error = %v", err)
	}
	if _, err := f.svc.Get(ctx, 8, rs[0].ID); !errors.Is(err, booking.ErrForbidden) {
		t.Errorf("Get(other) error = %v, want ErrForbidden", err)
	}
}

func TestBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(2, "12:00", "13:00"), item(1, "15:00", "16:00"))); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Board(ctx, 0, day)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if len(got) != 2 || got[0].SeatID != 1 || got[1].SeatID != 2 {
		t.Errorf("Board() = %+v, want seat 1 then seat 2", got)
	}
	if got, _ := f.svc.Board(ctx, 42, day); len(got) != 0 {
		t.Errorf("Board(unknown branch) = %+v, want empty", got)
	}
	if _, err := f.svc.Board(ctx, 0, "tomorrow"); !booking.IsValidation(err) {
		t.Errorf("Board(bad date) error = %v, want validation error", err)
	}
}
