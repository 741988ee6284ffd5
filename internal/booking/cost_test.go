package booking

import (
	"errors"
	"testing"

	"github.com/seatclub/seat-reservation/internal/model"
)

func TestCost(t *testing.T) {
	tests := []struct {
		rate float64
		iv   Interval
		want int64
	}{
		{10, iv("10:00", "11:00"), 600},
		{10, iv("10:00", "10:30"), 300},
		{2.5, iv("10:00", "10:30"), 75},
		{0.25, iv("10:00", "10:30"), 8}, // 7.5 rounds half away from zero
		{0, iv("10:00", "22:00"), 0},
	}
	for _, tt := range tests {
		got, err := Cost(model.Seat{RatePerMinute: tt.rate}, tt.iv)
		if err != nil {
			t.Fatalf("Cost() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("Cost(rate=%v, %s) = %d, want %d", tt.rate, tt.iv, got, tt.want)
		}
	}
	if _, err := Cost(model.Seat{RatePerMinute: 10}, iv("11:00", "10:00")); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Cost(reversed) error = %v, want ErrInvalidInterval", err)
	}
}

func TestQuoteRequest(t *testing.T) {
	seats := map[uint64]model.Seat{
		1: {ID: 1, Name: "A-1", RatePerMinute: 10},
		2: {ID: 2, Name: "A-2", RatePerMinute: 10},
	}
	req := BookingRequest{
		Date: "2026-10-16",
		Items: []RequestItem{
			{SeatID: 1, Start: MustClock("10:00"), End: MustClock("11:00")},
			{SeatID: 2, Start: MustClock("10:00"), End: MustClock("11:00")},
		},
	}
	q, err := QuoteRequest(seats, req)
	if err != nil {
		t.Fatalf("QuoteRequest() error = %v", err)
	}
	if q.TotalCost != 1200 {
		t.Errorf("TotalCost = %d, want 1200", q.TotalCost)
	}
	if q.TotalMinutes != 120 {
		t.Errorf("TotalMinutes = %d, want 120", q.TotalMinutes)
	}

	req.Items = append(req.Items, RequestItem{SeatID: 3, Start: MustClock("10:00"), End: MustClock("11:00")})
	if _, err := QuoteRequest(seats, req); !errors.Is(err, ErrNotFound) {
		t.Errorf("QuoteRequest(unknown seat) error = %v, want ErrNotFound", err)
	}
}
