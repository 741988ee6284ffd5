package booking

import (
	"errors"
	"testing"

	"github.com/seatclub/seat-reservation/internal/model"
)

func confirmed(seatID uint64, date, start, end string) model.Reservation {
	return model.Reservation{
		SeatID:      seatID,
		Date:        date,
		StartMinute: int(MustClock(start)),
		EndMinute:   int(MustClock(end)),
		Status:      model.StatusConfirmed,
	}
}

func iv(start, end string) Interval {
	return Interval{Start: MustClock(start), End: MustClock(end)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b Interval
		want bool
	}{
		{iv("10:00", "11:00"), iv("10:30", "11:30"), true},
		{iv("10:00", "11:00"), iv("11:00", "12:00"), false},
		{iv("10:00", "12:00"), iv("10:30", "11:00"), true},
		{iv("10:00", "10:30"), iv("10:00", "10:30"), true},
		{iv("10:00", "10:30"), iv("12:00", "13:00"), false},
	}
	for _, tt := range tests {
		if got := Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Overlaps(tt.b, tt.a); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestHasConflict(t *testing.T) {
	const day = "2026-10-16"
	existing := []model.Reservation{
		confirmed(1, day, "10:00", "11:00"),
		confirmed(2, day, "10:00", "22:00"),
		confirmed(1, "2026-10-17", "12:00", "13:00"),
	}
	cancelled := confirmed(1, day, "14:00", "15:00")
	cancelled.Status = model.StatusCancelled
	existing = append(existing, cancelled)

	tests := []struct {
		name string
		seat uint64
		c    Interval
		want bool
	}{
		{"partial overlap", 1, iv("10:30", "11:30"), true},
		{"adjacent", 1, iv("11:00", "12:00"), false},
		{"other date ignored", 1, iv("12:00", "13:00"), false},
		{"cancelled ignored", 1, iv("14:00", "15:00"), false},
		{"other seat fully booked", 2, iv("18:00", "18:30"), true},
		{"unknown seat", 3, iv("10:00", "11:00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasConflict(tt.seat, day, tt.c, existing)
			if err != nil {
				t.Fatalf("HasConflict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasConflictRejectsEmptyInterval(t *testing.T) {
	_, err := HasConflict(1, "2026-10-16", iv("11:00", "10:00"), nil)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("error = %v, want ErrInvalidInterval", err)
	}
	if !IsValidation(err) {
		t.Error("IsValidation() = false, want true")
	}
}
