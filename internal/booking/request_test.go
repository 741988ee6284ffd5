package booking

import (
	"errors"
	"testing"
)

func TestBookingRequestValidate(t *testing.T) {
	item := func(seat uint64, start, end string) RequestItem {
		return RequestItem{SeatID: seat, Start: MustClock(start), End: MustClock(end)}
	}
	tests := []struct {
		name       string
		req        BookingRequest
		wantFields int
	}{
		{"valid two seats", BookingRequest{Date: "2026-10-16", Items: []RequestItem{item(1, "10:00", "11:00"), item(2, "10:00", "11:00")}}, 0},
		{"same seat disjoint", BookingRequest{Date: "2026-10-16", Items: []RequestItem{item(1, "10:00", "11:00"), item(1, "11:00", "12:00")}}, 0},
		{"empty", BookingRequest{Date: "2026-10-16"}, 1},
		{"bad date", BookingRequest{Date: "16/10/2026", Items: []RequestItem{item(1, "10:00", "11:00")}}, 1},
		{"missing seat", BookingRequest{Date: "2026-10-16", Items: []RequestItem{item(0, "10:00", "11:00")}}, 1},
		{"same seat overlapping", BookingRequest{Date: "2026-10-16", Items: []RequestItem{item(1, "10:00", "11:00"), item(1, "10:30", "12:00")}}, 1},
		{"misaligned and outside", BookingRequest{Date: "2026-10-16", Items: []RequestItem{item(1, "21:45", "22:15")}}, 3},
		{"negative headcount", BookingRequest{Date: "2026-10-16", Headcount: -1, Items: []RequestItem{item(1, "10:00", "11:00")}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(DefaultGrid)
			if tt.wantFields == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if len(verr.Fields) != tt.wantFields {
				t.Errorf("len(Fields) = %d, want %d (%v)", len(verr.Fields), tt.wantFields, verr.Fields)
			}
		})
	}
}

func TestBookingRequestSeatIDs(t *testing.T) {
	req := BookingRequest{Items: []RequestItem{{SeatID: 3}, {SeatID: 1}, {SeatID: 3}}}
	got := req.SeatIDs()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("SeatIDs() = %v, want [1 3]", got)
	}
}
