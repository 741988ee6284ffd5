package model

import "time"

// Seat statuses.  Only MAINTENANCE blocks new reservations; IN_USE describes
// live occupancy and has no bearing on advance bookings.
const (
	SeatAvailable   = "available"
	SeatInUse       = "in-use"
	SeatMaintenance = "maintenance"
)

// Seat describes a bookable physical seat in a branch.  The catalog is
// owned by staff and is treated as immutable while a booking is being
// processed.
//
// Fields:
//  ID            – primary key identifier.
//  BranchID      – branch the seat belongs to.
//  Name          – display name shown on the grid (e.g. "A-3").
//  RatePerMinute – price per minute used for advance reservations.
//  HourlyRate    – price per started hour used by live usage billing.
//  Status        – available, in-use or maintenance.
type Seat struct {
	ID            uint64    `json:"id" db:"id"`
	BranchID      uint64    `json:"branch_id" db:"branch_id"`
	Name          string    `json:"name" db:"name"`
	RatePerMinute float64   `json:"rate_per_minute" db:"rate_per_minute"`
	HourlyRate    int64     `json:"hourly_rate" db:"hourly_rate"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ValidSeatStatus reports whether s is one of the known seat statuses.
func ValidSeatStatus(s string) bool {
	switch s {
	case SeatAvailable, SeatInUse, SeatMaintenance:
		return true
	}
	return false
}

// SeatPatch is a partial catalog update.  Nil fields are left alone.
type SeatPatch struct {
	Name          *string  `json:"name"`
	RatePerMinute *float64 `json:"rate_per_minute"`
	HourlyRate    *int64   `json:"hourly_rate"`
	Status        *string  `json:"status"`
}

// Apply copies the non-nil fields of p onto s.
func (p SeatPatch) Apply(s *Seat) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.RatePerMinute != nil {
		s.RatePerMinute = *p.RatePerMinute
	}
	if p.HourlyRate != nil {
		s.HourlyRate = *p.HourlyRate
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
}
