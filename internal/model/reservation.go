package model

import "time"

// Reservation statuses.  Only CONFIRMED reservations take part in
// overlap checks.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Reservation records a member's booking of one seat for one contiguous,
// slot-aligned interval on a calendar day.
//
// Fields:
//  ID              – uuid primary key.
//  SeatID          – reserved seat.
//  UserID          – member who owns the reservation.
//  Date            – calendar day, "2006-01-02".
//  StartMinute     – interval start, minutes after midnight.
//  EndMinute       – interval end (exclusive), minutes after midnight.
//  DurationMinutes – EndMinute - StartMinute.
//  Status          – confirmed, cancelled or completed.
//  Notes           – free text supplied by the member.
type Reservation struct {
	ID              string    `json:"id" db:"id"`
	SeatID          uint64    `json:"seat_id" db:"seat_id"`
	UserID          uint64    `json:"user_id" db:"user_id"`
	Date            string    `json:"date" db:"day"`
	StartMinute     int       `json:"-" db:"start_minute"`
	EndMinute       int       `json:"-" db:"end_minute"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Status          string    `json:"status" db:"status"`
	Notes           string    `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsConfirmed reports whether the reservation still counts for conflicts.
func (r Reservation) IsConfirmed() bool { return r.Status == StatusConfirmed }

// ValidReservationStatus reports whether s is a known reservation status.
func ValidReservationStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}
