// Package booking holds the seat reservation engine: the time grid, the
// overlap predicate, availability aggregation, the interactive selection
// state machine and cost calculation.  Nothing in this package performs
// I/O; callers supply the confirmed reservations they read from storage.
package booking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// Clock is a time of day expressed as minutes after midnight.
type Clock int

// ParseClock parses "HH:MM" (24h).  "24:00" is accepted as the end of day.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for constants and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns c shifted by d (truncated to whole minutes).
func (c Clock) Add(d time.Duration) Clock { return c + Clock(d/time.Minute) }

// MarshalJSON encodes the clock as "HH:MM".
func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// UnmarshalJSON accepts "HH:MM".
func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Interval is a half-open time range [Start, End) on a single day.
type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Minutes is the length of the interval.
func (iv Interval) Minutes() int { return int(iv.End - iv.Start) }

// String renders the interval as "HH:MM-HH:MM".
func (iv Interval) String() string { return iv.Start.String() + "-" + iv.End.String() }

// Grid quantizes the operating day into fixed-length slots.
type Grid struct {
	Slot  time.Duration
	Open  Clock
	Close Clock
}

// DefaultGrid is the club's booking grid: 30 minute slots from 10:00 to 22:00.
var DefaultGrid = Grid{
	Slot:  30 * time.Minute,
	Open:  10 * 60,
	Close: 22 * 60,
}

func (g Grid) slotMinutes() int { return int(g.Slot / time.Minute) }

// Aligned reports whether c falls on a slot boundary of the grid.
func (g Grid) Aligned(c Clock) bool {
	n := g.slotMinutes()
	return n > 0 && (int(c)-int(g.Open))%n == 0
}

// IsSlot reports whether c is the start instant of a slot inside the window.
func (g Grid) IsSlot(c Clock) bool {
	return g.Aligned(c) && c >= g.Open && c < g.Close
}

// Slots lists every slot start instant in the operating window.
func (g Grid) Slots() []Clock {
	n := g.slotMinutes()
	if n <= 0 {
		return nil
	}
	out := make([]Clock, 0, g.SlotCount())
	for c := g.Open; c < g.Close; c += Clock(n) {
		out = append(out, c)
	}
	return out
}

// SlotCount is the number of slots in one operating day.
func (g Grid) SlotCount() int {
	n := g.slotMinutes()
	if n <= 0 || g.Close <= g.Open {
		return 0
	}
	return int(g.Close-g.Open) / n
}

// SlotEnd returns the exclusive end of the slot starting at c.
func (g Grid) SlotEnd(c Clock) Clock { return c.Add(g.Slot) }

// Contains reports whether iv lies inside the operating window.
func (g Grid) Contains(iv Interval) bool {
	return iv.Start >= g.Open && iv.End <= g.Close
}

// ValidateInterval checks that iv is a non-empty, slot-aligned interval
// inside the operating window.  The returned problems are suitable for a
// ValidationError; an empty slice means the interval is valid.
func (g Grid) ValidateInterval(iv Interval) []string {
	var problems []string
	if iv.Start >= iv.End {
		problems = append(problems, "start must be before end")
	}
	if !g.Aligned(iv.Start) {
		problems = append(problems, fmt.Sprintf("start %s is not aligned to the %d minute grid", iv.Start, g.slotMinutes()))
	}
	if !g.Aligned(iv.End) {
		problems = append(problems, fmt.Sprintf("end %s is not aligned to the %d minute grid", iv.End, g.slotMinutes()))
	}
	if !g.Contains(iv) {
		problems = append(problems, fmt.Sprintf("interval %s is outside operating hours %s-%s", iv, g.Open, g.Close))
	}
	return problems
}

// ParseDate validates a "2006-01-02" calendar day and returns it unchanged
// in canonical form.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t.Format(DateLayout), nil
}
