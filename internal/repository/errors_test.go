package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/seatclub/seat-reservation/internal/booking"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, booking.ErrNotFound},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, booking.ErrContention},
		{"lock wait", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1205}), booking.ErrContention},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}

	other := errors.New("boom")
	if got := classify(other); got != other {
		t.Errorf("classify(other) = %v, want unchanged", got)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
	if !isDuplicate(&mysql.MySQLError{Number: 1062}) {
		t.Error("isDuplicate(1062) = false, want true")
	}
}
