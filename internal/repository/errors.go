// Package repository holds the storage backends: MySQL stores built on
// sqlx, in-memory stores for development and tests, and the Redis
// selection store.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/seatclub/seat-reservation/internal/booking"
)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers the stores react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicate reports a unique key violation.
func isDuplicate(err error) bool { return mysqlErrorNumber(err) == mysqlDuplicateEntry }

// classify maps driver errors onto the engine's sentinels: a missing row
// becomes booking.ErrNotFound, deadlocks and lock wait timeouts become
// booking.ErrContention.  Other errors are returned as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	switch mysqlErrorNumber(err) {
	case mysqlDeadlock, mysqlLockWaitTimeout:
		return errors.Join(booking.ErrContention, err)
	}
	return err
}
