package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
)

const mockDay = "2026-10-20"

var (
	lockSQL      = regexp.QuoteMeta("INSERT INTO seat_day_locks (seat_id, day, version) VALUES (?, ?, 1)")
	confirmedSQL = `(?s)SELECT .* FROM reservations\s+WHERE day = \? AND status = \? AND seat_id IN \(\?, \?\)`
	insertSQL    = regexp.QuoteMeta("INSERT INTO reservations")
	cancelSQL    = regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?")
	notesSQL     = regexp.QuoteMeta("UPDATE reservations SET notes = ?, updated_at = ? WHERE id = ?")
	rowColumns   = []string{"id", "seat_id", "user_id", "day", "start_minute", "end_minute",
		"duration_minutes", "status", "notes", "created_at", "updated_at"}
)

func newMockRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewReservationRepo(sqlx.NewDb(db, "mysql")), mock
}

func TestReservationRepoLocksSeatsInOrderAndCommits(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(1, mockDay).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(lockSQL).WithArgs(2, mockDay).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(confirmedSQL).
		WithArgs(mockDay, model.StatusConfirmed, 2, 1).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("r0", 1, 9, mockDay, 600, 660, 60, model.StatusConfirmed, "", at, at))
	mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithSeatLock(ctx, mockDay, []uint64{2, 1, 2}, func(tx service.ReservationTx) error {
		got, err := tx.Confirmed(ctx, mockDay, []uint64{2, 1})
		if err != nil {
			return err
		}
		if len(got) != 1 || got[0].ID != "r0" || got[0].SeatID != 1 || got[0].EndMinute != 660 {
			t.Errorf("Confirmed() = %+v, want r0 on seat 1", got)
		}
		return tx.Insert(ctx, []model.Reservation{{
			ID: "r1", SeatID: 2, UserID: 7, Date: mockDay,
			StartMinute: 600, EndMinute: 660, DurationMinutes: 60,
			Status: model.StatusConfirmed, CreatedAt: at, UpdatedAt: at,
		}})
	})
	if err != nil {
		t.Fatalf("WithSeatLock() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationRepoRollsBackOnCallbackError(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(3, mockDay).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	conflict := booking.NewConflictError(mockDay, 3)
	err := repo.WithSeatLock(ctx, mockDay, []uint64{3}, func(service.ReservationTx) error {
		return conflict
	})
	if !booking.IsConflict(err) {
		t.Fatalf("WithSeatLock() error = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationRepoMapsLockErrorsToContention(t *testing.T) {
	tests := []struct {
		name   string
		number uint16
	}{
		{"deadlock", mysqlDeadlock},
		{"lock wait timeout", mysqlLockWaitTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectBegin()
			mock.ExpectExec(lockSQL).WithArgs(1, mockDay).
				WillReturnError(&mysql.MySQLError{Number: tt.number})
			mock.ExpectRollback()

			called := false
			err := repo.WithSeatLock(context.Background(), mockDay, []uint64{1}, func(service.ReservationTx) error {
				called = true
				return nil
			})
			if !errors.Is(err, booking.ErrContention) {
				t.Errorf("WithSeatLock() error = %v, want ErrContention", err)
			}
			if called {
				t.Error("callback ran without the seat lock")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestReservationRepoCommitFailureIsContention(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(1, mockDay).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(&mysql.MySQLError{Number: mysqlDeadlock})

	err := repo.WithSeatLock(context.Background(), mockDay, []uint64{1}, func(service.ReservationTx) error { return nil })
	if !errors.Is(err, booking.ErrContention) {
		t.Errorf("WithSeatLock() error = %v, want ErrContention", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationRepoCancelWithNotes(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(1, mockDay).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(cancelSQL).
		WithArgs(model.StatusCancelled, at, "r1", model.StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(notesSQL).WithArgs("bye", at, "r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(cancelSQL).
		WithArgs(model.StatusCancelled, at, "r2", model.StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.WithSeatLock(ctx, mockDay, []uint64{1}, func(tx service.ReservationTx) error {
		ok, err := tx.Cancel(ctx, "r1", at)
		if err != nil || !ok {
			t.Errorf("Cancel(r1) = %v, %v, want true, nil", ok, err)
		}
		if err := tx.SetNotes(ctx, "r1", "bye", at); err != nil {
			t.Errorf("SetNotes(r1) error = %v", err)
		}
		ok, err = tx.Cancel(ctx, "r2", at)
		if err != nil || ok {
			t.Errorf("Cancel(r2) = %v, %v, want false, nil", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithSeatLock() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationRepoCompletePast(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = ?")).
		WithArgs(model.StatusCompleted, at, model.StatusConfirmed, mockDay, mockDay, 720).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CompletePast(context.Background(), mockDay, 720, at)
	if err != nil || n != 3 {
		t.Errorf("CompletePast() = %d, %v, want 3, nil", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationRepoGetMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM reservations WHERE id = \?`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
