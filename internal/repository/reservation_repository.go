package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
)

// reservationColumns selects a reservation row.  The day is formatted in
// SQL so it scans into a plain string whatever parseTime is set to.
const reservationColumns = `id, seat_id, user_id, DATE_FORMAT(day, '%Y-%m-%d') AS day,
	start_minute, end_minute, duration_minutes, status, notes, created_at, updated_at`

// ReservationRepo stores reservations in MySQL.  Writes for a seat and day
// are serialized through a row in seat_day_locks: every writer upserts the
// rows of the seats it touches, in ascending seat order, before reading
// the confirmed set, and holds those row locks until commit.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ service.ReservationStore = (*ReservationRepo)(nil)

// WithSeatLock implements service.ReservationStore.
func (r *ReservationRepo) WithSeatLock(ctx context.Context, date string, seatIDs []uint64, fn func(service.ReservationTx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const lockQ = `INSERT INTO seat_day_locks (seat_id, day, version) VALUES (?, ?, 1)
	               ON DUPLICATE KEY UPDATE version = version + 1`
	for _, id := range sortedUnique(seatIDs) {
		if _, err := tx.ExecContext(ctx, lockQ, id, date); err != nil {
			return classify(err)
		}
	}
	if err := fn(&reservationTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

type reservationTx struct {
	tx *sqlx.Tx
}

func (t *reservationTx) Confirmed(ctx context.Context, date string, seatIDs []uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	if len(seatIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+reservationColumns+` FROM reservations
		WHERE day = ? AND status = ? AND seat_id IN (?)`, date, model.StatusConfirmed, seatIDs)
	if err != nil {
		return nil, err
	}
	if err := t.tx.SelectContext(ctx, &out, t.tx.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *reservationTx) Insert(ctx context.Context, rs []model.Reservation) error {
	if len(rs) == 0 {
		return nil
	}
	const q = `INSERT INTO reservations
		(id, seat_id, user_id, day, start_minute, end_minute, duration_minutes, status, notes, created_at, updated_at)
		VALUES (:id, :seat_id, :user_id, :day, :start_minute, :end_minute, :duration_minutes, :status, :notes, :created_at, :updated_at)`
	_, err := t.tx.NamedExecContext(ctx, q, rs)
	return err
}

func (t *reservationTx) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		model.StatusCancelled, at, id, model.StatusConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetNotes does not check the affected row count: MySQL reports 0 when
// the row already holds these values, as it does right after Cancel.
func (t *reservationTx) SetNotes(ctx context.Context, id, notes string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE reservations SET notes = ?, updated_at = ? WHERE id = ?`, notes, at, id)
	return err
}

// Get loads one reservation by id.
func (r *ReservationRepo) Get(ctx context.Context, id string) (model.Reservation, error) {
	var out model.Reservation
	err := r.db.GetContext(ctx, &out, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return out, classify(err)
}

// ListByUser returns the reservations of userID matching f, latest day first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, f service.ReservationFilter) ([]model.Reservation, error) {
	where := []string{"user_id = ?"}
	args := []interface{}{userID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.DateFrom != "" {
		where = append(where, "day >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "day <= ?")
		args = append(args, f.DateTo)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY day DESC, start_minute, seat_id`
	out := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmedBetween implements service.ReservationStore.
func (r *ReservationRepo) ConfirmedBetween(ctx context.Context, from, to string, seatIDs []uint64) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE day BETWEEN ? AND ? AND status = ?`
	args := []interface{}{from, to, model.StatusConfirmed}
	if len(seatIDs) > 0 {
		q += ` AND seat_id IN (?)`
		args = append(args, seatIDs)
	}
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Reservation{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNotes replaces the notes of reservation id.
func (r *ReservationRepo) UpdateNotes(ctx context.Context, id, notes string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reservations SET notes = ?, updated_at = ? WHERE id = ?`, notes, at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows)
	}
	return nil
}

// CompletePast implements service.ReservationStore.
func (r *ReservationRepo) CompletePast(ctx context.Context, today string, minute int, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ?
		 WHERE status = ? AND (day < ? OR (day = ? AND end_minute <= ?))`,
		model.StatusCompleted, at, model.StatusConfirmed, today, today, minute)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sortedUnique(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
