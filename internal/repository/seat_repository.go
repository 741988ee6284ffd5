package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
)

// ErrSeatNameTaken is returned when a branch already has a seat with the
// requested name.
var ErrSeatNameTaken = errors.New("seat name already used in branch")

const seatColumns = `id, branch_id, name, rate_per_minute, hourly_rate, status, created_at, updated_at`

// SeatRepo is the MySQL seat catalog.
type SeatRepo struct {
	db *sqlx.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sqlx.DB) *SeatRepo { return &SeatRepo{db: db} }

var _ service.SeatCatalog = (*SeatRepo)(nil)

// ListSeats returns the seats matching f ordered by branch and name.
func (r *SeatRepo) ListSeats(ctx context.Context, f service.SeatFilter) ([]model.Seat, error) {
	where := []string{"1 = 1"}
	var args []interface{}
	if f.BranchID != 0 {
		where = append(where, "branch_id = ?")
		args = append(args, f.BranchID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	out := []model.Seat{}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE ` + strings.Join(where, " AND ") + ` ORDER BY branch_id, name`
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSeats returns the seats among ids keyed by id.
func (r *SeatRepo) GetSeats(ctx context.Context, ids []uint64) (map[uint64]model.Seat, error) {
	out := make(map[uint64]model.Seat, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+seatColumns+` FROM seats WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var seats []model.Seat
	if err := r.db.SelectContext(ctx, &seats, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, s := range seats {
		out[s.ID] = s
	}
	return out, nil
}

// Get loads one seat.
func (r *SeatRepo) Get(ctx context.Context, id uint64) (model.Seat, error) {
	var s model.Seat
	err := r.db.GetContext(ctx, &s, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id)
	return s, classify(err)
}

// Create inserts a seat and populates its id and timestamps.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO seats (branch_id, name, rate_per_minute, hourly_rate, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.BranchID, s.Name, s.RatePerMinute, s.HourlyRate, s.Status, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrSeatNameTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

// Update applies p to seat id and returns the stored result.
func (r *SeatRepo) Update(ctx context.Context, id uint64, p model.SeatPatch) (model.Seat, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return model.Seat{}, err
	}
	p.Apply(&s)
	s.UpdatedAt = time.Now().UTC()
	_, err = r.db.NamedExecContext(ctx,
		`UPDATE seats SET name = :name, rate_per_minute = :rate_per_minute, hourly_rate = :hourly_rate,
		 status = :status, updated_at = :updated_at WHERE id = :id`, s)
	if err != nil {
		if isDuplicate(err) {
			return model.Seat{}, ErrSeatNameTaken
		}
		return model.Seat{}, err
	}
	return s, nil
}
