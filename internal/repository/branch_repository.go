package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seatclub/seat-reservation/internal/model"
)

// BranchRepo reads and writes club branches.
type BranchRepo struct {
	db *sqlx.DB
}

// NewBranchRepo constructs a BranchRepo with the provided DB handle.
func NewBranchRepo(db *sqlx.DB) *BranchRepo { return &BranchRepo{db: db} }

// List returns every branch ordered by name.
func (r *BranchRepo) List(ctx context.Context) ([]model.Branch, error) {
	out := []model.Branch{}
	if err := r.db.SelectContext(ctx, &out, "SELECT id, name, address, created_at FROM branches ORDER BY name"); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a branch by id or booking.ErrNotFound.
func (r *BranchRepo) Get(ctx context.Context, id uint64) (model.Branch, error) {
	var b model.Branch
	err := r.db.GetContext(ctx, &b, "SELECT id, name, address, created_at FROM branches WHERE id = ?", id)
	return b, classify(err)
}

// Create inserts a branch and populates its id.
func (r *BranchRepo) Create(ctx context.Context, b *model.Branch) error {
	b.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, "INSERT INTO branches (name, address, created_at) VALUES (?, ?, ?)",
		b.Name, b.Address, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}
