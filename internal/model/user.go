package model

import "time"

// Roles carried in the access token.
const (
	RoleMember = "MEMBER"
	RoleStaff  = "STAFF"
)

// Member is a club account as stored in the `members` table.  The
// password is only ever stored as a bcrypt hash.
type Member struct {
	ID           uint64    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
