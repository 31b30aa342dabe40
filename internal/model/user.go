package model

import "time"

// Roles carried in the JWT role claim.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleCustomer = "CUSTOMER"
)

// User mirrors the users table.  ID is a UUID string so it can be embedded
// verbatim in ticket payloads.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// RefreshToken models a refresh_tokens row; only the SHA-256 hash of the
// raw token is stored.
type RefreshToken struct {
	ID        int64      `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}
