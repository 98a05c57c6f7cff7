package models

import (
	"time"
)

// User roles. Admins are regular users with access to the moderation panel.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// User represents a registered viewer or admin with a coin balance
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Role      string    `db:"role" json:"role"`
	Coins     int64     `db:"coins" json:"coins"`
	Banned    bool      `db:"banned" json:"banned"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// UserAuth is the credential view of a user. Only the login path reads it;
// the password hash never leaves the auth flow.
type UserAuth struct {
	User
	PasswordHash *string `db:"password_hash" json:"-"`
}
