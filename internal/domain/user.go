package domain

import "time"

// Role is the privilege level attached to a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User represents an account of the booking system.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate carries the user editable profile fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
}
