// Package models holds the persisted entities of the auth server.
package models

import "time"

// Role is the authorization role carried in token claims.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a row of the users table. PasswordHash is never serialized to clients.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	FirstName    *string
	LastName     *string
	DateOfBirth  *time.Time
	IsActive     bool
	CreatedAt    time.Time
}
