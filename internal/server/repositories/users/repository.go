// Package users declares the storage contract for user identity records and
// its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists and looks up users by their unique email.
type Repository interface {
	// Create inserts user and fills in its generated ID. A duplicate email
	// yields common.ErrEmailConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByEmail returns common.ErrorNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
