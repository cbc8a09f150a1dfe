package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

// RegisterInput is an already validated registration request.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FirstName   *string
	LastName    *string
	DateOfBirth *time.Time
	// Role defaults to models.RoleUser when empty.
	Role models.Role
}

// ErrInvalidRole is returned for a role other than "user" or "admin".
var ErrInvalidRole = errors.New("invalid role")

// RegistrationService creates new user accounts.
type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	log         logging.Logger
	now         func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher, log logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "registration"),
		now:         time.Now,
	}
}

// Register stores a new active user, with role "user" unless in.Role says
// otherwise. An email that is
// already taken, including one taken by a concurrent request, yields
// common.ErrEmailConflict.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var created *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrEmailConflict
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
		}

		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		user := &models.User{
			Email:        email,
			Username:     in.Username,
			PasswordHash: hash,
			Role:         role,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			DateOfBirth:  in.DateOfBirth,
			IsActive:     true,
			CreatedAt:    s.now().UTC(),
		}

		created, err = repo.Create(ctx, user)
		if err != nil {
			if errors.Is(err, common.ErrEmailConflict) {
				return common.ErrEmailConflict
			}
			return fmt.Errorf("%w: create user: %v", common.ErrorInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}
