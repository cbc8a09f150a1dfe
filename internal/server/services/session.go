// Package services contains server-side business logic. This file implements
// SessionService: login, logout, token refresh and current-user lookup on top
// of stateless JWT access and refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
// RefreshToken is empty when a refresh did not rotate it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides the session lifecycle:
// - Login: verify credentials and mint a token pair
// - Logout: forget the refresh token where a revocation store exists
// - Refresh: mint a new access token from a refresh token
// - CurrentUser: resolve an access token to the stored user
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *password.Hasher
	codec                        *auth.Codec
	revocations                  revocations.Repository
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	rotateRefreshTokens          bool
	log                          logging.Logger
}

// NewSessionService constructs a SessionService. revoked may be nil, in which
// case refresh tokens are never rotated nor revoked.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher, codec *auth.Codec,
	revoked revocations.Repository, cfg *config.Config, log logging.Logger) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		codec:                        codec,
		revocations:                  revoked,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		rotateRefreshTokens:          cfg.RotateRefreshTokens && revoked != nil,
		log:                          log.With("module", "sessions"),
	}
}

// Login verifies email and password and returns a new TokenPair. Unknown
// email, wrong password and a disabled account all yield
// common.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.DummyVerify(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	return s.generateTokenPair(identityOf(user))
}

// Logout never fails. With a revocation store the refresh token, if it still
// verifies, is revoked for the rest of its lifetime.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	if s.revocations == nil || refreshToken == "" {
		return
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return
	}

	if err := s.revocations.Revoke(ctx, claims.ID, s.remaining(claims)); err != nil {
		s.log.Warn(ctx, "revoke refresh token", "error", err)
	}
}

// Refresh verifies refreshToken and issues a new access token for the same
// identity. With rotation enabled the refresh token is single use and a new
// one is returned alongside.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrMissingRefreshToken
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	if s.revocations != nil {
		if err := s.checkRefreshToken(ctx, claims); err != nil {
			return nil, err
		}
	}

	id := claims.Identity()

	if s.rotateRefreshTokens {
		return s.generateTokenPair(id)
	}

	access, err := s.codec.Issue(id, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access}, nil
}

// CurrentUser resolves accessToken to the stored user. It returns
// common.ErrTokenExpired or common.ErrInvalidToken for bad tokens and
// common.ErrUnauthorized when the subject no longer exists or is disabled.
func (s *SessionService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, common.ErrUnauthorized
	}

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	return user, nil
}

// --- helpers below ---

func (s *SessionService) checkRefreshToken(ctx context.Context, claims *auth.Claims) error {
	if s.rotateRefreshTokens {
		err := s.revocations.Consume(ctx, claims.ID, s.remaining(claims))
		switch {
		case errors.Is(err, common.ErrTokenRevoked):
			s.log.Warn(ctx, "refresh token replayed", "jti", claims.ID, "sub", claims.Subject)
			return common.ErrInvalidRefreshToken
		case err != nil:
			return fmt.Errorf("%w: consume refresh token: %v", common.ErrorInternal, err)
		}
		return nil
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("%w: check refresh token: %v", common.ErrorInternal, err)
	}
	if revoked {
		return common.ErrInvalidRefreshToken
	}
	return nil
}

func (s *SessionService) generateTokenPair(id auth.Identity) (*TokenPair, error) {
	access, err := s.codec.Issue(id, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := s.codec.Issue(id, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{Email: u.Email, Username: u.Username, Role: u.Role}
}

// remaining is the token lifetime left, measured on the codec's clock.
func (s *SessionService) remaining(c *auth.Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(s.codec.Now())
}
