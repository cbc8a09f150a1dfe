package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	Username    string      `json:"username"`
	Role        models.Role `json:"role"`
	FirstName   *string     `json:"first_name"`
	LastName    *string     `json:"last_name"`
	DateOfBirth *string     `json:"date_of_birth"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.DateOfBirth != nil {
		d := u.DateOfBirth.Format(validation.DateLayout)
		resp.DateOfBirth = &d
	}
	return resp
}

// logOutcome logs the result of a handler at debug on success and warn on
// failure. Client-facing responses never carry err.
func (s *HTTPServer) logOutcome(ctx context.Context, op string, err error) {
	if err != nil {
		s.logger.Warn(ctx, op+" failed", "request_id", RequestID(ctx), "error", err)
		return
	}
	s.logger.Debug(ctx, op+" succeeded", "request_id", RequestID(ctx))
}

// HandleRegister creates an account from a JSON body.
func (s *HTTPServer) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = s.handleRegister(w, r)
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) { s.logOutcome(ctx, "register", err) }(r.Context())

	var req validation.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return fmt.Errorf("decode: %w", err)
	}

	if errs := validation.ValidateRegister(req); len(errs) > 0 {
		writeValidationError(w, errs)
		return errs
	}

	in := services.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.DateOfBirth != nil {
		// already validated
		d, _ := validation.ParseDate(*req.DateOfBirth)
		in.DateOfBirth = &d
	}

	if _, err := s.users.Register(r.Context(), in); err != nil {
		writeServiceError(w, err)
		return fmt.Errorf("register user: %w", err)
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: msgRegistered})
	return nil
}

// HandleLogin verifies credentials and sets both auth cookies.
func (s *HTTPServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = s.handleLogin(w, r)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) { s.logOutcome(ctx, "login", err) }(r.Context())

	var req validation.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return fmt.Errorf("decode: %w", err)
	}

	if errs := validation.ValidateLogin(req); len(errs) > 0 {
		writeValidationError(w, errs)
		return errs
	}

	pair, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return fmt.Errorf("login user: %w", err)
	}

	s.setTokenCookie(w, common.AccessTokenCookieName, pair.AccessToken, s.cookies.AccessTTL)
	s.setTokenCookie(w, common.RefreshTokenCookieName, pair.RefreshToken, s.cookies.RefreshTTL)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: common.TokenType})
	return nil
}

// HandleLogout clears both cookies. It succeeds whatever the request holds.
func (s *HTTPServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(r.Context(), cookieValue(r, common.RefreshTokenCookieName))

	s.clearTokenCookie(w, common.AccessTokenCookieName)
	s.clearTokenCookie(w, common.RefreshTokenCookieName)
	w.WriteHeader(http.StatusNoContent)

	s.logOutcome(r.Context(), "logout", nil)
}

// HandleRefresh issues a new access token from the refresh cookie.
func (s *HTTPServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	_ = s.handleRefresh(w, r)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) { s.logOutcome(ctx, "refresh", err) }(r.Context())

	pair, err := s.sessions.Refresh(r.Context(), cookieValue(r, common.RefreshTokenCookieName))
	if err != nil {
		writeServiceError(w, err)
		return fmt.Errorf("refresh: %w", err)
	}

	s.setTokenCookie(w, common.AccessTokenCookieName, pair.AccessToken, s.cookies.AccessTTL)
	if pair.RefreshToken != "" {
		s.setTokenCookie(w, common.RefreshTokenCookieName, pair.RefreshToken, s.cookies.RefreshTTL)
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: common.TokenType})
	return nil
}

// HandleMe returns the user behind the access token.
func (s *HTTPServer) HandleMe(w http.ResponseWriter, r *http.Request) {
	_ = s.handleMe(w, r)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) { s.logOutcome(ctx, "current user", err) }(r.Context())

	user, err := s.sessions.CurrentUser(r.Context(), accessToken(r))
	if err != nil {
		writeServiceError(w, err)
		return fmt.Errorf("current user: %w", err)
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
	return nil
}
