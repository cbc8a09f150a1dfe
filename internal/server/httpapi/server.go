// Package httpapi exposes the auth services over HTTP/JSON with cookie-bound
// sessions.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// SessionManager is the session lifecycle the transport drives.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

// CookieConfig controls the auth cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// HTTPServer serves the public auth API.
type HTTPServer struct {
	address  string
	sessions SessionManager
	users    Registrar
	cookies  CookieConfig
	logger   logging.Logger
}

func NewHTTPServer(a string, l logging.Logger, sessions SessionManager, users Registrar, cookies CookieConfig) *HTTPServer {
	return &HTTPServer{
		address:  a,
		logger:   l.With("module", "http_server"),
		sessions: sessions,
		users:    users,
		cookies:  cookies,
	}
}

// Handler returns the routed API wrapped in the request-id, logging and
// panic-recovery middleware.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.HandleRegister)
	mux.HandleFunc("POST /auth/login", s.HandleLogin)
	mux.HandleFunc("POST /auth/logout", s.HandleLogout)
	mux.HandleFunc("POST /auth/refresh", s.HandleRefresh)
	mux.HandleFunc("GET /users/me", s.HandleMe)

	var h http.Handler = mux
	h = RescueingMiddleware(h, s.logger)
	h = LoggingMiddleware(h, s.logger)
	h = RequestIDMiddleware(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
