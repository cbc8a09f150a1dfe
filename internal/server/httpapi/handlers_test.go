package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	loginPair *services.TokenPair
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error
	gotRefresh  string

	user       *models.User
	userErr    error
	gotAccess  string
	gotLogout  string
	logoutCall int
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.loginPair, f.loginErr
}

func (f *fakeSessions) Logout(ctx context.Context, refreshToken string) {
	f.logoutCall++
	f.gotLogout = refreshToken
}

func (f *fakeSessions) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.gotRefresh = refreshToken
	return f.refreshPair, f.refreshErr
}

func (f *fakeSessions) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	f.gotAccess = accessToken
	if accessToken == "" {
		return nil, common.ErrUnauthorized
	}
	return f.user, f.userErr
}

type fakeRegistrar struct {
	in  services.RegisterInput
	err error
}

func (f *fakeRegistrar) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: 1, Email: in.Email}, nil
}

func newTestServer(s *fakeSessions, r *fakeRegistrar, secure bool) http.Handler {
	srv := NewHTTPServer(":0", logging.NewNopLogger(), s, r, CookieConfig{
		Secure:     secure,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

const validRegisterBody = `{"email":"a@x.com","username":"a.b","password":"Abcdef1!","date_of_birth":"1990-05-17"}`

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		errMsg string
	}{
		{name: "created", body: validRegisterBody, status: http.StatusCreated},
		{name: "bad json", body: `{"email":`, status: http.StatusBadRequest, errMsg: "invalid request body"},
		{name: "validation", body: `{"email":"x","username":"_","password":"weak"}`, status: http.StatusUnprocessableEntity, errMsg: "validation failed"},
		{name: "conflict", body: validRegisterBody, err: common.ErrEmailConflict, status: http.StatusConflict, errMsg: "user with this email already exists"},
		{name: "internal", body: validRegisterBody, err: fmt.Errorf("%w: db down", common.ErrorInternal), status: http.StatusInternalServerError, errMsg: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistrar{err: tt.err}
			rec := do(t, newTestServer(&fakeSessions{}, reg, false), http.MethodPost, "/auth/register", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeBody(t, rec)
			if tt.errMsg == "" {
				assert.Equal(t, "user registered", body["message"])
				assert.Equal(t, "a@x.com", reg.in.Email)
				require.NotNil(t, reg.in.DateOfBirth)
				assert.Equal(t, time.May, reg.in.DateOfBirth.Month())
				return
			}
			assert.Equal(t, tt.errMsg, body["error"])
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestRegister_ValidationDetails(t *testing.T) {
	rec := do(t, newTestServer(&fakeSessions{}, &fakeRegistrar{}, false), http.MethodPost, "/auth/register",
		`{"email":"a@x.com","username":"ok","password":"weak"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "password", details[0].(map[string]any)["field"])
}

func TestLogin_SetsCookies(t *testing.T) {
	s := &fakeSessions{loginPair: &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}}
	rec := do(t, newTestServer(s, &fakeRegistrar{}, true), http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"p"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "acc", body["access_token"])
	assert.Equal(t, "bearer", body["token_type"])

	access := cookieByName(rec, "access_token")
	require.NotNil(t, access)
	assert.Equal(t, "acc", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 15*60, access.MaxAge)

	refresh := cookieByName(rec, "refresh_token")
	require.NotNil(t, refresh)
	assert.Equal(t, "ref", refresh.Value)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, 7*24*60*60, refresh.MaxAge)
}

func TestLogin_Failures(t *testing.T) {
	rec := do(t, newTestServer(&fakeSessions{loginErr: common.ErrInvalidCredentials}, &fakeRegistrar{}, false),
		http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"p"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeBody(t, rec)["error"])
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Nil(t, cookieByName(rec, "access_token"))

	rec = do(t, newTestServer(&fakeSessions{}, &fakeRegistrar{}, false), http.MethodPost, "/auth/login", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, newTestServer(&fakeSessions{}, &fakeRegistrar{}, false), http.MethodPost, "/auth/login", `[`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	s := &fakeSessions{}
	h := newTestServer(s, &fakeRegistrar{}, false)

	rec := do(t, h, http.MethodPost, "/auth/logout", "", &http.Cookie{Name: "refresh_token", Value: "ref"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ref", s.gotLogout)

	for _, name := range []string{"access_token", "refresh_token"} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, "", c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}

	rec = do(t, h, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, s.logoutCall)
}

func TestRefresh(t *testing.T) {
	t.Run("ok without rotation", func(t *testing.T) {
		s := &fakeSessions{refreshPair: &services.TokenPair{AccessToken: "acc2"}}
		rec := do(t, newTestServer(s, &fakeRegistrar{}, false), http.MethodPost, "/auth/refresh", "",
			&http.Cookie{Name: "refresh_token", Value: "ref"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ref", s.gotRefresh)
		assert.Equal(t, "acc2", decodeBody(t, rec)["access_token"])
		require.NotNil(t, cookieByName(rec, "access_token"))
		assert.Nil(t, cookieByName(rec, "refresh_token"))
	})

	t.Run("ok with rotation", func(t *testing.T) {
		s := &fakeSessions{refreshPair: &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}}
		rec := do(t, newTestServer(s, &fakeRegistrar{}, false), http.MethodPost, "/auth/refresh", "",
			&http.Cookie{Name: "refresh_token", Value: "ref"})

		require.Equal(t, http.StatusOK, rec.Code)
		c := cookieByName(rec, "refresh_token")
		require.NotNil(t, c)
		assert.Equal(t, "ref2", c.Value)
	})

	for _, tt := range []struct {
		err error
		msg string
	}{
		{common.ErrMissingRefreshToken, "missing refresh token"},
		{common.ErrInvalidRefreshToken, "invalid refresh token"},
	} {
		t.Run(tt.msg, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeSessions{refreshErr: tt.err}, &fakeRegistrar{}, false), http.MethodPost, "/auth/refresh", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestMe(t *testing.T) {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 7, Email: "a@x.com", Username: "ann", PasswordHash: "$2a$secret", Role: models.RoleUser, DateOfBirth: &dob, IsActive: true}

	t.Run("cookie", func(t *testing.T) {
		s := &fakeSessions{user: user}
		rec := do(t, newTestServer(s, &fakeRegistrar{}, false), http.MethodGet, "/users/me", "",
			&http.Cookie{Name: "access_token", Value: "acc"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acc", s.gotAccess)
		body := decodeBody(t, rec)
		assert.Equal(t, "ann", body["username"])
		assert.Equal(t, "1990-05-17", body["date_of_birth"])
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("bearer header", func(t *testing.T) {
		s := &fakeSessions{user: user}
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer acc")
		rec := httptest.NewRecorder()
		newTestServer(s, &fakeRegistrar{}, false).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acc", s.gotAccess)
	})

	for _, tt := range []struct {
		err error
		msg string
	}{
		{common.ErrTokenExpired, "token expired"},
		{common.ErrInvalidToken, "invalid token"},
	} {
		t.Run(tt.msg, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeSessions{userErr: tt.err}, &fakeRegistrar{}, false), http.MethodGet, "/users/me", "",
				&http.Cookie{Name: "access_token", Value: "acc"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
		})
	}

	t.Run("no token", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeSessions{}, &fakeRegistrar{}, false), http.MethodGet, "/users/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeBody(t, rec)["error"])
	})
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(fmt.Errorf("wrapped: %w", common.ErrEmailConflict))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, common.ErrEmailConflict.Error(), msg)

	status, msg = statusFor(errors.New("driver: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", msg)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(&fakeSessions{}, &fakeRegistrar{}, false)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/auth/login", "").Code)
}
