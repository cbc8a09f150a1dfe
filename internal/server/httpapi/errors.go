package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

const (
	msgInternal       = "internal error"
	msgBadRequest     = "invalid request body"
	msgValidation     = "validation failed"
	msgRegistered     = "user registered"
	maxRequestBodyLen = 1 << 20
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details validation.Errors `json:"details,omitempty"`
}

// clientErrors are safe to show verbatim; anything else becomes 500.
var clientErrors = []struct {
	err    error
	status int
}{
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrEmailConflict, http.StatusConflict},
	{common.ErrMissingRefreshToken, http.StatusUnauthorized},
	{common.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrUnauthorized, http.StatusUnauthorized},
}

// statusFor maps a service error to its status code and public message.
func statusFor(err error) (int, string) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return ce.status, ce.err.Error()
		}
	}
	return http.StatusInternalServerError, msgInternal
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidationError(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msgValidation, Details: errs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	return json.NewDecoder(r.Body).Decode(dst)
}
