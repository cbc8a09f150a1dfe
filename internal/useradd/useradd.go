// Package useradd is the interactive operator flow that creates an account
// directly against the user store, bypassing the HTTP API.
package useradd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

// ErrPasswordMismatch is returned when the confirmation differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

// Run prompts for the account fields and role on reader/w, reads the password twice
// from the terminal, validates everything and registers the user.
func Run(ctx context.Context, reader *bufio.Reader, w io.Writer, reg Registrar) (*models.User, error) {
	email, err := GetSimpleText(reader, "Enter email", w)
	if err != nil {
		return nil, err
	}
	username, err := GetSimpleText(reader, "Enter username", w)
	if err != nil {
		return nil, err
	}
	firstName, err := GetSimpleText(reader, "Enter first name (optional)", w)
	if err != nil {
		return nil, err
	}
	lastName, err := GetSimpleText(reader, "Enter last name (optional)", w)
	if err != nil {
		return nil, err
	}

	role, err := GetSimpleText(reader, "Enter role (user/admin, default user)", w)
	if err != nil {
		return nil, err
	}
	if role != "" && !models.Role(role).Valid() {
		return nil, fmt.Errorf("%w: %q", services.ErrInvalidRole, role)
	}

	password, err := GetPassword(w, "Enter password")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(w, "Repeat password")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return nil, ErrPasswordMismatch
	}

	req := validation.RegisterRequest{
		Email:     email,
		Username:  username,
		Password:  string(password),
		FirstName: optional(firstName),
		LastName:  optional(lastName),
	}
	if errs := validation.ValidateRegister(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := reg.Register(ctx, services.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(role),
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return user, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
