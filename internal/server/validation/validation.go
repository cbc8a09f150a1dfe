// Package validation checks request payloads before they reach the services.
// Validators are pure: they return every violated rule and never touch the
// transport, which decides how to report them.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72

	passwordSpecials = "#?!@$%^&*-"

	// DateLayout is the expected date_of_birth format.
	DateLayout = "2006-01-02"
)

const (
	msgRequired = "is required"
	msgEmail    = "must be a valid email address"
	msgUsername = "must be 1-128 characters of latin letters, digits, '_' and '.', must not start or end with '_' or '.', and must not contain them twice in a row"
	msgName     = "may contain only letters, spaces, apostrophes, hyphens, commas and dots"
	msgNameLen  = "must be at most 128 characters"
	msgPassword = "must be at least 8 characters and contain an uppercase letter, a lowercase letter, a digit and one of #?!@$%^&*-"
	msgPwBytes  = "must be at most 72 bytes"
	msgDate     = "must be a date in YYYY-MM-DD format"
)

// RegisterRequest is the body of a registration call.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email,emaildomain,max=254"`
	Username    string  `json:"username" validate:"required,max=128,username"`
	Password    string  `json:"password" validate:"required,bcryptlen,min=8,password"`
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=128,personname"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=128,personname"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,isodate"`
}

// LoginRequest is the body of a login call. Password policy is not enforced
// at login so that older accounts can still sign in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,emaildomain"`
	Password string `json:"password" validate:"required"`
}

// FieldError names one violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the full list of violations; a nil or empty list means valid.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when there are no violations.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"emaildomain": emailDomain,
		"username":    username,
		"personname":  personName,
		"bcryptlen":   bcryptLen,
		"password":    passwordPolicy,
		"isodate":     isoDate,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}

	return v
}

// ValidateRegister checks every field of a registration request.
func ValidateRegister(r RegisterRequest) Errors {
	return run(r)
}

// ValidateLogin only checks presence and shape.
func ValidateLogin(r LoginRequest) Errors {
	return run(r)
}

func run(s any) Errors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "", Message: err.Error()}}
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email", "emaildomain":
		return msgEmail
	case "username":
		return msgUsername
	case "personname":
		return msgName
	case "bcryptlen":
		return msgPwBytes
	case "password":
		return msgPassword
	case "isodate":
		return msgDate
	case "min", "max":
		switch fe.Field() {
		case "username":
			return msgUsername
		case "password":
			return msgPassword
		case "first_name", "last_name":
			return msgNameLen
		}
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// NormalizeEmail trims and lower-cases an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseDate parses a date_of_birth value.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// emailDomain requires a dotted domain, which "email" alone does not.
func emailDomain(fl validator.FieldLevel) bool {
	_, domain, ok := strings.Cut(fl.Field().String(), "@")
	return ok && strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// username: [a-zA-Z0-9._], no leading/trailing or doubled separators.
func username(fl validator.FieldLevel) bool {
	u := fl.Field().String()
	if u == "" {
		return false
	}

	prevSep := false
	for i := 0; i < len(u); i++ {
		c := u[i]
		sep := c == '.' || c == '_'
		switch {
		case sep:
			if i == 0 || i == len(u)-1 || prevSep {
				return false
			}
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
		prevSep = sep
	}
	return true
}

// personName allows Latin and Cyrillic letters, space and ,.'-
func personName(fl validator.FieldLevel) bool {
	n := fl.Field().String()
	if n == "" {
		return false
	}
	for _, c := range n {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= 'а' && c <= 'я', c >= 'А' && c <= 'Я':
		case strings.ContainsRune(" ,.'-", c):
		default:
			return false
		}
	}
	return true
}

func bcryptLen(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxPasswordBytes
}

func passwordPolicy(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool
	for _, c := range fl.Field().String() {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, c):
			special = true
		}
	}
	return upper && lower && digit && special
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}
