// Package auth issues and verifies the signed, expiring JWTs that carry a
// user's identity between requests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAlgorithm is used when Options.Algorithm is empty.
const DefaultAlgorithm = "HS256"

var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Identity is the part of a user embedded into every token.
type Identity struct {
	Email    string
	Username string
	Role     models.Role
}

// Claims is the signed payload: {sub, username, role, exp, iat, jti}.
type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{Email: c.Subject, Username: c.Username, Role: c.Role}
}

// Options configures a Codec.
type Options struct {
	Secret    []byte
	Algorithm string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Codec signs and verifies tokens with one symmetric key. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewCodec validates opts and builds a Codec.
func NewCodec(opts Options) (*Codec, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	alg := strings.ToUpper(strings.TrimSpace(opts.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := signingMethods[alg]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", opts.Algorithm)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{secret: opts.Secret, method: method, now: now}, nil
}

// Algorithm returns the JWT "alg" the codec signs with.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Now returns the current time on the codec's clock.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue signs a token for id that expires ttl from now.
func (c *Codec) Issue(id Identity, ttl time.Duration) (string, error) {
	now := c.now()

	token := jwt.NewWithClaims(c.method, Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString.
//
// It returns common.ErrTokenExpired when the signature is valid but the token
// has expired, and common.ErrInvalidToken for every other failure.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
