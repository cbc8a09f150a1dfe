// Package revocations tracks refresh tokens (by jti) that must no longer be
// accepted: consumed by rotation or revoked at logout.
package revocations

import (
	"context"
	"time"
)

// Repository is the revocation store contract. Entries only need to live as
// long as the token they refer to, so every write carries a TTL.
type Repository interface {
	// Consume atomically marks jti as used. It returns common.ErrTokenRevoked
	// if jti was already consumed or revoked.
	Consume(ctx context.Context, jti string, ttl time.Duration) error

	// Revoke marks jti as unusable. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether jti was consumed or revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
