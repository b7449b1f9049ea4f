// Package session defines the refresh-token session contract. Presence of an
// entry is the sole authority for "this refresh token is still valid": token
// signature validity alone is necessary but not sufficient.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for absent entries. It is deliberately the same
// whether the token never existed, was revoked, or expired.
var ErrNotFound = errors.New("session not found")

// Store maps an opaque token key to the identity it authenticates. Expiry is
// enforced by the store itself; entries decay after their TTL with no action
// from callers. Implementations must be safe for concurrent use and atomic
// per key.
type Store interface {
	Put(ctx context.Context, tokenKey string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, tokenKey string) (uuid.UUID, error)
	// Delete is idempotent; deleting an absent key is not an error.
	Delete(ctx context.Context, tokenKey string) error
}
