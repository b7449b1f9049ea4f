package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a credential record: stable identity, email, and the one-way hash
// of the password. The hash is never returned to callers or logged.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
