package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/domain/session"
	"github.com/keyfold/keyfold/internal/domain/user"
	"github.com/keyfold/keyfold/internal/secret"
	"github.com/keyfold/keyfold/internal/security"
)

// The only errors callers of this package see. Component-level failures
// (hashing, signing, storage) are wrapped and surface as internal.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrInvalidInput       = errors.New("invalid input")
)

const minPasswordLen = 8

type TokenPair struct {
	Access  string
	Refresh string
}

// Usecase orchestrates hashing, token issuance and session storage. It holds
// no mutable state and is safe for concurrent use.
type Usecase struct {
	users    user.Repo
	sessions session.Store
	hasher   *security.PasswordHasher
	tokens   *security.TokenProvider

	// Verified against when login hits an unknown email, so the miss costs
	// about as much as a failed password check.
	decoyHash string
}

func NewUsecase(users user.Repo, sessions session.Store, hasher *security.PasswordHasher, tokens *security.TokenProvider) *Usecase {
	decoy, err := hasher.Hash(secret.String(uuid.NewString()))
	if err != nil {
		decoy = ""
	}
	return &Usecase{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		tokens:    tokens,
		decoyHash: decoy,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// Register creates a credential record and opens a session. The email's
// uniqueness is delegated to the store's constraint.
func (u *Usecase) Register(ctx context.Context, email string, password secret.String) (*user.User, TokenPair, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, TokenPair{}, ErrInvalidInput
	}
	if len(password.Reveal()) < minPasswordLen {
		return nil, TokenPair{}, ErrWeakPassword
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	rec := &user.User{Email: email, PasswordHash: hash}
	if err := u.users.Create(ctx, rec); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return nil, TokenPair{}, ErrEmailExists
		}
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := u.openSession(ctx, rec.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return rec, pair, nil
}

// Login verifies the password and opens a new session. Unknown email and
// wrong password are indistinguishable to the caller.
func (u *Usecase) Login(ctx context.Context, email string, password secret.String) (*user.User, TokenPair, error) {
	email = normalizeEmail(email)

	rec, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			u.hasher.Verify(password, u.decoyHash)
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if !u.hasher.Verify(password, rec.PasswordHash) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := u.openSession(ctx, rec.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return rec, pair, nil
}

// Refresh mints a new access token for a live session. The refresh token and
// its session entry are left untouched; there is no rotation.
// Signature validity alone is not enough: the session entry must still exist,
// and so must the user record behind it.
func (u *Usecase) Refresh(ctx context.Context, rawRefresh string) (string, error) {
	if rawRefresh == "" {
		return "", ErrInvalidCredentials
	}

	claims, err := u.tokens.ValidateRefresh(rawRefresh)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	subject, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidCredentials
	}

	userID, err := u.sessions.Get(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("session lookup: %w", err)
	}
	if userID != subject {
		return "", ErrInvalidCredentials
	}

	if _, err := u.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	access, err := u.tokens.IssueAccess(userID)
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}
	return access, nil
}

// Logout revokes the session behind the presented refresh token. Revoking an
// already-absent session succeeds; presenting no token at all does not.
func (u *Usecase) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return ErrInvalidCredentials
	}
	if err := u.sessions.Delete(ctx, security.HashToken(rawRefresh)); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// ParseAccess validates a bearer access token and returns its subject.
func (u *Usecase) ParseAccess(token string) (uuid.UUID, error) {
	claims, err := u.tokens.ValidateAccess(token)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return id, nil
}

// RefreshTTL exposes the configured refresh lifetime for cookie expiry.
func (u *Usecase) RefreshTTL() time.Duration { return u.tokens.RefreshTTL() }

// AccessTTL exposes the configured access lifetime for cookie expiry.
func (u *Usecase) AccessTTL() time.Duration { return u.tokens.AccessTTL() }

func (u *Usecase) openSession(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	access, err := u.tokens.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := u.tokens.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}
	if err := u.sessions.Put(ctx, security.HashToken(refresh), userID, u.tokens.RefreshTTL()); err != nil {
		return TokenPair{}, fmt.Errorf("save session: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
