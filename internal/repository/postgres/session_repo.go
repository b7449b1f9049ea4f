package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/keyfold/keyfold/internal/domain/session"
)

var _ session.Store = (*SessionRepo)(nil)

// SessionRepo backs the session store with a sessions table. Rows past their
// expiry are invisible to Get and reaped by the sweeper, so expiry is a
// property of the store, not of callers.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const (
	qSessionPut = `
INSERT INTO sessions (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_hash) DO UPDATE SET user_id = $2, expires_at = $3;`

	qSessionGet = `
SELECT user_id FROM sessions
WHERE token_hash = $1 AND expires_at > NOW();`

	qSessionDelete = `
DELETE FROM sessions WHERE token_hash = $1;`

	qSessionSweep = `
DELETE FROM sessions WHERE expires_at <= NOW();`
)

func (r *SessionRepo) Put(ctx context.Context, tokenKey string, userID uuid.UUID, ttl time.Duration) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	expiresAt := time.Now().UTC().Add(ttl)
	if _, err := r.db.Pool.Exec(ctx, qSessionPut, tokenKey, userID, expiresAt); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, tokenKey string) (uuid.UUID, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var userID uuid.UUID
	if err := r.db.Pool.QueryRow(ctx, qSessionGet, tokenKey).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, session.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("session get: %w", err)
	}
	return userID, nil
}

func (r *SessionRepo) Delete(ctx context.Context, tokenKey string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qSessionDelete, tokenKey); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// Sweep removes expired rows and returns how many were deleted.
func (r *SessionRepo) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qSessionSweep)
	if err != nil {
		return 0, fmt.Errorf("session sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunSweeper reaps expired sessions on a fixed interval until ctx is done.
func (r *SessionRepo) RunSweeper(ctx context.Context, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("session sweep failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				log.Debug("swept expired sessions", zap.Int64("deleted", n))
			}
		}
	}
}
