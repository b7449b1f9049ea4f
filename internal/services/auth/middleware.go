package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey int

const userIDKey ctxKey = 1

func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// RequireAuth rejects requests without a valid bearer access token. Access
// validation is self-contained; no storage lookup happens here.
func (c *Controller) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			if ck, err := r.Cookie(accessCookieName); err == nil {
				token = ck.Value
			}
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody(ErrInvalidCredentials))
			return
		}
		id, err := c.uc.ParseAccess(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody(ErrInvalidCredentials))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}
