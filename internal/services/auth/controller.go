package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keyfold/keyfold/internal/domain/user"
	"github.com/keyfold/keyfold/internal/obs"
	"github.com/keyfold/keyfold/internal/secret"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

type CookieOpts struct {
	Domain string
	Path   string
	Secure bool
}

// Controller exposes the credential operations over HTTP JSON. Tokens travel
// as HTTP-only, SameSite-Strict cookies; the access token is additionally
// returned in the body for non-browser clients.
type Controller struct {
	log     *zap.Logger
	uc      *Usecase
	users   user.Repo
	cookies CookieOpts
}

func NewController(uc *Usecase, users user.Repo, cookies CookieOpts, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	return &Controller{log: log, uc: uc, users: users, cookies: cookies}
}

// Register mounts the auth routes on mux.
func (c *Controller) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/register", c.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", c.handleLogin)
	mux.HandleFunc("POST /v1/auth/refresh", c.handleRefresh)
	mux.HandleFunc("POST /v1/auth/logout", c.handleLogout)
	mux.Handle("GET /v1/auth/me", c.RequireAuth(http.HandlerFunc(c.handleMe)))
}

type credentialsRequest struct {
	Email    string        `json:"email"`
	Password secret.String `json:"password"`
}

func (c *Controller) handleRegister(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, "register", started, ErrInvalidInput)
		return
	}

	u, pair, err := c.uc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		c.writeError(w, r, "register", started, err)
		return
	}

	obs.WithTrace(r.Context(), c.log).Info("auth.register", zap.String("user_id", u.ID.String()))
	c.setTokenCookies(w, pair)
	obs.ObserveAuthOp("register", "ok", started)
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "access_token": pair.Access})
}

func (c *Controller) handleLogin(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, r, "login", started, ErrInvalidInput)
		return
	}

	u, pair, err := c.uc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		c.writeError(w, r, "login", started, err)
		return
	}

	obs.WithTrace(r.Context(), c.log).Info("auth.login", zap.String("user_id", u.ID.String()))
	c.setTokenCookies(w, pair)
	obs.ObserveAuthOp("login", "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "access_token": pair.Access})
}

func (c *Controller) handleRefresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	access, err := c.uc.Refresh(r.Context(), c.refreshToken(r))
	if err != nil {
		c.clearTokenCookies(w)
		c.writeError(w, r, "refresh", started, err)
		return
	}

	c.setCookie(w, accessCookieName, access, c.uc.AccessTTL())
	obs.ObserveAuthOp("refresh", "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"access_token": access})
}

func (c *Controller) handleLogout(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if err := c.uc.Logout(r.Context(), c.refreshToken(r)); err != nil {
		c.writeError(w, r, "logout", started, err)
		return
	}

	c.clearTokenCookies(w)
	obs.ObserveAuthOp("logout", "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (c *Controller) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody(ErrInvalidCredentials))
		return
	}
	u, err := c.users.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody(ErrInvalidCredentials))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// statusByKind is the single place service errors become transport statuses.
// Anything unlisted is an internal failure and stays opaque to the caller.
var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrEmailExists, http.StatusConflict},
	{ErrWeakPassword, http.StatusBadRequest},
	{ErrInvalidInput, http.StatusBadRequest},
}

func (c *Controller) writeError(w http.ResponseWriter, r *http.Request, op string, started time.Time, err error) {
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			obs.ObserveAuthOp(op, m.kind.Error(), started)
			writeJSON(w, m.status, errorBody(m.kind))
			return
		}
	}
	obs.WithTrace(r.Context(), c.log).Error("auth."+op, zap.Error(err))
	obs.ObserveAuthOp(op, "internal", started)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func errorBody(kind error) map[string]string {
	return map[string]string{"error": kind.Error()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (c *Controller) setTokenCookies(w http.ResponseWriter, pair TokenPair) {
	c.setCookie(w, accessCookieName, pair.Access, c.uc.AccessTTL())
	c.setCookie(w, refreshCookieName, pair.Refresh, c.uc.RefreshTTL())
}

func (c *Controller) clearTokenCookies(w http.ResponseWriter) {
	c.setCookie(w, accessCookieName, "", -time.Second)
	c.setCookie(w, refreshCookieName, "", -time.Second)
}

func (c *Controller) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.cookies.Domain,
		Path:     c.cookies.Path,
		HttpOnly: true,
		Secure:   c.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
		ck.Expires = time.Now().Add(ttl).UTC()
	} else {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0).UTC()
	}
	http.SetCookie(w, ck)
}

// refreshToken reads the refresh token from the cookie, falling back to the
// X-Refresh-Token header for non-browser clients.
func (c *Controller) refreshToken(r *http.Request) string {
	if ck, err := r.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return r.Header.Get("X-Refresh-Token")
}

func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
