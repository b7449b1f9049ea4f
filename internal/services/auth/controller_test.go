package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/repository/memory"
	"github.com/keyfold/keyfold/internal/secret"
	"github.com/keyfold/keyfold/internal/security"
)

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	users  *fakeUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserRepo()
	sessions := memory.NewSessionStore(0)
	hasher := security.NewPasswordHasher(fastParams)
	tokens := security.NewTokenProvider(security.TokenConfig{
		AccessSecret:  secret.String("test-access-key"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: secret.String("test-refresh-key"),
		RefreshTTL:    time.Hour,
	})
	uc := NewUsecase(users, sessions, hasher, tokens)
	ctrl := NewController(uc, users, CookieOpts{Path: "/"}, nil)

	mux := http.NewServeMux()
	ctrl.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar, Timeout: 5 * time.Second},
		users:  users,
	}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	resp, err := e.client.Post(e.srv.URL+path, "application/json", rd)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func credentials(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func TestHTTP_Register(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["access_token"])
	u := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", u["email"])
	assert.NotContains(t, u, "password_hash")

	var names []string
	for _, ck := range resp.Cookies() {
		names = append(names, ck.Name)
		assert.True(t, ck.HttpOnly, "cookie %s must be http-only", ck.Name)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite, "cookie %s", ck.Name)
		assert.NotContains(t, ck.Value, "pw123secret")
	}
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, names)
}

func TestHTTP_RegisterConflictAndBadInput(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.post(t, "/v1/auth/register", credentials("a@x.com", "otherpass1"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.post(t, "/v1/auth/register", credentials("bad email", "pw123secret"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/v1/auth/register", credentials("b@x.com", "short"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_LoginFailuresLookAlike(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	wrong := env.post(t, "/v1/auth/login", credentials("a@x.com", "wrongpassword"))
	unknown := env.post(t, "/v1/auth/login", credentials("ghost@x.com", "pw123secret"))

	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, decodeBody(t, wrong), decodeBody(t, unknown))
}

func TestHTTP_RefreshAndLogoutFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Cookie jar carries the refresh token back.
	resp = env.post(t, "/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["access_token"])

	// Refresh does not rotate: the same cookie keeps working.
	resp = env.post(t, "/v1/auth/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.post(t, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cookies were cleared by logout; a bare refresh is unauthorized.
	resp = env.post(t, "/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_RefreshHeaderFallback(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var refresh string
	for _, ck := range resp.Cookies() {
		if ck.Name == "refresh_token" {
			refresh = ck.Value
		}
	}
	require.NotEmpty(t, refresh)

	// No jar: token travels in the header instead.
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/auth/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("X-Refresh-Token", refresh)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusOK, raw.StatusCode)
}

func TestHTTP_LogoutRevokedTokenStillSucceeds(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var refresh string
	u, _ := url.Parse(env.srv.URL)
	for _, ck := range env.client.Jar.Cookies(u) {
		if ck.Name == "refresh_token" {
			refresh = ck.Value
		}
	}
	require.NotEmpty(t, refresh)

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/auth/logout", nil)
		require.NoError(t, err)
		req.Header.Set("X-Refresh-Token", refresh)
		raw, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = raw.Body.Close()
		assert.Equal(t, http.StatusOK, raw.StatusCode, "logout attempt %d", i+1)
	}
}

func TestHTTP_Me(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/v1/auth/register", credentials("a@x.com", "pw123secret"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	access := decodeBody(t, resp)["access_token"].(string)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusOK, raw.StatusCode)
	body := decodeBody(t, raw)
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])

	req, err = http.NewRequest(http.MethodGet, env.srv.URL+"/v1/auth/me", nil)
	require.NoError(t, err)
	raw, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode)
}

func TestHTTP_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.Post(env.srv.URL+"/v1/auth/register", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
