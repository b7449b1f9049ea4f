package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/secret"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  secret.String("access-key-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: secret.String("refresh-key-for-tests"),
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := NewTokenProvider(testTokenConfig())
	userID := uuid.New()

	access, err := p.IssueAccess(userID)
	require.NoError(t, err)
	refresh, err := p.IssueRefresh(userID)
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := p.ValidateAccess(access)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	claims, err = p.ValidateRefresh(refresh)
	require.NoError(t, err)
	got, err = claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenProvider_KeysAreIndependent(t *testing.T) {
	p := NewTokenProvider(testTokenConfig())
	userID := uuid.New()

	access, err := p.IssueAccess(userID)
	require.NoError(t, err)
	refresh, err := p.IssueRefresh(userID)
	require.NoError(t, err)

	_, err = p.ValidateRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = p.ValidateAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	other := testTokenConfig()
	other.AccessSecret = "a completely different key"
	_, err = NewTokenProvider(other).ValidateAccess(access)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenProvider_Expired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = time.Hour
	cfg.Now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
	issuer := NewTokenProvider(cfg)

	token, err := issuer.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenProvider(testTokenConfig()).ValidateAccess(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenProvider_NotYetValid(t *testing.T) {
	cfg := testTokenConfig()
	cfg.Now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	issuer := NewTokenProvider(cfg)

	token, err := issuer.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenProvider(testTokenConfig()).ValidateAccess(token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestTokenProvider_Garbage(t *testing.T) {
	p := NewTokenProvider(testTokenConfig())

	for _, tok := range []string{"", "garbage", "a.b.c", "eyJ.eyJ.sig"} {
		_, err := p.ValidateAccess(tok)
		assert.Error(t, err, "token: %q", tok)
	}
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("token-a")
	h2 := HashToken("token-a")
	h3 := HashToken("token-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotContains(t, h1, "token-a")
}
