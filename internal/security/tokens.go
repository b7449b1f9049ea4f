package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/keyfold/keyfold/internal/secret"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
)

// Claims is the signed payload of both token classes: subject plus validity
// window. Nothing else is carried; validity is self-contained.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// TokenConfig carries the two independent signing keys and lifetimes. A
// compromised access key cannot forge refresh tokens and vice versa.
type TokenConfig struct {
	AccessSecret  secret.String
	AccessTTL     time.Duration
	RefreshSecret secret.String
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// TokenProvider issues and validates HS256-signed access and refresh tokens.
type TokenProvider struct {
	cfg TokenConfig
}

func NewTokenProvider(cfg TokenConfig) *TokenProvider {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &TokenProvider{cfg: cfg}
}

func (p *TokenProvider) AccessTTL() time.Duration  { return p.cfg.AccessTTL }
func (p *TokenProvider) RefreshTTL() time.Duration { return p.cfg.RefreshTTL }

func (p *TokenProvider) IssueAccess(userID uuid.UUID) (string, error) {
	return p.issue(userID, p.cfg.AccessSecret, p.cfg.AccessTTL)
}

func (p *TokenProvider) IssueRefresh(userID uuid.UUID) (string, error) {
	return p.issue(userID, p.cfg.RefreshSecret, p.cfg.RefreshTTL)
}

func (p *TokenProvider) ValidateAccess(token string) (*Claims, error) {
	return p.validate(token, p.cfg.AccessSecret)
}

func (p *TokenProvider) ValidateRefresh(token string) (*Claims, error) {
	return p.validate(token, p.cfg.RefreshSecret)
}

func (p *TokenProvider) issue(userID uuid.UUID, key secret.String, ttl time.Duration) (string, error) {
	now := p.cfg.Now()
	// The jti keeps two tokens for the same subject distinct even when
	// issued within the same second.
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.Bytes())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// validate verifies the signature before inspecting any claim, then checks
// the nbf <= now <= exp window.
func (p *TokenProvider) validate(token string, key secret.String) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return key.Bytes(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.cfg.Now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	default:
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken maps a raw bearer token to the digest under which its session is
// stored. Raw tokens never touch storage.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
