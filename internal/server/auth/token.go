// Package auth holds the credential primitives of the server: bcrypt
// password hashing and the signed access/refresh token issuer.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tells access tokens and refresh tokens apart.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// Claims are the JWT claims minted by TokenIssuer. Subject carries the user
// id and ID a random token id, so two tokens issued within the same second
// never collide.
type Claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"typ"`
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenIssuer mints and verifies HS256 tokens. Each purpose is signed with
// its own secret.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// IssueAccessToken returns a short-lived token for subjectID and its expiry.
func (i *TokenIssuer) IssueAccessToken(subjectID string) (string, time.Time, error) {
	return i.issue(subjectID, PurposeAccess)
}

// IssueRefreshToken returns a long-lived token for subjectID and its expiry.
func (i *TokenIssuer) IssueRefreshToken(subjectID string) (string, time.Time, error) {
	return i.issue(subjectID, PurposeRefresh)
}

// Verify checks the signature, expiry and purpose of token and returns the
// subject id. Expired tokens yield common.ErrTokenExpired, every other
// failure common.ErrInvalidToken.
func (i *TokenIssuer) Verify(token string, purpose Purpose) (string, error) {
	key, _, err := i.keyFor(purpose)
	if err != nil {
		return "", err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	if i.cfg.Issuer != "" && claims.Issuer != i.cfg.Issuer {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

func (i *TokenIssuer) issue(subjectID string, purpose Purpose) (string, time.Time, error) {
	key, ttl, err := i.keyFor(purpose)
	if err != nil {
		return "", time.Time{}, err
	}

	now := i.now()
	expires := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Purpose: purpose,
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expires, nil
}

func (i *TokenIssuer) keyFor(purpose Purpose) ([]byte, time.Duration, error) {
	switch purpose {
	case PurposeAccess:
		return i.cfg.AccessSecret, i.cfg.AccessTTL, nil
	case PurposeRefresh:
		return i.cfg.RefreshSecret, i.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}
