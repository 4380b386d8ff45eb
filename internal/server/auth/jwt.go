// Package auth issues and verifies the portal's bearer tokens: HS256 JWTs
// with a fixed one-hour lifetime and no server-side session state.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = time.Hour

var ErrEmptySecret = errors.New("jwt secret must not be empty")

// Claims carries the subject id and name plus an optional role hint.
// The hint is never trusted for authorization on its own.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string      `json:"uid"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role,omitempty"`
}

type TokenService struct {
	secret []byte
	now    func() time.Time
}

type Option func(*TokenService)

// WithClock replaces time.Now, mostly for tests around expiry.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Issue signs a token for the account that expires TokenTTL from now.
func (s *TokenService) Issue(a *models.Account) (string, error) {
	// NumericDate has second precision. The lifetime runs from the truncated
	// second, so a token can expire up to a second before now+TTL.
	iat := s.now().Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(TokenTTL)),
		},
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.EffectiveRole(),
	})

	return token.SignedString(s.secret)
}

// Verify checks signature, algorithm and expiry. Failures are one of
// common.ErrInvalidToken, common.ErrTokenExpired or common.ErrMalformedToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, common.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}

	if claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// Principal converts verified claims into an unverified-role principal.
func (c *Claims) Principal() models.Principal {
	return models.Principal{AccountID: c.AccountID, Username: c.Username, Role: c.Role}
}
