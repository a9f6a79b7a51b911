package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lifelog/internal/domain"
)

// SessionClaims are the claims carried by an API session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Partition string `json:"partition"`
}

// TokenIssuer mints and verifies the HS256 tokens the gate hands out after
// a successful setup or unlock. Tokens are signed with a local secret; there
// is no external identity provider and nothing to fetch keys from.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a token scoped to the given session partition.
func (t *TokenIssuer) Issue(partition string) (string, error) {
	now := t.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Partition: partition,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its claims. Anything off - bad
// signature, wrong algorithm, expiry, empty partition - is ErrUnauthorized.
func (t *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(token *jwt.Token) (any, error) {
			// Pin the algorithm to prevent confusion attacks.
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
			}
			return t.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Partition == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
