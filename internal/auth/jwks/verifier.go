package jwks

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/miklbjorn/email-summerhouse/internal/config"
	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// Claims are the token claims the API cares about.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates RS256 bearer tokens signed by keys from a JWKS endpoint.
type Verifier struct {
	cache    *Cache
	issuer   string
	audience string
}

// NewVerifier creates a token verifier from auth configuration.
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{
		cache:    NewCache(cfg.JWKSURL, cfg.JWKSCacheTTL),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Verify parses and validates a bearer token, returning its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.cache.Key(ctx, kid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, opts...)
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
