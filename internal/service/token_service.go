package service

import (
	"fmt"
	"time"

	"escrow-settlement-engine/config"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// serviceClaims are the JWT claims carried by service-to-service tokens. The
// signing secret is shared with the identity service that issues them.
type serviceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// TokenServiceImpl implements ports.TokenService with HS256 tokens.
type TokenServiceImpl struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewTokenService creates a new TokenServiceImpl.
func NewTokenService(cfg config.JWTConfig) *TokenServiceImpl {
	return &TokenServiceImpl{
		secret: []byte(cfg.Secret),
		expiry: cfg.Expiry,
		issuer: cfg.Issuer,
	}
}

// Generate issues a token for the named calling service. Used by tooling and
// tests; production callers obtain tokens from the identity service.
func (s *TokenServiceImpl) Generate(service string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiry)

	claims := serviceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a service token.
func (s *TokenServiceImpl) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &serviceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}

	claims, ok := token.Claims.(*serviceClaims)
	if !ok || !token.Valid || claims.Service == "" {
		return nil, apperror.ErrInvalidToken()
	}

	return &ports.TokenClaims{Service: claims.Service}, nil
}
