// Package jwt verifies company API-key tokens.
//
// Tokens are issued by the platform's account service; the play engine only
// validates them and extracts the calling company's identity.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/tunelease/server/pkg/errors"
)

// Claims represents the claims carried by a company API key.
type Claims struct {
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// Manager handles JWT operations.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// Config holds JWT manager configuration.
type Config struct {
	Secret string
	Issuer string
	Expiry time.Duration // Used only when minting tokens (tests, tooling)
}

// NewManager creates a new JWT manager.
func NewManager(cfg *Config) *Manager {
	expiry := cfg.Expiry
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expiry: expiry,
	}
}

// Generate mints an API key for a company. The production issuer lives in the
// account service; this is used by tests and local tooling.
func (m *Manager) Generate(companyID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   companyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and validates an API key, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, apperrors.ErrUnauthorized.WithError(fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	if claims.CompanyID == "" {
		return nil, apperrors.ErrUnauthorized.WithError(fmt.Errorf("token has no company_id claim"))
	}

	return claims, nil
}
