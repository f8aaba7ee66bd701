package httpauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/muurk/adminkit/internal/auth"
)

// Issuer is the iss claim of session tokens.
const Issuer = "adminkit"

// Claims is the payload of a session token. Backends issue it, the provider
// turns it into an auth.Session.
type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// IssueToken signs claims with HS256, filling issue and expiry times.
func IssueToken(key []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	if claims.Issuer == "" {
		claims.Issuer = Issuer
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token signed with key. With a nil key the signature
// is not checked, only the claims are decoded; clients that do not hold the
// backend secret use this and let the backend reject forged tokens.
func ParseToken(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}
	if key == nil {
		_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
		if err != nil {
			return nil, fmt.Errorf("failed to decode token: %w", err)
		}
		if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
			return nil, fmt.Errorf("failed to decode token: %w", jwt.ErrTokenExpired)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

// SessionFromToken decodes tokenString into a session carrying the token.
func SessionFromToken(tokenString string, key []byte) (*auth.Session, error) {
	claims, err := ParseToken(tokenString, key)
	if err != nil {
		return nil, err
	}
	s := &auth.Session{
		UserID:      claims.Subject,
		Name:        claims.Name,
		Token:       tokenString,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Extra:       map[string]any{"session_id": claims.ID},
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// IsExpired reports whether err is a token expiry.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
