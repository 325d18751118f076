package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token validation errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("JWT secret not configured")
)

// JWTValidator verifies HS256 bearer tokens. The subject claim is the user ID.
type JWTValidator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTValidator creates a validator. An empty issuer accepts any issuer.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Validate checks the token signature, expiry and issuer and returns its subject.
// Tokens without an exp claim are rejected.
func (v *JWTValidator) Validate(tokenString string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return "", fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Issue signs a token for userID that expires after ttl.
func (v *JWTValidator) Issue(userID string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}

	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
