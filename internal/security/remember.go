package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const rememberIssuer = "babylog"

// ErrInvalidRememberToken is returned for malformed, expired or forged tokens
var ErrInvalidRememberToken = errors.New("invalid remember-me token")

// RememberTokenIssuer signs and verifies long-lived "remember me" tokens.
// The token carries only the user id; a fresh session is created from it
// when the short-lived session cookie has expired.
type RememberTokenIssuer struct {
	secret   []byte
	duration time.Duration
}

// NewRememberTokenIssuer creates an issuer using HS256 with the given secret
func NewRememberTokenIssuer(secret string, duration time.Duration) *RememberTokenIssuer {
	return &RememberTokenIssuer{secret: []byte(secret), duration: duration}
}

// Duration returns how long issued tokens stay valid
func (i *RememberTokenIssuer) Duration() time.Duration {
	return i.duration
}

// Issue returns a signed token for userID and its expiry time
func (i *RememberTokenIssuer) Issue(userID int64) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, errors.New("remember token secret is not configured")
	}
	now := time.Now()
	expiresAt := now.Add(i.duration)
	claims := jwt.RegisteredClaims{
		Issuer:    rememberIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign remember token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses token and returns the user id it was issued for
func (i *RememberTokenIssuer) Verify(token string) (int64, error) {
	if len(i.secret) == 0 {
		return 0, ErrInvalidRememberToken
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(rememberIssuer),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return 0, ErrInvalidRememberToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidRememberToken
	}
	return userID, nil
}
