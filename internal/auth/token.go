package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

const sessionClaim = "session_id"

// IssueSessionToken signs an HS256 token that lets its holder attach to one
// session's websocket.
func IssueSessionToken(secret, sessionID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("empty jwt secret")
	}
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		sessionClaim: sessionID,
		"iat":        time.Now().Unix(),
		"exp":        jwt.NewNumericDate(exp).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates a token and returns the session id it grants.
func ParseSessionToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSessionToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSessionToken
	}
	id, ok := claims[sessionClaim].(string)
	if !ok || id == "" {
		return "", ErrInvalidSessionToken
	}
	return id, nil
}
