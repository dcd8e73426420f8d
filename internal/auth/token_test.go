package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := IssueSessionToken("secret", "bb_0123", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := ParseSessionToken("secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "bb_0123" {
		t.Fatalf("session id = %q", id)
	}
}

func TestSessionTokenRejects(t *testing.T) {
	tok, _ := IssueSessionToken("secret", "bb_0123", time.Minute)
	if _, err := ParseSessionToken("other", tok); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("wrong secret err = %v", err)
	}

	expired, _ := IssueSessionToken("secret", "bb_0123", -time.Minute)
	if _, err := ParseSessionToken("secret", expired); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("expired err = %v", err)
	}

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	signed, _ := noSession.SignedString([]byte("secret"))
	if _, err := ParseSessionToken("secret", signed); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("missing claim err = %v", err)
	}

	if _, err := IssueSessionToken("", "bb_0123", time.Minute); err == nil {
		t.Errorf("empty secret must fail")
	}
}
