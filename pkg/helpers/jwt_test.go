package helpers

import (
	"errors"
	"testing"
	"time"
)

func newTestJWT(accessTTL, refreshTTL time.Duration) *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", accessTTL, refreshTTL)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestJWT(time.Hour, 10*time.Hour)

	token, exp, err := m.GenerateAccessToken("u1", "ann@example.com", "customer")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := m.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken failed: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "ann@example.com" || claims.Role != "customer" {
		t.Fatalf("claims = %q/%q/%q, want u1/ann@example.com/customer", claims.Subject, claims.Email, claims.Role)
	}
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	m := newTestJWT(time.Hour, 10*time.Hour)

	token, _, err := m.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}
	claims, err := m.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken failed: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("subject = %q, want u1", claims.Subject)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := newTestJWT(-time.Minute, -time.Minute)

	access, _, err := m.GenerateAccessToken("u1", "ann@example.com", "customer")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := m.ParseAccessToken(access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}

	refresh, _, err := m.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}
	if _, err := m.ParseRefreshToken(refresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newTestJWT(time.Hour, 10*time.Hour)
	other := NewJWTManager("other-access", "other-refresh", time.Hour, 10*time.Hour)

	token, _, err := other.GenerateAccessToken("u1", "ann@example.com", "customer")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := m.ParseAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessTokenDoesNotVerifyAsRefresh(t *testing.T) {
	m := newTestJWT(time.Hour, 10*time.Hour)

	access, _, err := m.GenerateAccessToken("u1", "ann@example.com", "customer")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := m.ParseRefreshToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestJWT(time.Hour, 10*time.Hour)
	if _, err := m.ParseAccessToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}
