package impl

import (
	"errors"
	"strings"
	"testing"
	"time"

	"accountd/internal/domain"
	"accountd/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testTokenService(now time.Time) *TokenServiceImpl {
	ts := NewTokenServiceHS256(TokenConfig{
		Issuer:     "accountd-test",
		TTL:        time.Hour,
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
	})
	ts.now = func() time.Time { return now }
	return ts
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := testTokenService(now)

	session := service.Session{
		UserID:      uuid.New(),
		Username:    "alice",
		Role:        "user",
		Requires2FA: true,
	}
	token, expiresAt, err := ts.Issue(session)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if got, want := expiresAt, now.Add(time.Hour); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}

	parsed, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if parsed.UserID != session.UserID {
		t.Fatalf("user id mismatch: got %v want %v", parsed.UserID, session.UserID)
	}
	if parsed.Username != "alice" || parsed.Role != "user" {
		t.Fatalf("unexpected session: %+v", parsed)
	}
	if !parsed.Requires2FA {
		t.Fatalf("expected pending flag to survive the round trip")
	}
}

func TestTokenExpired(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := testTokenService(issuedAt)

	token, _, err := ts.Issue(service.Session{UserID: uuid.New(), Username: "bob"})
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	ts.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := ts.Verify(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := testTokenService(now)

	token, _, err := ts.Issue(service.Session{UserID: uuid.New(), Username: "carol"})
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "tampered signature", token: token[:len(token)-2] + "xx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ts.Verify(tc.token); !errors.Is(err, domain.ErrTokenMalformed) {
				t.Fatalf("expected ErrTokenMalformed, got %v", err)
			}
		})
	}
}

func TestTokenRejectsWrongAlgorithm(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := testTokenService(now)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		Username: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "accountd-test",
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}
	if _, err := ts.Verify(token); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	other := NewTokenServiceHS256(TokenConfig{
		Issuer:     "someone-else",
		TTL:        time.Hour,
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
	})
	other.now = func() time.Time { return now }

	token, _, err := other.Issue(service.Session{UserID: uuid.New(), Username: "dave"})
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}

	ts := testTokenService(now)
	if _, err := ts.Verify(token); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCarriesRequires2FAClaim(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := testTokenService(now)

	token, _, err := ts.Issue(service.Session{UserID: uuid.New(), Username: "erin", Requires2FA: true})
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	// Claim name is part of the wire contract with clients.
	if !strings.Contains(token, ".") {
		t.Fatalf("expected a JWT, got %q", token)
	}
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if !claims.Requires2FA {
		t.Fatalf("requires2FA claim not set")
	}
}
