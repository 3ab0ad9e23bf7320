package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

func testUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("user-1", "alice", "https://cdn.example/a.png")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.GenerateToken(testUser(t), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "user-1" || got.Username != "alice" || got.Avatar == "" {
		t.Errorf("resolved user = %+v", got)
	}

	// The Bearer prefix from an Authorization header is accepted too.
	if _, err := v.Verify("Bearer " + token); err != nil {
		t.Errorf("bearer-prefixed token rejected: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier("test-secret")
	for _, raw := range []string{"", "Bearer ", "not.a.token"} {
		if _, err := v.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.GenerateToken(testUser(t), -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewVerifier("secret-a")
	token, err := signer.GenerateToken(testUser(t), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	v := NewVerifier("secret-b")
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("cross-secret token = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsMissingIdentity(t *testing.T) {
	v := NewVerifier("test-secret")
	// A token whose claims carry no user id resolves to no identity.
	u := &domain.User{ID: "", Username: "ghost"}
	token, err := v.GenerateToken(u, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("identityless token = %v, want ErrInvalidToken", err)
	}
}
