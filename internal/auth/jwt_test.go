package auth

import (
	"strings"
	"testing"
)

func TestSignAndParse(t *testing.T) {
	m := NewManager("unit-test-secret")

	raw, err := m.Sign("user-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := m.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Fatalf("subject %q, want user-123", claims.UserID)
	}

	if claims.JTI == "" {
		t.Fatalf("expected a jti")
	}

	// no expiry claim: token life is governed by the token list, not the JWT
	if claims.ExpiresAt != nil {
		t.Fatalf("token must not carry an expiry claim")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := NewManager("secret-one").Sign("user-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewManager("secret-two").Parse(raw); err == nil {
		t.Fatalf("token signed with another secret must not parse")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := NewManager("unit-test-secret")

	raw, err := m.Sign("user-123")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}

	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := m.Parse(tampered); err == nil {
		t.Fatalf("tampered signature must not parse")
	}

	if _, err := m.Parse("not-a-token"); err == nil {
		t.Fatalf("malformed token must not parse")
	}
}

func TestEachSignIsUnique(t *testing.T) {
	m := NewManager("unit-test-secret")

	a, _ := m.Sign("user-123")
	b, _ := m.Sign("user-123")

	if a == b {
		t.Fatalf("two issued tokens for one user must differ")
	}
}
