package app

import (
	"testing"
	"time"
)

func TestRejoinTokenRoundTrip(t *testing.T) {
	svc := NewRejoinTokenService("test-secret", "rgbzet", time.Hour)

	token, err := svc.Issue("user-1", "ABC123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.RoomCode != "ABC123" {
		t.Fatalf("claims = %+v, want user-1/ABC123", claims)
	}
}

func TestRejoinTokenWrongSecret(t *testing.T) {
	issuer := NewRejoinTokenService("secret-a", "rgbzet", time.Hour)
	verifier := NewRejoinTokenService("secret-b", "rgbzet", time.Hour)

	token, err := issuer.Issue("user-1", "ABC123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestRejoinTokenExpired(t *testing.T) {
	svc := NewRejoinTokenService("test-secret", "rgbzet", -time.Minute)

	token, err := svc.Issue("user-1", "ABC123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Verify(token); err == nil {
		t.Fatalf("expired token must not verify")
	}
}

func TestRejoinTokenUnconfigured(t *testing.T) {
	svc := NewRejoinTokenService("", "rgbzet", time.Hour)

	if _, err := svc.Issue("user-1", "ABC123"); err == nil {
		t.Fatalf("Issue without a secret must fail")
	}
	if _, err := svc.Verify("whatever"); err == nil {
		t.Fatalf("Verify without a secret must fail")
	}
}

func TestRejoinTokenGarbage(t *testing.T) {
	svc := NewRejoinTokenService("test-secret", "rgbzet", time.Hour)

	if _, err := svc.Verify("not.a.token"); err == nil {
		t.Fatalf("garbage token must not verify")
	}
}
