package util

import (
	"testing"
	"time"
)

const testSecret = "unit-test-secret-0123456789abcdef"

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken(42, "session-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	claims, err := ParseAdminToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseAdminToken: %v", err)
	}
	if claims.AdminID != 42 || claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAdminTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAdminToken(42, "session-1", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	if _, err := ParseAdminToken(token, "another-secret"); err == nil {
		t.Fatal("expected a signature error")
	}
}

func TestAdminTokenRejectsExpired(t *testing.T) {
	token, err := GenerateAdminToken(42, "session-1", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	if _, err := ParseAdminToken(token, testSecret); err == nil {
		t.Fatal("expected an expiry error")
	}
}

func TestAdminTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseAdminToken("not-a-token", testSecret); err == nil {
		t.Fatal("expected a parse error")
	}
}
