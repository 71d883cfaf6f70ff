package jwt

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    60 * 24 * time.Hour,
		AccessSecret:  []byte("test-access-secret-0123456789ab"),
		RefreshSecret: []byte("test-refresh-secret-0123456789a"),
		Issuer:        "authcore-test",
	}
}

func TestNewManagerRejectsSharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for identical access/refresh secrets")
	}
}

func TestNewManagerRejectsMissingSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = nil
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
}

func TestCreatePairRoundTrip(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	pair, err := m.CreatePair("acct-1", "admin")
	if err != nil {
		t.Fatalf("CreatePair failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be minted")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	claims, err := m.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "acct-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	claims, err = m.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("unexpected refresh subject: %q", claims.Subject)
	}
}

func TestCrossKindVerificationFails(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	pair, err := m.CreatePair("acct-1", "member")
	if err != nil {
		t.Fatalf("CreatePair failed: %v", err)
	}

	if _, err := m.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrInvalid) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}
	if _, err := m.ParseRefresh(pair.AccessToken); !errors.Is(err, ErrInvalid) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Nanosecond
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	pair, err := m.CreatePair("acct-1", "member")
	if err != nil {
		t.Fatalf("CreatePair failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	claims, err := m.ParseAccess(pair.AccessToken)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// The claims still come back so callers can tell whose token expired.
	if claims == nil || claims.Subject != "acct-1" {
		t.Fatalf("expected claims alongside ErrExpired, got %+v", claims)
	}
}

func TestParseGarbage(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.ParseAccess("not.a.token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := m.ParseAccess(""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for empty token, got %v", err)
	}
}
