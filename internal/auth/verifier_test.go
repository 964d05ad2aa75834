package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDevTokens(t *testing.T) {
	v := NewVerifier("dev", "")
	cases := map[string]Principal{
		"admin":        {Subject: "dev", Role: "admin"},
		"elf:viewer":   {Subject: "elf", Role: "viewer"},
		"santa:admin ": {Subject: "santa", Role: "admin"},
	}
	for tok, want := range cases {
		got, err := v.Verify(tok)
		if err != nil || got != want {
			t.Fatalf("Verify(%q) = %+v, %v; want %+v", tok, got, err, want)
		}
	}
	if _, err := v.Verify(" "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for blank token, got %v", err)
	}
}

func TestHMACRoundTrip(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	tok, err := SignHMAC("s3cret", "ops", "admin", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !p.IsAdmin() || p.Subject != "ops" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestHMACRejects(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	wrongKey, _ := SignHMAC("other", "ops", "admin", time.Minute)
	expired, _ := SignHMAC("s3cret", "ops", "admin", -time.Hour)
	noRole, _ := SignHMAC("s3cret", "ops", "", time.Minute)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"role": "admin"}).SignedString([]byte("s3cret"))
	for name, tok := range map[string]string{
		"wrong key": wrongKey,
		"expired":   expired,
		"no role":   noRole,
		"hs512":     hs512,
		"garbage":   "not.a.jwt",
	} {
		if _, err := v.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestNoneMode(t *testing.T) {
	if _, err := NewVerifier("none", "").Verify("admin"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
