package security

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Stronger#Pass123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	ok, err := VerifyPassword(hash, "Stronger#Pass123")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification success")
	}
	ok, err = VerifyPassword(hash, "wrong-pass")
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("expected password verification failure")
	}
}

func TestHashPasswordNeverStoresPlaintextAndSalts(t *testing.T) {
	a, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	b, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a == "pw1" || b == "pw1" {
		t.Fatal("hash must differ from plaintext")
	}
	if a == b {
		t.Fatal("expected distinct salts per hash")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	good, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	bad := []string{
		"$bcrypt$whatever",
		strings.Replace(good, "v=19", "v=16", 1),
		strings.Replace(good, "m=65536", "m=x", 1),
		good[:strings.LastIndex(good, "$")] + "$",
	}
	for _, enc := range bad {
		if _, err := VerifyPassword(enc, "pw1"); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", enc, err)
		}
	}
}

func TestHashPasswordEncodesParams(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected encoding %q", hash)
	}
}
