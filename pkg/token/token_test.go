package token

import (
	"strings"
	"testing"
	"time"
)

func TestNewSecret(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}
	if !strings.HasPrefix(secret, SecretPrefix) {
		t.Errorf("NewSecret() = %q, missing prefix", secret)
	}
	if len(secret) != len(SecretPrefix)+43 {
		t.Errorf("NewSecret() length = %d, want %d", len(secret), len(SecretPrefix)+43)
	}
	if !IsSecret(secret) {
		t.Errorf("IsSecret(%q) = false", secret)
	}
}

func TestNewSecret_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, err := NewSecret()
		if err != nil {
			t.Fatalf("NewSecret() error = %v", err)
		}
		if seen[secret] {
			t.Errorf("NewSecret() produced duplicate: %s", secret)
		}
		seen[secret] = true
	}
}

func TestIsSecret(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"fwtk_", false},
		{"fwtk_abc", false},
		{"tmtk_" + strings.Repeat("A", 43), false},
		{"fwtk_" + strings.Repeat("A", 43), true},
	}

	for _, tt := range tests {
		if got := IsSecret(tt.input); got != tt.want {
			t.Errorf("IsSecret(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGenerateBytes(t *testing.T) {
	for _, n := range []int{0, 16, 64} {
		b, err := GenerateBytes(n)
		if err != nil {
			t.Fatalf("GenerateBytes(%d) error = %v", n, err)
		}
		if len(b) != n {
			t.Errorf("GenerateBytes(%d) length = %d", n, len(b))
		}
	}
}

func TestNewID(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	a := NewIDAt(at)
	b := NewIDAt(at)

	if len(a) != 26 {
		t.Errorf("NewIDAt() length = %d, want 26", len(a))
	}
	if a >= b {
		t.Errorf("IDs are not monotonic: %s >= %s", a, b)
	}

	ts, err := ParseID(a)
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if !ts.Equal(at) {
		t.Errorf("ParseID() time = %v, want %v", ts, at)
	}

	if _, err := ParseID("not-a-ulid"); err == nil {
		t.Error("ParseID(invalid) should return error")
	}
	if NewID() == NewID() {
		t.Error("NewID() returned duplicates")
	}
}

func TestHash(t *testing.T) {
	// SHA-256 of "test".
	const want = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if got := Hash("test"); got != want {
		t.Errorf("Hash(test) = %s, want %s", got, want)
	}
	if got := HashBytes([]byte("test")); got != want {
		t.Errorf("HashBytes(test) = %s, want %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	h := Hash("secret")
	if !Verify("secret", h) {
		t.Error("Verify() = false for matching secret")
	}
	if Verify("other", h) {
		t.Error("Verify() = true for different secret")
	}

	hashes := []string{Hash("a"), Hash("b")}
	if !VerifyAny("b", hashes) {
		t.Error("VerifyAny(b) = false")
	}
	if VerifyAny("c", hashes) {
		t.Error("VerifyAny(c) = true")
	}
	if VerifyAny("a", nil) {
		t.Error("VerifyAny(no hashes) = true")
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint([]byte("sealed"))
	if len(fp) != fingerprintLength {
		t.Errorf("Fingerprint() length = %d", len(fp))
	}
	if fp != Fingerprint([]byte("sealed")) {
		t.Error("Fingerprint() is not deterministic")
	}
	if fp == Fingerprint([]byte("sealed2")) {
		t.Error("Fingerprint() collided")
	}
}
