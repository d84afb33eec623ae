package kdf

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveFromPassphrase(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltLength)

	k1, err := DeriveFromPassphrase([]byte("correct horse"), salt)
	if err != nil {
		t.Fatalf("DeriveFromPassphrase() error = %v", err)
	}
	if len(k1) != KeyLength {
		t.Errorf("key length = %d, want %d", len(k1), KeyLength)
	}

	k2, err := DeriveFromPassphrase([]byte("correct horse"), salt)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt produced different keys")
	}

	k3, err := DeriveFromPassphrase([]byte("correct horse"), bytes.Repeat([]byte{0x02}, SaltLength))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1, k3) {
		t.Error("different salts produced the same key")
	}
}

func TestDeriveFromPassphrase_Errors(t *testing.T) {
	tests := []struct {
		name       string
		passphrase []byte
		salt       []byte
		wantErr    error
	}{
		{"short passphrase", []byte("short"), make([]byte, SaltLength), ErrPassphraseTooShort},
		{"short salt", []byte("long enough"), make([]byte, 4), ErrSaltTooShort},
		{"nil salt", []byte("long enough"), nil, ErrSaltTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeriveFromPassphrase(tt.passphrase, tt.salt); !errors.Is(err, tt.wantErr) {
				t.Errorf("DeriveFromPassphrase() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveSubkey(t *testing.T) {
	master := bytes.Repeat([]byte{0x07}, 32)

	login, err := DeriveSubkey(master, "login")
	if err != nil {
		t.Fatalf("DeriveSubkey() error = %v", err)
	}
	again, err := DeriveSubkey(master, "login")
	if err != nil {
		t.Fatal(err)
	}
	reset, err := DeriveSubkey(master, "password-reset")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(login, again) {
		t.Error("DeriveSubkey() is not deterministic")
	}
	if bytes.Equal(login, reset) {
		t.Error("different info produced the same subkey")
	}
	if bytes.Equal(login, master) {
		t.Error("subkey equals master key")
	}

	if _, err := DeriveSubkey(master[:8], "login"); !errors.Is(err, ErrKeyTooShort) {
		t.Errorf("DeriveSubkey(short) error = %v, want ErrKeyTooShort", err)
	}
	if _, err := DeriveSubkey(master, ""); !errors.Is(err, ErrEmptyInfo) {
		t.Errorf("DeriveSubkey(empty info) error = %v, want ErrEmptyInfo", err)
	}
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != SaltLength || bytes.Equal(a, b) {
		t.Errorf("NewSalt() = %x, %x", a, b)
	}
}

func TestZero(t *testing.T) {
	key := []byte{1, 2, 3}
	Zero(key)
	if !bytes.Equal(key, []byte{0, 0, 0}) {
		t.Errorf("Zero() left %x", key)
	}
}
