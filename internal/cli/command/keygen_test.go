package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/fwt-go/pkg/fwt"
	"github.com/yndnr/fwt-go/pkg/token"
)

func TestKeygen(t *testing.T) {
	var a, b KeyResult
	if err := runJSON(t, &a, "", "keygen"); err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	if err := runJSON(t, &b, "", "keygen"); err != nil {
		t.Fatalf("keygen error = %v", err)
	}

	key, err := fwt.DecodeKey(a.Key)
	if err != nil || len(key) != 32 {
		t.Fatalf("DecodeKey(%q) = %d bytes, %v", a.Key, len(key), err)
	}
	if a.Key == b.Key {
		t.Error("keygen returned the same key twice")
	}
	if a.Salt != "" {
		t.Errorf("Salt = %q, want none for a random key", a.Salt)
	}

	// A generated key is directly usable.
	tok := issueTokenWithKey(t, a.Key)
	if _, err := run(t, "", "validate", "--key", a.Key, tok); err != nil {
		t.Errorf("validate with generated key error = %v", err)
	}
}

func issueTokenWithKey(t *testing.T, key string) string {
	t.Helper()
	out, err := run(t, "", "issue", "--key", key, "-q", "--payload", "x")
	if err != nil {
		t.Fatalf("issue error = %v", err)
	}
	return strings.TrimSpace(out)
}

func TestKeygen_Passphrase(t *testing.T) {
	const passphrase = "correct horse battery staple"

	var first KeyResult
	if err := runJSON(t, &first, "", "keygen", "--passphrase", passphrase); err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	if first.Salt == "" {
		t.Fatal("keygen --passphrase should report the generated salt")
	}

	var again KeyResult
	if err := runJSON(t, &again, "", "keygen", "--passphrase", passphrase, "--salt", first.Salt); err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	if again.Key != first.Key || again.Salt != first.Salt {
		t.Errorf("keygen with the same salt = %+v, want %+v", again, first)
	}

	// The derived key matches what issue derives from the same inputs.
	tok := issueTokenWithKey(t, first.Key)
	if _, err := run(t, "", "validate", "--passphrase", passphrase, "--salt", first.Salt, tok); err != nil {
		t.Errorf("validate with passphrase error = %v", err)
	}
}

func TestKeygen_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"salt without passphrase", []string{"keygen", "--salt", "AAAAAAAAAAAAAAAAAAAAAA"}},
		{"short passphrase", []string{"keygen", "--passphrase", "short"}},
		{"short salt", []string{"keygen", "--passphrase", "correct horse", "--salt", "AAAA"}},
		{"api key with passphrase", []string{"keygen", "--api-key", "--passphrase", "correct horse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, "", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestKeygen_APIKey(t *testing.T) {
	var res APIKeyResult
	if err := runJSON(t, &res, "", "keygen", "--api-key"); err != nil {
		t.Fatalf("keygen --api-key error = %v", err)
	}
	if !token.IsSecret(res.Secret) {
		t.Errorf("Secret = %q is not an API key secret", res.Secret)
	}
	if !token.Verify(res.Secret, res.Hash) {
		t.Error("Hash does not verify the secret")
	}
}

func TestKeygen_Out(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	out, err := run(t, "", "keygen", "--out", path)
	if err != nil {
		t.Fatalf("keygen --out error = %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output = %q, want the file path", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fwt.DecodeKey(strings.TrimSpace(string(data))); err != nil {
		t.Errorf("key file content is not a key: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	// Issue with the written key file.
	if _, err := run(t, "", "issue", "--key-file", path, "-q"); err != nil {
		t.Errorf("issue --key-file error = %v", err)
	}
}
