package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
security:
  key: ` + testKey + `
authorities:
  - name: login
    token_type: LOGIN
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FWT_SERVER__HTTP__ADDR", "127.0.0.1:7000")

	cfg, loader, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loader.FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", loader.FilePath(), path)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q, want env override", cfg.Server.HTTP.Addr)
	}
	if _, ok := cfg.Authority("login"); !ok {
		t.Error("Authority(login) not found")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("authorities:\n  - name: login\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(path); err == nil {
		t.Error("Load() without a key should fail verification")
	}

	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing file) should fail")
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Security.Cipher = "chacha20-poly1305"
	cfg.Authorities = append(cfg.Authorities, AuthorityConfig{Name: "invite", KeyInfo: "invite-v1", AssignIDs: true})

	sc, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatalf("ServiceConfig() error = %v", err)
	}
	if len(sc.MasterKey) != adaptive.KeySize {
		t.Errorf("MasterKey length = %d", len(sc.MasterKey))
	}
	if sc.Cipher != adaptive.CipherChaCha20 {
		t.Errorf("Cipher = %s, want %s", sc.Cipher, adaptive.CipherChaCha20)
	}

	want := []service.AuthorityConfig{
		{Name: "login", TokenType: "LOGIN", DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour},
		{Name: "invite", KeyInfo: "invite-v1", AssignIDs: true},
	}
	if len(sc.Authorities) != len(want) {
		t.Fatalf("Authorities = %+v", sc.Authorities)
	}
	for i := range want {
		if sc.Authorities[i] != want[i] {
			t.Errorf("Authorities[%d] = %+v, want %+v", i, sc.Authorities[i], want[i])
		}
	}

	svc, err := service.NewTokenService(sc)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if got := svc.Authorities(); len(got) != 2 || got[0] != "invite" {
		t.Errorf("Authorities() = %v", got)
	}
}

func TestServiceConfig_Passphrase(t *testing.T) {
	cfg := validConfig()
	cfg.Security.Key = ""
	cfg.Security.Passphrase = "correct horse battery staple"
	cfg.Security.Salt = testSalt

	a, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatalf("ServiceConfig() error = %v", err)
	}
	b, err := cfg.ServiceConfig()
	if err != nil {
		t.Fatal(err)
	}
	if string(a.MasterKey) != string(b.MasterKey) {
		t.Error("passphrase derivation is not deterministic")
	}

	cfg.Security.Cipher = "rot13"
	if _, err := cfg.ServiceConfig(); err == nil {
		t.Error("ServiceConfig() with unknown cipher should fail")
	}
}
