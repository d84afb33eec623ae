package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/fwt-go/internal/infra/confloader"
)

const testKey = "bg93rvEVr8OVrq7UDxgPQCBvovxSuIUjrbEBR5JwIAI="

// 16 zero bytes.
const testSalt = "AAAAAAAAAAAAAAAAAAAAAA"

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.Security.Key = testKey
	cfg.Authorities = []AuthorityConfig{
		{Name: "login", TokenType: "LOGIN", DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour},
	}
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Server.HTTP.RateLimit != 0 {
		t.Error("rate limiting should be disabled by default")
	}
	if cfg.Server.HTTP.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.Server.HTTP.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.Revocation.Backend != BackendMemory {
		t.Errorf("Revocation.Backend = %q, want %q", cfg.Revocation.Backend, BackendMemory)
	}
	if cfg.Revocation.PurgeInterval != DefaultPurgeInterval {
		t.Errorf("PurgeInterval = %v, want %v", cfg.Revocation.PurgeInterval, DefaultPurgeInterval)
	}
	if len(cfg.Authorities) != 0 {
		t.Errorf("Authorities = %v, want none", cfg.Authorities)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// Defaults alone are incomplete: no key, no authority.
	if err := Verify(cfg); err == nil {
		t.Error("Verify(Default()) should fail")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"valid", func(*ServerConfig) {}, ""},
		{"passphrase", func(c *ServerConfig) {
			c.Security.Key = ""
			c.Security.Passphrase = "correct horse"
			c.Security.Salt = testSalt
		}, ""},
		{"badger", func(c *ServerConfig) { c.Revocation.Backend = BackendBadger }, ""},
		{"api keys", func(c *ServerConfig) {
			c.Server.HTTP.APIKeyHashes = []string{strings.Repeat("ab", 32)}
		}, ""},
		{"empty addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "" }, "server.http.addr"},
		{"bad addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "localhost" }, "server.http.addr"},
		{"cert without key", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "tls_key_file"},
		{"client ca without tls", func(c *ServerConfig) { c.Server.HTTP.ClientCAFile = "ca.pem" }, "client_ca_file"},
		{"negative rate", func(c *ServerConfig) { c.Server.HTTP.RateLimit = -1 }, "rate_limit"},
		{"zero burst", func(c *ServerConfig) {
			c.Server.HTTP.RateLimit = 10
			c.Server.HTTP.RateBurst = 0
		}, "rate_burst"},
		{"trusted proxies", func(c *ServerConfig) { c.Server.HTTP.TrustedProxies = []string{"10.0.0.0/8", "::1"} }, ""},
		{"bad trusted proxy", func(c *ServerConfig) { c.Server.HTTP.TrustedProxies = []string{"proxy.local"} }, "trusted_proxies[0]"},
		{"local socket", func(c *ServerConfig) { c.Server.Local.Socket = "/run/fwt/admin.sock" }, ""},
		{"long socket path", func(c *ServerConfig) { c.Server.Local.Socket = "/" + strings.Repeat("s", 120) }, "server.local.socket"},
		{"bad api key hash", func(c *ServerConfig) { c.Server.HTTP.APIKeyHashes = []string{"abc"} }, "api_key_hashes[0]"},
		{"no key", func(c *ServerConfig) { c.Security.Key = "" }, "security.key or security.passphrase"},
		{"short key", func(c *ServerConfig) { c.Security.Key = "AAAA" }, "security.key"},
		{"key and passphrase", func(c *ServerConfig) { c.Security.Passphrase = "correct horse" }, "mutually exclusive"},
		{"short passphrase", func(c *ServerConfig) {
			c.Security.Key = ""
			c.Security.Passphrase = "short"
			c.Security.Salt = testSalt
		}, "security.passphrase"},
		{"missing salt", func(c *ServerConfig) {
			c.Security.Key = ""
			c.Security.Passphrase = "correct horse"
		}, "security.salt"},
		{"bad cipher", func(c *ServerConfig) { c.Security.Cipher = "des" }, "security.cipher"},
		{"no authorities", func(c *ServerConfig) { c.Authorities = nil }, "at least one authority"},
		{"bad name", func(c *ServerConfig) { c.Authorities[0].Name = "a/b" }, "name"},
		{"duplicate name", func(c *ServerConfig) {
			c.Authorities = append(c.Authorities, AuthorityConfig{Name: "login"})
		}, "duplicated"},
		{"long token type", func(c *ServerConfig) { c.Authorities[0].TokenType = strings.Repeat("T", 256) }, "token_type"},
		{"default over max", func(c *ServerConfig) { c.Authorities[0].DefaultTTL = 48 * time.Hour }, "default_ttl"},
		{"negative ttl", func(c *ServerConfig) { c.Authorities[0].MaxTTL = -time.Second }, "negative"},
		{"badger without dir", func(c *ServerConfig) {
			c.Revocation.Backend = BackendBadger
			c.Revocation.Dir = ""
		}, "revocation.dir"},
		{"unknown backend", func(c *ServerConfig) { c.Revocation.Backend = "redis" }, "revocation.backend"},
		{"zero purge interval", func(c *ServerConfig) { c.Revocation.PurgeInterval = 0 }, "purge_interval"},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMasterKey(t *testing.T) {
	key, err := SecuritySection{Key: testKey}.MasterKey()
	if err != nil {
		t.Fatalf("MasterKey() error = %v", err)
	}
	if len(key) != 32 {
		t.Errorf("MasterKey() length = %d, want 32", len(key))
	}

	pass := SecuritySection{Passphrase: "correct horse", Salt: testSalt}
	a, err := pass.MasterKey()
	if err != nil {
		t.Fatalf("MasterKey(passphrase) error = %v", err)
	}
	b, err := pass.MasterKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("passphrase derivation is not deterministic")
	}

	if _, err := (SecuritySection{}).MasterKey(); err != ErrNoKey {
		t.Errorf("MasterKey(empty) error = %v, want ErrNoKey", err)
	}
}

func TestSalt_RoundTrip(t *testing.T) {
	salt := []byte("0123456789abcdef")
	got, err := DecodeSalt(EncodeSalt(salt))
	if err != nil {
		t.Fatalf("DecodeSalt() error = %v", err)
	}
	if !bytes.Equal(got, salt) {
		t.Errorf("DecodeSalt() = %x, want %x", got, salt)
	}

	if _, err := DecodeSalt("AAAA"); err == nil {
		t.Error("DecodeSalt(short) should fail")
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTP.APIKeyHashes = []string{strings.Repeat("ab", 32)}

	sanitized := Sanitize(cfg)

	// Original should be unchanged
	if cfg.Security.Key != testKey {
		t.Error("Original config should not be modified")
	}
	if cfg.Server.HTTP.APIKeyHashes[0] != strings.Repeat("ab", 32) {
		t.Error("Original API key hashes should not be modified")
	}

	if sanitized.Security.Key == testKey {
		t.Error("Sanitized config should mask the key")
	}
	if len(sanitized.Security.Key) != len(testKey) {
		t.Errorf("Masked key length = %d, want %d", len(sanitized.Security.Key), len(testKey))
	}
	if strings.Contains(sanitized.Server.HTTP.APIKeyHashes[0], "abababab") {
		t.Error("Sanitized config should mask API key hashes")
	}

	sanitized.Authorities[0].Name = "changed"
	if cfg.Authorities[0].Name != "login" {
		t.Error("Sanitize should copy authorities")
	}
}

func TestSanitize_Passphrase(t *testing.T) {
	cfg := &ServerConfig{Security: SecuritySection{Passphrase: "correct horse"}}
	if got := Sanitize(cfg).Security.Passphrase; got != "****" {
		t.Errorf("Passphrase = %q, want ****", got)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fwt-server.yaml")
	content := `
server:
  http:
    addr: "0.0.0.0:9000"
    rate_limit: 50
    rate_burst: 10
security:
  key: "` + testKey + `"
  cipher: chacha20-poly1305
authorities:
  - name: login
    token_type: LOGIN
    default_ttl: 15m
    max_ttl: 12h
    assign_ids: true
  - name: invite
    key_info: invite-v1
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(path))
	if err := loader.Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "0.0.0.0:9000" || cfg.Server.HTTP.RateLimit != 50 {
		t.Errorf("HTTP = %+v", cfg.Server.HTTP)
	}
	// Unset values keep their defaults.
	if cfg.Server.HTTP.ReadTimeout != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want default", cfg.Server.HTTP.ReadTimeout)
	}

	login, ok := cfg.Authority("login")
	if !ok {
		t.Fatal("Authority(login) not found")
	}
	if login.DefaultTTL != 15*time.Minute || login.MaxTTL != 12*time.Hour || !login.AssignIDs {
		t.Errorf("login = %+v", login)
	}
	invite, ok := cfg.Authority("invite")
	if !ok || invite.KeyInfo != "invite-v1" || invite.TokenType != "" {
		t.Errorf("invite = %+v, %v", invite, ok)
	}
	if _, ok := cfg.Authority("missing"); ok {
		t.Error("Authority(missing) should not be found")
	}
}
