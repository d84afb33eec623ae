package config

import "time"

// ServerConfig is the root configuration for fwt-server.
type ServerConfig struct {
	Server      ServerSection     `koanf:"server"`
	Security    SecuritySection   `koanf:"security"`
	Authorities []AuthorityConfig `koanf:"authorities"`
	Revocation  RevocationSection `koanf:"revocation"`
	Log         LogSection        `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	// Socket is the Unix socket path. Empty disables the socket.
	Socket string `koanf:"socket"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string `koanf:"addr"`
	TLSCertFile  string `koanf:"tls_cert_file"`
	TLSKeyFile   string `koanf:"tls_key_file"`
	ClientCAFile string `koanf:"client_ca_file"`

	// RateLimit is the per-client-IP request rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// TrustedProxies are IPs or CIDR ranges allowed to set
	// X-Forwarded-For and X-Real-IP. Empty ignores those headers.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// APIKeyHashes are SHA-256 hex digests of accepted bearer secrets.
	// An empty list leaves the API unauthenticated.
	APIKeyHashes []string `koanf:"api_key_hashes"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecuritySection configures the master key.
//
// Exactly one of Key or Passphrase must be set. Salt is required with
// Passphrase.
type SecuritySection struct {
	Key        string `koanf:"key"`
	Passphrase string `koanf:"passphrase"`
	Salt       string `koanf:"salt"`
	Cipher     string `koanf:"cipher"`
}

// AuthorityConfig configures one named token authority.
type AuthorityConfig struct {
	Name string `koanf:"name"`

	// TokenType is stamped into issued tokens and enforced on validation.
	// Empty means untyped.
	TokenType string `koanf:"token_type"`

	// KeyInfo derives a dedicated key from the master key when set.
	KeyInfo string `koanf:"key_info"`

	// DefaultTTL applies when an issue request carries no expiry.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// MaxTTL bounds the requested lifetime. Zero means unbounded.
	MaxTTL time.Duration `koanf:"max_ttl"`

	// AssignIDs gives tokens without an explicit ID a generated one.
	AssignIDs bool `koanf:"assign_ids"`
}

// RevocationSection configures the revocation store.
type RevocationSection struct {
	Backend       string        `koanf:"backend"`
	Dir           string        `koanf:"dir"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Authority returns the named authority configuration.
func (c *ServerConfig) Authority(name string) (AuthorityConfig, bool) {
	for _, a := range c.Authorities {
		if a.Name == name {
			return a, true
		}
	}
	return AuthorityConfig{}, false
}
