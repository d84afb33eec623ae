package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/pkg/crypto/adaptive"
	"github.com/yndnr/fwt-go/pkg/crypto/kdf"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

// maxSocketPath fits sun_path on Linux and the BSDs.
const maxSocketPath = 103

// Authority names appear in URL paths.
var authorityNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	if err := verifyAuthorities(cfg.Authorities); err != nil {
		return err
	}
	if err := verifyRevocation(&cfg.Revocation); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	h := &cfg.HTTP
	if h.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if _, _, err := net.SplitHostPort(h.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (h.TLSCertFile == "") != (h.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and server.http.tls_key_file must be set together")
	}
	if h.ClientCAFile != "" && h.TLSCertFile == "" {
		return errors.New("server.http.client_ca_file requires TLS")
	}
	if h.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	if h.RateLimit > 0 && h.RateBurst < 1 {
		return errors.New("server.http.rate_burst must be at least 1 when rate limiting is enabled")
	}
	for i, proxy := range h.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("server.http.trusted_proxies[%d]: %q is not an IP or CIDR", i, proxy)
			}
		}
	}
	for i, hash := range h.APIKeyHashes {
		if b, err := hex.DecodeString(hash); err != nil || len(b) != 32 {
			return fmt.Errorf("server.http.api_key_hashes[%d]: not a SHA-256 hex digest", i)
		}
	}
	if h.ReadTimeout < 0 || h.WriteTimeout < 0 || h.ShutdownTimeout < 0 {
		return errors.New("server.http timeouts must not be negative")
	}
	if sock := cfg.Local.Socket; sock != "" && len(sock) > maxSocketPath {
		return fmt.Errorf("server.local.socket exceeds %d bytes", maxSocketPath)
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if _, err := adaptive.ParseCipherType(cfg.Cipher); err != nil {
		return fmt.Errorf("security.cipher: %w", err)
	}

	switch {
	case cfg.Key != "" && cfg.Passphrase != "":
		return errors.New("security.key and security.passphrase are mutually exclusive")
	case cfg.Key != "":
		if _, err := fwt.DecodeKey(cfg.Key); err != nil {
			return fmt.Errorf("security.key: %w", err)
		}
	case cfg.Passphrase != "":
		if len(cfg.Passphrase) < kdf.MinPassphraseLength {
			return fmt.Errorf("security.passphrase: %w", kdf.ErrPassphraseTooShort)
		}
		if _, err := DecodeSalt(cfg.Salt); err != nil {
			return fmt.Errorf("security.salt: %w", err)
		}
	default:
		return ErrNoKey
	}
	return nil
}

func verifyAuthorities(list []AuthorityConfig) error {
	if len(list) == 0 {
		return errors.New("at least one authority is required")
	}

	seen := make(map[string]bool, len(list))
	for i, a := range list {
		if !authorityNamePattern.MatchString(a.Name) {
			return fmt.Errorf("authorities[%d].name %q is invalid", i, a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("authorities[%d].name %q is duplicated", i, a.Name)
		}
		seen[a.Name] = true

		if len(a.TokenType) > fwt.MaxStringLength {
			return fmt.Errorf("authorities[%d].token_type exceeds %d bytes", i, fwt.MaxStringLength)
		}
		if a.DefaultTTL < 0 || a.MaxTTL < 0 {
			return fmt.Errorf("authorities[%d]: ttl must not be negative", i)
		}
		if a.MaxTTL > 0 && a.DefaultTTL > a.MaxTTL {
			return fmt.Errorf("authorities[%d]: default_ttl exceeds max_ttl", i)
		}
	}
	return nil
}

func verifyRevocation(cfg *RevocationSection) error {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
	case BackendBadger:
		if cfg.Dir == "" {
			return errors.New("revocation.dir is required for the badger backend")
		}
	default:
		return fmt.Errorf("revocation.backend %q is not supported", cfg.Backend)
	}
	if cfg.PurgeInterval <= 0 {
		return errors.New("revocation.purge_interval must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Format {
	case "", "json", "text":
		return nil
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Format)
	}
}
