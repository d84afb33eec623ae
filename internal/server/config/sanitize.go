package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.Key != "" {
		sanitized.Security.Key = maskSecret(sanitized.Security.Key)
	}
	if sanitized.Security.Passphrase != "" {
		sanitized.Security.Passphrase = "****"
	}

	// Slices are shared with the original after the shallow copy.
	if cfg.Authorities != nil {
		sanitized.Authorities = append([]AuthorityConfig(nil), cfg.Authorities...)
	}
	if cfg.Server.HTTP.APIKeyHashes != nil {
		hashes := make([]string, len(cfg.Server.HTTP.APIKeyHashes))
		for i, h := range cfg.Server.HTTP.APIKeyHashes {
			hashes[i] = maskSecret(h)
		}
		sanitized.Server.HTTP.APIKeyHashes = hashes
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
