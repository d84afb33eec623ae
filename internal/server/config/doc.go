// Package config provides server configuration for fwt-server.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (key material, authorities, paths)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - key.go: Master key resolution
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
