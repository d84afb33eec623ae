// Package config holds the fwt CLI profile: server address, API key and
// defaults for local token commands.
//
// The profile lives in ~/.fwt/cli.yaml and FWT_CLI_* environment
// variables override it (FWT_CLI_SERVER, FWT_CLI_API_KEY, ...).
// Command-line flags override both.
package config
