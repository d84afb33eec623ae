// Package command provides CLI command definitions for fwt.
//
// It uses urfave/cli/v2 for command parsing. Commands fall into two groups:
//
//   - Local commands (keygen, issue, validate, inspect) hold the key
//     material themselves and never contact a server.
//   - Remote commands (remote ...) talk to fwt-server over HTTP.
//
// Global settings come from flags, then FWT_* environment variables, then
// the CLI profile (see internal/cli/config).
package command
