// Package logger provides structured logging for the fwt services.
//
// This package wraps log/slog:
//
//   - logger.go: handler construction, levels and the default logger
//   - context.go: context-aware logging with request IDs
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Runtime log level changes (SetLevel)
//   - Automatic masking of tokens and API key secrets
//   - Context propagation for request tracing
package logger
