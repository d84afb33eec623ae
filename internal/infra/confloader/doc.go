// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Maps loaded with LoadMap (command-line flags, tests)
//  2. Environment variables
//  3. Configuration file (YAML)
//  4. Values already present in the target struct
//
// Environment variables carry the prefix (default FWT_) and use a double
// underscore between levels, so FWT_SERVER__HTTP__RATE_LIMIT sets
// server.http.rate_limit.
//
// Watcher reports changes to the configuration file so that callers can
// Reload and re-apply the settings that may change at runtime.
package confloader
