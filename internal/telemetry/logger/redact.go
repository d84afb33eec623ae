package logger

import (
	"log/slog"
	"strings"
)

// Value prefixes of credentials that are partially masked wherever they
// appear.
var sensitiveValuePrefixes = []string{
	"fwt1.", // Sealed token, text form
	"fwtk_", // API key secret
}

// Key patterns whose string values are fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"key",
	"salt",
	"credential",
	"authorization",
	"bearer",
}

// Key suffixes that name derived, non-secret values even when the key
// also matches a sensitive pattern (token_id, key_info, ...).
var safeKeySuffixes = []string{
	"_id",
	"_type",
	"_kind",
	"_info",
	"_fingerprint",
	"_hashes",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		// A recognizable credential is masked whatever its key.
		for _, prefix := range sensitiveValuePrefixes {
			if strings.HasPrefix(strVal, prefix) {
				return slog.String(a.Key, maskValue(strVal, prefix))
			}
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

// maskValue partially masks a sensitive value, keeping prefix and hints.
// Format: prefix + first 3 chars + "..." + last 3 chars
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks value if it is a recognizable credential.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return maskValue(value, prefix)
		}
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, suffix := range safeKeySuffixes {
		if strings.HasSuffix(keyLower, suffix) {
			return false
		}
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value appears to be a credential.
func IsSensitiveValue(value string) bool {
	for _, prefix := range sensitiveValuePrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
