package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/calbook-go/pkg/token"
)

// Values with these prefixes are masked regardless of their key.
var sensitiveValuePrefixes = append([]string{
	"eyJ", // JWT header ({"alg":...)
	"Token ",
}, opaquePrefixes()...)

func opaquePrefixes() []string {
	out := make([]string, len(token.Prefixes))
	for i, p := range token.Prefixes {
		out[i] = string(p)
	}
	return out
}

var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"refresh",
	"credential",
	"authorization",
	"mfa_code",
}

const redactedValue = "***REDACTED***"

// redactSensitive masks attribute values that look like credentials.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		for _, prefix := range sensitiveValuePrefixes {
			if strings.HasPrefix(strVal, prefix) {
				return slog.String(a.Key, maskValue(strVal, prefix))
			}
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the prefix and a short hint from each end.
// Format: prefix + first 3 chars + "..." + last 3 chars
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks a credential-looking value before it is printed.
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
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
