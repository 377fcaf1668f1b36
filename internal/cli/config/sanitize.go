package config

import "strings"

// Sanitize returns a copy with secrets masked, for display and logs.
func Sanitize(cfg *CLIConfig) *CLIConfig {
	out := *cfg
	if out.Redis.Password != "" {
		out.Redis.Password = maskSecret(out.Redis.Password)
	}
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
