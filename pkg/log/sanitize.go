package log

import (
	"regexp"
	"strings"
)

var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "secret",
	"authorization", "credential",
	"private_key", "privatekey",
}

// user:password@ in DSNs and URLs
var dsnPassword = regexp.MustCompile(`([A-Za-z0-9_.\-]+):([^@/\s]+)@`)

// SanitizeField masks the value when the key names a secret, and strips embedded
// credentials from DSN or URL shaped values.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return maskValue(value)
		}
	}

	if strings.Contains(lowerKey, "dsn") || strings.Contains(lowerKey, "url") || strings.Contains(lowerKey, "source") {
		return dsnPassword.ReplaceAllString(value, "$1:****@")
	}

	return value
}

// maskValue shows the first and last 4 characters of long values only.
func maskValue(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
