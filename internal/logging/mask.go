package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

const maskedValue = "***"

// sensitiveKeywords mark attribute keys whose values are never logged.
var sensitiveKeywords = []string{
	"token",
	"secret",
	"password",
	"authorization",
	"bearer",
	"credential",
	"private_key",
	"api_key",
	"code_verifier",
}

var (
	bearerPattern     = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)
	tokenParamPattern = regexp.MustCompile(`(?i)\b((?:access_token|refresh_token|id_token|code)=)[^&\s"']+`)
)

// IsSensitiveField reports whether an attribute key names secret material.
func IsSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MaskString hides bearer tokens and token query parameters inside s.
func MaskString(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer "+maskedValue)
	return tokenParamPattern.ReplaceAllString(s, "${1}"+maskedValue)
}

// MaskPartial keeps the first show characters of value.
func MaskPartial(value string, show int) string {
	if len(value) <= show {
		return maskedValue
	}
	return value[:show] + maskedValue
}

// maskAttr is the slog ReplaceAttr hook installed on every handler.
func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if IsSensitiveField(a.Key) {
		return slog.String(a.Key, maskedValue)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); strings.ContainsAny(s, "=") || strings.Contains(strings.ToLower(s), "bearer") {
			return slog.String(a.Key, MaskString(s))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok && err != nil {
			return slog.String(a.Key, MaskString(err.Error()))
		}
	}
	return a
}
