package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against attribute keys.
var sensitiveKeys = map[string]struct{}{
	"signature":       {},
	"x-dip-signature": {},
	"passphrase":      {},
	"private_key":     {},
	"authorization":   {},
}

// Sensitive reports whether values logged under key are masked.
func Sensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns key=value with the value replaced by RedactedValue when
// the key is sensitive. Empty values pass through so absent headers stay
// visible.
func MaskField(key, value string) slog.Attr {
	if value == "" || !Sensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// redactAttr masks sensitive string attributes that reach the handler
// without going through MaskField.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindString || !Sensitive(attr.Key) {
		return attr
	}
	return MaskField(attr.Key, attr.Value.String())
}
