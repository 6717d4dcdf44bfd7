package token

import "strings"

const bearerPrefix = "Bearer "

// Normalize trims surrounding whitespace and strips a leading "Bearer "
// prefix, so values copied straight out of an Authorization header can be
// stored and re-sent without doubling the scheme.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}

// BearerHeader returns the Authorization header value for raw.
func BearerHeader(raw string) string {
	return bearerPrefix + Normalize(raw)
}
