package token

import (
	"encoding/json"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
)

// payloadParser decodes base64url segments with or without '=' padding.
var payloadParser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// DecodeClaims decodes the payload segment of a JWT without verifying its
// signature. The client never trusts these claims for authorization; they are
// only used to schedule refreshes and for display.
func DecodeClaims(raw string) (jwtlib.MapClaims, error) {
	raw = Normalize(raw)
	if raw == "" {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "empty token")
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "expected 3 segments, got %d", len(parts))
	}

	segment := parts[1]
	if segment == "" || segment == "undefined" || segment == "null" {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "missing payload segment")
	}

	payload, err := payloadParser.DecodeSegment(segment)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "payload decode: %v", err)
	}

	claims := jwtlib.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "payload json: %v", err)
	}
	return claims, nil
}

// DecodeExpiry returns the exp claim of raw. Any failure (segment count,
// encoding, JSON, missing or non-numeric exp) is returned as an error wrapping
// ErrMalformedToken or ErrMissingExpiry.
func DecodeExpiry(raw string) (time.Time, error) {
	claims, err := DecodeClaims(raw)
	if err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrMissingExpiry, "exp: %v", err)
	}
	if exp == nil {
		return time.Time{}, errors.ErrMissingExpiry
	}
	return exp.Time, nil
}
