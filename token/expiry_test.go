package token_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/token"
	"github.com/stretchr/testify/require"
)

func rawToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "abc.def.ghi", token.Normalize("Bearer abc.def.ghi"))
	require.Equal(t, "abc.def.ghi", token.Normalize("  Bearer   abc.def.ghi  "))
	require.Equal(t, "abc.def.ghi", token.Normalize("abc.def.ghi"))
	require.Equal(t, "", token.Normalize("Bearer "))
	require.Equal(t, "bearer x", token.Normalize("bearer x"))
	require.Equal(t, "Bearer abc", token.BearerHeader("Bearer abc"))
}

func TestDecodeExpiry(t *testing.T) {
	exp := time.Date(2030, time.January, 2, 3, 4, 5, 0, time.UTC)

	t.Run("valid token", func(t *testing.T) {
		got, err := token.DecodeExpiry(rawToken(`{"sub":"u","exp":1893553445}`))
		require.NoError(t, err)
		require.True(t, exp.Equal(got))
	})

	t.Run("bearer prefix and whitespace", func(t *testing.T) {
		got, err := token.DecodeExpiry("  Bearer " + rawToken(`{"exp":1893553445}`) + "\n")
		require.NoError(t, err)
		require.True(t, exp.Equal(got))
	})

	t.Run("padded base64url payload", func(t *testing.T) {
		payload := base64.URLEncoding.EncodeToString([]byte(`{"exp":1893553445,"n":"??>"}`))
		got, err := token.DecodeExpiry("h." + payload + ".s")
		require.NoError(t, err)
		require.True(t, exp.Equal(got))
	})

	t.Run("fractional exp", func(t *testing.T) {
		got, err := token.DecodeExpiry(rawToken(`{"exp":1893553445.0}`))
		require.NoError(t, err)
		require.Equal(t, exp.Unix(), got.Unix())
	})

	failures := map[string]string{
		"empty":           "",
		"bearer only":     "Bearer ",
		"two segments":    "abc.def",
		"four segments":   "a.b.c.d",
		"not base64":      "abc.!!!.ghi",
		"not json":        "abc." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".ghi",
		"undefined":       "abc.undefined.ghi",
		"opaque":          "abc.def.ghi",
		"missing exp":     rawToken(`{"sub":"u"}`),
		"non numeric exp": rawToken(`{"exp":"tomorrow"}`),
		"exp null":        rawToken(`{"exp":null}`),
	}
	for name, raw := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := token.DecodeExpiry(raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrMalformedToken) || errors.Is(err, errors.ErrMissingExpiry), err.Error())
		})
	}
}

func TestDecodeClaims(t *testing.T) {
	claims, err := token.DecodeClaims(rawToken(`{"sub":"user-1","merchant":"M"}`))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "M", claims["merchant"])
}
