// Package storetest holds behaviour checks shared by every tokenstore.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the tokenstore.Store contract.
func Run(t *testing.T, s tokenstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "jwt_access_token", "abc.def.ghi"))
		value, err := s.Get(ctx, "jwt_access_token")
		require.NoError(t, err)
		require.Equal(t, "abc.def.ghi", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "jwt_access_token", "second"))
		value, err := s.Get(ctx, "jwt_access_token")
		require.NoError(t, err)
		require.Equal(t, "second", value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "jwt_access_token"))
		_, err := s.Get(ctx, "jwt_access_token")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("delete missing key", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "never-set"))
	})
}
