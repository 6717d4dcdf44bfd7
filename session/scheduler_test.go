package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/server/servertest"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	ctx := context.Background()

	t.Run("ten minute token arms a five minute timer", func(t *testing.T) {
		h := newHarness(t, baseURL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(10*time.Minute)), "refresh-1", false))

		require.Equal(t, session.Armed, h.m.RefreshState())
		require.Equal(t, 5*time.Minute, h.clock.last().delay)
		require.Equal(t, testNow.Add(5*time.Minute), h.m.NextRefresh())
		require.Equal(t, 1, h.clock.active())
	})

	t.Run("every mutation leaves exactly one timer", func(t *testing.T) {
		h := newHarness(t, baseURL)
		for i := 1; i <= 3; i++ {
			exp := testNow.Add(time.Duration(i) * time.Hour)
			require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(exp), "refresh-1", false))
		}
		require.Equal(t, 1, h.clock.active())
		require.Len(t, h.clock.timers, 3)
	})

	t.Run("undecodable token disables auto refresh", func(t *testing.T) {
		h := newHarness(t, baseURL)
		require.NoError(t, h.m.StoreTokens(ctx, "not-a-jwt", "refresh-1", false))

		require.Equal(t, session.NoTimer, h.m.RefreshState())
		require.Nil(t, h.clock.last())
		require.True(t, h.m.IsAuthenticated())
	})

	t.Run("token without exp disables auto refresh", func(t *testing.T) {
		h := newHarness(t, baseURL)
		require.NoError(t, h.m.StoreTokens(ctx, "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1In0.c2ln", "refresh-1", false))
		require.Equal(t, session.NoTimer, h.m.RefreshState())
	})

	t.Run("superseded timer does nothing when it fires", func(t *testing.T) {
		h := newHarness(t, baseURL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "refresh-1", false))
		first := h.clock.last()
		current := unsignedToken(testNow.Add(2 * time.Hour))
		require.NoError(t, h.m.StoreTokens(ctx, current, "refresh-1", false))

		first.fire()

		require.Equal(t, session.Armed, h.m.RefreshState())
		require.Equal(t, current, h.m.AccessToken())
	})

	t.Run("expired token without refresh token is left alone", func(t *testing.T) {
		h := newHarness(t, baseURL)
		expired := unsignedToken(testNow.Add(-time.Minute))
		require.NoError(t, h.m.StoreTokens(ctx, expired, "", false))

		require.Eventually(t, func() bool {
			return h.m.RefreshState() == session.NoTimer
		}, time.Second, 10*time.Millisecond)
		require.Equal(t, expired, h.m.AccessToken())
		require.Nil(t, h.clock.last())
	})

	t.Run("close stops the timer", func(t *testing.T) {
		h := newHarness(t, baseURL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "refresh-1", false))
		h.m.Close()

		require.Equal(t, session.NoTimer, h.m.RefreshState())
		require.True(t, h.clock.last().stopped)
		require.True(t, h.m.NextRefresh().IsZero())
	})
}

func TestSchedulerRefreshesAgainstServer(t *testing.T) {
	ctx := context.Background()
	f := servertest.Start(t, config.New())

	t.Run("expired token refreshes immediately", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))
		refreshToken, err := f.RefreshTokens.Create(f.User.ID, f.User.MerchantID)
		require.NoError(t, err)

		expired := unsignedToken(time.Now().Add(-time.Minute))
		require.NoError(t, h.m.StoreTokens(ctx, expired, refreshToken, true))

		require.Eventually(t, func() bool {
			return h.m.RefreshState() == session.Armed && h.m.AccessToken() != expired
		}, 5*time.Second, 10*time.Millisecond)

		require.Equal(t, refreshToken, h.m.RefreshToken())
		require.Equal(t, h.m.AccessToken(), h.m.StoredToken(ctx))
		require.Equal(t, h.m.AccessToken(), h.stored(t, h.m.Tier(), h.cfg.GetAccessTokenKey()))
	})

	t.Run("timer fire refreshes under the session tier", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))
		result := h.m.Login(ctx, servertest.Username, servertest.Password, "", true)
		require.True(t, result.Success)
		before := h.m.AccessToken()

		h.clock.last().fire()

		require.Equal(t, session.Armed, h.m.RefreshState())
		require.NotEqual(t, before, h.m.AccessToken())
		require.Equal(t, h.m.AccessToken(), h.stored(t, h.m.Tier(), h.cfg.GetAccessTokenKey()))
		require.Empty(t, h.stored(t, tokenstore.Ephemeral, h.cfg.GetAccessTokenKey()), "ephemeral tier untouched")
	})

	t.Run("rejected refresh on timer clears the session", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(time.Now().Add(time.Hour)), "bogus", false))

		h.clock.last().fire()

		require.False(t, h.m.IsAuthenticated())
		require.Equal(t, session.NoTimer, h.m.RefreshState())
	})
}
