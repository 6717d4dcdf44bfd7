package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-session/authapi"
	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/server/servertest"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := servertest.Start(t, config.New())

	t.Run("valid credentials store tokens in the ephemeral tier", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))

		result := h.m.Login(ctx, servertest.Username, servertest.Password, servertest.MerchantID, false)

		require.True(t, result.Success)
		require.True(t, h.m.IsAuthenticated())
		require.Equal(t, result.Response.AccessToken, h.m.StoredToken(ctx))
		require.Equal(t, result.Response.RefreshToken, h.m.StoredRefreshToken(ctx))
		require.Equal(t, tokenstore.Ephemeral, h.m.Tier())
		require.Empty(t, h.stored(t, tokenstore.Durable, h.cfg.GetAccessTokenKey()))

		require.Equal(t, session.Armed, h.m.RefreshState())
		want := h.cfg.GetAccessTokenExpiry() - h.cfg.GetRefreshLead()
		require.InDelta(t, want.Seconds(), h.clock.last().delay.Seconds(), 2)

		_, err := f.API.Issuer().Verify(h.m.Token())
		require.NoError(t, err)
	})

	t.Run("remember me uses the durable tier", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))
		require.True(t, h.m.Login(ctx, servertest.Username, servertest.Password, "", true).Success)

		require.Equal(t, tokenstore.Durable, h.m.Tier())
		require.NotEmpty(t, h.stored(t, tokenstore.Durable, h.cfg.GetAccessTokenKey()))
		require.Empty(t, h.stored(t, tokenstore.Ephemeral, h.cfg.GetAccessTokenKey()))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		h := newHarness(t, f.URL)
		result := h.m.Login(ctx, servertest.Username, "wrong", "", false)

		require.False(t, result.Success)
		require.Equal(t, "Invalid username or password", result.Message)
		require.False(t, h.m.IsAuthenticated())
		require.Empty(t, h.m.StoredToken(ctx))
	})

	t.Run("network error", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		h := newHarness(t, down.URL)

		result := h.m.Login(ctx, servertest.Username, servertest.Password, "", false)

		require.False(t, result.Success)
		require.Equal(t, "Network error during login", result.Message)
		require.False(t, h.m.IsAuthenticated())
	})

	t.Run("success without access token is a failure", func(t *testing.T) {
		stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(authapi.LoginResponse{Response: authapi.Response{Success: true}})
		}))
		t.Cleanup(stub.Close)
		h := newHarness(t, stub.URL)

		result := h.m.Login(ctx, "u", "p", "", false)
		require.False(t, result.Success)
		require.False(t, h.m.IsAuthenticated())
	})

	t.Run("bearer prefixed tokens from the server are stripped", func(t *testing.T) {
		access := unsignedToken(testNow.Add(time.Hour))
		var req authapi.LoginRequest
		stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(authapi.LoginResponse{
				Response:     authapi.Response{Success: true},
				AccessToken:  "Bearer " + access,
				RefreshToken: "refresh-1",
			})
		}))
		t.Cleanup(stub.Close)
		h := newHarness(t, stub.URL)

		require.True(t, h.m.Login(ctx, "u", "p", "", false).Success)
		require.Equal(t, access, h.m.StoredToken(ctx))
		require.Equal(t, "DEMO_MERCHANT", req.MerchantID, "empty merchant falls back to the configured default")
	})
}

func TestRefreshAccessToken(t *testing.T) {
	ctx := context.Background()
	f := servertest.Start(t, config.New())

	t.Run("success keeps the refresh token", func(t *testing.T) {
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now))
		require.True(t, h.m.Login(ctx, servertest.Username, servertest.Password, "", false).Success)
		refreshToken := h.m.RefreshToken()
		before := h.m.AccessToken()

		require.NoError(t, h.m.RefreshAccessToken(ctx))

		require.NotEqual(t, before, h.m.AccessToken())
		require.Equal(t, refreshToken, h.m.StoredRefreshToken(ctx))
		require.Equal(t, session.Armed, h.m.RefreshState())
	})

	t.Run("success false clears the session", func(t *testing.T) {
		h := newHarness(t, f.URL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "bogus", true))

		err := h.m.RefreshAccessToken(ctx)

		require.ErrorIs(t, err, errors.ErrRefreshRejected)
		require.False(t, h.m.IsAuthenticated())
		require.Empty(t, h.m.StoredToken(ctx))
		require.Empty(t, h.m.StoredRefreshToken(ctx))
		require.Equal(t, session.NoTimer, h.m.RefreshState())
	})

	t.Run("network failure clears the session", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		h := newHarness(t, down.URL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "refresh-1", false))

		require.Error(t, h.m.RefreshAccessToken(ctx))
		require.False(t, h.m.IsAuthenticated())
	})

	t.Run("no refresh token leaves tokens untouched", func(t *testing.T) {
		h := newHarness(t, f.URL)
		access := unsignedToken(testNow.Add(time.Hour))
		require.NoError(t, h.m.StoreTokens(ctx, access, "", false))

		require.ErrorIs(t, h.m.RefreshAccessToken(ctx), errors.ErrNoRefreshToken)
		require.Equal(t, access, h.m.AccessToken())
	})

	t.Run("result arriving after a newer login is discarded", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-release
			_ = json.NewEncoder(w).Encode(authapi.RefreshResponse{
				Response:    authapi.Response{Success: true},
				AccessToken: unsignedToken(testNow.Add(3 * time.Hour)),
			})
		}))
		t.Cleanup(stub.Close)

		h := newHarness(t, stub.URL)
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "refresh-1", false))

		done := make(chan error, 1)
		go func() { done <- h.m.RefreshAccessToken(ctx) }()
		<-entered

		newer := unsignedToken(testNow.Add(2 * time.Hour))
		require.NoError(t, h.m.StoreTokens(ctx, newer, "refresh-2", false))
		close(release)

		require.ErrorIs(t, <-done, errors.ErrStaleRefresh)
		require.Equal(t, newer, h.m.AccessToken())
		require.Equal(t, "refresh-2", h.m.RefreshToken())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := servertest.Start(t, config.New())

	t.Run("revokes on the server and clears locally", func(t *testing.T) {
		reloaded := false
		h := newHarness(t, f.URL, session.WithNowFunc(time.Now), session.WithReload(func() { reloaded = true }))
		require.True(t, h.m.Login(ctx, servertest.Username, servertest.Password, "", true).Success)
		access := h.m.AccessToken()

		require.NoError(t, h.m.Logout(ctx))

		require.True(t, reloaded)
		require.False(t, h.m.IsAuthenticated())
		require.Empty(t, h.m.StoredToken(ctx))
		require.Equal(t, session.NoTimer, h.m.RefreshState())

		_, err := f.API.Issuer().Verify(access)
		require.ErrorIs(t, err, errors.ErrTokenRevoked)
	})

	t.Run("server failure does not block cleanup", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		reloaded := false
		h := newHarness(t, down.URL, session.WithReload(func() { reloaded = true }))
		require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "refresh-1", false))

		require.NoError(t, h.m.Logout(ctx))
		require.True(t, reloaded)
		require.False(t, h.m.IsAuthenticated())
	})
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	prompts := 0
	h := newHarness(t, baseURL, session.WithPrompter(session.PrompterFunc(func(context.Context, *session.Manager) {
		prompts++
	})))

	require.False(t, h.m.RequireAuth(ctx))
	require.Equal(t, 1, prompts)

	require.NoError(t, h.m.StoreTokens(ctx, unsignedToken(testNow.Add(time.Hour)), "", false))
	require.True(t, h.m.RequireAuth(ctx))
	require.Equal(t, 1, prompts)
}

func TestShouldPromptLogin(t *testing.T) {
	h := newHarness(t, baseURL)

	tests := []struct {
		name string
		path string
		body string
		want bool
	}{
		{"protected path with auth error", "/apps/marketplace/Listing", "You are not authorized to view this", true},
		{"forbidden on mcp", "/mcp/tools", "403 Forbidden", true},
		{"protected path without auth error", "/marketplace/", "Welcome", false},
		{"unprotected path", "/store/cart", "not authorized", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, h.m.ShouldPromptLogin(tt.path, tt.body))
		})
	}

	require.NoError(t, h.m.StoreTokens(context.Background(), unsignedToken(testNow.Add(time.Hour)), "", false))
	require.False(t, h.m.ShouldPromptLogin("/marketplace/", "not authorized"))
}
