// Package servertest starts the reference auth API on an httptest server
// with one seeded user.
package servertest

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/server"
	"github.com/jrsteele09/go-jwt-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-jwt-session/token/refresh/repofake"
	"github.com/jrsteele09/go-jwt-session/users"
	"github.com/jrsteele09/go-jwt-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	Username   = "john.doe"
	Password   = "moqui"
	MerchantID = "DEMO_MERCHANT"
)

// Fixture is a running reference server.
type Fixture struct {
	*httptest.Server
	API           *server.Server
	Users         users.UserRepo
	RefreshTokens *refresh.Manager
	User          *users.User
}

// Start runs the server until the test ends.
func Start(t *testing.T, cfg config.Config, options ...server.Option) *Fixture {
	t.Helper()

	userRepo := repofake.NewFakeUserRepo()
	user, err := users.New(Username, MerchantID, Password)
	require.NoError(t, err)
	require.NoError(t, userRepo.Upsert(user))

	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), 32, time.Hour)

	options = append([]server.Option{server.WithLogger(zerolog.Nop())}, options...)
	api, err := server.New(cfg, userRepo, refreshTokens, options...)
	require.NoError(t, err)

	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	return &Fixture{
		Server:        ts,
		API:           api,
		Users:         userRepo,
		RefreshTokens: refreshTokens,
		User:          user,
	}
}
