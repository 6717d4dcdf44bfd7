// Package server is a small JWT auth API: login, refresh and logout under a
// configurable prefix plus one protected resource. It exists so the session
// client has something real to talk to in tests and demos.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/token"
	"github.com/jrsteele09/go-jwt-session/token/refresh"
	"github.com/jrsteele09/go-jwt-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env           string // Environment (e.g., "DEV", "production")
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	users         users.UserRepo
	refreshTokens *refresh.Manager
	issuer        *token.Issuer
	logger        zerolog.Logger

	// renewWithin, when non-zero, makes protected resources hand back a fresh
	// access token in the response token header once the presented token is
	// this close to expiry.
	renewWithin time.Duration
}

type Option func(*Server)

// WithIssuer replaces the HMAC issuer built from the config.
func WithIssuer(issuer *token.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSlidingRenewal enables response token renewal on protected resources.
func WithSlidingRenewal(within time.Duration) Option {
	return func(s *Server) {
		s.renewWithin = within
	}
}

func New(cfg config.Config, userRepo users.UserRepo, refreshTokens *refresh.Manager, options ...Option) (*Server, error) {
	if userRepo == nil || refreshTokens == nil {
		return nil, fmt.Errorf("[Server New] user repo and refresh token manager are required")
	}

	s := &Server{
		env:           cfg.GetEnv(),
		mux:           http.NewServeMux(),
		config:        cfg,
		users:         userRepo,
		refreshTokens: refreshTokens,
		logger:        log.Logger,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.issuer == nil {
		s.issuer = token.NewIssuer(
			token.NewHMACSigner(cfg.GetSigningSecret()),
			token.WithIssuer(cfg.GetIssuer()),
			token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
		)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Issuer returns the access token issuer, so callers can mint or revoke
// tokens out of band.
func (s *Server) Issuer() *token.Issuer {
	return s.issuer
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
