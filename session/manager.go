// Package session implements the client-side JWT session: token storage
// across two tiers, a cookie mirror, expiry-driven refresh and the
// login/logout calls against the auth API.
package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prompter asks the user to log in. It is invoked by RequireAuth when no
// token is held.
type Prompter interface {
	PromptLogin(ctx context.Context, m *Manager)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, m *Manager)

func (f PrompterFunc) PromptLogin(ctx context.Context, m *Manager) { f(ctx, m) }

// Manager owns the session's tokens. All mutations (login, logout, refresh,
// external token updates) go through StoreTokens, ClearTokens or SetToken,
// which keep storage, the cookie mirror, listeners and the refresh timer in
// step.
type Manager struct {
	cfg        config.SessionConfig
	baseURL    *url.URL
	tiers      tokenstore.Tiers
	cookies    CookieMirror
	httpClient *http.Client
	logger     zerolog.Logger
	nowFunc    func() time.Time
	afterFunc  AfterFunc
	prompter   Prompter
	reload     func()

	refreshTimeout time.Duration

	// writeMu serializes whole mutations (storage + memory); mu guards the
	// fields below it and is never held across I/O.
	writeMu sync.Mutex

	mu           sync.Mutex
	token        string
	refreshToken string
	tier         tokenstore.Tier
	generation   uint64
	timer        Timer
	state        State
	nextRefresh  time.Time

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

type Option func(*Manager)

// WithHTTPClient sets the client used for the auth endpoints. Its Jar, when
// set, also backs the default cookie mirror.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

func WithCookieMirror(mirror CookieMirror) Option {
	return func(m *Manager) {
		m.cookies = mirror
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithAfterFunc replaces time.AfterFunc for the refresh timer.
func WithAfterFunc(afterFunc AfterFunc) Option {
	return func(m *Manager) {
		m.afterFunc = afterFunc
	}
}

func WithPrompter(p Prompter) Option {
	return func(m *Manager) {
		m.prompter = p
	}
}

// WithReload sets the hook run after Logout has cleared the session, used to
// discard any application state built on the old session.
func WithReload(reload func()) Option {
	return func(m *Manager) {
		m.reload = reload
	}
}

// WithRefreshTimeout bounds background refresh calls.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

// New builds a manager for the application at baseURL, restores any
// persisted tokens and arms the refresh timer.
func New(ctx context.Context, cfg config.SessionConfig, baseURL string, tiers tokenstore.Tiers, options ...Option) (*Manager, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "session.New: invalid base URL %q", baseURL)
	}
	if tiers.Ephemeral == nil || tiers.Durable == nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "session.New: both storage tiers are required")
	}

	m := &Manager{
		cfg:            cfg,
		baseURL:        &url.URL{Scheme: u.Scheme, Host: u.Host},
		tiers:          tiers,
		logger:         log.Logger,
		refreshTimeout: 30 * time.Second,
		listeners:      make(map[int]Listener),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "session.New cookiejar")
		}
		m.httpClient = &http.Client{Timeout: 30 * time.Second, Jar: jar}
	}
	if m.cookies == nil {
		if m.httpClient.Jar != nil {
			m.cookies = NewJarMirror(m.httpClient.Jar, m.baseURL, cfg.GetCookieName())
		} else {
			m.cookies = noopMirror{}
		}
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.afterFunc == nil {
		m.afterFunc = defaultAfterFunc
	}
	if m.reload == nil {
		m.reload = func() {}
	}

	m.restore(ctx)
	return m, nil
}

// restore loads persisted tokens, mirrors the access token into the cookie
// jar (which does not outlive the process) and arms the refresh timer.
func (m *Manager) restore(ctx context.Context) {
	access, tier, err := m.tiers.Read(ctx, m.cfg.GetAccessTokenKey())
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		m.logger.Warn().Err(err).Msg("Failed to read stored access token")
	}
	refresh := m.StoredRefreshToken(ctx)

	m.mu.Lock()
	m.token = access
	m.refreshToken = refresh
	m.tier = tier
	m.setupTokenRefreshLocked()
	m.mu.Unlock()

	if access != "" {
		m.cookies.Set(access)
		m.logger.Debug().Str("tier", tier.String()).Msg("Restored JWT session")
	}
}

// BaseURL is the application origin requests are authenticated against.
func (m *Manager) BaseURL() *url.URL {
	u := *m.baseURL
	return &u
}

// Config returns the session configuration the manager was built with.
func (m *Manager) Config() config.SessionConfig {
	return m.cfg
}

// HTTPClient returns the client used for the auth endpoints.
func (m *Manager) HTTPClient() *http.Client {
	return m.httpClient
}

// Close stops the refresh timer. The manager can still be used afterwards
// but will not refresh on its own until the next token mutation.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.state = NoTimer
}
