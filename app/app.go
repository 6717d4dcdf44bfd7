// Package app wires a session manager, its storage tiers, the intercepting
// HTTP client and form sync into one value.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/jrsteele09/go-jwt-session/forms"
	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/jrsteele09/go-jwt-session/tokenstore/memory"
	"github.com/jrsteele09/go-jwt-session/tokenstore/redisstore"
	"github.com/jrsteele09/go-jwt-session/tokenstore/sqlite"
	"github.com/jrsteele09/go-jwt-session/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 30 * time.Second

type App struct {
	Config  config.Config
	Session *session.Manager
	Client  *transport.Client
	Forms   *forms.Sync

	logger      zerolog.Logger
	unsubscribe func()
	closers     []io.Closer
}

type options struct {
	logger         zerolog.Logger
	document       *forms.Document
	durable        tokenstore.Store
	redisClient    redis.UniversalClient
	baseTransport  http.RoundTripper
	sessionOptions []session.Option
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDocument attaches a document whose forms are kept in sync.
func WithDocument(doc *forms.Document) Option {
	return func(o *options) {
		o.document = doc
	}
}

// WithDurableStore bypasses the configured durable backend.
func WithDurableStore(store tokenstore.Store) Option {
	return func(o *options) {
		o.durable = store
	}
}

// WithRedisClient supplies the client for the redis backend instead of
// dialing the configured address.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithBaseTransport sets the round tripper under the interceptor.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.baseTransport = rt
	}
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) {
		o.sessionOptions = append(o.sessionOptions, opts...)
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{logger: log.Logger, baseTransport: http.DefaultTransport}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, logger: o.logger}

	durable, err := a.openDurable(ctx, o)
	if err != nil {
		return nil, err
	}
	tiers := tokenstore.Tiers{Ephemeral: memory.New(), Durable: durable}

	jar, err := cookiejar.New(nil)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("[App New] cookie jar: %w", err)
	}
	authClient := &http.Client{
		Timeout:   requestTimeout,
		Jar:       jar,
		Transport: transport.Chain(o.baseTransport, transport.Logging(o.logger)),
	}

	sessionOpts := append([]session.Option{
		session.WithHTTPClient(authClient),
		session.WithLogger(o.logger),
	}, o.sessionOptions...)
	m, err := session.New(ctx, cfg, cfg.GetBaseURL(), tiers, sessionOpts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("[App New] session: %w", err)
	}
	a.Session = m

	appClient := &http.Client{
		Timeout: requestTimeout,
		Jar:     jar,
		Transport: transport.Chain(o.baseTransport,
			transport.Intercept(m,
				transport.WithAuthPathMarker(cfg.GetAuthPathMarker()),
				transport.WithLegacyFields(cfg.GetLegacyFieldNames()...),
				transport.WithResponseTokenCapture(cfg.GetResponseTokenHeader(), m),
				transport.WithLogger(o.logger),
			),
			transport.Logging(o.logger),
		),
	}
	a.Client = transport.NewClient(appClient, m)

	a.AttachDocument(o.document)
	return a, nil
}

func (a *App) openDurable(ctx context.Context, o *options) (tokenstore.Store, error) {
	if o.durable != nil {
		return o.durable, nil
	}

	switch backend := a.Config.GetDurableBackend(); backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(a.Config.GetSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("[App New] sqlite store: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.BackendRedis:
		client := o.redisClient
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: a.Config.GetRedisAddr()})
			a.closers = append(a.closers, client)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("[App New] redis ping %s: %w", a.Config.GetRedisAddr(), err)
		}
		return redisstore.New(client, a.Config.GetRedisKeyPrefix()), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[App New] unknown durable backend %q", backend)
	}
}

// AttachDocument replaces the synced document. A nil doc detaches.
func (a *App) AttachDocument(doc *forms.Document) *forms.Sync {
	if a.Forms != nil {
		a.Forms.Stop()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	cfg := a.Config
	a.Forms = forms.NewSync(doc, a.Session,
		forms.WithFieldName(cfg.GetFormFieldName()),
		forms.WithLegacyFields(cfg.GetLegacyFieldNames()...),
		forms.WithLogger(a.logger),
	)
	a.unsubscribe = a.Session.Subscribe(a.Forms.OnTokenUpdate)
	a.Forms.Start()
	return a.Forms
}

// Close stops the refresh timer and releases the storage backends.
func (a *App) Close() error {
	if a.Forms != nil {
		a.Forms.Stop()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.Session != nil {
		a.Session.Close()
	}

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
