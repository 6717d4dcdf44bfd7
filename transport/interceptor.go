// Package transport attaches the session's access token to outgoing HTTP
// requests for the application origin.
package transport

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// TokenSource is the session state the interceptor reads.
type TokenSource interface {
	// AccessToken is the current token, or "" when unauthenticated.
	AccessToken() string
	// BaseURL is the application origin.
	BaseURL() *url.URL
}

// TokenSink accepts tokens handed back by the server on a response.
type TokenSink interface {
	SetToken(token string)
}

// Interceptor is an http.RoundTripper that adds a bearer Authorization
// header to same-origin requests outside the auth endpoints.
type Interceptor struct {
	base         http.RoundTripper
	src          TokenSource
	authMarker   string
	legacyFields []string
	tokenHeader  string
	sink         TokenSink
	logger       zerolog.Logger
}

type Option func(*Interceptor)

// WithAuthPathMarker sets the path fragment identifying auth endpoints,
// which never get a bearer header.
func WithAuthPathMarker(marker string) Option {
	return func(i *Interceptor) {
		i.authMarker = marker
	}
}

// WithLegacyFields names form fields removed from same-origin form posts.
func WithLegacyFields(names ...string) Option {
	return func(i *Interceptor) {
		i.legacyFields = names
	}
}

// WithResponseTokenCapture hands the value of header on same-origin
// responses to sink.
func WithResponseTokenCapture(header string, sink TokenSink) Option {
	return func(i *Interceptor) {
		i.tokenHeader = header
		i.sink = sink
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

func NewInterceptor(base http.RoundTripper, src TokenSource, options ...Option) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	i := &Interceptor{
		base:       base,
		src:        src,
		authMarker: "/auth/",
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if !i.sameOrigin(req.URL) {
		return i.base.RoundTrip(req)
	}

	if len(i.legacyFields) > 0 && isFormEncoded(req) {
		stripped, err := i.stripLegacyFields(req)
		if err != nil {
			return nil, err
		}
		req = stripped
	}

	resp, err := i.transportFor(req).RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if i.sink != nil && i.tokenHeader != "" {
		if renewed := resp.Header.Get(i.tokenHeader); renewed != "" {
			i.logger.Debug().Str("path", req.URL.Path).Msg("Captured access token from response")
			i.sink.SetToken(renewed)
		}
	}
	return resp, nil
}

// transportFor picks the round tripper for a same-origin request: bearer
// injection through oauth2.Transport, or the base transport untouched.
func (i *Interceptor) transportFor(req *http.Request) http.RoundTripper {
	if i.authMarker != "" && strings.Contains(req.URL.Path, i.authMarker) {
		return i.base
	}
	if req.Header.Get("Authorization") != "" {
		return i.base
	}
	accessToken := i.src.AccessToken()
	if accessToken == "" {
		return i.base
	}
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		Base:   i.base,
	}
}

func (i *Interceptor) sameOrigin(u *url.URL) bool {
	origin := i.src.BaseURL()
	if u == nil || origin == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

func isFormEncoded(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// stripLegacyFields returns a copy of req whose form body no longer carries
// the legacy session token fields.
func (i *Interceptor) stripLegacyFields(req *http.Request) (*http.Request, error) {
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0)
	removed := 0
	for _, pair := range strings.Split(string(raw), "&") {
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if key == "" || i.isLegacyField(key) {
			if key != "" {
				removed++
			}
			continue
		}
		kept = append(kept, pair)
	}

	body := []byte(strings.Join(kept, "&"))
	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	if removed > 0 {
		i.logger.Debug().Int("removed", removed).Str("path", req.URL.Path).Msg("Stripped legacy session fields")
	}
	return out, nil
}

func (i *Interceptor) isLegacyField(name string) bool {
	for _, legacy := range i.legacyFields {
		if name == legacy {
			return true
		}
	}
	return false
}
