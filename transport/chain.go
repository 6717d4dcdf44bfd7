package transport

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Middleware wraps a round tripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base in mw so that the first middleware sees the request
// first.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// Intercept is the Middleware form of NewInterceptor.
func Intercept(src TokenSource, options ...Option) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewInterceptor(next, src, options...)
	}
}

// Logging logs each request at debug level.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			event := logger.Debug().
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Bool("authorized", req.Header.Get("Authorization") != "").
				Dur("elapsed", time.Since(start))
			if err != nil {
				event.Err(err).Msg("request failed")
				return nil, err
			}
			event.Int("status", resp.StatusCode).Msg("request")
			return resp, nil
		})
	}
}
