package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/jrsteele09/go-jwt-session/tokenstore/memory"
	"github.com/jrsteele09/go-jwt-session/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Authorization string `json:"authorization"`
	Body          string `json:"body"`
}

func newEchoServer(t *testing.T, headers map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		_ = json.NewEncoder(w).Encode(echo{Authorization: r.Header.Get("Authorization"), Body: string(body)})
	}))
	t.Cleanup(ts.Close)
	return ts
}

type staticSource struct {
	mu     sync.Mutex
	token  string
	origin *url.URL
}

func (s *staticSource) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *staticSource) BaseURL() *url.URL { return s.origin }

func (s *staticSource) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func send(t *testing.T, client *http.Client, req *http.Request) (echo, *http.Response) {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var got echo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return got, resp
}

func get(t *testing.T, client *http.Client, target string) echo {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	got, _ := send(t, client, req)
	return got
}

func TestInterceptor(t *testing.T) {
	app := newEchoServer(t, nil)
	other := newEchoServer(t, nil)
	src := &staticSource{token: "abc", origin: mustParse(t, app.URL)}
	client := &http.Client{Transport: transport.NewInterceptor(nil, src, transport.WithLogger(zerolog.Nop()))}

	t.Run("same origin gets bearer", func(t *testing.T) {
		require.Equal(t, "Bearer abc", get(t, client, app.URL+"/rest/s1/orders").Authorization)
	})

	t.Run("auth endpoints are left alone", func(t *testing.T) {
		require.Empty(t, get(t, client, app.URL+"/rest/s1/moqui/auth/login").Authorization)
	})

	t.Run("cross origin is left alone", func(t *testing.T) {
		require.Empty(t, get(t, client, other.URL+"/rest/s1/orders").Authorization)
	})

	t.Run("existing authorization header wins", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, app.URL+"/rest/s1/orders", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		got, _ := send(t, client, req)
		require.Equal(t, "Basic dXNlcjpwYXNz", got.Authorization)
	})

	t.Run("no token no header", func(t *testing.T) {
		src := &staticSource{origin: mustParse(t, app.URL)}
		client := &http.Client{Transport: transport.NewInterceptor(nil, src)}
		require.Empty(t, get(t, client, app.URL+"/rest/s1/orders").Authorization)
	})

	t.Run("caller request is not mutated", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, app.URL+"/rest/s1/orders", nil)
		require.NoError(t, err)
		send(t, client, req)
		require.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestInterceptorStripsLegacyFields(t *testing.T) {
	app := newEchoServer(t, nil)
	src := &staticSource{token: "abc", origin: mustParse(t, app.URL)}
	client := &http.Client{Transport: transport.NewInterceptor(nil, src,
		transport.WithLegacyFields("moquiSessionToken", "SessionToken"),
		transport.WithLogger(zerolog.Nop()),
	)}

	t.Run("form body", func(t *testing.T) {
		body := "orderId=42&moquiSessionToken=old&SessionToken=older&note=a%26b"
		req, err := http.NewRequest(http.MethodPost, app.URL+"/rest/s1/orders", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

		got, _ := send(t, client, req)
		require.Equal(t, "orderId=42&note=a%26b", got.Body)
		require.Equal(t, "Bearer abc", got.Authorization)
	})

	t.Run("json body untouched", func(t *testing.T) {
		body := `{"moquiSessionToken":"old"}`
		req, err := http.NewRequest(http.MethodPost, app.URL+"/rest/s1/orders", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		got, _ := send(t, client, req)
		require.Equal(t, body, got.Body)
	})
}

func TestInterceptorCapturesResponseToken(t *testing.T) {
	app := newEchoServer(t, map[string]string{"X-Access-Token": "Bearer renewed"})
	src := &staticSource{token: "abc", origin: mustParse(t, app.URL)}
	client := &http.Client{Transport: transport.NewInterceptor(nil, src,
		transport.WithResponseTokenCapture("X-Access-Token", src),
		transport.WithLogger(zerolog.Nop()),
	)}

	get(t, client, app.URL+"/rest/s1/orders")
	require.Equal(t, "Bearer renewed", src.AccessToken())
}

func TestInterceptorWithSession(t *testing.T) {
	app := newEchoServer(t, nil)
	ctx := context.Background()
	tiers := tokenstore.Tiers{Ephemeral: memory.New(), Durable: memory.New()}
	m, err := session.New(ctx, config.New(), app.URL, tiers, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := &http.Client{Transport: transport.NewInterceptor(nil, m, transport.WithLogger(zerolog.Nop()))}
	require.Empty(t, get(t, client, app.URL+"/x").Authorization)

	require.NoError(t, m.StoreTokens(ctx, "  Bearer abc.def.ghi ", "", false))
	require.Equal(t, "Bearer abc.def.ghi", get(t, client, app.URL+"/x").Authorization)

	require.NoError(t, m.ClearTokens(ctx))
	require.Empty(t, get(t, client, app.URL+"/x").Authorization)
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) transport.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}
	app := newEchoServer(t, nil)
	client := &http.Client{Transport: transport.Chain(nil, mw("first"), mw("second"), transport.Logging(zerolog.Nop()))}

	get(t, client, app.URL)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestClient(t *testing.T) {
	app := newEchoServer(t, nil)
	src := &staticSource{token: "abc", origin: mustParse(t, app.URL)}
	client := transport.NewClient(&http.Client{Transport: transport.NewInterceptor(nil, src)}, src)
	ctx := context.Background()

	t.Run("relative target resolves against origin", func(t *testing.T) {
		u, err := client.Resolve("/rest/s1/orders?id=1")
		require.NoError(t, err)
		require.Equal(t, app.URL+"/rest/s1/orders?id=1", u.String())

		resp, err := client.Fetch(ctx, http.MethodGet, "/rest/s1/orders", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		var got echo
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "Bearer abc", got.Authorization)
	})

	t.Run("absolute target used as-is", func(t *testing.T) {
		u, err := client.Resolve("https://cdn.example.com/lib.js")
		require.NoError(t, err)
		require.Equal(t, "https://cdn.example.com/lib.js", u.String())
	})

	t.Run("post form", func(t *testing.T) {
		resp, err := client.PostForm(ctx, "/submit", url.Values{"a": {"1"}})
		require.NoError(t, err)
		defer resp.Body.Close()
		var got echo
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Equal(t, "a=1", got.Body)
	})
}
