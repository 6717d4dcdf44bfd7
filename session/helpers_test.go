package session_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/jrsteele09/go-jwt-session/tokenstore/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// unsignedToken builds a JWT-shaped string whose payload expires at exp.
func unsignedToken(exp time.Time) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(fmt.Sprintf(`{"sub":"user-1","exp":%d}`, exp.Unix())))
	return header + "." + payload + ".c2ln"
}

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeClock records timers instead of running them.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fire: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recordingMirror struct {
	mu    sync.Mutex
	value string
	set   bool
}

func (r *recordingMirror) Set(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value, r.set = token, true
}

func (r *recordingMirror) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value, r.set = "", false
}

func (r *recordingMirror) get() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.set
}

type harness struct {
	m       *session.Manager
	tiers   tokenstore.Tiers
	clock   *fakeClock
	cookies *recordingMirror
	cfg     config.Config
}

func newHarness(t *testing.T, baseURL string, options ...session.Option) *harness {
	t.Helper()
	return newHarnessWithTiers(t, baseURL, tokenstore.Tiers{Ephemeral: memory.New(), Durable: memory.New()}, options...)
}

func newHarnessWithTiers(t *testing.T, baseURL string, tiers tokenstore.Tiers, options ...session.Option) *harness {
	t.Helper()
	h := &harness{
		tiers:   tiers,
		clock:   &fakeClock{},
		cookies: &recordingMirror{},
		cfg:     config.New(),
	}

	opts := append([]session.Option{
		session.WithLogger(zerolog.Nop()),
		session.WithNowFunc(func() time.Time { return testNow }),
		session.WithAfterFunc(h.clock.AfterFunc),
		session.WithCookieMirror(h.cookies),
	}, options...)

	m, err := session.New(context.Background(), h.cfg, baseURL, tiers, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.m = m
	return h
}

func (h *harness) stored(t *testing.T, tier tokenstore.Tier, key string) string {
	t.Helper()
	s := h.tiers.Ephemeral
	if tier == tokenstore.Durable {
		s = h.tiers.Durable
	}
	v, err := s.Get(context.Background(), key)
	if err != nil {
		return ""
	}
	return v
}
