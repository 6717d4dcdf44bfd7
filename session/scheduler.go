package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/token"
)

// State is the refresh scheduler's state.
type State int

const (
	NoTimer State = iota
	Armed
	Refreshing
)

func (s State) String() string {
	switch s {
	case NoTimer:
		return "no-timer"
	case Armed:
		return "armed"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Timer is the part of *time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RefreshState reports what the scheduler is doing.
func (m *Manager) RefreshState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NextRefresh is when the armed timer fires, or the zero time.
func (m *Manager) NextRefresh() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextRefresh
}

// cancelTimerLocked requires mu.
func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.nextRefresh = time.Time{}
}

// setupTokenRefreshLocked replaces any pending timer with one firing
// RefreshLead before the current token expires. A token already inside the
// lead window is refreshed straight away. Requires mu.
func (m *Manager) setupTokenRefreshLocked() {
	m.cancelTimerLocked()
	m.state = NoTimer

	if m.token == "" {
		return
	}

	exp, err := token.DecodeExpiry(m.token)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Cannot schedule token refresh")
		return
	}

	now := m.nowFunc()
	delay := exp.Sub(now) - m.cfg.GetRefreshLead()
	gen := m.generation

	if delay > 0 {
		m.timer = m.afterFunc(delay, func() { m.onRefreshTimer(gen) })
		m.nextRefresh = now.Add(delay)
		m.state = Armed
		m.logger.Debug().Dur("delay", delay).Time("expires", exp).Msg("Token refresh scheduled")
		return
	}

	m.state = Refreshing
	m.logger.Debug().Time("expires", exp).Msg("Token expired or expiring, refreshing now")
	go m.runRefresh(gen)
}

func (m *Manager) onRefreshTimer(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.nextRefresh = time.Time{}
	m.state = Refreshing
	m.mu.Unlock()

	m.runRefresh(gen)
}

func (m *Manager) runRefresh(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	err := m.refresh(ctx, gen)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrStaleRefresh):
		m.logger.Debug().Msg("Discarded superseded token refresh")
	case errors.Is(err, errors.ErrNoRefreshToken):
		m.logger.Warn().Msg("No refresh token available, automatic refresh disabled")
	default:
		m.logger.Error().Err(err).Msg("Token refresh failed, session cleared")
	}
}
