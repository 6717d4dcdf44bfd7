package session

import (
	"context"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/token"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
)

// StoredToken reads the access token from storage, durable tier first.
func (m *Manager) StoredToken(ctx context.Context) string {
	return m.readStored(ctx, m.cfg.GetAccessTokenKey())
}

// StoredRefreshToken reads the refresh token from storage, durable tier first.
func (m *Manager) StoredRefreshToken(ctx context.Context) string {
	return m.readStored(ctx, m.cfg.GetRefreshTokenKey())
}

func (m *Manager) readStored(ctx context.Context, key string) string {
	value, _, err := m.tiers.Read(ctx, key)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to read stored token")
	}
	return value
}

// AccessToken returns the in-memory access token, or "" when unauthenticated.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Token returns the in-memory access token, falling back to storage.
func (m *Manager) Token() string {
	if t := m.AccessToken(); t != "" {
		return t
	}
	return m.StoredToken(context.Background())
}

// RefreshToken returns the in-memory refresh token.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}

// Tier is the storage tier chosen at the last login.
func (m *Manager) Tier() tokenstore.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// StoreTokens persists access and refresh (either may be empty to keep the
// current value) into the tier selected by remember, then mirrors the cookie,
// notifies listeners and re-arms the refresh timer. Storage errors are
// returned but the in-memory session is updated regardless.
func (m *Manager) StoreTokens(ctx context.Context, access, refresh string, remember bool) error {
	m.writeMu.Lock()
	update, err := m.storeTokensLocked(ctx, access, refresh, tokenstore.TierFor(remember))
	m.writeMu.Unlock()

	m.dispatch(update)
	return err
}

// storeTokensLocked requires writeMu.
func (m *Manager) storeTokensLocked(ctx context.Context, access, refresh string, tier tokenstore.Tier) (string, error) {
	access = token.Normalize(access)
	refresh = token.Normalize(refresh)

	var errs []error
	if access != "" {
		errs = append(errs, m.tiers.Write(ctx, tier, m.cfg.GetAccessTokenKey(), access))
	}
	if refresh != "" {
		errs = append(errs, m.tiers.Write(ctx, tier, m.cfg.GetRefreshTokenKey(), refresh))
	}

	m.mu.Lock()
	if access != "" {
		m.token = access
	}
	if refresh != "" {
		m.refreshToken = refresh
	}
	m.tier = tier
	m.generation++
	current := m.token
	m.setupTokenRefreshLocked()
	m.mu.Unlock()

	if access != "" {
		m.cookies.Set(access)
	}

	err := errors.Join(errs...)
	if err != nil {
		m.logger.Warn().Err(err).Str("tier", tier.String()).Msg("Failed to persist JWT tokens")
	}
	return current, err
}

// ClearTokens removes both tokens from both tiers, expires the cookie, cancels
// the refresh timer and notifies listeners with an empty token.
func (m *Manager) ClearTokens(ctx context.Context) error {
	m.writeMu.Lock()
	err := m.clearTokensLocked(ctx)
	m.writeMu.Unlock()

	m.dispatch("")
	return err
}

// clearTokensLocked requires writeMu.
func (m *Manager) clearTokensLocked(ctx context.Context) error {
	err := m.tiers.Remove(ctx, m.cfg.GetAccessTokenKey(), m.cfg.GetRefreshTokenKey())
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to remove stored JWT tokens")
	}

	m.cookies.Clear()

	m.mu.Lock()
	m.token = ""
	m.refreshToken = ""
	m.generation++
	m.cancelTimerLocked()
	m.state = NoTimer
	m.mu.Unlock()
	return err
}

// SetToken replaces the in-memory access token without touching storage, as
// when a response hands back a renewed token. The cookie, listeners and the
// refresh timer follow the new value; an empty value drops the in-memory
// token and expires the cookie.
func (m *Manager) SetToken(raw string) {
	raw = token.Normalize(raw)

	m.writeMu.Lock()
	m.mu.Lock()
	if raw == m.token {
		m.mu.Unlock()
		m.writeMu.Unlock()
		return
	}
	m.token = raw
	m.generation++
	m.setupTokenRefreshLocked()
	m.mu.Unlock()

	if raw != "" {
		m.cookies.Set(raw)
	} else {
		m.cookies.Clear()
	}
	m.writeMu.Unlock()

	m.dispatch(raw)
}
