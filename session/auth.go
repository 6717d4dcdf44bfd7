package session

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-jwt-session/authapi"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
)

const networkErrorMessage = "Network error during login"

// LoginResult is the outcome of Login. Response is the decoded server reply
// and is zero when the request never got one.
type LoginResult struct {
	Success  bool
	Message  string
	Response authapi.LoginResponse
}

// Login posts the credentials to the auth API and, when accepted, stores the
// returned tokens in the durable tier if rememberMe is set and the ephemeral
// tier otherwise. It never returns an error; failures are reported in the
// result.
func (m *Manager) Login(ctx context.Context, username, password, merchantID string, rememberMe bool) LoginResult {
	if merchantID == "" {
		merchantID = m.cfg.GetDefaultMerchantID()
	}

	var resp authapi.LoginResponse
	err := m.postJSON(ctx, authapi.PathLogin, authapi.LoginRequest{
		Username:   username,
		Password:   password,
		MerchantID: merchantID,
	}, "", &resp)
	if err != nil {
		m.logger.Error().Err(err).Str("username", username).Msg("Login request failed")
		return LoginResult{Message: networkErrorMessage}
	}

	if !resp.Success || strings.TrimSpace(resp.AccessToken) == "" {
		msg := resp.Message
		if msg == "" {
			msg = errors.ErrLoginRejected.Error()
		}
		m.logger.Info().Str("username", username).Str("reason", msg).Msg("Login rejected")
		return LoginResult{Message: msg, Response: resp}
	}

	if err := m.StoreTokens(ctx, resp.AccessToken, resp.RefreshToken, rememberMe); err != nil {
		m.logger.Warn().Err(err).Msg("Login succeeded but tokens were not fully persisted")
	}
	m.logger.Info().Str("username", username).Bool("remember", rememberMe).Msg("Logged in")
	return LoginResult{Success: true, Message: resp.Message, Response: resp}
}

// Logout tells the server to revoke the current token, if any, then clears
// the session and runs the reload hook. The server call is best effort.
func (m *Manager) Logout(ctx context.Context) error {
	if current := m.Token(); current != "" {
		err := m.postJSON(ctx, authapi.PathLogout, authapi.LogoutRequest{Token: current}, current, nil)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Logout request failed, clearing session anyway")
		}
	}

	err := m.ClearTokens(ctx)
	m.reload()
	return err
}

// RefreshAccessToken exchanges the refresh token for a new access token. A
// rejected or failed refresh clears the session. When another mutation lands
// while the call is in flight its result is discarded and ErrStaleRefresh
// returned.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	return m.refresh(ctx, gen)
}

func (m *Manager) refresh(ctx context.Context, gen uint64) error {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return errors.ErrStaleRefresh
	}
	refreshToken := m.refreshToken
	tier := m.tier
	if refreshToken == "" {
		if m.state == Refreshing {
			m.state = NoTimer
		}
		m.mu.Unlock()
		return errors.ErrNoRefreshToken
	}
	m.mu.Unlock()

	var resp authapi.RefreshResponse
	callErr := m.postJSON(ctx, authapi.PathRefresh, authapi.RefreshRequest{RefreshToken: refreshToken}, "", &resp)
	if callErr == nil && (!resp.Success || strings.TrimSpace(resp.AccessToken) == "") {
		callErr = errors.Wrapf(errors.ErrRefreshRejected, "server said %q", resp.Message)
	}

	m.writeMu.Lock()
	m.mu.Lock()
	stale := gen != m.generation
	m.mu.Unlock()
	if stale {
		m.writeMu.Unlock()
		return errors.ErrStaleRefresh
	}

	if callErr != nil {
		if err := m.clearTokensLocked(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to clear tokens after refresh failure")
		}
		m.writeMu.Unlock()
		m.dispatch("")
		return errors.Wrapf(callErr, "Manager.RefreshAccessToken")
	}

	current, err := m.storeTokensLocked(ctx, resp.AccessToken, refreshToken, tier)
	m.writeMu.Unlock()
	m.dispatch(current)
	if err != nil {
		return errors.Wrapf(err, "Manager.RefreshAccessToken store")
	}
	m.logger.Debug().Msg("Access token refreshed")
	return nil
}

// RequireAuth reports whether a token is held in memory. Without one it asks
// the configured Prompter to start a login.
func (m *Manager) RequireAuth(ctx context.Context) bool {
	if m.IsAuthenticated() {
		return true
	}
	if m.prompter != nil {
		m.prompter.PromptLogin(ctx, m)
	}
	return false
}

// ShouldPromptLogin reports whether a page at path that answered with body
// is an authorization failure the user can fix by logging in: a protected
// path, no token held, and a body saying access was denied.
func (m *Manager) ShouldPromptLogin(path, body string) bool {
	if m.IsAuthenticated() {
		return false
	}

	protected := false
	for _, segment := range m.cfg.GetProtectedPaths() {
		if strings.Contains(path, segment) {
			protected = true
			break
		}
	}
	if !protected {
		return false
	}
	return strings.Contains(body, "not authorized") || strings.Contains(body, "Forbidden")
}
