package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-jwt-session/authapi"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/users"
)

const (
	msgInvalidBody        = "Invalid request body"
	msgInvalidCredentials = "Invalid username or password"
	msgUserBlocked        = "User is blocked"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgInternal           = "Internal server error"
)

// LoginHandler checks the credentials and issues an access token and a
// refresh token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, msgInvalidBody, http.StatusBadRequest)
			return
		}

		user, err := s.authenticate(req)
		if err != nil {
			s.logger.Info().Err(err).Str("username", req.Username).Msg("Login rejected")
			switch {
			case errors.Is(err, errors.ErrUserBlocked):
				writeFailure(w, msgUserBlocked, http.StatusForbidden)
			default:
				writeFailure(w, msgInvalidCredentials, http.StatusUnauthorized)
			}
			return
		}

		accessToken, err := s.issuer.CreateAccessToken(user)
		if err != nil {
			s.logger.Err(err).Msg("Failed to create access token")
			writeFailure(w, msgInternal, http.StatusInternalServerError)
			return
		}

		refreshToken, err := s.refreshTokens.Create(user.ID, user.MerchantID)
		if err != nil {
			s.logger.Err(err).Msg("Failed to create refresh token")
			writeFailure(w, msgInternal, http.StatusInternalServerError)
			return
		}

		if err := s.users.SetLastLogin(user.ID); err != nil {
			s.logger.Warn().Err(err).Str("user", user.ID).Msg("Failed to record last login")
		}

		writeJSON(w, http.StatusOK, authapi.LoginResponse{
			Response:     authapi.Response{Success: true},
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		})
	}
}

func (s *Server) authenticate(req authapi.LoginRequest) (*users.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, errors.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(req.Username)
	if err != nil || user == nil {
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "unknown user")
	}
	if req.MerchantID != "" && req.MerchantID != user.MerchantID {
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "merchant mismatch")
	}
	if !user.CheckPassword(req.Password) {
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "password mismatch")
	}
	if user.Blocked {
		return nil, errors.ErrUserBlocked
	}
	return user, nil
}

// RefreshHandler exchanges a refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeFailure(w, msgInvalidBody, http.StatusBadRequest)
			return
		}

		stored, err := s.refreshTokens.Validate(req.RefreshToken)
		if err != nil {
			s.logger.Info().Err(err).Msg("Refresh rejected")
			writeFailure(w, msgInvalidRefresh, http.StatusUnauthorized)
			return
		}

		user, err := s.users.GetByID(stored.UserID)
		if err != nil || user == nil {
			writeFailure(w, msgInvalidRefresh, http.StatusUnauthorized)
			return
		}
		if user.Blocked {
			_ = s.refreshTokens.RevokeForUser(user.ID)
			writeFailure(w, msgUserBlocked, http.StatusForbidden)
			return
		}

		accessToken, err := s.issuer.CreateAccessToken(user)
		if err != nil {
			s.logger.Err(err).Msg("Failed to create access token")
			writeFailure(w, msgInternal, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, authapi.RefreshResponse{
			Response:    authapi.Response{Success: true},
			AccessToken: accessToken,
		})
	}
}

// LogoutHandler revokes the presented access token and the user's refresh
// token. It always reports success; there is nothing a client could do
// about a failure.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			var req authapi.LogoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				raw = req.Token
			}
		}

		if raw != "" {
			if claims, err := s.issuer.Verify(raw); err == nil {
				if err := s.issuer.Revoke(raw); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to revoke access token")
				}
				if sub, _ := claims.GetSubject(); sub != "" {
					if err := s.refreshTokens.RevokeForUser(sub); err != nil {
						s.logger.Warn().Err(err).Str("user", sub).Msg("Failed to revoke refresh token")
					}
				}
			} else {
				s.logger.Debug().Err(err).Msg("Logout with unusable token")
			}
		}

		writeJSON(w, http.StatusOK, authapi.Response{Success: true})
	}
}
