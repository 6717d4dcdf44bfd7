package server

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-jwt-session/authapi"
)

// WhoAmIResponse is returned from RouteWhoAmI.
type WhoAmIResponse struct {
	authapi.Response
	Subject    string `json:"subject"`
	Username   string `json:"username,omitempty"`
	MerchantID string `json:"merchantId,omitempty"`
}

// WhoAmIHandler describes the caller. Must run behind RequireAuth.
func (s *Server) WhoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeFailure(w, "Missing access token", http.StatusUnauthorized)
			return
		}

		sub, _ := claims.GetSubject()
		name, _ := claims["name"].(string)
		merchant, _ := claims["merchant"].(string)

		s.maybeRenew(w, sub, claims)

		writeJSON(w, http.StatusOK, WhoAmIResponse{
			Response:   authapi.Response{Success: true},
			Subject:    sub,
			Username:   name,
			MerchantID: merchant,
		})
	}
}

// maybeRenew sets the response token header to a fresh access token when
// sliding renewal is on and the current one is close to expiry.
func (s *Server) maybeRenew(w http.ResponseWriter, sub string, claims jwt.MapClaims) {
	if s.renewWithin <= 0 || sub == "" {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || time.Until(exp.Time) > s.renewWithin {
		return
	}

	user, err := s.users.GetByID(sub)
	if err != nil || user == nil {
		return
	}
	renewed, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to renew access token")
		return
	}
	w.Header().Set(s.config.GetResponseTokenHeader(), renewed)
}
