// Package authapi holds the wire types shared by the session client and the
// reference auth API.
package authapi

// Endpoint paths, relative to the configured auth API prefix.
const (
	PathLogin   = "/login"
	PathLogout  = "/logout"
	PathRefresh = "/refresh"
)

// LoginRequest is the body POSTed to <prefix>/login.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	MerchantID string `json:"merchantId"`
}

// LogoutRequest is the body POSTed to <prefix>/logout. The same token is also
// sent as a bearer Authorization header.
type LogoutRequest struct {
	Token string `json:"token"`
}

// RefreshRequest is the body POSTed to <prefix>/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
