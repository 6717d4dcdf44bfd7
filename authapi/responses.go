package authapi

// Response carries the fields common to every auth endpoint response.
type Response struct {
	// Success reports whether the server accepted the request.
	// Example: true
	// Usage: The only field the client branches on; HTTP status codes are not consulted
	Success bool `json:"success"`

	// Message explains a failure.
	// Example: "Invalid username or password"
	// Only present: When Success is false
	Message string `json:"message,omitempty"`
}

// LoginResponse is returned from <prefix>/login.
type LoginResponse struct {
	Response

	// AccessToken is the JWT sent on every same-origin request.
	// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Usage: Include in Authorization header: "Bearer <accessToken>"
	// Note: Servers may return it already prefixed with "Bearer "; the client strips it
	AccessToken string `json:"accessToken,omitempty"`

	// RefreshToken is an opaque token used only against <prefix>/refresh.
	// Example: "3f9c0c4b2d..."
	// Lifespan: Long-lived (days)
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshResponse is returned from <prefix>/refresh. The refresh token is not
// rotated; the client keeps the one it already holds.
type RefreshResponse struct {
	Response

	// AccessToken replaces the current access token.
	AccessToken string `json:"accessToken,omitempty"`
}
