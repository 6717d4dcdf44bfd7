package server

import "github.com/jrsteele09/go-jwt-session/authapi"

// Route path constants. Auth routes are relative to the configured API
// prefix.
const (
	RouteLogin   = authapi.PathLogin
	RouteRefresh = authapi.PathRefresh
	RouteLogout  = authapi.PathLogout

	// RouteWhoAmI is the protected demo resource.
	RouteWhoAmI = "/api/whoami"
)
