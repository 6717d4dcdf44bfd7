package config

import "time"

type SessionConfig interface {
	GetAPIPrefix() string
	GetAccessTokenKey() string
	GetRefreshTokenKey() string
	GetCookieName() string
	GetFormFieldName() string
	GetLegacyFieldNames() []string
	GetAuthPathMarker() string
	GetRefreshLead() time.Duration
	GetDefaultMerchantID() string
	GetProtectedPaths() []string
	GetEventName() string
	GetResponseTokenHeader() string
}

// Session holds the client-side session settings. Zero values are replaced by
// DefaultSession when loaded through New or Load.
type Session struct {
	APIPrefix           string        `yaml:"api_prefix"`
	AccessTokenKey      string        `yaml:"access_token_key"`
	RefreshTokenKey     string        `yaml:"refresh_token_key"`
	CookieName          string        `yaml:"cookie_name"`
	FormFieldName       string        `yaml:"form_field_name"`
	LegacyFieldNames    []string      `yaml:"legacy_field_names"`
	AuthPathMarker      string        `yaml:"auth_path_marker"`
	RefreshLead         time.Duration `yaml:"refresh_lead"`
	DefaultMerchantID   string        `yaml:"default_merchant_id"`
	ProtectedPaths      []string      `yaml:"protected_paths"`
	EventName           string        `yaml:"event_name"`
	ResponseTokenHeader string        `yaml:"response_token_header"`
}

var _ SessionConfig = Session{}

func DefaultSession() Session {
	return Session{
		APIPrefix:           "/rest/s1/moqui/auth",
		AccessTokenKey:      "jwt_access_token",
		RefreshTokenKey:     "jwt_refresh_token",
		CookieName:          "jwt_token",
		FormFieldName:       "jwt_token",
		LegacyFieldNames:    []string{"moquiSessionToken", "SessionToken"},
		AuthPathMarker:      "/auth/",
		RefreshLead:         5 * time.Minute,
		DefaultMerchantID:   "DEMO_MERCHANT",
		ProtectedPaths:      []string{"/marketplace/", "/mcp/"},
		EventName:           "moqui-jwt-updated",
		ResponseTokenHeader: "X-Access-Token",
	}
}

func (s Session) GetAPIPrefix() string {
	return GetEnv("JWT_API_PREFIX", s.APIPrefix)
}

func (s Session) GetAccessTokenKey() string {
	return GetEnv("JWT_ACCESS_TOKEN_KEY", s.AccessTokenKey)
}

func (s Session) GetRefreshTokenKey() string {
	return GetEnv("JWT_REFRESH_TOKEN_KEY", s.RefreshTokenKey)
}

func (s Session) GetCookieName() string {
	return GetEnv("JWT_COOKIE_NAME", s.CookieName)
}

func (s Session) GetFormFieldName() string {
	return GetEnv("JWT_FORM_FIELD", s.FormFieldName)
}

func (s Session) GetLegacyFieldNames() []string {
	return GetEnvList("JWT_LEGACY_FIELDS", s.LegacyFieldNames)
}

func (s Session) GetAuthPathMarker() string {
	return GetEnv("JWT_AUTH_PATH_MARKER", s.AuthPathMarker)
}

// GetRefreshLead is how long before expiry the access token is refreshed.
func (s Session) GetRefreshLead() time.Duration {
	return GetEnvDuration("JWT_REFRESH_LEAD", s.RefreshLead)
}

func (s Session) GetDefaultMerchantID() string {
	return GetEnv("JWT_MERCHANT_ID", s.DefaultMerchantID)
}

func (s Session) GetProtectedPaths() []string {
	return GetEnvList("JWT_PROTECTED_PATHS", s.ProtectedPaths)
}

func (s Session) GetEventName() string {
	return GetEnv("JWT_EVENT_NAME", s.EventName)
}

func (s Session) GetResponseTokenHeader() string {
	return GetEnv("JWT_RESPONSE_TOKEN_HEADER", s.ResponseTokenHeader)
}
