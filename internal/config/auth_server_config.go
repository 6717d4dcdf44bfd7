package config

import "time"

// AuthServerConfig configures the reference auth API used by cmd/authserver
// and the tests.
type AuthServerConfig interface {
	GetSigningSecret() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetDemoUsername() string
	GetDemoPassword() string
	GetDemoMerchantID() string
}

type AuthServer struct {
	SigningSecret      string        `yaml:"signing_secret"`
	Issuer             string        `yaml:"issuer"`
	AccessTokenExpiry  time.Duration `yaml:"access_token_expiry"`
	RefreshTokenExpiry time.Duration `yaml:"refresh_token_expiry"`
	RefreshTokenLength int           `yaml:"refresh_token_length"`
	DemoUsername       string        `yaml:"demo_username"`
	DemoPassword       string        `yaml:"demo_password"`
	DemoMerchantID     string        `yaml:"demo_merchant_id"`
}

var _ AuthServerConfig = AuthServer{}

func DefaultAuthServer() AuthServer {
	return AuthServer{
		SigningSecret:      "change-me",
		Issuer:             "go-jwt-session",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		RefreshTokenLength: 32, // 32 bytes = 256 bits
		DemoUsername:       "john.doe",
		DemoPassword:       "moqui",
		DemoMerchantID:     "DEMO_MERCHANT",
	}
}

func (a AuthServer) GetSigningSecret() string {
	return GetEnv("AUTH_SIGNING_SECRET", a.SigningSecret)
}

func (a AuthServer) GetIssuer() string {
	return GetEnv("AUTH_ISSUER", a.Issuer)
}

func (a AuthServer) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("AUTH_ACCESS_TOKEN_EXPIRY", a.AccessTokenExpiry)
}

func (a AuthServer) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("AUTH_REFRESH_TOKEN_EXPIRY", a.RefreshTokenExpiry)
}

func (a AuthServer) GetRefreshTokenLength() int {
	if a.RefreshTokenLength <= 0 {
		return 32
	}
	return a.RefreshTokenLength
}

func (a AuthServer) GetDemoUsername() string {
	return GetEnv("AUTH_DEMO_USERNAME", a.DemoUsername)
}

func (a AuthServer) GetDemoPassword() string {
	return GetEnv("AUTH_DEMO_PASSWORD", a.DemoPassword)
}

func (a AuthServer) GetDemoMerchantID() string {
	return GetEnv("AUTH_DEMO_MERCHANT", a.DemoMerchantID)
}
