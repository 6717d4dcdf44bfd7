package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/users"
)

// Issuer creates and verifies the access tokens handed out by the reference
// auth API.
type Issuer struct {
	signer       Signer
	issuer       string
	accessExpiry time.Duration
	revokedCache RevokedTokenCache
	nowFunc      func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) IssuerOption {
	return func(i *Issuer) {
		i.revokedCache = cache
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer: signer,
	}

	for _, opt := range options {
		opt(i)
	}

	if i.accessExpiry == 0 {
		i.accessExpiry = 15 * time.Minute
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	if i.revokedCache == nil {
		i.revokedCache = NewInMemoryRevokedTokenCache(i.nowFunc)
	}
	return i
}

// AccessTokenExpiry is the lifetime given to new access tokens.
func (i *Issuer) AccessTokenExpiry() time.Duration {
	return i.accessExpiry
}

func (i *Issuer) CreateAccessToken(user *users.User) (string, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":      i.issuer,                       // The issuer of the token
		"sub":      user.ID,                        // The subject, the authenticated user
		"name":     user.Username,                  // Display name for clients
		"merchant": user.MerchantID,                // Merchant the session is scoped to
		"iat":      now.Unix(),                     // Issued At
		"exp":      now.Add(i.accessExpiry).Unix(), // Expiry: drives the client's refresh timer
		"jti":      uuid.New().String(),            // Unique token ID for revocation
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrapf(err, "Issuer.CreateAccessToken")
	}
	return signed, nil
}

// Verify checks the signature, expiry and revocation status of raw and
// returns its claims.
func (i *Issuer) Verify(raw string) (jwt.MapClaims, error) {
	raw = Normalize(raw)
	if raw == "" {
		return nil, errors.ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, jwt.MapClaims{}, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "%v", err)
	}
	if !parsed.Valid {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "error extracting claims from token")
	}

	if jti, _ := claims["jti"].(string); jti != "" && i.revokedCache.IsRevoked(jti) {
		return nil, errors.ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blocks raw until it would have expired anyway.
func (i *Issuer) Revoke(raw string) error {
	claims, err := i.Verify(raw)
	if err != nil {
		return err
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return errors.Wrapf(errors.ErrInvalidToken, "token missing jti claim")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return errors.ErrMissingExpiry
	}
	return i.revokedCache.Add(jti, exp.Time)
}
