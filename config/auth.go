package config

import "time"

// AuthConfig groups authentication configuration for the inbound API.
//
// Callers authenticate with a bearer JWT signed with the shared
// SigningSecret (HS256). The /token endpoint mints tokens for
// registered users with the same secret.
type AuthConfig struct {
	// SigningSecret is the HMAC secret used to sign and verify API tokens.
	// Required outside development mode; bootstrap rejects the default.
	SigningSecret string `env:"SIGNING_SECRET" envDefault:"dev-only-insecure-secret"`

	// AccessTokenTTL is the lifetime of tokens minted by the /token endpoint.
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`

	// BcryptCost is the bcrypt work factor for stored password hashes.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.AccessTokenTTL < time.Minute {
		a.AccessTokenTTL = time.Minute
	}
	// Keep the work factor inside bcrypt's supported range.
	if a.BcryptCost < 4 {
		a.BcryptCost = 4
	}
	if a.BcryptCost > 31 {
		a.BcryptCost = 31
	}
}
