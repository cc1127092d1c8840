package config

import (
	"strings"
	"time"
)

type AuthConfig interface {
	GetIssuerURL() string
	GetTokenURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetRequestTimeout() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetIssuerURL is used for OpenID Connect discovery when TOKEN_URL is not set.
func (Auth) GetIssuerURL() string {
	return GetEnv("ISSUER_URL", "")
}

func (Auth) GetTokenURL() string {
	return GetEnv("TOKEN_URL", "")
}

func (Auth) GetClientID() string {
	return GetEnv("CLIENT_ID", "catalog-ui")
}

func (Auth) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

func (Auth) GetScopes() []string {
	return strings.Fields(GetEnv("SCOPES", ""))
}

func (Auth) GetRequestTimeout() time.Duration {
	return GetDuration("REQUEST_TIMEOUT", 15*time.Second)
}
