package config

import "time"

type SessionConfig interface {
	GetSafetyMargin() time.Duration
	GetConsentTTL() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSafetyMargin is how long before expiry the access credential is renewed.
func (Session) GetSafetyMargin() time.Duration {
	return GetDuration("SAFETY_MARGIN", 60*time.Second)
}

func (Session) GetConsentTTL() time.Duration {
	return GetDuration("CONSENT_TTL", 30*24*time.Hour)
}
