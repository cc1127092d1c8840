package token

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// DefaultSafetyMargin is subtracted from a credential's expiry so renewal happens before the
// server starts rejecting it.
const DefaultSafetyMargin = 60 * time.Second

// Pair is an access/refresh credential pair issued by a single login or renewal.
type Pair struct {
	Access  string
	Refresh string
}

// Credential is a bearer token together with the claims decoded from it.
// Only Raw is ever stored; the other fields are recomputed by Decode.
type Credential struct {
	Raw        string     // Wire-format token
	SubjectID  int64      // Decoded "sub" claim, zero when missing or non-numeric
	HasSubject bool       // True when SubjectID was decoded
	Roles      Roles      // Decoded "roles" claim
	ExpiresAt  *time.Time // Decoded "exp" claim, nil means already invalid
}

// Decode extracts the claims of raw without verifying its signature. It never fails: a token
// whose claims cannot be read comes back with no expiry and no roles.
func Decode(raw string) Credential {
	c := Credential{Raw: raw, Roles: Roles{}}
	if strings.TrimSpace(raw) == "" {
		return c
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return c
	}
	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return c
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt := exp.Time
		c.ExpiresAt = &expiresAt
	}
	c.SubjectID, c.HasSubject = subjectFromClaims(claims)
	c.Roles = NewRoles(rolesFromClaims(claims))
	return c
}

// RemainingValidity is the time left before the credential must be renewed: expiry minus now
// minus the safety margin. A credential without an expiry has no validity left.
func (c Credential) RemainingValidity(now time.Time, margin time.Duration) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now) - margin
}

// Valid reports whether the credential still has remaining validity.
func (c Credential) Valid(now time.Time, margin time.Duration) bool {
	return c.RemainingValidity(now, margin) > 0
}

func subjectFromClaims(claims jwtlib.MapClaims) (int64, bool) {
	switch sub := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(sub), 10, 64)
		return id, err == nil
	case float64:
		return int64(sub), sub == float64(int64(sub))
	case json.Number:
		id, err := sub.Int64()
		return id, err == nil
	}
	return 0, false
}

func rolesFromClaims(claims jwtlib.MapClaims) []string {
	switch roles := claims["roles"].(type) {
	case []any:
		return utils.ToStringSlice(roles)
	case string:
		return utils.SplitList(roles)
	}
	return nil
}
