package tokenfake

import (
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/token"
)

// Issuer mints HMAC signed credentials for tests and local runs.
type Issuer struct {
	secret  []byte
	nowFunc func() time.Time
}

// NewIssuer creates an issuer whose "iat" and "exp" claims are relative to nowFunc.
func NewIssuer(nowFunc func() time.Time) *Issuer {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Issuer{
		secret:  []byte("tokenfake-secret"),
		nowFunc: nowFunc,
	}
}

// Issue creates a credential for subject that expires ttl from now.
func (i *Issuer) Issue(subject int64, roles []string, ttl time.Duration) string {
	claims := jwtlib.MapClaims{
		"sub":   strconv.FormatInt(subject, 10),
		"roles": roles,
		"iat":   i.nowFunc().Unix(),
		"exp":   i.nowFunc().Add(ttl).Unix(),
		"jti":   uuid.New().String(),
	}
	return i.sign(claims)
}

// IssueWithoutExpiry creates a credential that has no "exp" claim.
func (i *Issuer) IssueWithoutExpiry(subject int64, roles []string) string {
	return i.sign(jwtlib.MapClaims{
		"sub":   strconv.FormatInt(subject, 10),
		"roles": roles,
		"jti":   uuid.New().String(),
	})
}

// Pair issues an access and a refresh credential for the same login.
func (i *Issuer) Pair(subject int64, roles []string, accessTTL, refreshTTL time.Duration) token.Pair {
	return token.Pair{
		Access:  i.Issue(subject, roles, accessTTL),
		Refresh: i.Issue(subject, nil, refreshTTL),
	}
}

func (i *Issuer) sign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		panic("tokenfake: failed to sign credential: " + err.Error())
	}
	return signed
}
