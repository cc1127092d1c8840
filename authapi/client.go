// Package authapi talks to the remote authentication API: password login and refresh-token
// renewal, both returning an access/refresh credential pair.
package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
	"golang.org/x/oauth2"
)

var (
	// ErrInvalidGrant means the server rejected the username/password or refresh credential.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrMissingToken means the server answered without an access token.
	ErrMissingToken = errors.New("token response has no access token")
)

// Client is the remote authentication API the session manager depends on.
type Client interface {
	Login(ctx context.Context, username, password string) (token.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (token.Pair, error)
}

// AuthError is a rejection reported by the token endpoint.
type AuthError struct {
	StatusCode  int
	Code        string // OAuth2 "error" field, e.g. invalid_grant
	Description string
	err         error
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("auth server returned %d %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("auth server returned %d %s", e.StatusCode, e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// Is lets callers match rejected credentials with errors.Is(err, ErrInvalidGrant).
func (e *AuthError) Is(target error) bool {
	return target == ErrInvalidGrant && (e.Code == "invalid_grant" || e.StatusCode == http.StatusUnauthorized)
}

var _ Client = (*OAuth2Client)(nil)

// OAuth2Client implements Client against an OAuth2 token endpoint using the password and
// refresh_token grants.
type OAuth2Client struct {
	config     *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*OAuth2Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *OAuth2Client) {
		c.httpClient = client
	}
}

// WithTimeout bounds every token request. Zero leaves requests bounded only by the caller's
// context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *OAuth2Client) {
		c.timeout = timeout
	}
}

func NewOAuth2Client(config *oauth2.Config, options ...Option) *OAuth2Client {
	c := &OAuth2Client{
		config:     config,
		httpClient: http.DefaultClient,
		timeout:    15 * time.Second,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *OAuth2Client) Login(ctx context.Context, username, password string) (token.Pair, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	tok, err := c.config.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return token.Pair{}, c.wrapError("login", err)
	}
	return pairFromToken(tok)
}

func (c *OAuth2Client) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return token.Pair{}, fmt.Errorf("refresh: %w", ErrInvalidGrant)
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	// An empty access token forces the token source to hit the endpoint.
	tok, err := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return token.Pair{}, c.wrapError("refresh", err)
	}
	return pairFromToken(tok)
}

func (c *OAuth2Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *OAuth2Client) wrapError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if apperrors.As(err, &retrieveErr) {
		authErr := &AuthError{
			Code:        retrieveErr.ErrorCode,
			Description: retrieveErr.ErrorDescription,
			err:         err,
		}
		if retrieveErr.Response != nil {
			authErr.StatusCode = retrieveErr.Response.StatusCode
		}
		return fmt.Errorf("%s: %w", op, authErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pairFromToken(tok *oauth2.Token) (token.Pair, error) {
	if tok == nil || tok.AccessToken == "" {
		return token.Pair{}, ErrMissingToken
	}
	return token.Pair{Access: tok.AccessToken, Refresh: tok.RefreshToken}, nil
}

// DiscoverEndpoint reads the issuer's OpenID Connect discovery document and returns its
// token endpoint.
func DiscoverEndpoint(ctx context.Context, issuerURL string) (oauth2.Endpoint, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return provider.Endpoint(), nil
}
