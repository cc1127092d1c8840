package clientfake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/token"
)

var _ authapi.Client = (*FakeClient)(nil)

var ErrRejected = errors.New("rejected by fake auth server")

// FakeClient answers Login and Refresh from configurable functions and counts calls.
type FakeClient struct {
	mu            sync.Mutex
	LoginFunc     func(ctx context.Context, username, password string) (token.Pair, error)
	RefreshFunc   func(ctx context.Context, refreshToken string) (token.Pair, error)
	loginCalls    int
	refreshCalls  int
	lastRefreshed string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		LoginFunc: func(context.Context, string, string) (token.Pair, error) {
			return token.Pair{}, ErrRejected
		},
		RefreshFunc: func(context.Context, string) (token.Pair, error) {
			return token.Pair{}, ErrRejected
		},
	}
}

func (c *FakeClient) Login(ctx context.Context, username, password string) (token.Pair, error) {
	c.mu.Lock()
	c.loginCalls++
	fn := c.LoginFunc
	c.mu.Unlock()
	return fn(ctx, username, password)
}

func (c *FakeClient) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.lastRefreshed = refreshToken
	fn := c.RefreshFunc
	c.mu.Unlock()
	return fn(ctx, refreshToken)
}

func (c *FakeClient) LoginCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginCalls
}

func (c *FakeClient) RefreshCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCalls
}

// LastRefreshed returns the refresh credential sent with the most recent Refresh call.
func (c *FakeClient) LastRefreshed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshed
}
