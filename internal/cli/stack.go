package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/config"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/scheduler"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/filerepo"
	"github.com/jrsteele09/go-auth-session/storage/redisrepo"
	"github.com/jrsteele09/go-auth-session/storage/repofake"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// stack is a fully wired session manager for one command invocation.
type stack struct {
	manager *session.Manager
	changes chan session.Snapshot
	timeout time.Duration
	closers []func() error
}

func newStack(ctx context.Context, cfg config.Config, logger zerolog.Logger, recorder session.Recorder) (*stack, error) {
	repo, closeRepo, err := buildRepo(cfg)
	if err != nil {
		return nil, err
	}
	client, err := buildClient(ctx, cfg)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}

	s := &stack{
		changes: make(chan session.Snapshot, 16),
		timeout: cfg.GetRequestTimeout(),
		closers: []func() error{closeRepo},
	}
	store := credentials.NewStore(repo,
		credentials.WithLogger(logger),
		credentials.WithConsentTTL(cfg.GetConsentTTL()),
	)
	options := []session.Option{
		session.WithLogger(logger),
		session.WithSafetyMargin(cfg.GetSafetyMargin()),
		session.WithOnChange(func(snap session.Snapshot) {
			select {
			case s.changes <- snap:
			default:
			}
		}),
	}
	if recorder != nil {
		options = append(options, session.WithRecorder(recorder))
	}
	s.manager = session.New(store, client, scheduler.New(), options...)
	return s, nil
}

// waitSettled blocks while the session is renewing, up to the request timeout.
func (s *stack) waitSettled(ctx context.Context) error {
	if s.manager.State() != session.StateRenewing {
		return nil
	}
	timer := time.NewTimer(s.timeout + time.Second)
	defer timer.Stop()
	for {
		select {
		case snap := <-s.changes:
			if snap.State != session.StateRenewing {
				return nil
			}
		case <-timer.C:
			return apperrors.ErrRenewalPending
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *stack) Close() error {
	s.manager.Close()
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildRepo(cfg config.StoreConfig) (storage.Repo, func() error, error) {
	noop := func() error { return nil }

	switch cfg.GetStoreBackend() {
	case config.StoreBackendFile:
		path := cfg.GetStorePath()
		if path == "" {
			var err error
			if path, err = filerepo.DefaultPath(); err != nil {
				return nil, nil, err
			}
		}
		return filerepo.New(path), noop, nil
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return redisrepo.New(client, redisrepo.WithPrefix(cfg.GetRedisPrefix())), client.Close, nil
	case config.StoreBackendMemory:
		return repofake.NewFakeRepo(), noop, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, cfg.GetStoreBackend())
}

func buildClient(ctx context.Context, cfg config.AuthConfig) (authapi.Client, error) {
	endpoint := oauth2.Endpoint{TokenURL: cfg.GetTokenURL()}
	if endpoint.TokenURL == "" {
		if cfg.GetIssuerURL() == "" {
			return nil, apperrors.ErrNoTokenEndpoint
		}
		discovered, err := authapi.DiscoverEndpoint(ctx, cfg.GetIssuerURL())
		if err != nil {
			return nil, err
		}
		endpoint = discovered
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GetClientID(),
		ClientSecret: cfg.GetClientSecret(),
		Endpoint:     endpoint,
		Scopes:       cfg.GetScopes(),
	}
	return authapi.NewOAuth2Client(oauthConfig, authapi.WithTimeout(cfg.GetRequestTimeout())), nil
}
