// Package credentials persists the access and refresh credentials between process runs,
// subject to the user's consent.
package credentials

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Durable slot names.
const (
	SlotAccess  = "token"
	SlotRefresh = "refreshToken"
	SlotConsent = "consent"
)

// Store reads and writes the credential slots. Writes only happen while consent is granted
// and the user asked to be remembered; purges always happen.
type Store struct {
	repo    storage.Repo
	consent *ConsentGate
	logger  zerolog.Logger
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithConsentTTL sets how long a granted consent marker lasts.
func WithConsentTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.consent.ttl = ttl
	}
}

func NewStore(repo storage.Repo, options ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: log.Logger,
	}
	s.consent = &ConsentGate{
		repo:  repo,
		ttl:   DefaultConsentTTL,
		purge: s.Purge,
	}
	for _, opt := range options {
		opt(s)
	}
	s.consent.logger = s.logger
	return s
}

// Consent returns the gate guarding this store.
func (s *Store) Consent() *ConsentGate {
	return s.consent
}

// HasConsent reports whether durable persistence is currently permitted.
func (s *Store) HasConsent(ctx context.Context) bool {
	return s.consent.Get(ctx)
}

// SetConsent records the consent decision, purging stored credentials when it is revoked.
func (s *Store) SetConsent(ctx context.Context, granted bool) error {
	return s.consent.Set(ctx, granted)
}

// Load returns the stored credentials. Empty slots come back as empty strings. Without
// consent nothing may remain stored, so leftovers from an expired marker are purged and an
// empty pair is returned.
func (s *Store) Load(ctx context.Context) (token.Pair, error) {
	if !s.consent.Get(ctx) {
		if err := s.Purge(ctx); err != nil {
			return token.Pair{}, err
		}
		return token.Pair{}, nil
	}
	access, err := s.slot(ctx, SlotAccess)
	if err != nil {
		return token.Pair{}, err
	}
	refresh, err := s.slot(ctx, SlotRefresh)
	if err != nil {
		return token.Pair{}, err
	}
	return token.Pair{Access: access, Refresh: refresh}, nil
}

// Save writes both credentials in one step when consent is granted and rememberMe is set.
// Otherwise it purges the slots so no earlier login's pair outlives this one.
func (s *Store) Save(ctx context.Context, pair token.Pair, rememberMe bool) error {
	if !rememberMe || !s.consent.Get(ctx) {
		return s.Purge(ctx)
	}
	entries := map[string]string{
		SlotAccess:  pair.Access,
		SlotRefresh: pair.Refresh,
	}
	if err := s.repo.Put(ctx, entries, 0); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Purge removes both credential slots unconditionally.
func (s *Store) Purge(ctx context.Context) error {
	if err := s.repo.Delete(ctx, SlotAccess, SlotRefresh); err != nil {
		return fmt.Errorf("purge credentials: %w", err)
	}
	return nil
}

func (s *Store) slot(ctx context.Context, key string) (string, error) {
	value, err := s.repo.Get(ctx, key)
	if apperrors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return value, nil
}
