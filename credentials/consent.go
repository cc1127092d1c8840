package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
)

// DefaultConsentTTL is how long a granted consent marker survives without being renewed.
const DefaultConsentTTL = 30 * 24 * time.Hour

// ConsentGate decides whether credentials may be written to durable storage at all.
// The decision lives in its own expiring slot so it is known before any login happens.
type ConsentGate struct {
	repo   storage.Repo
	ttl    time.Duration
	purge  func(ctx context.Context) error
	logger zerolog.Logger
}

// Get reports whether consent is currently granted. A marker that cannot be read counts as
// no consent.
func (g *ConsentGate) Get(ctx context.Context) bool {
	value, err := g.repo.Get(ctx, SlotConsent)
	if apperrors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		g.logger.Warn().Err(err).Msg("consent marker unreadable, treating as revoked")
		return false
	}
	granted, err := strconv.ParseBool(value)
	return err == nil && granted
}

// Set records the consent decision. Revoking consent purges stored credentials before it
// returns, whether or not a session exists. Granting consent never writes credentials by itself.
func (g *ConsentGate) Set(ctx context.Context, granted bool) error {
	if granted {
		if err := g.repo.Put(ctx, map[string]string{SlotConsent: "true"}, g.ttl); err != nil {
			return fmt.Errorf("write consent marker: %w", err)
		}
		g.logger.Info().Dur("ttl", g.ttl).Msg("consent granted")
		return nil
	}

	markerErr := g.repo.Delete(ctx, SlotConsent)
	purgeErr := g.purge(ctx)
	g.logger.Info().Msg("consent revoked, stored credentials purged")
	if markerErr != nil {
		markerErr = fmt.Errorf("delete consent marker: %w", markerErr)
	}
	return errors.Join(markerErr, purgeErr)
}
