// Package session owns the user's authentication state: it applies logins, renews the access
// credential before it expires, persists credentials when the user has consented and tears
// everything down on logout or failed renewal.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/scheduler"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSuperseded is returned by Login when a logout or another login completed while the
	// login request was in flight. The result of that request was dropped.
	ErrSuperseded = errors.New("login superseded by a newer session change")

	// ErrInvalidRefreshCredential means a login produced a refresh credential that cannot be
	// decoded or has already expired. The session was logged out.
	ErrInvalidRefreshCredential = errors.New("refresh credential is malformed or expired")
)

// CredentialStore is the durable side of the session.
type CredentialStore interface {
	Load(ctx context.Context) (token.Pair, error)
	Save(ctx context.Context, pair token.Pair, rememberMe bool) error
	Purge(ctx context.Context) error
	HasConsent(ctx context.Context) bool
	SetConsent(ctx context.Context, granted bool) error
}

// Recorder observes state transitions and renewal outcomes.
type Recorder interface {
	Transition(from, to string)
	Renewal(outcome string)
}

// Renewal outcomes passed to Recorder.Renewal.
const (
	RenewalSucceeded = "succeeded"
	RenewalFailed    = "failed"
	RenewalStale     = "stale"
)

// Manager is the session state machine. Login, Apply, Logout, SetConsent and timer-driven
// renewals are serialised by a mutex; a renewal or login response that arrives after the
// session has moved on is discarded.
type Manager struct {
	mu sync.Mutex

	store     CredentialStore
	client    authapi.Client
	scheduler scheduler.Scheduler
	logger    zerolog.Logger
	recorder  Recorder
	onChange  func(Snapshot)
	nowFunc   func() time.Time
	margin    time.Duration

	state      State
	access     *token.Credential
	refresh    *token.Credential
	rememberMe bool
	loginID    uuid.UUID

	// generation changes on every login, logout and close. Timer callbacks and in-flight
	// requests capture it and give up when it no longer matches.
	generation    uint64
	cancelRenewal context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// WithOnChange registers a callback that receives a snapshot after every state change. It is
// called without the manager's lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithSafetyMargin sets how long before expiry the access credential is renewed.
func WithSafetyMargin(margin time.Duration) Option {
	return func(m *Manager) {
		m.margin = margin
	}
}

func New(store CredentialStore, client authapi.Client, sched scheduler.Scheduler, options ...Option) *Manager {
	m := &Manager{
		store:     store,
		client:    client,
		scheduler: sched,
		logger:    log.Logger,
		recorder:  nopRecorder{},
		nowFunc:   time.Now,
		margin:    token.DefaultSafetyMargin,
		state:     StateLoggedOut,
	}
	for _, opt := range options {
		opt(m)
	}
	m.baseCtx, m.baseCancel = context.WithCancel(context.Background())
	return m
}

// Start restores the session from the credential store. Both credentials valid: logged in
// with renewal armed. Only the refresh credential valid: renewing immediately. Anything else:
// logged out with storage purged.
func (m *Manager) Start(ctx context.Context) error {
	pair, loadErr := m.store.Load(ctx)
	if loadErr != nil {
		m.logger.Warn().Err(loadErr).Msg("could not load stored credentials")
		pair = token.Pair{}
	}

	m.mu.Lock()
	now := m.nowFunc()
	access := decodeOptional(pair.Access)
	refresh := decodeOptional(pair.Refresh)
	refreshValid := refresh != nil && refresh.Valid(now, m.margin)
	accessValid := access != nil && access.Valid(now, m.margin)

	var err error
	switch {
	case accessValid && refreshValid:
		m.restoreLocked(access, refresh)
		m.setStateLocked(StateLoggedIn)
		m.armLocked(access.RemainingValidity(now, m.margin))
		m.logger.Info().Str("login_id", m.loginID.String()).Int64("subject_id", access.SubjectID).Msg("session restored")
	case refreshValid:
		m.restoreLocked(access, refresh)
		m.setStateLocked(StateRenewing)
		m.armLocked(0)
		m.logger.Info().Str("login_id", m.loginID.String()).Msg("stored access credential unusable, renewing")
	default:
		err = m.logoutLocked(ctx)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return errors.Join(loadErr, err)
}

// Login authenticates with username and password and applies the returned credentials. A
// renewal in flight when Login is called is abandoned. If the request fails, any existing
// session is left as it was.
func (m *Manager) Login(ctx context.Context, username, password string, rememberMe bool) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.cancelRenewalLocked()
	m.scheduler.Cancel()
	m.mu.Unlock()

	pair, err := m.client.Login(ctx, username, password)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.logger.Info().Msg("login response arrived after a newer session change, discarding")
		return ErrSuperseded
	}
	if err != nil {
		m.rearmLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		return fmt.Errorf("login: %w", err)
	}
	err = m.applyLocked(ctx, pair, rememberMe)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return err
}

// Apply installs an access/refresh pair obtained elsewhere. It is the same transition a
// successful renewal goes through.
func (m *Manager) Apply(ctx context.Context, pair token.Pair, rememberMe bool) error {
	m.mu.Lock()
	err := m.applyLocked(ctx, pair, rememberMe)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return err
}

// Logout cancels renewal, forgets both credentials and purges durable storage. Calling it
// while logged out only re-asserts that state. The returned error reports a failed purge;
// the in-memory session is cleared regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	err := m.logoutLocked(ctx)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return err
}

// SetConsent records whether credentials may be persisted. Revoking purges durable storage
// immediately but leaves the in-memory session and its renewal running.
func (m *Manager) SetConsent(ctx context.Context, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetConsent(ctx, granted); err != nil {
		return fmt.Errorf("set consent: %w", err)
	}
	return nil
}

// HasConsent reports whether credentials may currently be persisted.
func (m *Manager) HasConsent(ctx context.Context) bool {
	return m.store.HasConsent(ctx)
}

// Close stops renewal and abandons any in-flight request without touching storage. The
// manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.cancelRenewalLocked()
	m.scheduler.Cancel()
	m.baseCancel()
}

// renew runs when the renewal timer armed under generation gen fires.
func (m *Manager) renew(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	if m.refresh == nil || !m.refresh.Valid(m.nowFunc(), m.margin) {
		m.logger.Warn().Str("login_id", m.loginID.String()).Msg("refresh credential missing or expired, logging out")
		m.recorder.Renewal(RenewalFailed)
		m.logoutOnFailureLocked()
		return
	}

	m.setStateLocked(StateRenewing)
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancelRenewal = cancel
	raw := m.refresh.Raw
	rememberMe := m.rememberMe
	loginID := m.loginID
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	m.logger.Debug().Str("login_id", loginID.String()).Msg("renewing access credential")

	pair, err := m.client.Refresh(ctx, raw)
	cancel()

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.recorder.Renewal(RenewalStale)
		m.logger.Debug().Str("login_id", loginID.String()).Msg("discarding renewal result for a superseded session")
		return
	}
	m.cancelRenewal = nil

	if err != nil {
		m.logger.Warn().Err(err).Str("login_id", loginID.String()).Msg("renewal failed, logging out")
		m.recorder.Renewal(RenewalFailed)
		m.logoutOnFailureLocked()
		return
	}

	if err := m.applyLocked(m.baseCtx, pair, rememberMe); err != nil {
		m.recorder.Renewal(RenewalFailed)
	} else {
		m.recorder.Renewal(RenewalSucceeded)
	}
	snap = m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// expire ends an access-only session whose credential armed under generation gen has run out.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.logger.Info().Str("login_id", m.loginID.String()).Msg("access credential expired without a refresh credential, logging out")
	m.logoutOnFailureLocked()
}

// logoutOnFailureLocked tears the session down after a failed renewal or an expiry and
// releases the lock.
func (m *Manager) logoutOnFailureLocked() {
	if err := m.logoutLocked(m.baseCtx); err != nil {
		m.logger.Error().Err(err).Msg("failed to purge credentials after session teardown")
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Manager) applyLocked(ctx context.Context, pair token.Pair, rememberMe bool) error {
	now := m.nowFunc()
	access := token.Decode(pair.Access)

	var refresh *token.Credential
	if pair.Refresh != "" {
		decoded := token.Decode(pair.Refresh)
		if !decoded.Valid(now, m.margin) {
			m.logger.Warn().Msg("received refresh credential is malformed or expired, logging out")
			if err := m.logoutLocked(ctx); err != nil {
				m.logger.Error().Err(err).Msg("failed to purge credentials")
			}
			return ErrInvalidRefreshCredential
		}
		refresh = &decoded
	}

	m.generation++
	m.cancelRenewalLocked()
	m.access = &access
	m.refresh = refresh
	m.rememberMe = rememberMe
	m.loginID = uuid.New()

	if err := m.store.Save(ctx, pair, rememberMe); err != nil {
		m.logger.Warn().Err(err).Str("login_id", m.loginID.String()).Msg("could not persist credentials")
	}

	m.scheduler.Cancel()
	delay := access.RemainingValidity(now, m.margin)
	if refresh != nil {
		m.armLocked(delay)
	} else {
		m.armExpiryLocked(delay)
	}
	m.setStateLocked(StateLoggedIn)

	m.logger.Info().
		Str("login_id", m.loginID.String()).
		Int64("subject_id", access.SubjectID).
		Strs("roles", access.Roles.Strings()).
		Dur("renew_in", delay).
		Bool("renewable", refresh != nil).
		Msg("session credentials applied")
	return nil
}

func (m *Manager) logoutLocked(ctx context.Context) error {
	m.generation++
	m.cancelRenewalLocked()
	m.scheduler.Cancel()
	m.access = nil
	m.refresh = nil
	m.rememberMe = false
	m.loginID = uuid.Nil
	m.setStateLocked(StateLoggedOut)

	if err := m.store.Purge(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (m *Manager) restoreLocked(access, refresh *token.Credential) {
	m.generation++
	m.access = access
	m.refresh = refresh
	// Stored credentials only exist when the user asked to be remembered.
	m.rememberMe = true
	m.loginID = uuid.New()
}

// rearmLocked restores the timer for the current credentials after an abandoned interactive
// login. Any renewal the login cancelled is over, so a held access credential means logged in.
func (m *Manager) rearmLocked() {
	now := m.nowFunc()
	switch {
	case m.refresh != nil && m.access != nil:
		m.armLocked(m.access.RemainingValidity(now, m.margin))
		m.setStateLocked(StateLoggedIn)
	case m.refresh != nil:
		m.armLocked(0)
	case m.access != nil:
		m.armExpiryLocked(m.access.RemainingValidity(now, m.margin))
	}
}

func (m *Manager) armLocked(delay time.Duration) {
	gen := m.generation
	m.scheduler.Arm(delay, func() { m.renew(gen) })
}

// armExpiryLocked tears an access-only session down once its credential stops being usable.
func (m *Manager) armExpiryLocked(delay time.Duration) {
	gen := m.generation
	m.scheduler.Arm(delay, func() { m.expire(gen) })
}

func (m *Manager) cancelRenewalLocked() {
	if m.cancelRenewal != nil {
		m.cancelRenewal()
		m.cancelRenewal = nil
	}
}

func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	m.recorder.Transition(m.state.String(), next.String())
	m.state = next
}

func (m *Manager) notify(snap Snapshot) {
	if m.onChange != nil {
		m.onChange(snap)
	}
}

func decodeOptional(raw string) *token.Credential {
	if raw == "" {
		return nil
	}
	c := token.Decode(raw)
	return &c
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string) {}
func (nopRecorder) Renewal(string)            {}
