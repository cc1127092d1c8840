package session

import (
	"github.com/jrsteele09/go-auth-session/token"
)

// State is the lifecycle phase of a session.
type State int

const (
	StateLoggedOut State = iota
	StateLoggedIn
	StateRenewing
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	case StateRenewing:
		return "renewing"
	}
	return "unknown"
}

// Snapshot is a consistent view of the fields a UI layer reads.
type Snapshot struct {
	State     State
	LoggedIn  bool
	SubjectID int64
	Roles     token.Roles
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsLoggedIn reports whether an access credential is held and still has remaining validity.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedInLocked()
}

// SubjectID returns the user id from the current access credential. The second value is
// false when there is no access credential or it carries no numeric subject.
func (m *Manager) SubjectID() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == nil || !m.access.HasSubject {
		return 0, false
	}
	return m.access.SubjectID, true
}

// Roles returns the roles granted by the current access credential.
func (m *Manager) Roles() token.Roles {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == nil {
		return token.Roles{}
	}
	return append(token.Roles{}, m.access.Roles...)
}

// Snapshot returns all UI-facing fields read under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    m.state,
		LoggedIn: m.loggedInLocked(),
		Roles:    token.Roles{},
	}
	if m.access != nil {
		snap.SubjectID = m.access.SubjectID
		snap.Roles = append(snap.Roles, m.access.Roles...)
	}
	return snap
}

func (m *Manager) loggedInLocked() bool {
	return m.access != nil && m.access.Valid(m.nowFunc(), m.margin)
}

// AccessToken returns the raw access credential for attaching to API requests. The second
// value is false when the user is not logged in.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedInLocked() {
		return "", false
	}
	return m.access.Raw, true
}
