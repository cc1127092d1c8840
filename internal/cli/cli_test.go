package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/config"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/filerepo"
	"github.com/jrsteele09/go-auth-session/storage/repofake"
	"github.com/jrsteele09/go-auth-session/token/tokenfake"
	"github.com/stretchr/testify/require"
)

// catalogAuth answers the password and refresh_token grants with tokenfake credentials.
type catalogAuth struct {
	*httptest.Server
	issuer    *tokenfake.Issuer
	refreshes atomic.Int32
}

func newCatalogAuth(t *testing.T) *catalogAuth {
	t.Helper()
	a := &catalogAuth{issuer: tokenfake.NewIssuer(nil)}
	a.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("grant_type") {
		case "password":
			if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "s3cret" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
				return
			}
		case "refresh_token":
			if r.PostForm.Get("refresh_token") == "" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
				return
			}
			a.refreshes.Add(1)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
			return
		}
		pair := a.issuer.Pair(42, []string{"ROLE_ADMIN"}, 5*time.Minute, time.Hour)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  pair.Access,
			"refresh_token": pair.Refresh,
			"token_type":    "bearer",
			"expires_in":    300,
		})
	}))
	t.Cleanup(a.Close)
	return a
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setupEnv(t *testing.T, auth *catalogAuth) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("ENV", "TEST")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TOKEN_URL", auth.URL+"/oauth/token")
	t.Setenv("ISSUER_URL", "")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_PATH", path)
	t.Setenv("REQUEST_TIMEOUT", "5s")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(config.New())
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRememberedSessionLifecycle(t *testing.T) {
	auth := newCatalogAuth(t)
	path := setupEnv(t, auth)

	out, err := execute(t, "consent", "grant")
	require.NoError(t, err)
	require.Contains(t, out, "Consent granted")

	out, err = execute(t, "login", "--username", "alice", "--password", "s3cret", "--remember")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as user 42 (roles: ADMIN)")
	require.NotContains(t, out, "were not saved")

	stored, err := filerepo.New(path).Get(context.Background(), credentials.SlotRefresh)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	out, err = execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as user 42")
	require.Zero(t, auth.refreshes.Load())

	out, err = execute(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	out, err = execute(t, "status")
	require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
	require.Contains(t, out, "Not logged in")

	out, err = execute(t, "consent", "show")
	require.NoError(t, err)
	require.Contains(t, out, "Consent granted")
}

func TestLoginWithoutConsentIsNotRemembered(t *testing.T) {
	auth := newCatalogAuth(t)
	path := setupEnv(t, auth)

	out, err := execute(t, "login", "--username", "alice", "--password", "s3cret", "--remember")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as user 42")
	require.Contains(t, out, "Credentials were not saved")

	_, err = filerepo.New(path).Get(context.Background(), credentials.SlotAccess)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = execute(t, "status")
	require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
}

func TestLoginPromptsForMissingFields(t *testing.T) {
	auth := newCatalogAuth(t)
	setupEnv(t, auth)

	var out bytes.Buffer
	root := NewRootCmd(config.New())
	root.SetArgs([]string{"login"})
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("alice\ns3cret\n"))
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "Username: ")
	require.Contains(t, out.String(), "Password: ")
	require.Contains(t, out.String(), "Logged in as user 42")
}

func TestLoginRejected(t *testing.T) {
	auth := newCatalogAuth(t)
	setupEnv(t, auth)

	_, err := execute(t, "login", "--username", "alice", "--password", "wrong")
	require.Error(t, err)

	_, err = execute(t, "login", "--password", "s3cret")
	require.ErrorIs(t, err, apperrors.ErrMissingUsername)
}

func TestStatusRenewsExpiredAccess(t *testing.T) {
	auth := newCatalogAuth(t)
	path := setupEnv(t, auth)

	issuer := tokenfake.NewIssuer(nil)
	expiredAccess := issuer.Issue(42, []string{"ADMIN"}, -time.Minute)
	refresh := issuer.Issue(42, nil, time.Hour)
	require.NoError(t, filerepo.New(path).Put(context.Background(), map[string]string{
		credentials.SlotConsent: "true",
		credentials.SlotAccess:  expiredAccess,
		credentials.SlotRefresh: refresh,
	}, 0))

	out, err := execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as user 42 (roles: ADMIN)")
	require.Equal(t, int32(1), auth.refreshes.Load())

	renewed, err := filerepo.New(path).Get(context.Background(), credentials.SlotAccess)
	require.NoError(t, err)
	require.NotEqual(t, expiredAccess, renewed)
}

func TestConsentRevokePurges(t *testing.T) {
	auth := newCatalogAuth(t)
	path := setupEnv(t, auth)

	_, err := execute(t, "consent", "grant")
	require.NoError(t, err)
	_, err = execute(t, "login", "--username", "alice", "--password", "s3cret", "--remember")
	require.NoError(t, err)

	out, err := execute(t, "consent", "revoke")
	require.NoError(t, err)
	require.Contains(t, out, "Consent revoked")

	_, err = filerepo.New(path).Get(context.Background(), credentials.SlotRefresh)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = execute(t, "consent", "maybe")
	require.ErrorIs(t, err, apperrors.ErrInvalidConsent)
}

func TestBuildRepo(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "Memory")
		repo, closeRepo, err := buildRepo(config.Store{})
		require.NoError(t, err)
		require.IsType(t, &repofake.FakeRepo{}, repo)
		require.NoError(t, closeRepo())
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "file")
		t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "s.json"))
		repo, _, err := buildRepo(config.Store{})
		require.NoError(t, err)
		require.IsType(t, &filerepo.FileRepo{}, repo)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "etcd")
		_, _, err := buildRepo(config.Store{})
		require.ErrorIs(t, err, apperrors.ErrUnknownBackend)
	})
}

func TestBuildClientNeedsEndpoint(t *testing.T) {
	t.Setenv("TOKEN_URL", "")
	t.Setenv("ISSUER_URL", "")
	_, err := buildClient(context.Background(), config.Auth{})
	require.ErrorIs(t, err, apperrors.ErrNoTokenEndpoint)
}
