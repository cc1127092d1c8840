package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var _ session.Recorder = (*metrics.Collector)(nil)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.Transition("logged_out", "logged_in")
	c.Renewal(session.RenewalSucceeded)
	c.Renewal(session.RenewalSucceeded)
	c.Renewal(session.RenewalStale)

	expected := `
# HELP authsession_renewals_total Access credential renewals by outcome.
# TYPE authsession_renewals_total counter
authsession_renewals_total{outcome="stale"} 1
authsession_renewals_total{outcome="succeeded"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "authsession_renewals_total"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "authsession_state_transitions_total"))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.Renewal(session.RenewalFailed)

	srv := httptest.NewServer(metrics.Handler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `authsession_renewals_total{outcome="failed"} 1`)
}
