package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	m := New()

	m.Connections.Inc()
	m.Connections.Inc()
	m.Connections.Dec()
	m.MatchesStarted.WithLabelValues("rps").Inc()
	m.Moves.WithLabelValues("rps", MoveRejected).Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Connections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MatchesStarted.WithLabelValues("rps")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Moves.WithLabelValues("rps", MoveRejected)))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.Waiting.WithLabelValues("tris").Set(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `battld_waiting_players{game_type="tris"} 3`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RateLimited.Inc()

	assert.Equal(t, float64(0), testutil.ToFloat64(b.RateLimited))
}
