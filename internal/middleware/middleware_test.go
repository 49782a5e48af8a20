package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/curzel-it/battld/internal/testutil"
)

func TestLoggingRecordsStatus(t *testing.T) {
	logger, buf := testutil.BufferLogger()

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/brew"`)
	assert.Contains(t, buf.String(), `"size":15`)
}

func TestRecoveryUsesPanicHandler(t *testing.T) {
	logger, buf := testutil.BufferLogger()
	panics := prometheus.NewCounter(prometheus.CounterOpts{Name: "panics_total"})
	attrs := func(*http.Request) []slog.Attr {
		return []slog.Attr{slog.String("player_id", "p_alice")}
	}
	h := Recovery(logger, panics, attrs, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, float64(1), promtest.ToFloat64(panics))
	assert.Contains(t, buf.String(), `"player_id":"p_alice"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestRecoveryWithoutHooks(t *testing.T) {
	h := Recovery(testutil.NopLogger(), nil, nil, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestInstrumentCountsByStatus(t *testing.T) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests_total"}, []string{"method", "status"})
	h := Instrument(requests)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, float64(2), promtest.ToFloat64(requests.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), promtest.ToFloat64(requests.WithLabelValues("GET", "404")))
}
