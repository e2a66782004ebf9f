package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sparkify/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("sparkify", "")
	require.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	require.Equal(t, "sparkify", b.jobName)
}

func TestBackend_Counters(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("sparkify", "http://pushgateway:9091")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"job": "sparkify", "step": "stage_events", "status": "success"})
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"job": "sparkify", "step": "stage_events", "status": "success"})
	b.IncCounter(metrics.RetryTotal, 1, metrics.Labels{"step": "stage_songs"})
	b.IncCounter("etl_unknown_total", 1, nil)
	b.IncCounter(metrics.RunTotal, 0, metrics.Labels{"status": "success"})

	require.Equal(t, 3.0, testutil.ToFloat64(b.counters[metrics.StepTotal].WithLabelValues("stage_events", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(b.counters[metrics.RetryTotal].WithLabelValues("stage_songs")))
	require.Equal(t, 0, testutil.CollectAndCount(b.counters[metrics.RunTotal]))
}

func TestBackend_Histograms(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("sparkify", "http://pushgateway:9091")
	require.NoError(t, err)

	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "load_songplays_fact_table", "status": "success"})
	b.ObserveHistogram(metrics.RunDuration, 30, metrics.Labels{"status": "failure"})
	b.ObserveHistogram("etl_unknown_seconds", 1, nil)

	require.Equal(t, 1, testutil.CollectAndCount(b.hists[metrics.StepDuration]))
	require.Equal(t, 1, testutil.CollectAndCount(b.hists[metrics.RunDuration]))
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("sparkify", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RunTotal, 1, metrics.Labels{"status": "success"})
	require.NoError(t, b.Flush())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "/metrics/job/sparkify", path)
	require.Contains(t, body, metrics.RunTotal)
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("sparkify", srv.URL)
	require.NoError(t, err)
	require.Error(t, b.Flush())
}
