package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Fetched("see", 20)
	m.Duplicate("see")
	m.Duplicate("see")
	m.Accepted("see")
	m.Notification("sent")
	m.Notification("failed")
	m.CycleDone(1500 * time.Millisecond)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.fetched.WithLabelValues("see")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.duplicates.WithLabelValues("see")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accepted.WithLabelValues("see")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Fetched("see", 1)
		m.Duplicate("see")
		m.Accepted("see")
		m.Notification("sent")
		m.CycleDone(time.Second)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Accepted("see")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `roomwatch_accepted_total{area="see"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
