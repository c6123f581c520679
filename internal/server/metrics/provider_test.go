package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(false, reg)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok)

	m.ObserveBatch(1, 2, 3, false, time.Second)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, mfs)
}

func TestPrometheusProvider_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(true, reg).(*PrometheusProvider)

	m.ObserveBatch(2, 1, 5, false, time.Second)
	m.ObserveBatch(1, 0, 0, true, time.Second)
	m.ObserveSweep(4, time.Second)
	m.ObserveOriginRequest("/api/contract/list", 209, time.Millisecond)
	m.ObserveOriginRequest("/api/contract/list", 0, time.Millisecond)
	m.SetCursor(105)
	m.SetPaused(true)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("created")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("unchanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesTotal.WithLabelValues("aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesTotal.WithLabelValues("done")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.refreshedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.originRequestsTotal.WithLabelValues("/api/contract/list", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.originRequestsTotal.WithLabelValues("/api/contract/list", "error")))
	assert.Equal(t, 105.0, testutil.ToFloat64(m.cursor))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paused))

	m.SetPaused(false)
	assert.Zero(t, testutil.ToFloat64(m.paused))
}

func TestHttpStatusBucket(t *testing.T) {
	tests := map[int]string{0: "error", 101: "1xx", 204: "2xx", 301: "3xx", 404: "4xx", 503: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, httpStatusBucket(code), "code %d", code)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(true, reg).SetCursor(7)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), "casely_cursor 7"))
}
