package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/casely/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, originURL string) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.DatabasePath = filepath.Join(t.TempDir(), "db", "casely.db")
	c.OriginBaseURL = originURL
	c.CycleInterval = 10 * time.Millisecond
	c.LogLevel = "error"
	return c
}

func emptyOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"returnCode":0,"appData":{"list":[]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewApp_MigratesAndSeeds(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t, emptyOrigin(t).URL))
	require.NoError(t, err)
	t.Cleanup(app.close)

	var n int
	require.NoError(t, app.ro.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&n))
	assert.Equal(t, 3, n)

	st := app.poller.Status()
	assert.False(t, st.Running)
}

func TestNewApp_RejectsBadLogLevel(t *testing.T) {
	c := testConfig(t, "http://localhost:1")
	c.LogLevel = "loud"

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestNewApp_RejectsBadOrigin(t *testing.T) {
	c := testConfig(t, "not a url")

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, emptyOrigin(t).URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	require.Eventually(t, func() bool { return app.poller.Status().Running }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.False(t, app.poller.Status().Running)
}
