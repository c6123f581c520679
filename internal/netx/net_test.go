package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON_SendsCompactBodyAndHeaders(t *testing.T) {
	var gotBody, gotCT, gotUA, gotMethod string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"returnCode":0}`))
	}))
	defer ts.Close()

	h := http.Header{}
	h.Set("User-Agent", "casely-test")
	resp, err := PostJSON(context.Background(), ts.Client(), ts.URL, map[string]any{"a": 1}, h)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "casely-test", gotUA)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.True(t, resp.OK())
	assert.Equal(t, `{"returnCode":0}`, string(resp.Body))
}

func TestDoJSON_NonSuccessStatusIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(209)
	}))
	defer ts.Close()

	resp, err := DoJSON(context.Background(), ts.Client(), http.MethodGet, ts.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 209, resp.Status)
	assert.True(t, resp.OK())

	ts2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts2.Close()

	resp, err = DoJSON(context.Background(), ts2.Client(), http.MethodGet, ts2.URL, nil, nil)
	require.NoError(t, err)
	assert.False(t, resp.OK())
}

func TestDoJSON_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	_, err := PostJSON(context.Background(), client, ts.URL, map[string]int{"x": 1}, nil)
	require.Error(t, err)
}

func TestDoJSON_BadURL(t *testing.T) {
	_, err := DoJSON(context.Background(), http.DefaultClient, http.MethodGet, "://bad", nil, nil)
	require.Error(t, err)
}
