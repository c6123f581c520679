package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv("CASELY_CONFIG", "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"listen_addr":        "0.0.0.0:8080",
		"database_path":      "casely.db",
		"origin_base_url":    "https://origin.example",
		"page_size":          30,
		"item_delay":         "50ms",
		"page_delay":         "2s",
		"http_timeout":       "5s",
		"min_contract_id":    0,
		"refresh_ttl":        "0s",
		"refresh_batch":      10,
		"cycle_interval":     "3s",
		"log_level":          "warn",
		"metrics_enabled":    false,
		"archive_bucket":     "contracts",
		"archive_endpoint":   "http://127.0.0.1:9000",
		"archive_access_key": "ak",
		"archive_secret_key": "sk",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
		assert.Equal(t, "casely.db", cfg.DatabasePath)
		assert.Equal(t, "https://origin.example", cfg.OriginBaseURL)
		assert.Equal(t, 30, cfg.PageSize)
		assert.Equal(t, 50*time.Millisecond, cfg.ItemDelay)
		assert.Equal(t, 2*time.Second, cfg.PageDelay)
		assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, int64(0), cfg.MinContractID)
		assert.Equal(t, time.Duration(0), cfg.RefreshTTL, "explicit zero disables the sweep")
		assert.Equal(t, 10, cfg.RefreshBatch)
		assert.Equal(t, 3*time.Second, cfg.CycleInterval)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.False(t, cfg.MetricsEnabled)
		assert.True(t, cfg.ArchiveEnabled())
		assert.Equal(t, "us-east-1", cfg.ArchiveRegion, "absent keys keep defaults")
		assert.Equal(t, "ak", cfg.ArchiveAccessKey)
		assert.Equal(t, "sk", cfg.ArchiveSecretKey)
	})

	t.Run("env var names the file", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("CASELY_CONFIG", pathFlag)

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("CASELY_CONFIG", "")

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		parseJson(cfg)

		assert.Equal(t, want, *cfg)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
