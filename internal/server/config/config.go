// Package config handles configuration for the server component,
// including defaults, JSON overlay, command-line flags and validation.
package config

import (
	"fmt"
	"time"

	"github.com/gookit/validate"
)

// Config holds runtime settings for the casely server.
//
// Origin/poller fields:
//   - OriginBaseURL: scheme+host of the origin API.
//   - PageSize: list page size requested from the origin.
//   - ItemDelay / PageDelay: pacing between detail fetches and list pages.
//   - HTTPTimeout: per-request timeout against the origin.
//   - MinContractID: id floor; ids below it are never ingested.
//   - RefreshTTL: re-fetch records older than this; 0 disables the sweep.
//   - RefreshBatch: max records re-fetched per sweep.
//   - CycleInterval: sleep between scheduler ticks.
//
// Archive fields configure the optional S3 copy of every new or changed
// payload; an empty ArchiveBucket disables it.
type Config struct {
	ListenAddr   string `validate:"required"`
	DatabasePath string `validate:"required"`
	StaticDir    string

	OriginBaseURL string        `validate:"required|url"`
	PageSize      int           `validate:"required|min:1|max:500"`
	ItemDelay     time.Duration `validate:"min:0"`
	PageDelay     time.Duration `validate:"min:0"`
	HTTPTimeout   time.Duration `validate:"required|min:1"`
	MinContractID int64         `validate:"min:0"`
	RefreshTTL    time.Duration `validate:"min:0"`
	RefreshBatch  int           `validate:"required|min:1"`
	CycleInterval time.Duration `validate:"required|min:1"`

	LogLevel       string `validate:"required|in:debug,info,warn,error"`
	LogFile        string
	MetricsEnabled bool

	ArchiveBucket    string
	ArchiveRegion    string
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8000"
	c.DatabasePath = "data/casely.db"
	c.OriginBaseURL = "http://localhost:9090"
	c.PageSize = 20
	c.ItemDelay = 100 * time.Millisecond
	c.PageDelay = 1 * time.Second
	c.HTTPTimeout = 10 * time.Second
	c.MinContractID = 14881
	c.RefreshTTL = 1 * time.Minute
	c.RefreshBatch = 20
	c.CycleInterval = 1 * time.Second
	c.LogLevel = "info"
	c.MetricsEnabled = true
	c.ArchiveRegion = "us-east-1"
}

// Validate checks field rules declared in the struct tags.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	return nil
}

// ArchiveEnabled reports whether payloads should be copied to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
