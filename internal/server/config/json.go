package config

import (
	"os"

	"github.com/dmitrijs2005/casely/internal/flagx"
	"github.com/dmitrijs2005/casely/internal/timex"
	"github.com/goccy/go-json"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields tell
// "absent" apart from an explicit zero (refresh_ttl: "0s" disables the sweep).
// Durations accept "1s" style strings or integer nanoseconds.
type JsonConfig struct {
	ListenAddr    string          `json:"listen_addr"`
	DatabasePath  string          `json:"database_path"`
	StaticDir     string          `json:"static_dir"`
	OriginBaseURL string          `json:"origin_base_url"`
	PageSize      *int            `json:"page_size"`
	ItemDelay     *timex.Duration `json:"item_delay"`
	PageDelay     *timex.Duration `json:"page_delay"`
	HTTPTimeout   *timex.Duration `json:"http_timeout"`
	MinContractID *int64          `json:"min_contract_id"`
	RefreshTTL    *timex.Duration `json:"refresh_ttl"`
	RefreshBatch  *int            `json:"refresh_batch"`
	CycleInterval *timex.Duration `json:"cycle_interval"`

	LogLevel       string `json:"log_level"`
	LogFile        string `json:"log_file"`
	MetricsEnabled *bool  `json:"metrics_enabled"`

	ArchiveBucket    string `json:"archive_bucket"`
	ArchiveRegion    string `json:"archive_region"`
	ArchiveEndpoint  string `json:"archive_endpoint"`
	ArchiveAccessKey string `json:"archive_access_key"`
	ArchiveSecretKey string `json:"archive_secret_key"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// CASELY_CONFIG) onto config. Keys missing from the file keep their current
// values. An unreadable or invalid file panics, like a bad flag does.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabasePath, c.DatabasePath)
	setString(&config.StaticDir, c.StaticDir)
	setString(&config.OriginBaseURL, c.OriginBaseURL)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.ArchiveRegion, c.ArchiveRegion)
	setString(&config.ArchiveEndpoint, c.ArchiveEndpoint)
	setString(&config.ArchiveAccessKey, c.ArchiveAccessKey)
	setString(&config.ArchiveSecretKey, c.ArchiveSecretKey)

	if c.PageSize != nil {
		config.PageSize = *c.PageSize
	}
	if c.MinContractID != nil {
		config.MinContractID = *c.MinContractID
	}
	if c.RefreshBatch != nil {
		config.RefreshBatch = *c.RefreshBatch
	}
	if c.MetricsEnabled != nil {
		config.MetricsEnabled = *c.MetricsEnabled
	}
	if c.ItemDelay != nil {
		config.ItemDelay = c.ItemDelay.Duration
	}
	if c.PageDelay != nil {
		config.PageDelay = c.PageDelay.Duration
	}
	if c.HTTPTimeout != nil {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}
	if c.RefreshTTL != nil {
		config.RefreshTTL = c.RefreshTTL.Duration
	}
	if c.CycleInterval != nil {
		config.CycleInterval = c.CycleInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
