package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/xrpkeeper/internal/flagx"
	"github.com/dmitrijs2005/xrpkeeper/internal/timex"
)

// JSONConfig is the file form of Config. Durations use timex.Duration.
type JSONConfig struct {
	NodeURL         string         `json:"node_url"`
	WalletsDir      string         `json:"wallets_dir"`
	DatabasePath    string         `json:"database_path"`
	AutoLock        timex.Duration `json:"auto_lock"`
	AutoRefresh     bool           `json:"auto_refresh"`
	RefreshInterval timex.Duration `json:"refresh_interval"`
	PollInterval    timex.Duration `json:"poll_interval"`
	PollAttempts    int            `json:"poll_attempts"`
	ExpiryMargin    uint32         `json:"expiry_margin"`
	TxHistoryLimit  int            `json:"tx_history_limit"`
	LogBackend      string         `json:"log_backend"`
	LogLevel        string         `json:"log_level"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Start from the current values so keys missing in the file keep them.
	jc := toJSON(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	fromJSON(cfg, jc)
	return nil
}

func toJSON(c *Config) JSONConfig {
	return JSONConfig{
		NodeURL:         c.NodeURL,
		WalletsDir:      c.WalletsDir,
		DatabasePath:    c.DatabasePath,
		AutoLock:        timex.Duration{Duration: c.AutoLock},
		AutoRefresh:     c.AutoRefresh,
		RefreshInterval: timex.Duration{Duration: c.RefreshInterval},
		PollInterval:    timex.Duration{Duration: c.PollInterval},
		PollAttempts:    c.PollAttempts,
		ExpiryMargin:    c.ExpiryMargin,
		TxHistoryLimit:  c.TxHistoryLimit,
		LogBackend:      c.LogBackend,
		LogLevel:        c.LogLevel,
		S3Bucket:        c.S3Bucket,
		S3Region:        c.S3Region,
		S3BaseEndpoint:  c.S3BaseEndpoint,
		S3AccessKey:     c.S3AccessKey,
		S3SecretKey:     c.S3SecretKey,
	}
}

func fromJSON(c *Config, jc JSONConfig) {
	c.NodeURL = jc.NodeURL
	c.WalletsDir = jc.WalletsDir
	c.DatabasePath = jc.DatabasePath
	c.AutoLock = jc.AutoLock.Duration
	c.AutoRefresh = jc.AutoRefresh
	c.RefreshInterval = jc.RefreshInterval.Duration
	c.PollInterval = jc.PollInterval.Duration
	c.PollAttempts = jc.PollAttempts
	c.ExpiryMargin = jc.ExpiryMargin
	c.TxHistoryLimit = jc.TxHistoryLimit
	c.LogBackend = jc.LogBackend
	c.LogLevel = jc.LogLevel
	c.S3Bucket = jc.S3Bucket
	c.S3Region = jc.S3Region
	c.S3BaseEndpoint = jc.S3BaseEndpoint
	c.S3AccessKey = jc.S3AccessKey
	c.S3SecretKey = jc.S3SecretKey
}
