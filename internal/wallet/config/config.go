package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
)

type Config struct {
	NodeURL      string
	WalletsDir   string
	DatabasePath string

	// AutoLock is the idle time before the session locks. Zero disables it.
	AutoLock        time.Duration
	AutoRefresh     bool
	RefreshInterval time.Duration

	PollInterval   time.Duration
	PollAttempts   int
	ExpiryMargin   uint32
	TxHistoryLimit int

	LogBackend string
	LogLevel   string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

func (c *Config) LoadDefaults() {
	c.NodeURL = "wss://s2.ripple.com"
	c.WalletsDir = "wallets"
	c.DatabasePath = "wallet.db"
	c.AutoLock = 15 * time.Minute
	c.AutoRefresh = true
	c.RefreshInterval = 30 * time.Second
	c.PollInterval = 3 * time.Second
	c.PollAttempts = 20
	c.ExpiryMargin = 200
	c.TxHistoryLimit = 10
	c.LogBackend = logging.BackendSlog
	c.LogLevel = "info"
}

// Validate reports settings the wallet cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.NodeURL == "" {
		errs = append(errs, errors.New("node url is empty"))
	}
	if c.WalletsDir == "" {
		errs = append(errs, errors.New("wallets dir is empty"))
	}
	if c.AutoLock < 0 {
		errs = append(errs, fmt.Errorf("auto lock %s is negative", c.AutoLock))
	}
	if c.AutoRefresh && c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh interval %s must be positive", c.RefreshInterval))
	}
	if c.PollInterval <= 0 || c.PollAttempts <= 0 {
		errs = append(errs, errors.New("poll interval and attempts must be positive"))
	}
	if c.ExpiryMargin == 0 {
		errs = append(errs, errors.New("expiry margin must be positive"))
	}
	switch c.LogBackend {
	case logging.BackendSlog, logging.BackendZap:
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.LogBackend))
	}
	return errors.Join(errs...)
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// flags from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
