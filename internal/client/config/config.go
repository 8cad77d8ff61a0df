package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/fallback"
	"github.com/dmitrijs2005/gophpantry/internal/client/notify"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
)

// Config holds runtime settings for the pantry client.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	Profile        string        `yaml:"profile"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// DBPath is the SQLite file holding the session token. Empty keeps the
	// token in memory only.
	DBPath       string        `yaml:"db_path"`
	OfflineLogin bool          `yaml:"offline_login"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	NATSURL      string        `yaml:"nats_url"`
	NATSSubject  string        `yaml:"nats_subject"`
	LogLevel     string        `yaml:"log_level"`
	StaleTime    time.Duration `yaml:"stale_time"`
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://localhost:8000"
	c.Profile = fallback.ProfileKindergarten
	c.RequestTimeout = apiclient.DefaultTimeout
	c.DBPath = "pantry.db"
	c.OfflineLogin = false
	c.NATSSubject = notify.DefaultSubject
	c.LogLevel = "info"
	c.StaleTime = query.DefaultStaleTime
}

// Load builds a Config from defaults, the environment (seeded from envFile
// when it exists), the config file named in args, then the flags in args.
// args excludes the program name.
func Load(args []string, envFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base url %q must be an http(s) URL", ErrInvalidConfig, c.BaseURL)
	}
	switch c.Profile {
	case fallback.ProfileKindergarten, fallback.ProfileSurplus, fallback.ProfileExpenses:
	default:
		return fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, c.Profile)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.StaleTime < 0 {
		return fmt.Errorf("%w: stale time cannot be negative", ErrInvalidConfig)
	}
	return nil
}
