package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "PANTRY_"

// parseEnv overlays cfg with PANTRY_* variables. Values in envFile fill in
// for variables the process environment does not set; a missing file is
// not an error.
func parseEnv(cfg *Config, envFile string) error {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	lookup := func(name string) (string, bool) {
		key := envPrefix + name
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	strs := map[string]*string{
		"BASE_URL":     &cfg.BaseURL,
		"PROFILE":      &cfg.Profile,
		"DB":           &cfg.DBPath,
		"METRICS_ADDR": &cfg.MetricsAddr,
		"NATS_URL":     &cfg.NATSURL,
		"NATS_SUBJECT": &cfg.NATSSubject,
		"LOG_LEVEL":    &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":    &cfg.RequestTimeout,
		"STALE_TIME": &cfg.StaleTime,
	}
	for name, dst := range durations {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("OFFLINE_LOGIN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sOFFLINE_LOGIN: %w", envPrefix, err)
		}
		cfg.OfflineLogin = b
	}
	return nil
}
