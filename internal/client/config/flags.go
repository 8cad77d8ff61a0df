package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophpantry/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. args is filtered through
// flagx.FilterArgs first so flags owned by other components are ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-p", "-t", "-d", "-m", "-n", "-l"}, "-offline")

	fs := flag.NewFlagSet("pantry", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "backend base URL")
	fs.StringVar(&cfg.Profile, "p", cfg.Profile, "application profile (kindergarten, surplus, expenses)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "SQLite file for the session token")
	fs.BoolVar(&cfg.OfflineLogin, "offline", cfg.OfflineLogin, "allow a placeholder session when the backend is unreachable")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	fs.StringVar(&cfg.NATSURL, "n", cfg.NATSURL, "NATS URL for notifications")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
