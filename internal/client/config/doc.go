// Package config loads runtime configuration for the pantry terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables PANTRY_*, optionally seeded from a .env file.
//     Variables already set in the process environment win over the file.
//  3. Optional YAML or JSON file selected via -c or -config.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string     backend base URL
//	-p string     application profile: kindergarten, surplus or expenses
//	-t duration   request timeout
//	-d string     path of the SQLite file keeping the session token
//	-offline      allow a placeholder session when the backend is down
//	-m string     address for the /metrics and /healthz listener
//	-n string     NATS URL for publishing notifications
//	-l string     log level
//
// # File schema
//
// Durations are strings such as "10s":
//
//	base_url: http://localhost:8000
//	profile: kindergarten
//	request_timeout: 10s
//	db_path: pantry.db
//	offline_login: false
//	stale_time: 30s
package config
