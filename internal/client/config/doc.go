// Package config loads runtime configuration for the recipesync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: RECIPESYNC_* variables, optionally loaded from a .env file.
//  3. Optional JSON file selected with -c, -config or --config.
//  4. Command-line flags bound with (*Config).BindFlags, which override
//     earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so "30s" and integer nanoseconds both work:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "database_path": "recipesync.db",
//	  "sync_interval": "5m",
//	  "log_file": "recipesync.log"
//	}
package config
