package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "RECIPESYNC_"

// parseEnv loads envFile (when it exists) into the process environment
// without overriding variables that are already set, then copies every
// RECIPESYNC_* variable it knows into cfg.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"SERVER_URL":    &cfg.ServerURL,
		"DATABASE_PATH": &cfg.DatabasePath,
		"DEVICE_ID":     &cfg.DeviceID,
		"LOG_FILE":      &cfg.LogFile,
		"LOG_LEVEL":     &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":       &cfg.RequestTimeout,
		"CONNECT_TIMEOUT":       &cfg.ConnectTimeout,
		"SYNC_INTERVAL":         &cfg.SyncInterval,
		"ONLINE_CHECK_INTERVAL": &cfg.OnlineCheckInterval,
		"STALE_SYNCING_AFTER":   &cfg.StaleSyncingAfter,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
