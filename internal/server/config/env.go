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

// parseEnv loads envFile (when present) without overriding variables that
// are already set, then copies the RECIPESYNC_* variables into cfg.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"HTTP_ADDR":           &cfg.EndpointAddrHTTP,
		"DATABASE_DSN":        &cfg.DatabaseDSN,
		"SECRET_KEY":          &cfg.SecretKey,
		"ENROLLMENT_KEY_HASH": &cfg.EnrollmentKeyHash,
		"S3_ROOT_USER":        &cfg.S3RootUser,
		"S3_ROOT_PASSWORD":    &cfg.S3RootPassword,
		"S3_BUCKET":           &cfg.S3Bucket,
		"S3_REGION":           &cfg.S3Region,
		"S3_BASE_ENDPOINT":    &cfg.S3BaseEndpoint,
		"LOG_LEVEL":           &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL": &cfg.AccessTokenValidityDuration,
		"READ_TIMEOUT":     &cfg.ReadTimeout,
		"WRITE_TIMEOUT":    &cfg.WriteTimeout,
		"SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
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
