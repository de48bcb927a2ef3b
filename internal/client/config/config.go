package config

import "time"

// Config holds runtime settings for the recipesync CLI.
type Config struct {
	ServerURL    string
	DatabasePath string
	// DeviceID overrides the id stored in the local database.
	DeviceID string

	RequestTimeout      time.Duration
	ConnectTimeout      time.Duration
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	// StaleSyncingAfter is how long a claimed row may stay SYNCING before
	// a later cycle takes it back.
	StaleSyncingAfter time.Duration

	LogFile  string
	LogLevel string

	ConfigFile string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "recipesync.db"
	c.RequestTimeout = 30 * time.Second
	c.ConnectTimeout = 10 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.StaleSyncingAfter = 5 * time.Minute
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, the environment and the JSON
// file named in args. Flags are applied later by cobra through BindFlags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
