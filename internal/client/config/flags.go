package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the persistent CLI flags on fs with the current
// values of c as defaults, so parsed flags override env and JSON.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ConfigFile, "config", "c", c.ConfigFile, "path to JSON config file")
	fs.StringVarP(&c.ServerURL, "server", "s", c.ServerURL, "sync server base URL")
	fs.StringVar(&c.DatabasePath, "db", c.DatabasePath, "path to the local database")
	fs.StringVar(&c.DeviceID, "device-id", c.DeviceID, "device id (defaults to the stored one)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "timeout of a whole sync request")
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "TCP connect timeout")
	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "background sync period in watch mode")
	fs.DurationVar(&c.OnlineCheckInterval, "online-check-interval", c.OnlineCheckInterval, "server reachability probe period")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "log file (rotated); stderr when empty")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}
