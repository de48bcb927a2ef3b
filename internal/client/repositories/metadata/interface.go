// Package metadata is a small key/value store for client state that is not
// an entity: the device identity, the access token and the last sync time.
package metadata

import (
	"context"
)

const (
	KeyDeviceID    = "device_id"
	KeyAccessToken = "access_token"
	KeyLastSync    = "last_sync"
)

type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
