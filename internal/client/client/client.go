package client

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

type Client interface {
	Close() error
	// Ping succeeds when both the backend and the sync endpoint report UP.
	Ping(ctx context.Context) error
	Health(ctx context.Context) (*syncproto.HealthResponse, error)
	Sync(ctx context.Context, req syncproto.SyncRequest) (*syncproto.SyncResponse, error)
	Token(ctx context.Context, req syncproto.TokenRequest) (*syncproto.TokenResponse, error)
	SetAccessToken(token string)
}
