// Package syncinfo persists the per-entity sync state (the tracker).
//
// Status transitions:
//
//	Initialize/MarkDirty -> DIRTY -> ClaimDirty -> SYNCING -> CLEAN | CONFLICT | ERROR
//
// MarkClean, MarkConflicted and MarkError never overwrite DIRTY: a row that
// was edited locally while its previous content was in flight stays dirty
// and is picked up by the next cycle.
package syncinfo

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

type Repository interface {
	Initialize(ctx context.Context, id string, t syncproto.EntityType, checksum string, now int64) error
	MarkDirty(ctx context.Context, id, checksum string, ts int64) error
	MarkSyncing(ctx context.Context, id string) error

	// ClaimDirty atomically moves every DIRTY row to SYNCING under session
	// and returns the claimed rows.
	ClaimDirty(ctx context.Context, session string, now int64) ([]models.SyncInfo, error)

	MarkClean(ctx context.Context, id string, serverID *int64) error
	MarkConflicted(ctx context.Context, id string) error
	MarkError(ctx context.Context, id string) error

	SetPinned(ctx context.Context, id string, pinned bool) error
	SetServerID(ctx context.Context, id string, serverID int64) error
	SetVersion(ctx context.Context, id string, version int64) error
	BumpVersion(ctx context.Context, id string, floor int64) error
	SetStatus(ctx context.Context, id string, status models.SyncStatus) error
	AdoptRemote(ctx context.Context, id string, serverID *int64, version int64, checksum string, ts int64) error

	Get(ctx context.Context, id string) (*models.SyncInfo, error)
	GetDirty(ctx context.Context) ([]models.SyncInfo, error)
	GetByTypeAndStatus(ctx context.Context, t syncproto.EntityType, status models.SyncStatus) ([]models.SyncInfo, error)
	CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error)

	MarkAllDirty(ctx context.Context, now int64) (int64, error)
	MarkErrorsDirty(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error

	// ReleaseClaims returns the SYNCING rows of session to DIRTY.
	ReleaseClaims(ctx context.Context, session string) (int64, error)
	// RecoverStale returns SYNCING rows claimed before cutoff to DIRTY.
	RecoverStale(ctx context.Context, cutoff int64) (int64, error)
}
