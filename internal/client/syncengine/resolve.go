package syncengine

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/reconcile"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// conflict is a server-reported conflict of one item in the current cycle.
type conflict struct {
	info     reconcile.ConflictInfo
	serverID *int64
	local    map[string]any
}

func newConflict(it pending, r syncproto.SyncResult) conflict {
	var remoteTs int64
	if r.RemoteTimestamp != nil {
		remoteTs = *r.RemoteTimestamp
	}
	serverID := r.ServerID
	if serverID == nil {
		serverID = it.info.ServerID
	}
	return conflict{
		info: reconcile.ConflictInfo{
			EntityID:        it.info.LocalID,
			EntityType:      it.info.EntityType,
			LocalTimestamp:  it.info.LastModified,
			RemoteTimestamp: remoteTs,
			RemoteData:      r.RemoteData,
			IsPinned:        it.info.IsPinned,
		},
		serverID: serverID,
		local:    it.entity.Data.ToMap(),
	}
}

// settle applies the resolver's decision. It reports false when the
// conflict was stored for the user instead.
func (e *Engine) settle(ctx context.Context, c conflict) bool {
	d := e.resolver.Resolve(c.info)
	id := c.info.EntityID

	if d.Resolved() {
		var err error
		switch d.Strategy {
		case reconcile.KeepRemote:
			err = e.keepRemote(ctx, id, c.info.EntityType, c.info.RemoteData, c.info.RemoteTimestamp, c.serverID, apply{})
		default:
			err = e.keepLocal(ctx, id, c.info.RemoteData, c.serverID, apply{})
		}
		if err == nil {
			e.log.Info(ctx, "conflict resolved automatically", "id", id, "strategy", d.Strategy)
			return true
		}
		e.log.Warn(ctx, "automatic resolution failed, asking the user", "id", id, "strategy", d.Strategy, "error", err)
	}

	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)
		if _, err := r.Conflicts.Insert(ctx, models.Conflict{
			EntityID:        id,
			EntityType:      c.info.EntityType,
			LocalData:       c.local,
			RemoteData:      c.info.RemoteData,
			LocalTimestamp:  c.info.LocalTimestamp,
			RemoteTimestamp: c.info.RemoteTimestamp,
			CreatedAt:       e.now().UnixMilli(),
		}); err != nil {
			return err
		}
		return r.SyncInfo.MarkConflicted(ctx, id)
	})
	if err != nil {
		e.log.Error(ctx, "failed to store conflict", "id", id, "error", err)
	}
	return false
}

// apply carries the options of a resolution.
type apply struct {
	// manual resolutions also override a local edit made in the meantime.
	manual     bool
	pin        bool
	conflictID int64
}

// keepLocal keeps the local content and takes over the remote version so
// the next local edit supersedes it.
func (e *Engine) keepLocal(ctx context.Context, id string, remote map[string]any, serverID *int64, a apply) error {
	_, version := syncproto.SplitSnapshot(remote)

	return dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)

		si, err := r.SyncInfo.Get(ctx, id)
		if err != nil {
			return err
		}
		edited := editedSince(si)
		if edited && !a.manual {
			// a newer local edit is queued; let it go out next cycle
			return nil
		}

		if version > 0 {
			if err := r.SyncInfo.SetVersion(ctx, id, version); err != nil {
				return err
			}
		}
		if a.pin {
			if err := r.SyncInfo.SetPinned(ctx, id, true); err != nil {
				return err
			}
		}
		if serverID != nil {
			if err := r.SyncInfo.SetServerID(ctx, id, *serverID); err != nil {
				return err
			}
		}
		if !edited {
			if err := settledStatus(ctx, r, id, serverID != nil || si.ServerID != nil); err != nil {
				return err
			}
		}
		return deleteConflict(ctx, r, a.conflictID)
	})
}

// keepRemote overwrites the local entity with the server snapshot and
// adopts the server's version, checksum and timestamp.
func (e *Engine) keepRemote(ctx context.Context, id string, t syncproto.EntityType, remote map[string]any, remoteTs int64, serverID *int64, a apply) error {
	data, version := syncproto.SplitSnapshot(remote)
	p, err := syncproto.DecodePayload(t, data)
	if err != nil {
		return fmt.Errorf("remote data unusable: %w", err)
	}

	applied := false
	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)

		si, err := r.SyncInfo.Get(ctx, id)
		if err != nil {
			return err
		}
		if editedSince(si) && !a.manual {
			return nil
		}
		if version <= 0 {
			version = si.Version
		}

		if err := r.Entities.Upsert(ctx, models.Entity{LocalID: id, Data: p}); err != nil {
			return err
		}
		if err := r.SyncInfo.AdoptRemote(ctx, id, serverID, version, syncproto.Checksum(p), remoteTs); err != nil {
			return err
		}
		if err := settledStatus(ctx, r, id, serverID != nil || si.ServerID != nil); err != nil {
			return err
		}
		applied = true
		return deleteConflict(ctx, r, a.conflictID)
	})
	if err != nil {
		return err
	}

	if applied && e.notifier != nil {
		e.notifier.Notify(t)
	}
	return nil
}

// editedSince reports a local edit made after the row was claimed.
func editedSince(si *models.SyncInfo) bool {
	return si.Status == models.StatusDirty
}

// settledStatus leaves a resolved entity CLEAN when the server knows it and
// DIRTY otherwise, so it is submitted again.
func settledStatus(ctx context.Context, r client.Repositories, id string, known bool) error {
	if known {
		return r.SyncInfo.SetStatus(ctx, id, models.StatusClean)
	}
	return r.SyncInfo.SetStatus(ctx, id, models.StatusDirty)
}

func deleteConflict(ctx context.Context, r client.Repositories, id int64) error {
	if id == 0 {
		return nil
	}
	return r.Conflicts.DeleteByID(ctx, id)
}

// ResolveConflict applies the user's answer to a stored conflict. An
// unknown id yields common.ErrNotFound.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID int64, resolution models.Resolution) error {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	repos := client.NewRepositories(e.db)
	c, err := repos.Conflicts.GetByID(ctx, conflictID)
	if err != nil {
		return err
	}
	si, err := repos.SyncInfo.Get(ctx, c.EntityID)
	if err != nil {
		return err
	}

	a := apply{manual: true, conflictID: c.ID}
	useLocal := false
	switch resolution {
	case models.AcceptLocal:
		useLocal, a.pin = true, true
	case models.AcceptRemote:
	case models.AcceptNewest:
		useLocal = c.LocalTimestamp > c.RemoteTimestamp
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}

	if useLocal {
		err = e.keepLocal(ctx, c.EntityID, c.RemoteData, si.ServerID, a)
	} else {
		err = e.keepRemote(ctx, c.EntityID, c.EntityType, c.RemoteData, c.RemoteTimestamp, si.ServerID, a)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve conflict %d: %w", conflictID, err)
	}

	e.log.Info(ctx, "conflict resolved", "conflict", conflictID, "id", c.EntityID, "resolution", resolution)

	n, err := repos.Conflicts.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		e.setState(models.StateIdle)
	}
	return nil
}
