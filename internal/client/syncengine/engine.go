// Package syncengine drives synchronisation of the local store with the
// server: one PerformSync call is one cycle of claim, push, interpret and
// resolve. Cycles are serialised; failures are reported in the returned
// SyncResult and through the observable state, never as errors.
package syncengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/reconcile"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/google/uuid"
)

// Notifier is told which entity types changed when remote data is applied.
type Notifier interface {
	Notify(t syncproto.EntityType)
}

type Options struct {
	Resolver reconcile.Resolver
	Logger   logging.Logger
	Notifier Notifier
	// StaleSyncingAfter is the age after which a SYNCING claim is taken back.
	StaleSyncingAfter time.Duration
}

type Engine struct {
	db       *sql.DB
	client   client.Client
	resolver reconcile.Resolver
	log      logging.Logger
	notifier Notifier
	stale    time.Duration

	now        func() time.Time
	newSession func() string

	// cycle serialises sync cycles and manual resolutions.
	cycle sync.Mutex

	mu    sync.RWMutex
	state models.SyncState
	last  *models.SyncResult
	subs  map[chan Snapshot]struct{}
}

func New(db *sql.DB, c client.Client, opts Options) *Engine {
	e := &Engine{
		db:         db,
		client:     c,
		resolver:   opts.Resolver,
		log:        opts.Logger,
		notifier:   opts.Notifier,
		stale:      opts.StaleSyncingAfter,
		now:        time.Now,
		newSession: uuid.NewString,
		state:      models.StateIdle,
		subs:       make(map[chan Snapshot]struct{}),
	}
	if e.resolver == nil {
		e.resolver = reconcile.NewestWins
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	if e.stale <= 0 {
		e.stale = 5 * time.Minute
	}
	return e
}

// LoadState sets the initial state from the conflict store.
func (e *Engine) LoadState(ctx context.Context) error {
	n, err := client.NewRepositories(e.db).Conflicts.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		e.setState(models.StateHasConflicts)
	}
	return nil
}

// PerformSync runs one cycle.
func (e *Engine) PerformSync(ctx context.Context, trigger models.SyncTrigger) models.SyncResult {
	e.cycle.Lock()
	defer e.cycle.Unlock()
	return e.perform(ctx, trigger)
}

// ForceSyncAll marks every entity dirty and resubmits everything.
func (e *Engine) ForceSyncAll(ctx context.Context) models.SyncResult {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	if _, err := client.NewRepositories(e.db).SyncInfo.MarkAllDirty(ctx, e.now().UnixMilli()); err != nil {
		res := models.SyncResult{Trigger: models.TriggerManual, Timestamp: e.now()}
		return e.fail(ctx, res, "", err)
	}
	return e.perform(ctx, models.TriggerManual)
}

// RetryFailed returns every ERROR row to DIRTY and runs a cycle.
func (e *Engine) RetryFailed(ctx context.Context) models.SyncResult {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	if _, err := client.NewRepositories(e.db).SyncInfo.MarkErrorsDirty(ctx); err != nil {
		res := models.SyncResult{Trigger: models.TriggerManual, Timestamp: e.now()}
		return e.fail(ctx, res, "", err)
	}
	return e.perform(ctx, models.TriggerManual)
}

// pending is one claimed entity in flight.
type pending struct {
	info   models.SyncInfo
	entity models.Entity
}

func (e *Engine) perform(ctx context.Context, trigger models.SyncTrigger) (res models.SyncResult) {
	now := e.now()
	res = models.SyncResult{Trigger: trigger, Timestamp: now}
	session := e.newSession()

	defer func() {
		if p := recover(); p != nil {
			res = e.fail(ctx, res, session, fmt.Errorf("sync panicked: %v", p))
		}
	}()

	repos := client.NewRepositories(e.db)

	if n, err := repos.SyncInfo.RecoverStale(ctx, now.Add(-e.stale).UnixMilli()); err != nil {
		e.log.Warn(ctx, "stale claim sweep failed", "error", err)
	} else if n > 0 {
		e.log.Info(ctx, "recovered stale claims", "count", n)
	}

	claimed, err := repos.SyncInfo.ClaimDirty(ctx, session, now.UnixMilli())
	if err != nil {
		return e.fail(ctx, res, session, err)
	}
	if len(claimed) == 0 {
		e.record(res, e.restingState(ctx))
		return res
	}

	e.setState(models.StateSyncing)
	e.log.Info(ctx, "sync started", "trigger", trigger, "claimed", len(claimed), "session", session)

	items, err := e.load(ctx, claimed)
	if err != nil {
		return e.fail(ctx, res, session, err)
	}
	if len(items) == 0 {
		return e.finish(ctx, res)
	}

	if err := e.client.Ping(ctx); err != nil {
		return e.fail(ctx, res, session, fmt.Errorf("server unreachable: %w", err))
	}

	resp, err := e.client.Sync(ctx, buildRequest(items))
	if err != nil {
		return e.fail(ctx, res, session, fmt.Errorf("sync request failed: %w", err))
	}

	results := make(map[string]syncproto.SyncResult, len(resp.Results))
	for _, r := range resp.Results {
		results[r.LocalID] = r
	}

	var conflicts []conflict
	for _, it := range items {
		id := it.info.LocalID
		r, ok := results[id]

		switch {
		case !ok:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: no result from server", it.info.EntityType, id))
			e.warnIf(ctx, repos.SyncInfo.MarkError(ctx, id), "mark error", id)

		case r.HasConflict:
			if r.ServerID != nil {
				e.warnIf(ctx, repos.SyncInfo.SetServerID(ctx, id, *r.ServerID), "set server id", id)
			}
			conflicts = append(conflicts, newConflict(it, r))

		case r.Accepted:
			if err := repos.SyncInfo.MarkClean(ctx, id, r.ServerID); err != nil {
				res.Failed++
				res.Errors = append(res.Errors, err.Error())
				continue
			}
			res.Synced++

		default:
			msg := "rejected by server"
			if r.ErrorMessage != nil {
				msg = *r.ErrorMessage
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %s", it.info.EntityType, id, msg))
			e.warnIf(ctx, repos.SyncInfo.MarkError(ctx, id), "mark error", id)
		}
	}

	for _, c := range conflicts {
		if e.settle(ctx, c) {
			continue
		}
		res.Conflicts++
	}

	return e.finish(ctx, res)
}

// load reads the entity of every claimed row. Rows whose entity is gone are
// dropped from the tracker. The result is in dependency order.
func (e *Engine) load(ctx context.Context, claimed []models.SyncInfo) ([]pending, error) {
	repos := client.NewRepositories(e.db)

	items := make([]pending, 0, len(claimed))
	for _, si := range claimed {
		ent, err := repos.Entities.GetByID(ctx, si.EntityType, si.LocalID)
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrUnknownEntityType) {
			e.log.Warn(ctx, "dropping orphaned sync info", "id", si.LocalID, "type", si.EntityType)
			if err := repos.SyncInfo.Delete(ctx, si.LocalID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, pending{info: si, entity: *ent})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].info, items[j].info
		if a.EntityType.Rank() != b.EntityType.Rank() {
			return a.EntityType.Rank() < b.EntityType.Rank()
		}
		if a.LastModified != b.LastModified {
			return a.LastModified < b.LastModified
		}
		return a.LocalID < b.LocalID
	})
	return items, nil
}

func buildRequest(items []pending) syncproto.SyncRequest {
	req := syncproto.SyncRequest{Entities: make([]syncproto.SyncEntity, 0, len(items))}
	for _, it := range items {
		req.Entities = append(req.Entities, syncproto.SyncEntity{
			LocalID:   it.info.LocalID,
			ServerID:  it.info.ServerID,
			Type:      it.info.EntityType,
			Data:      it.entity.Data.ToMap(),
			Version:   it.info.Version,
			Timestamp: it.info.LastModified,
			Checksum:  it.info.Checksum,
		})
	}
	return req
}

// fail ends a cycle that could not talk to the server: the claims of session
// go back to DIRTY and the state becomes ERROR.
func (e *Engine) fail(ctx context.Context, res models.SyncResult, session string, err error) models.SyncResult {
	e.log.Error(ctx, "sync failed", "trigger", res.Trigger, "error", err)

	if session != "" {
		// the cycle's own ctx may be the reason we are here
		if _, rerr := client.NewRepositories(e.db).SyncInfo.ReleaseClaims(context.WithoutCancel(ctx), session); rerr != nil {
			e.log.Error(ctx, "failed to release claims", "session", session, "error", rerr)
		}
	}

	res.Synced, res.Conflicts = 0, 0
	res.Errors = append(res.Errors, err.Error())
	e.record(res, models.StateError)
	return res
}

func (e *Engine) finish(ctx context.Context, res models.SyncResult) models.SyncResult {
	e.stampLastSync(ctx, res.Timestamp)
	e.log.Info(ctx, "sync finished",
		"trigger", res.Trigger, "synced", res.Synced, "conflicts", res.Conflicts, "failed", res.Failed)
	e.record(res, e.restingState(ctx))
	return res
}

// restingState is HAS_CONFLICTS while stored conflicts wait for the user,
// IDLE otherwise.
func (e *Engine) restingState(ctx context.Context) models.SyncState {
	n, err := client.NewRepositories(e.db).Conflicts.Count(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to count conflicts", "error", err)
	}
	if n > 0 {
		return models.StateHasConflicts
	}
	return models.StateIdle
}

// stampLastSync remembers when a cycle last pushed changes.
func (e *Engine) stampLastSync(ctx context.Context, at time.Time) {
	v := strconv.FormatInt(at.UnixMilli(), 10)
	if err := client.NewRepositories(e.db).Metadata.Set(ctx, metadata.KeyLastSync, v); err != nil {
		e.log.Warn(ctx, "failed to store last sync time", "error", err)
	}
}

// LastSync is the time of the last completed cycle as stored in the local
// database, zero if there was none.
func (e *Engine) LastSync(ctx context.Context) (time.Time, error) {
	v, ok, err := client.NewRepositories(e.db).Metadata.Get(ctx, metadata.KeyLastSync)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed last sync time %q: %w", v, err)
	}
	return time.UnixMilli(ms), nil
}

func (e *Engine) warnIf(ctx context.Context, err error, op, id string) {
	if err != nil {
		e.log.Warn(ctx, "tracker update failed", "op", op, "id", id, "error", err)
	}
}

// UnresolvedConflicts lists the stored conflicts.
func (e *Engine) UnresolvedConflicts(ctx context.Context) ([]models.Conflict, error) {
	return client.NewRepositories(e.db).Conflicts.List(ctx)
}

// Counts reports how many entities are in each sync status.
func (e *Engine) Counts(ctx context.Context) (map[models.SyncStatus]int, error) {
	return client.NewRepositories(e.db).SyncInfo.CountByStatus(ctx)
}
