// Package services contains the application services of the recipesync
// client. EntityService wraps every local mutation together with its sync
// tracking in one transaction and lets callers watch the store for changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/google/uuid"
)

// Listed is an entity together with its sync state.
type Listed struct {
	models.Entity
	Sync *models.SyncInfo
}

type EntityService struct {
	db  *sql.DB
	now func() time.Time

	mu       sync.Mutex
	watchers map[syncproto.EntityType]map[chan struct{}]struct{}
}

func NewEntityService(db *sql.DB) *EntityService {
	return &EntityService{
		db:       db,
		now:      time.Now,
		watchers: make(map[syncproto.EntityType]map[chan struct{}]struct{}),
	}
}

// Create stores a new entity with a fresh localId and starts tracking it as
// DIRTY, version 1.
func (s *EntityService) Create(ctx context.Context, p syncproto.Payload) (models.Entity, error) {
	if err := syncproto.Validate(p); err != nil {
		return models.Entity{}, err
	}

	e := models.Entity{LocalID: uuid.NewString(), Data: p}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)
		if err := r.Entities.Create(ctx, e); err != nil {
			return err
		}
		return r.SyncInfo.Initialize(ctx, e.LocalID, e.Type(), e.Checksum(), s.now().UnixMilli())
	})
	if err != nil {
		return models.Entity{}, fmt.Errorf("failed to create %s: %w", p.EntityType(), err)
	}

	s.Notify(e.Type())
	return e, nil
}

// Update overwrites an existing entity and marks it DIRTY. The version is
// bumped only on the first edit after a clean sync, so repeated offline
// edits travel as one new version. The bump goes at least to the edit time
// in milliseconds: two devices editing the same clean version then send
// different versions, and the server settles them by timestamp instead of
// taking whichever arrives last. Saving identical content is a no-op.
func (s *EntityService) Update(ctx context.Context, e models.Entity) error {
	if err := syncproto.Validate(e.Data); err != nil {
		return err
	}

	changed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)

		si, err := r.SyncInfo.Get(ctx, e.LocalID)
		if err != nil {
			return err
		}
		if si.EntityType != e.Type() {
			return fmt.Errorf("%w: %s is a %s", common.ErrNotFound, e.LocalID, si.EntityType)
		}

		sum := e.Checksum()
		if sum == si.Checksum {
			return nil
		}

		if err := r.Entities.Update(ctx, e); err != nil {
			return err
		}
		now := s.now().UnixMilli()
		if si.Status == models.StatusClean {
			if err := r.SyncInfo.BumpVersion(ctx, e.LocalID, now); err != nil {
				return err
			}
		}
		changed = true
		return r.SyncInfo.MarkDirty(ctx, e.LocalID, sum, now)
	})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", e.Type(), e.LocalID, err)
	}

	if changed {
		s.Notify(e.Type())
	}
	return nil
}

// Delete removes the entity, its sync state and any stored conflicts.
// Deletions are local only.
func (s *EntityService) Delete(ctx context.Context, t syncproto.EntityType, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := client.NewRepositories(tx)
		if _, err := r.Entities.GetByID(ctx, t, id); err != nil {
			return err
		}
		if err := r.Entities.Delete(ctx, t, id); err != nil {
			return err
		}
		if err := r.SyncInfo.Delete(ctx, id); err != nil {
			return err
		}
		return r.Conflicts.DeleteForEntity(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", t, id, err)
	}

	s.Notify(t)
	return nil
}

func (s *EntityService) GetByID(ctx context.Context, t syncproto.EntityType, id string) (*models.Entity, error) {
	return client.NewRepositories(s.db).Entities.GetByID(ctx, t, id)
}

func (s *EntityService) GetAll(ctx context.Context, t syncproto.EntityType) ([]models.Entity, error) {
	return client.NewRepositories(s.db).Entities.GetAll(ctx, t)
}

// GetAllWithStatus lists entities of type t with their tracker rows.
func (s *EntityService) GetAllWithStatus(ctx context.Context, t syncproto.EntityType) ([]Listed, error) {
	r := client.NewRepositories(s.db)

	list, err := r.Entities.GetAll(ctx, t)
	if err != nil {
		return nil, err
	}

	result := make([]Listed, 0, len(list))
	for _, e := range list {
		si, err := r.SyncInfo.Get(ctx, e.LocalID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		result = append(result, Listed{Entity: e, Sync: si})
	}
	return result, nil
}
