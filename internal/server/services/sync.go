package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/reconcile"
	"github.com/dmitrijs2005/recipesync/internal/server/archive"
	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/dmitrijs2005/recipesync/internal/server/repositories/records"
	"github.com/dmitrijs2005/recipesync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/go-playground/validator/v10"
)

// SyncService applies client batches to the server store.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	archiver    archive.Archiver
	logger      logging.Logger
	validate    *validator.Validate
	now         func() time.Time
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager, a archive.Archiver, l logging.Logger) *SyncService {
	return &SyncService{
		db:          db,
		repomanager: m,
		archiver:    a,
		logger:      l.With("module", "sync_service"),
		validate:    validator.New(),
		now:         time.Now,
	}
}

// ProcessBatch applies every entity of req in one transaction and returns
// one result per entity, in request order. Each entity runs in its own
// savepoint, so a failing entity is reported in its result and leaves the
// others untouched. The returned error is reserved for failures of the
// transaction itself.
func (s *SyncService) ProcessBatch(ctx context.Context, deviceID string, req syncproto.SyncRequest) (*syncproto.SyncResponse, error) {
	results := make([]syncproto.SyncResult, 0, len(req.Entities))
	var rejected []models.RejectedWrite
	var accepted, conflicts, failed int

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		for i, e := range req.Entities {
			var res syncproto.SyncResult
			var lost *models.RejectedWrite

			err := dbx.WithSavepoint(ctx, tx, fmt.Sprintf("item_%d", i), func(ctx context.Context) error {
				var err error
				res, lost, err = s.processEntity(ctx, repo, e)
				return err
			})

			switch {
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn(ctx, "entity rejected", "local_id", e.LocalID, "type", e.Type, "error", err)
				res = syncproto.Reject(e.LocalID, err)
				failed++
			case res.HasConflict:
				lost.DeviceID = deviceID
				rejected = append(rejected, *lost)
				conflicts++
			default:
				accepted++
			}

			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process batch: %w", err)
	}

	s.logger.Info(ctx, "sync batch processed",
		"device", deviceID, "accepted", accepted, "conflicts", conflicts, "errors", failed)

	if len(rejected) > 0 {
		if err := s.archiver.Archive(ctx, rejected); err != nil {
			s.logger.Warn(ctx, "conflict archive failed", "count", len(rejected), "error", err)
		}
	}

	return &syncproto.SyncResponse{Results: results}, nil
}

func (s *SyncService) processEntity(ctx context.Context, repo records.Repository, e syncproto.SyncEntity) (syncproto.SyncResult, *models.RejectedWrite, error) {
	if err := s.validate.Struct(e); err != nil {
		return syncproto.SyncResult{}, nil, fmt.Errorf("%w: %v", common.ErrInvalidPayload, err)
	}

	payload, err := syncproto.DecodePayload(e.Type, e.Data)
	if err != nil {
		return syncproto.SyncResult{}, nil, err
	}
	sum := syncproto.Checksum(payload)
	if sum != e.Checksum {
		s.logger.Debug(ctx, "client checksum differs", "local_id", e.LocalID, "client", e.Checksum, "server", sum)
	}

	existing, err := s.lookup(ctx, repo, e)
	if errors.Is(err, common.ErrNotFound) {
		rec, err := repo.Create(ctx, &models.Record{
			LocalID:      e.LocalID,
			Payload:      payload,
			Version:      e.Version,
			LastModified: e.Timestamp,
			Checksum:     sum,
		})
		if err != nil {
			return syncproto.SyncResult{}, nil, err
		}
		return syncproto.Accept(e.LocalID, rec.ID), nil, nil
	}
	if err != nil {
		return syncproto.SyncResult{}, nil, err
	}

	server := reconcile.Stamp{Version: existing.Version, Checksum: existing.Checksum, Timestamp: existing.LastModified}
	client := reconcile.Stamp{Version: e.Version, Checksum: sum, Timestamp: e.Timestamp}

	if reconcile.Detect(server, client) {
		snapshot := syncproto.Snapshot(existing.Payload, existing.Version)
		lost := &models.RejectedWrite{
			Incoming:        e,
			ServerID:        existing.ID,
			ServerVersion:   existing.Version,
			ServerData:      snapshot,
			ServerTimestamp: existing.LastModified,
			RecordedAt:      s.now().UnixMilli(),
		}
		return syncproto.Conflict(e.LocalID, existing.ID, snapshot, existing.LastModified), lost, nil
	}

	existing.Payload = payload
	existing.Version = e.Version
	existing.LastModified = e.Timestamp
	existing.Checksum = sum
	if err := repo.Update(ctx, existing); err != nil {
		return syncproto.SyncResult{}, nil, err
	}

	return syncproto.Accept(e.LocalID, existing.ID), nil, nil
}

// lookup finds the server copy by serverId first and by localId second.
func (s *SyncService) lookup(ctx context.Context, repo records.Repository, e syncproto.SyncEntity) (*models.Record, error) {
	if e.ServerID != nil {
		rec, err := repo.FindByServerID(ctx, e.Type, *e.ServerID)
		if err == nil || !errors.Is(err, common.ErrNotFound) {
			return rec, err
		}
	}
	return repo.FindByLocalID(ctx, e.Type, e.LocalID)
}
