package conflicts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

const columns = `id, entity_id, entity_type, local_data, remote_data, local_timestamp, remote_timestamp, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, c models.Conflict) (int64, error) {
	local, err := json.Marshal(c.LocalData)
	if err != nil {
		return 0, fmt.Errorf("failed to encode local data: %w", err)
	}
	remote, err := json.Marshal(c.RemoteData)
	if err != nil {
		return 0, fmt.Errorf("failed to encode remote data: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO sync_conflicts (entity_id, entity_type, local_data, remote_data, local_timestamp, remote_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		c.EntityID, string(c.EntityType), string(local), string(remote), c.LocalTimestamp, c.RemoteTimestamp, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert conflict: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConflict(s scanner) (models.Conflict, error) {
	var (
		c             models.Conflict
		t             string
		local, remote string
	)
	if err := s.Scan(&c.ID, &c.EntityID, &t, &local, &remote, &c.LocalTimestamp, &c.RemoteTimestamp, &c.CreatedAt); err != nil {
		return c, err
	}
	c.EntityType = syncproto.EntityType(t)
	if err := json.Unmarshal([]byte(local), &c.LocalData); err != nil {
		return c, fmt.Errorf("failed to decode local data: %w", err)
	}
	if err := json.Unmarshal([]byte(remote), &c.RemoteData); err != nil {
		return c, fmt.Errorf("failed to decode remote data: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Conflict, error) {
	c, err := scanConflict(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM sync_conflicts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conflict %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	return result, nil
}

// List returns every stored conflict, oldest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]models.Conflict, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sync_conflicts ORDER BY id`)
}

func (r *SQLiteRepository) GetForEntity(ctx context.Context, entityID string) ([]models.Conflict, error) {
	return r.list(ctx, `SELECT `+columns+` FROM sync_conflicts WHERE entity_id = ? ORDER BY id`, entityID)
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_conflicts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conflict: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteForEntity(ctx context.Context, entityID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_conflicts WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("failed to delete conflicts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_conflicts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conflicts: %w", err)
	}
	return n, nil
}
