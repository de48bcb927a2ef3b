package syncinfo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

const columns = `local_id, entity_type, server_id, version, last_modified, checksum,
	sync_status, is_pinned, sync_session, claimed_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (models.SyncInfo, error) {
	var (
		si       models.SyncInfo
		t, st    string
		serverID sql.NullInt64
		session  sql.NullString
		claimed  sql.NullInt64
	)
	err := s.Scan(&si.LocalID, &t, &serverID, &si.Version, &si.LastModified, &si.Checksum,
		&st, &si.IsPinned, &session, &claimed)
	if err != nil {
		return si, err
	}
	si.EntityType = syncproto.EntityType(t)
	si.Status = models.SyncStatus(st)
	if serverID.Valid {
		v := serverID.Int64
		si.ServerID = &v
	}
	si.SyncSession = session.String
	si.ClaimedAt = claimed.Int64
	return si, nil
}

func (r *SQLiteRepository) query(ctx context.Context, op, query string, args ...any) ([]models.SyncInfo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var result []models.SyncInfo
	for rows.Next() {
		si, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync info: %w", err)
		}
		result = append(result, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return result, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// execOne is exec for statements addressing a single row; no match is
// reported as common.ErrNotFound.
func (r *SQLiteRepository) execOne(ctx context.Context, op, id, query string, args ...any) error {
	n, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("sync info %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Initialize(ctx context.Context, id string, t syncproto.EntityType, checksum string, now int64) error {
	_, err := r.exec(ctx, "initialize sync info", `
		INSERT INTO sync_info (local_id, entity_type, version, last_modified, checksum, sync_status, is_pinned)
		VALUES (?, ?, 1, ?, ?, 'DIRTY', 0)
		ON CONFLICT(local_id) DO NOTHING`,
		id, string(t), now, checksum)
	return err
}

func (r *SQLiteRepository) MarkDirty(ctx context.Context, id, checksum string, ts int64) error {
	return r.execOne(ctx, "mark dirty", id, `
		UPDATE sync_info
		SET checksum = ?, last_modified = ?, sync_status = 'DIRTY', sync_session = NULL, claimed_at = NULL
		WHERE local_id = ?`,
		checksum, ts, id)
}

func (r *SQLiteRepository) MarkSyncing(ctx context.Context, id string) error {
	_, err := r.exec(ctx, "mark syncing", `
		UPDATE sync_info SET sync_status = 'SYNCING'
		WHERE local_id = ? AND sync_status = 'DIRTY'`, id)
	return err
}

func (r *SQLiteRepository) ClaimDirty(ctx context.Context, session string, now int64) ([]models.SyncInfo, error) {
	return r.query(ctx, "claim dirty rows", `
		UPDATE sync_info
		SET sync_status = 'SYNCING', sync_session = ?, claimed_at = ?
		WHERE sync_status = 'DIRTY'
		RETURNING `+columns,
		session, now)
}

func (r *SQLiteRepository) MarkClean(ctx context.Context, id string, serverID *int64) error {
	var sid sql.NullInt64
	if serverID != nil {
		sid = sql.NullInt64{Int64: *serverID, Valid: true}
	}
	return r.execOne(ctx, "mark clean", id, `
		UPDATE sync_info
		SET server_id = COALESCE(?, server_id),
			sync_status = CASE WHEN sync_status = 'DIRTY' THEN 'DIRTY' ELSE 'CLEAN' END,
			sync_session = NULL, claimed_at = NULL
		WHERE local_id = ?`,
		sid, id)
}

func (r *SQLiteRepository) MarkConflicted(ctx context.Context, id string) error {
	return r.settle(ctx, id, models.StatusConflict)
}

func (r *SQLiteRepository) MarkError(ctx context.Context, id string) error {
	return r.settle(ctx, id, models.StatusError)
}

func (r *SQLiteRepository) settle(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.exec(ctx, "mark "+string(status), `
		UPDATE sync_info SET sync_status = ?, sync_session = NULL, claimed_at = NULL
		WHERE local_id = ? AND sync_status <> 'DIRTY'`,
		string(status), id)
	return err
}

func (r *SQLiteRepository) SetPinned(ctx context.Context, id string, pinned bool) error {
	return r.execOne(ctx, "set pinned", id, `UPDATE sync_info SET is_pinned = ? WHERE local_id = ?`, pinned, id)
}

func (r *SQLiteRepository) SetServerID(ctx context.Context, id string, serverID int64) error {
	return r.execOne(ctx, "set server id", id, `UPDATE sync_info SET server_id = ? WHERE local_id = ?`, serverID, id)
}

func (r *SQLiteRepository) SetVersion(ctx context.Context, id string, version int64) error {
	return r.execOne(ctx, "set version", id, `UPDATE sync_info SET version = ? WHERE local_id = ?`, version, id)
}

// BumpVersion raises the version by one, or to floor when that is higher.
func (r *SQLiteRepository) BumpVersion(ctx context.Context, id string, floor int64) error {
	return r.execOne(ctx, "bump version", id, `UPDATE sync_info SET version = MAX(version + 1, ?) WHERE local_id = ?`, floor, id)
}

// SetStatus sets the status unconditionally.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, status models.SyncStatus) error {
	return r.execOne(ctx, "set status", id, `
		UPDATE sync_info SET sync_status = ?, sync_session = NULL, claimed_at = NULL
		WHERE local_id = ?`, string(status), id)
}

func (r *SQLiteRepository) AdoptRemote(ctx context.Context, id string, serverID *int64, version int64, checksum string, ts int64) error {
	var sid sql.NullInt64
	if serverID != nil {
		sid = sql.NullInt64{Int64: *serverID, Valid: true}
	}
	return r.execOne(ctx, "adopt remote", id, `
		UPDATE sync_info
		SET server_id = COALESCE(?, server_id), version = ?, checksum = ?, last_modified = ?,
			sync_status = 'CLEAN', sync_session = NULL, claimed_at = NULL
		WHERE local_id = ?`,
		sid, version, checksum, ts, id)
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.SyncInfo, error) {
	si, err := scanInfo(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM sync_info WHERE local_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync info %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync info: %w", err)
	}
	return &si, nil
}

func (r *SQLiteRepository) GetDirty(ctx context.Context) ([]models.SyncInfo, error) {
	return r.query(ctx, "select dirty rows",
		`SELECT `+columns+` FROM sync_info WHERE sync_status = 'DIRTY' ORDER BY last_modified, local_id`)
}

func (r *SQLiteRepository) GetByTypeAndStatus(ctx context.Context, t syncproto.EntityType, status models.SyncStatus) ([]models.SyncInfo, error) {
	return r.query(ctx, "select sync info",
		`SELECT `+columns+` FROM sync_info WHERE entity_type = ? AND sync_status = ? ORDER BY last_modified, local_id`,
		string(t), string(status))
}

// CountByStatus reports a count for every status, zero included.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_status, COUNT(*) FROM sync_info GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync info: %w", err)
	}
	defer rows.Close()

	result := make(map[models.SyncStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		result[s] = 0
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		result[models.SyncStatus(st)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count sync info: %w", err)
	}
	return result, nil
}

// MarkAllDirty flags every row for resubmission, in-flight claims included.
func (r *SQLiteRepository) MarkAllDirty(ctx context.Context, now int64) (int64, error) {
	return r.exec(ctx, "mark all dirty", `
		UPDATE sync_info
		SET sync_status = 'DIRTY', last_modified = ?, sync_session = NULL, claimed_at = NULL`, now)
}

func (r *SQLiteRepository) MarkErrorsDirty(ctx context.Context) (int64, error) {
	return r.exec(ctx, "retry failed rows",
		`UPDATE sync_info SET sync_status = 'DIRTY' WHERE sync_status = 'ERROR'`)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.exec(ctx, "delete sync info", `DELETE FROM sync_info WHERE local_id = ?`, id)
	return err
}

func (r *SQLiteRepository) ReleaseClaims(ctx context.Context, session string) (int64, error) {
	return r.exec(ctx, "release claims", `
		UPDATE sync_info SET sync_status = 'DIRTY', sync_session = NULL, claimed_at = NULL
		WHERE sync_status = 'SYNCING' AND sync_session = ?`, session)
}

func (r *SQLiteRepository) RecoverStale(ctx context.Context, cutoff int64) (int64, error) {
	return r.exec(ctx, "recover stale claims", `
		UPDATE sync_info SET sync_status = 'DIRTY', sync_session = NULL, claimed_at = NULL
		WHERE sync_status = 'SYNCING' AND (claimed_at IS NULL OR claimed_at < ?)`, cutoff)
}
