package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, e models.Entity) error {
	tb, err := tableFor(e.Type())
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (local_id, %s) VALUES (?%s)`,
		tb.name, strings.Join(tb.columns, ", "), strings.Repeat(", ?", len(tb.columns)))

	args := append([]any{e.LocalID}, tb.values(e.Data)...)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", tb.name, err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e models.Entity) error {
	tb, err := tableFor(e.Type())
	if err != nil {
		return err
	}

	sets := make([]string, len(tb.columns))
	for i, c := range tb.columns {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE local_id = ?`, tb.name, strings.Join(sets, ", "))

	args := append(tb.values(e.Data), e.LocalID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", tb.name, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("%s %s: %w", tb.name, e.LocalID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.Entity) error {
	tb, err := tableFor(e.Type())
	if err != nil {
		return err
	}

	sets := make([]string, len(tb.columns))
	for i, c := range tb.columns {
		sets[i] = c + " = excluded." + c
	}
	query := fmt.Sprintf(`INSERT INTO %s (local_id, %s) VALUES (?%s)
		ON CONFLICT(local_id) DO UPDATE SET %s`,
		tb.name, strings.Join(tb.columns, ", "), strings.Repeat(", ?", len(tb.columns)),
		strings.Join(sets, ", "))

	args := append([]any{e.LocalID}, tb.values(e.Data)...)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", tb.name, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, t syncproto.EntityType, id string) (*models.Entity, error) {
	tb, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT local_id, %s FROM %s WHERE local_id = ?`, strings.Join(tb.columns, ", "), tb.name)
	localID, p, err := tb.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", tb.name, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", tb.name, err)
	}
	return &models.Entity{LocalID: localID, Data: p}, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, t syncproto.EntityType) ([]models.Entity, error) {
	tb, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT local_id, %s FROM %s ORDER BY rowid`, strings.Join(tb.columns, ", "), tb.name)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", tb.name, err)
	}
	defer rows.Close()

	var result []models.Entity
	for rows.Next() {
		id, p, err := tb.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", tb.name, err)
		}
		result = append(result, models.Entity{LocalID: id, Data: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, t syncproto.EntityType, id string) error {
	tb, err := tableFor(t)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE local_id = ?`, tb.name)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", tb.name, err)
	}
	return nil
}
