package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByServerID(ctx context.Context, t syncproto.EntityType, id int64) (*models.Record, error) {
	return r.find(ctx, t, "t.id", id)
}

func (r *PostgresRepository) FindByLocalID(ctx context.Context, t syncproto.EntityType, localID string) (*models.Record, error) {
	return r.find(ctx, t, "t.local_id", localID)
}

func (r *PostgresRepository) find(ctx context.Context, t syncproto.EntityType, column string, key any) (*models.Record, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := tbl.query + " WHERE " + column + " = $1"

	rec, err := scanRecord(t, r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	tbl, err := tableFor(rec.Type())
	if err != nil {
		return nil, err
	}

	values, err := r.values(ctx, rec.Payload)
	if err != nil {
		return nil, err
	}

	args := append([]any{rec.LocalID, rec.Version, rec.LastModified, rec.Checksum}, values...)

	if err := r.db.QueryRowContext(ctx, tbl.insertQuery(), args...).Scan(&rec.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) error {
	tbl, err := tableFor(rec.Type())
	if err != nil {
		return err
	}

	values, err := r.values(ctx, rec.Payload)
	if err != nil {
		return err
	}

	args := append([]any{rec.ID, rec.Version, rec.LastModified, rec.Checksum}, values...)

	res, err := r.db.ExecContext(ctx, tbl.updateQuery(), args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}

// values returns the payload column arguments in table column order, with
// localId references replaced by server ids.
func (r *PostgresRepository) values(ctx context.Context, p syncproto.Payload) ([]any, error) {
	switch p := p.(type) {
	case syncproto.Recipe:
		return []any{p.Name}, nil
	case syncproto.Ingredient:
		return []any{p.Name}, nil
	case syncproto.Unit:
		return []any{p.Name, p.Symbol, string(p.MeasurementType), p.BaseConversionFactor}, nil
	case syncproto.Quantity:
		unitID, err := r.resolve(ctx, syncproto.TypeUnit, p.UnitID)
		if err != nil {
			return nil, err
		}
		return []any{p.Amount, unitID}, nil
	case syncproto.RecipeIngredient:
		recipeID, err := r.resolve(ctx, syncproto.TypeRecipe, p.RecipeID)
		if err != nil {
			return nil, err
		}
		ingredientID, err := r.resolve(ctx, syncproto.TypeIngredient, p.IngredientID)
		if err != nil {
			return nil, err
		}
		var quantityID sql.NullInt64
		if p.QuantityID != "" {
			if quantityID.Int64, err = r.resolve(ctx, syncproto.TypeQuantity, p.QuantityID); err != nil {
				return nil, err
			}
			quantityID.Valid = true
		}
		return []any{recipeID, ingredientID, quantityID}, nil
	case nil:
		return nil, fmt.Errorf("%w: empty payload", common.ErrInvalidPayload)
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntityType, p.EntityType())
}

// resolve maps the localId of a referenced entity to its server id.
func (r *PostgresRepository) resolve(ctx context.Context, t syncproto.EntityType, localID string) (int64, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, "SELECT id FROM "+tbl.name+" WHERE local_id = $1", localID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s not found: %s", common.ErrMissingReference, strings.ToLower(string(t)), localID)
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}
