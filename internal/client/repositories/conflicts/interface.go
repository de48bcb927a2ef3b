// Package conflicts stores conflicts that need a user decision.
package conflicts

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
)

type Repository interface {
	// Insert stores c and returns its new id.
	Insert(ctx context.Context, c models.Conflict) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Conflict, error)
	List(ctx context.Context) ([]models.Conflict, error)
	GetForEntity(ctx context.Context, entityID string) ([]models.Conflict, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteForEntity(ctx context.Context, entityID string) error
	Count(ctx context.Context) (int, error)
}
