package entities

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// Repository describes CRUD operations on locally stored entities.
type Repository interface {
	// Create inserts a new entity. The table is chosen by e.Data's type.
	Create(ctx context.Context, e models.Entity) error

	// Update overwrites the stored fields of an existing entity.
	// It returns common.ErrNotFound when no row has e.LocalID.
	Update(ctx context.Context, e models.Entity) error

	// Upsert inserts the entity or overwrites it when it already exists.
	// Used when a remote version is applied locally.
	Upsert(ctx context.Context, e models.Entity) error

	GetByID(ctx context.Context, t syncproto.EntityType, id string) (*models.Entity, error)
	GetAll(ctx context.Context, t syncproto.EntityType) ([]models.Entity, error)

	// Delete removes the entity row. Missing rows are not an error.
	Delete(ctx context.Context, t syncproto.EntityType, id string) error
}
