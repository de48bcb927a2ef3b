package records

import (
	"context"

	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

// Repository stores the server copy of synchronised entities. Lookups return
// common.ErrNotFound when no record matches; writes whose references do not
// resolve return an error wrapping common.ErrMissingReference.
type Repository interface {
	FindByServerID(ctx context.Context, t syncproto.EntityType, id int64) (*models.Record, error)
	FindByLocalID(ctx context.Context, t syncproto.EntityType, localID string) (*models.Record, error)
	Create(ctx context.Context, rec *models.Record) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record) error
}
