package conflicts

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/recipesync/internal/client/clienttest"
	"github.com/dmitrijs2005/recipesync/internal/client/models"
	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(entity string) models.Conflict {
	return models.Conflict{
		EntityID:        entity,
		EntityType:      syncproto.TypeRecipe,
		LocalData:       map[string]any{"name": "Local"},
		RemoteData:      map[string]any{"name": "Remote", "version": float64(3)},
		LocalTimestamp:  10,
		RemoteTimestamp: 20,
		CreatedAt:       30,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	r := NewSQLiteRepository(clienttest.NewDB(t))
	ctx := context.Background()

	id, err := r.Insert(ctx, sample("e1"))
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)

	want := sample("e1")
	want.ID = id
	assert.Equal(t, want, *got)
}

func TestGetByID_NotFound(t *testing.T) {
	r := NewSQLiteRepository(clienttest.NewDB(t))

	_, err := r.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestListCountAndDelete(t *testing.T) {
	r := NewSQLiteRepository(clienttest.NewDB(t))
	ctx := context.Background()

	id1, err := r.Insert(ctx, sample("e1"))
	require.NoError(t, err)
	_, err = r.Insert(ctx, sample("e2"))
	require.NoError(t, err)
	_, err = r.Insert(ctx, sample("e2"))
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, id1, all[0].ID)

	forE2, err := r.GetForEntity(ctx, "e2")
	require.NoError(t, err)
	assert.Len(t, forE2, 2)

	require.NoError(t, r.DeleteForEntity(ctx, "e2"))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.DeleteByID(ctx, id1))
	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
