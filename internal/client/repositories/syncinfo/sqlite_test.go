package syncinfo

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

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(clienttest.NewDB(t))
}

func ptr(v int64) *int64 { return &v }

// markSynced takes a fresh DIRTY row through a sync that the server accepts.
func markSynced(t *testing.T, r *SQLiteRepository, id string, serverID int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.MarkSyncing(ctx, id))
	require.NoError(t, r.MarkClean(ctx, id, ptr(serverID)))
}

func TestInitialize_NewRowIsDirtyVersionOne(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c1", 100))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.SyncInfo{
		LocalID:      "a",
		EntityType:   syncproto.TypeRecipe,
		Version:      1,
		LastModified: 100,
		Checksum:     "c1",
		Status:       models.StatusDirty,
	}, *si)
}

func TestInitialize_ExistingRowUntouched(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c1", 100))
	markSynced(t, r, "a", 7)
	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c2", 200))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "c1", si.Checksum)
	assert.Equal(t, models.StatusClean, si.Status)
}

func TestMarkDirty_FromAnyState(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	for _, st := range []models.SyncStatus{models.StatusClean, models.StatusConflict, models.StatusError, models.StatusSyncing} {
		t.Run(string(st), func(t *testing.T) {
			id := "e-" + string(st)
			require.NoError(t, r.Initialize(ctx, id, syncproto.TypeUnit, "c1", 1))
			require.NoError(t, r.SetStatus(ctx, id, st))

			require.NoError(t, r.MarkDirty(ctx, id, "c2", 50))

			si, err := r.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.StatusDirty, si.Status)
			assert.Equal(t, "c2", si.Checksum)
			assert.Equal(t, int64(50), si.LastModified)
			assert.Equal(t, int64(1), si.Version)
		})
	}
}

func TestMarkDirty_Missing(t *testing.T) {
	r := newRepo(t)
	require.ErrorIs(t, r.MarkDirty(context.Background(), "nope", "c", 1), common.ErrNotFound)
}

func TestClaimDirty_Exclusive(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.Initialize(ctx, "b", syncproto.TypeUnit, "c", 2))
	require.NoError(t, r.Initialize(ctx, "c", syncproto.TypeUnit, "c", 3))
	markSynced(t, r, "c", 1)

	first, err := r.ClaimDirty(ctx, "s1", 1000)
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, si := range first {
		assert.Equal(t, models.StatusSyncing, si.Status)
		assert.Equal(t, "s1", si.SyncSession)
		assert.Equal(t, int64(1000), si.ClaimedAt)
	}

	second, err := r.ClaimDirty(ctx, "s2", 1001)
	require.NoError(t, err)
	assert.Empty(t, second)

	dirty, err := r.GetDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestMarkClean_KeepsDirtyIfEditedInFlight(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c1", 1))
	_, err := r.ClaimDirty(ctx, "s1", 10)
	require.NoError(t, err)

	require.NoError(t, r.MarkDirty(ctx, "a", "c2", 20))
	require.NoError(t, r.MarkClean(ctx, "a", ptr(42)))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDirty, si.Status)
	require.NotNil(t, si.ServerID)
	assert.Equal(t, int64(42), *si.ServerID)
	assert.Equal(t, "c2", si.Checksum)
}

func TestMarkClean_UnclaimedDirtyRowStaysDirty(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c1", 1))
	require.NoError(t, r.MarkClean(ctx, "a", ptr(3)))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDirty, si.Status)
	assert.Equal(t, int64(3), *si.ServerID)
}

func TestMarkClean_FromSyncing(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c1", 1))
	_, err := r.ClaimDirty(ctx, "s1", 10)
	require.NoError(t, err)

	require.NoError(t, r.MarkClean(ctx, "a", ptr(5)))
	require.NoError(t, r.MarkClean(ctx, "a", nil))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, si.Status)
	assert.Equal(t, int64(5), *si.ServerID)
	assert.Empty(t, si.SyncSession)
	assert.Zero(t, si.ClaimedAt)
	assert.Equal(t, "c1", si.Checksum)
	assert.Equal(t, int64(1), si.Version)
}

func TestMarkConflictedAndError_DirtyGuard(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.MarkConflicted(ctx, "a"))
	require.NoError(t, r.MarkError(ctx, "a"))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDirty, si.Status)

	require.NoError(t, r.MarkSyncing(ctx, "a"))
	require.NoError(t, r.MarkConflicted(ctx, "a"))
	si, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, si.Status)

	require.NoError(t, r.MarkError(ctx, "a"))
	si, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, si.Status)
}

func TestVersionAndPinning(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.BumpVersion(ctx, "a", 0))
	require.NoError(t, r.BumpVersion(ctx, "a", 2))
	require.NoError(t, r.SetPinned(ctx, "a", true))
	require.NoError(t, r.SetServerID(ctx, "a", 9))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), si.Version)
	assert.True(t, si.IsPinned)
	assert.Equal(t, int64(9), *si.ServerID)

	require.NoError(t, r.BumpVersion(ctx, "a", 1_700))
	si, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1_700), si.Version)

	require.NoError(t, r.SetVersion(ctx, "a", 11))
	require.NoError(t, r.SetPinned(ctx, "a", false))
	si, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(11), si.Version)
	assert.False(t, si.IsPinned)

	require.ErrorIs(t, r.BumpVersion(ctx, "zz", 0), common.ErrNotFound)
}

func TestAdoptRemote(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "local", 1))
	require.NoError(t, r.MarkConflicted(ctx, "a"))
	require.NoError(t, r.AdoptRemote(ctx, "a", ptr(3), 4, "remote", 999))

	si, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, si.Status)
	assert.Equal(t, int64(4), si.Version)
	assert.Equal(t, "remote", si.Checksum)
	assert.Equal(t, int64(999), si.LastModified)
	assert.Equal(t, int64(3), *si.ServerID)
}

func TestQueriesAndCounts(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "u1", syncproto.TypeUnit, "c", 3))
	require.NoError(t, r.Initialize(ctx, "u2", syncproto.TypeUnit, "c", 1))
	require.NoError(t, r.Initialize(ctx, "r1", syncproto.TypeRecipe, "c", 2))
	markSynced(t, r, "r1", 1)

	dirty, err := r.GetDirty(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 2)
	assert.Equal(t, "u2", dirty[0].LocalID)

	units, err := r.GetByTypeAndStatus(ctx, syncproto.TypeUnit, models.StatusDirty)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	counts, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.SyncStatus]int{
		models.StatusClean:    1,
		models.StatusDirty:    2,
		models.StatusSyncing:  0,
		models.StatusConflict: 0,
		models.StatusError:    0,
	}, counts)

	n, err := r.MarkAllDirty(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMarkErrorsDirty(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.Initialize(ctx, "b", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.SetStatus(ctx, "a", models.StatusError))
	require.NoError(t, r.SetStatus(ctx, "b", models.StatusClean))

	n, err := r.MarkErrorsDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	si, err := r.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, si.Status)
}

func TestReleaseClaimsAndRecoverStale(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	_, err := r.ClaimDirty(ctx, "old", 100)
	require.NoError(t, err)
	require.NoError(t, r.Initialize(ctx, "b", syncproto.TypeRecipe, "c", 1))
	_, err = r.ClaimDirty(ctx, "new", 500)
	require.NoError(t, err)

	n, err := r.ReleaseClaims(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.RecoverStale(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	a, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDirty, a.Status)
	assert.Empty(t, a.SyncSession)

	n, err = r.ReleaseClaims(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	dirty, err := r.GetDirty(ctx)
	require.NoError(t, err)
	assert.Len(t, dirty, 2)
}

func TestDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Initialize(ctx, "a", syncproto.TypeRecipe, "c", 1))
	require.NoError(t, r.Delete(ctx, "a"))
	_, err := r.Get(ctx, "a")
	require.ErrorIs(t, err, common.ErrNotFound)
}
