package httpapi_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/clienttest"
	"github.com/dmitrijs2005/recipesync/internal/client/models"
	clientservices "github.com/dmitrijs2005/recipesync/internal/client/services"
	"github.com/dmitrijs2005/recipesync/internal/client/syncengine"
	"github.com/dmitrijs2005/recipesync/internal/cryptox"
	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/reconcile"
	"github.com/dmitrijs2005/recipesync/internal/server/archive"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
	"github.com/dmitrijs2005/recipesync/internal/server/httpapi"
	"github.com/dmitrijs2005/recipesync/internal/server/servertest"
	"github.com/dmitrijs2005/recipesync/internal/server/services"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	url   string
	store *servertest.Records
}

func newBackend(t *testing.T, cfg *config.Config) *backend {
	t.Helper()
	m := servertest.NewManager()
	syncSvc := services.NewSyncService(servertest.NewTxDB(t), m, archive.NopArchiver{}, logging.Discard())
	authSvc := services.NewAuthService(cfg)

	ts := httptest.NewServer(httpapi.NewRouter(logging.Discard(), syncSvc, authSvc))
	t.Cleanup(ts.Close)
	return &backend{url: ts.URL, store: m.Store}
}

type device struct {
	api      *client.HTTPClient
	repos    client.Repositories
	entities *clientservices.EntityService
	auth     *clientservices.AuthService
	engine   *syncengine.Engine
}

func newDevice(t *testing.T, url, id string, resolver reconcile.Resolver) *device {
	t.Helper()
	db := clienttest.NewDB(t)
	api, err := client.NewHTTPClient(url, 5*time.Second, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	es := clientservices.NewEntityService(db)
	return &device{
		api:      api,
		repos:    client.NewRepositories(db),
		entities: es,
		auth:     clientservices.NewAuthService(api, db, id),
		engine:   syncengine.New(db, api, syncengine.Options{Notifier: es, Resolver: resolver}),
	}
}

func (d *device) sync(t *testing.T) models.SyncResult {
	t.Helper()
	return d.engine.PerformSync(context.Background(), models.TriggerManual)
}

func (d *device) info(t *testing.T, id string) *models.SyncInfo {
	t.Helper()
	si, err := d.repos.SyncInfo.Get(context.Background(), id)
	require.NoError(t, err)
	return si
}

// edit changes the entity below the version-bumping layer, with an explicit
// modification time.
func (d *device) edit(t *testing.T, e models.Entity, p syncproto.Payload, ts int64) models.Entity {
	t.Helper()
	ctx := context.Background()
	e.Data = p
	require.NoError(t, d.repos.Entities.Update(ctx, e))
	require.NoError(t, d.repos.SyncInfo.MarkDirty(ctx, e.LocalID, e.Checksum(), ts))
	return e
}

// update edits the entity the way the application does.
func (d *device) update(t *testing.T, e models.Entity, p syncproto.Payload) models.Entity {
	t.Helper()
	e.Data = p
	require.NoError(t, d.entities.Update(context.Background(), e))
	return e
}

// nextMilli waits until the wall clock has moved past the last edit, so
// edits made one after another get distinct times.
func nextMilli() {
	start := time.Now().UnixMilli()
	for time.Now().UnixMilli() <= start {
		time.Sleep(100 * time.Microsecond)
	}
}

// adopt copies an entity already known to the server into d as CLEAN.
func (d *device) adopt(t *testing.T, e models.Entity, serverID int64, ts int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.repos.Entities.Create(ctx, e))
	require.NoError(t, d.repos.SyncInfo.Initialize(ctx, e.LocalID, e.Type(), e.Checksum(), ts))
	require.NoError(t, d.repos.SyncInfo.SetServerID(ctx, e.LocalID, serverID))
	require.NoError(t, d.repos.SyncInfo.SetStatus(ctx, e.LocalID, models.StatusClean))
}

func openConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func TestEndToEnd_NewRecipe(t *testing.T) {
	b := newBackend(t, openConfig())
	d := newDevice(t, b.url, "dev-a", nil)

	e, err := d.entities.Create(context.Background(), syncproto.Recipe{Name: "Pancakes"})
	require.NoError(t, err)

	res := d.sync(t)

	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Conflicts)
	assert.Empty(t, res.Errors)

	si := d.info(t, e.LocalID)
	assert.Equal(t, models.StatusClean, si.Status)
	require.NotNil(t, si.ServerID)

	rec, err := b.store.FindByServerID(context.Background(), syncproto.TypeRecipe, *si.ServerID)
	require.NoError(t, err)
	assert.Equal(t, syncproto.Recipe{Name: "Pancakes"}, rec.Payload)
	assert.Equal(t, e.Checksum(), rec.Checksum)
}

func TestEndToEnd_SameVersionChecksumChanged(t *testing.T) {
	b := newBackend(t, openConfig())
	d := newDevice(t, b.url, "dev-a", nil)

	e, err := d.entities.Create(context.Background(), syncproto.Recipe{Name: "Pancakes"})
	require.NoError(t, err)
	require.Equal(t, 1, d.sync(t).Synced)

	now := time.Now().UnixMilli()
	e = d.edit(t, e, syncproto.Recipe{Name: "Pancakes!"}, now)
	e = d.edit(t, e, syncproto.Recipe{Name: "Fluffy pancakes"}, now+1)

	res := d.sync(t)

	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Conflicts)
	assert.Equal(t, int64(1), d.info(t, e.LocalID).Version)

	rec, err := b.store.FindByLocalID(context.Background(), syncproto.TypeRecipe, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, syncproto.Recipe{Name: "Fluffy pancakes"}, rec.Payload)
	assert.Equal(t, int64(1), rec.Version)
}

func TestEndToEnd_FullGraphInOneBatch(t *testing.T) {
	b := newBackend(t, openConfig())
	d := newDevice(t, b.url, "dev-a", nil)
	ctx := context.Background()

	r, err := d.entities.Create(ctx, syncproto.Recipe{Name: "Bread"})
	require.NoError(t, err)
	i, err := d.entities.Create(ctx, syncproto.Ingredient{Name: "Flour"})
	require.NoError(t, err)
	u, err := d.entities.Create(ctx, syncproto.NewUnit("gram", "g"))
	require.NoError(t, err)
	q, err := d.entities.Create(ctx, syncproto.Quantity{Amount: 500, UnitID: u.LocalID})
	require.NoError(t, err)
	_, err = d.entities.Create(ctx, syncproto.RecipeIngredient{RecipeID: r.LocalID, IngredientID: i.LocalID, QuantityID: q.LocalID})
	require.NoError(t, err)

	res := d.sync(t)

	assert.Equal(t, 5, res.Synced)
	assert.Empty(t, res.Errors)
	for _, typ := range syncproto.SyncOrder {
		assert.Equal(t, 1, b.store.Count(typ), typ)
	}
}

// twoDevices syncs a recipe from A and copies it to B as a CLEAN row with
// the same server id and version.
func twoDevices(t *testing.T, resolverB reconcile.Resolver) (*backend, *device, *device, models.Entity) {
	t.Helper()
	b := newBackend(t, openConfig())
	a := newDevice(t, b.url, "dev-a", nil)
	dB := newDevice(t, b.url, "dev-b", resolverB)

	e, err := a.entities.Create(context.Background(), syncproto.Recipe{Name: "Pancakes"})
	require.NoError(t, err)
	require.Equal(t, 1, a.sync(t).Synced)
	si := a.info(t, e.LocalID)
	dB.adopt(t, e, *si.ServerID, si.LastModified)

	return b, a, dB, e
}

// conflictSetup has B edit first while offline, then A edit later and sync
// first. Both edits start from the same clean version.
func conflictSetup(t *testing.T, resolverB reconcile.Resolver) (*backend, *device, *device, models.Entity) {
	t.Helper()
	b, a, dB, e := twoDevices(t, resolverB)

	nextMilli()
	dB.update(t, e, syncproto.Recipe{Name: "Pancakes from B"})
	nextMilli()
	a.update(t, e, syncproto.Recipe{Name: "Pancakes from A"})
	require.Equal(t, 1, a.sync(t).Synced)

	require.NotEqual(t, a.info(t, e.LocalID).Version, dB.info(t, e.LocalID).Version)
	return b, a, dB, e
}

func TestEndToEnd_StaleDeviceAutoResolvesToNewest(t *testing.T) {
	b, a, dB, e := conflictSetup(t, nil)

	res := dB.sync(t)

	assert.Zero(t, res.Synced)
	assert.Zero(t, res.Conflicts)
	assert.Equal(t, models.StateIdle, dB.engine.State())

	got, err := dB.repos.Entities.GetByID(context.Background(), syncproto.TypeRecipe, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, syncproto.Recipe{Name: "Pancakes from A"}, got.Data)

	si := dB.info(t, e.LocalID)
	assert.Equal(t, models.StatusClean, si.Status)
	assert.Equal(t, a.info(t, e.LocalID).Version, si.Version)

	rec, err := b.store.FindByLocalID(context.Background(), syncproto.TypeRecipe, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, syncproto.Recipe{Name: "Pancakes from A"}, rec.Payload)
}

func TestEndToEnd_StaleDeviceStoresConflictWhenPinned(t *testing.T) {
	_, _, dB, e := conflictSetup(t, nil)
	require.NoError(t, dB.repos.SyncInfo.SetPinned(context.Background(), e.LocalID, true))

	res := dB.sync(t)

	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, models.StateHasConflicts, dB.engine.State())
	assert.Equal(t, models.StatusConflict, dB.info(t, e.LocalID).Status)

	stored, err := dB.engine.UnresolvedConflicts(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Pancakes from A", stored[0].RemoteData["name"])
	assert.Equal(t, "Pancakes from B", stored[0].LocalData["name"])
}

func TestEndToEnd_LaterEditSyncedLastWins(t *testing.T) {
	b, a, dB, e := twoDevices(t, nil)

	nextMilli()
	a.update(t, e, syncproto.Recipe{Name: "Pancakes from A"})
	require.Equal(t, 1, a.sync(t).Synced)
	nextMilli()
	dB.update(t, e, syncproto.Recipe{Name: "Pancakes from B"})

	res := dB.sync(t)

	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Conflicts)
	assert.Equal(t, models.StatusClean, dB.info(t, e.LocalID).Status)

	rec, err := b.store.FindByLocalID(context.Background(), syncproto.TypeRecipe, e.LocalID)
	require.NoError(t, err)
	assert.Equal(t, syncproto.Recipe{Name: "Pancakes from B"}, rec.Payload)
	assert.Equal(t, dB.info(t, e.LocalID).Version, rec.Version)
}

func TestEndToEnd_EnrollmentRequired(t *testing.T) {
	cfg := openConfig()
	hash, err := cryptox.HashEnrollmentKey("open sesame")
	require.NoError(t, err)
	cfg.EnrollmentKeyHash = hash

	b := newBackend(t, cfg)
	d := newDevice(t, b.url, "dev-a", nil)
	ctx := context.Background()

	_, err = d.entities.Create(ctx, syncproto.Recipe{Name: "Soup"})
	require.NoError(t, err)

	res := d.sync(t)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, models.StateError, d.engine.State())

	require.ErrorIs(t, d.auth.Login(ctx, "wrong"), client.ErrUnauthorized)
	require.NoError(t, d.auth.Login(ctx, "open sesame"))

	res = d.sync(t)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, res.Errors)
}
