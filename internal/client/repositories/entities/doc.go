// Package entities is the client-side entity store.
//
// Each entity type lives in its own SQLite table keyed by local_id. The
// Repository works on models.Entity whose Data is the typed payload, so
// callers never deal with per-table columns. A SQLiteRepository is bound to
// a dbx.DBTX and can run inside the same transaction as the sync tracker.
//
//	repo := entities.NewSQLiteRepository(tx)
//	_ = repo.Create(ctx, models.Entity{LocalID: id, Data: syncproto.Recipe{Name: "Soup"}})
//	list, _ := repo.GetAll(ctx, syncproto.TypeRecipe)
package entities
