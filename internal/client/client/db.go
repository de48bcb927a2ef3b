package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/recipesync/internal/client/migrations"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/conflicts"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/entities"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recipesync/internal/client/repositories/syncinfo"
	"github.com/dmitrijs2005/recipesync/internal/dbx"

	_ "modernc.org/sqlite"
)

// Repositories groups the client stores bound to one DBTX.
type Repositories struct {
	Entities  entities.Repository
	SyncInfo  syncinfo.Repository
	Conflicts conflicts.Repository
	Metadata  metadata.Repository
}

func NewRepositories(db dbx.DBTX) Repositories {
	return Repositories{
		Entities:  entities.NewSQLiteRepository(db),
		SyncInfo:  syncinfo.NewSQLiteRepository(db),
		Conflicts: conflicts.NewSQLiteRepository(db),
		Metadata:  metadata.NewSQLiteRepository(db),
	}
}

// InitDatabase opens (creating if needed) the SQLite database at path and
// migrates it. The pool holds a single connection: SQLite serialises writers
// anyway and this keeps ":memory:" databases consistent.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}
	return db, nil
}
