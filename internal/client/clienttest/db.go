// Package clienttest provides a migrated in-memory SQLite database for
// client package tests.
package clienttest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/recipesync/internal/client/migrations"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// NewDB opens a private in-memory database with the client schema applied.
// The pool is limited to one connection so every query sees the same
// in-memory database.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}
