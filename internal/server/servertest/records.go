// Package servertest provides in-memory stand-ins for the server's Postgres
// store, for service, handler and end-to-end tests.
package servertest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/dbx"
	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/dmitrijs2005/recipesync/internal/server/repositories/records"
	"github.com/dmitrijs2005/recipesync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// Records is a map-backed records.Repository. It resolves references like
// the Postgres repository does but ignores transactions, so writes are
// visible immediately and survive a rollback.
type Records struct {
	mu     sync.Mutex
	nextID int64
	rows   map[syncproto.EntityType]map[int64]models.Record
}

func NewRecords() *Records {
	return &Records{rows: make(map[syncproto.EntityType]map[int64]models.Record)}
}

var _ records.Repository = (*Records)(nil)

func (r *Records) FindByServerID(_ context.Context, t syncproto.EntityType, id int64) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[t][id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func (r *Records) FindByLocalID(_ context.Context, t syncproto.EntityType, localID string) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byLocalID(t, localID)
	if !ok {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func (r *Records) Create(_ context.Context, rec *models.Record) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRefs(rec.Payload); err != nil {
		return nil, err
	}
	if _, ok := r.byLocalID(rec.Type(), rec.LocalID); ok {
		return nil, fmt.Errorf("db error: duplicate local_id %s", rec.LocalID)
	}

	r.nextID++
	rec.ID = r.nextID
	if r.rows[rec.Type()] == nil {
		r.rows[rec.Type()] = make(map[int64]models.Record)
	}
	r.rows[rec.Type()][rec.ID] = *rec
	return rec, nil
}

func (r *Records) Update(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[rec.Type()][rec.ID]; !ok {
		return common.ErrNotFound
	}
	if err := r.checkRefs(rec.Payload); err != nil {
		return err
	}
	r.rows[rec.Type()][rec.ID] = *rec
	return nil
}

// Put stores rec as is, bypassing reference checks. rec.ID must be set.
func (r *Records) Put(rec models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID > r.nextID {
		r.nextID = rec.ID
	}
	if r.rows[rec.Type()] == nil {
		r.rows[rec.Type()] = make(map[int64]models.Record)
	}
	r.rows[rec.Type()][rec.ID] = rec
}

// Count returns the number of records of type t.
func (r *Records) Count(t syncproto.EntityType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows[t])
}

func (r *Records) byLocalID(t syncproto.EntityType, localID string) (models.Record, bool) {
	for _, rec := range r.rows[t] {
		if rec.LocalID == localID {
			return rec, true
		}
	}
	return models.Record{}, false
}

func (r *Records) checkRefs(p syncproto.Payload) error {
	need := func(t syncproto.EntityType, id string) error {
		if _, ok := r.byLocalID(t, id); !ok {
			return fmt.Errorf("%w: %s not found: %s", common.ErrMissingReference, strings.ToLower(string(t)), id)
		}
		return nil
	}

	switch p := p.(type) {
	case syncproto.Quantity:
		return need(syncproto.TypeUnit, p.UnitID)
	case syncproto.RecipeIngredient:
		if err := need(syncproto.TypeRecipe, p.RecipeID); err != nil {
			return err
		}
		if err := need(syncproto.TypeIngredient, p.IngredientID); err != nil {
			return err
		}
		if p.QuantityID != "" {
			return need(syncproto.TypeQuantity, p.QuantityID)
		}
	}
	return nil
}

// Manager hands out Store for every DBTX.
type Manager struct {
	repomanager.RepositoryManager
	Store *Records
}

func NewManager() *Manager {
	return &Manager{Store: NewRecords()}
}

func (m *Manager) Records(dbx.DBTX) records.Repository { return m.Store }

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

// NewTxDB opens an in-memory SQLite database. It has no tables; it only
// gives services real BEGIN, SAVEPOINT and COMMIT semantics.
func NewTxDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
