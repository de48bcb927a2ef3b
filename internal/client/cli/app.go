package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/recipesync/internal/client/client"
	"github.com/dmitrijs2005/recipesync/internal/client/config"
	"github.com/dmitrijs2005/recipesync/internal/client/services"
	"github.com/dmitrijs2005/recipesync/internal/client/syncengine"
	"github.com/dmitrijs2005/recipesync/internal/filex"
	"github.com/dmitrijs2005/recipesync/internal/logging"
)

// App wires the local store, the server client and the sync engine.
type App struct {
	config   *config.Config
	db       *sql.DB
	client   client.Client
	log      logging.Logger
	auth     *services.AuthService
	entities *services.EntityService
	engine   *syncengine.Engine

	// closers are released by Close in reverse order.
	closers []io.Closer
}

// NewApp opens the database named in cfg and connects the services to it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	out := logging.Output(cfg.LogFile)
	logger := logging.NewJSONLogger(out, cfg.LogLevel).With("app", "recipesync")

	if err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		_ = out.Close()
		return nil, err
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api, err := client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout, cfg.ConnectTimeout)
	if err != nil {
		_ = db.Close()
		_ = out.Close()
		return nil, err
	}

	app, err := newApp(ctx, cfg, db, api, logger)
	if err != nil {
		_ = api.Close()
		_ = db.Close()
		_ = out.Close()
		return nil, err
	}
	app.closers = []io.Closer{out, db, api}
	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, db *sql.DB, c client.Client, logger logging.Logger) (*App, error) {
	es := services.NewEntityService(db)
	as := services.NewAuthService(c, db, cfg.DeviceID)

	if _, err := as.RestoreToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore access token: %w", err)
	}

	eng := syncengine.New(db, c, syncengine.Options{
		Logger:            logger.With("module", "syncengine"),
		Notifier:          es,
		StaleSyncingAfter: cfg.StaleSyncingAfter,
	})
	if err := eng.LoadState(ctx); err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	return &App{
		config:   cfg,
		db:       db,
		client:   c,
		log:      logger,
		auth:     as,
		entities: es,
		engine:   eng,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
