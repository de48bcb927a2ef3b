// Package server is the composition root of the sync server: it opens the
// database, runs migrations, wires services to the HTTP API and handles
// graceful shutdown.
package server

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/recipesync/internal/buildinfo"
	"github.com/dmitrijs2005/recipesync/internal/logging"
	"github.com/dmitrijs2005/recipesync/internal/server/archive"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
	"github.com/dmitrijs2005/recipesync/internal/server/httpapi"
	"github.com/dmitrijs2005/recipesync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipesync/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	a, err := archive.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	return newApp(cfg, logger, db, m, a), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager, a archive.Archiver) *App {
	ss := services.NewSyncService(db, m, a, logger)
	as := services.NewAuthService(cfg)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		server: httpapi.NewServer(cfg, logger, ss, as),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) logBuildInfo(ctx context.Context) {
	var buf bytes.Buffer
	buildinfo.PrintBuildData(&buf)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		app.logger.Info(ctx, line)
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logBuildInfo(ctx)
	app.logger.Info(ctx, "Starting app...", "auth", app.config.AuthEnabled(), "archive", app.config.S3Bucket != "")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
