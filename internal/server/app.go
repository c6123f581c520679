// Package server wires the casely daemon: storage, the origin client, the
// background poller and the public HTTP API, and runs them until a signal
// arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/logging"
	"github.com/dmitrijs2005/casely/internal/server/archive"
	"github.com/dmitrijs2005/casely/internal/server/config"
	"github.com/dmitrijs2005/casely/internal/server/httpapi"
	"github.com/dmitrijs2005/casely/internal/server/metrics"
	"github.com/dmitrijs2005/casely/internal/server/origin"
	"github.com/dmitrijs2005/casely/internal/server/polling"
	"github.com/dmitrijs2005/casely/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casely/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const userAgent = "casely/1.0"

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer

	rw *sql.DB
	ro *sql.DB

	poller *polling.Poller
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser, err := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger, logCloser: logCloser}
	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config
	rm := repomanager.NewSQLiteRepositoryManager()

	var err error
	if app.rw, err = dbx.OpenSQLite(ctx, c.DatabasePath, dbx.ReadWrite); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, app.rw); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if app.ro, err = dbx.OpenSQLite(ctx, c.DatabasePath, dbx.ReadOnly); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	contracts := services.NewContractService(app.rw, app.ro, rm)
	labels := services.NewLabelService(app.rw, app.ro, rm)
	cursor := services.NewCursorStore(app.rw, app.ro, rm, c.MinContractID)
	creds := services.NewCredentialStore(app.rw, app.ro, rm)

	seeded, err := labels.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed labels: %w", err)
	}
	if seeded > 0 {
		app.logger.Info(ctx, "default labels created", "count", seeded)
	}

	reg := prometheus.NewRegistry()
	if c.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.New(c.MetricsEnabled, reg)

	var arch archive.Archiver = archive.Noop{}
	if c.ArchiveEnabled() {
		arch, err = archive.NewS3Archiver(ctx, archive.Options{
			Bucket:    c.ArchiveBucket,
			Region:    c.ArchiveRegion,
			Endpoint:  c.ArchiveEndpoint,
			AccessKey: c.ArchiveAccessKey,
			SecretKey: c.ArchiveSecretKey,
			Prefix:    "casely",
		})
		if err != nil {
			return fmt.Errorf("archive init error: %w", err)
		}
		app.logger.Info(ctx, "archiving payloads to S3", "bucket", c.ArchiveBucket)
	}

	client, err := origin.NewClient(origin.Options{
		BaseURL:   c.OriginBaseURL,
		Timeout:   c.HTTPTimeout,
		UserAgent: userAgent,
		Observer:  creds,
		Requests:  m,
		Logger:    app.logger,
	})
	if err != nil {
		return fmt.Errorf("origin client init error: %w", err)
	}

	app.poller = polling.New(polling.Config{
		PageSize:      c.PageSize,
		ItemDelay:     c.ItemDelay,
		PageDelay:     c.PageDelay,
		RefreshTTL:    c.RefreshTTL,
		RefreshBatch:  c.RefreshBatch,
		CycleInterval: c.CycleInterval,
	}, polling.Deps{
		Fetcher:     client,
		Contracts:   contracts,
		Cursor:      cursor,
		Credentials: creds,
		Archiver:    arch,
		Metrics:     m,
		Logger:      app.logger,
	})

	opts := httpapi.Options{
		Address:     c.ListenAddr,
		StaticDir:   c.StaticDir,
		Contracts:   contracts,
		Labels:      labels,
		Credentials: creds,
		Cursor:      cursor,
		Poller:      app.poller,
		Metrics:     m,
		Logger:      app.logger,
	}
	if c.MetricsEnabled {
		opts.MetricsHandler = metrics.Handler(reg)
	}
	app.http = httpapi.NewServer(opts)

	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or the
// HTTP server fails. The poller finishes its current batch before the
// database handles are closed.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.poller.Start(ctx); err != nil {
		app.logger.Error(ctx, "poller start failed", "error", err)
		cancelFunc()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	wg.Wait()
	app.poller.Stop()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	app.close()
}

func (app *App) close() {
	if app.ro != nil {
		_ = app.ro.Close()
	}
	if app.rw != nil {
		_ = app.rw.Close()
	}
	if app.logCloser != nil {
		_ = app.logCloser.Close()
	}
}
