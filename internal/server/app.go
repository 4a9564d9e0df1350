// Package server initializes and runs the servicios application: the REST
// API, the gRPC health endpoint and the background search indexer, all
// stopped together on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/config"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/servicios/internal/server/search"
	"github.com/dmitrijs2005/servicios/internal/server/services"
	"github.com/dmitrijs2005/servicios/internal/server/telemetry"

	gs "github.com/dmitrijs2005/servicios/internal/server/grpc"
	hs "github.com/dmitrijs2005/servicios/internal/server/http"
)

var (
	setupTracing = telemetry.Setup
	openDB       = repomanager.OpenPostgres
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	index           *search.ElasticIndex
	servicioService *services.ServicioService
	iconService     *services.IconService
	indexer         *services.Indexer
	shutdownTracing func(context.Context) error
}

func NewApp(ctx context.Context, c *config.Config) (app *App, err error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	shutdownTracing, err := setupTracing(ctx, c.ApplicationName, c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}
	defer func() {
		if err != nil {
			if serr := shutdownTracing(ctx); serr != nil {
				logger.Error(ctx, "tracing shutdown failed", "error", serr)
			}
		}
	}()

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	es, err := search.NewClient(c.ElasticsearchURLs, c.ElasticsearchUsername, c.ElasticsearchPassword)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	index := search.NewElasticIndex(es, c.SearchIndexName, search.Options{
		MaxResults: c.SearchMaxResults,
		Refresh:    c.SearchRefresh,
	})
	if err := index.EnsureIndex(ctx); err != nil {
		// writes still land in the outbox; the indexer catches up later
		logger.Warn(ctx, "search index not ready", "index", c.SearchIndexName, "error", err)
	}

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		index:           index,
		servicioService: services.NewServicioService(db, rm, index, logger),
		iconService:     services.NewIconService(c),
		indexer: services.NewIndexer(db, rm, index, logger, services.IndexerOptions{
			PollInterval: c.IndexerPollInterval,
			BatchSize:    c.IndexerBatchSize,
			MaxAttempts:  c.IndexerMaxAttempts,
		}),
		shutdownTracing: shutdownTracing,
	}, nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.config.HealthCheckInterval,
		gs.Probe{Name: "postgres", Check: app.db.PingContext},
		gs.Probe{Name: "elasticsearch", Check: app.index.Ping},
	)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.config.ApplicationName, app.logger,
		app.servicioService, app.iconService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.indexer.Run(ctx)
	}()

	wg.Wait()

	app.close()
}

func (app *App) close() {
	ctx := context.Background()
	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error(ctx, "tracing shutdown failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
