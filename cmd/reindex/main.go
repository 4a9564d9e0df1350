// Command reindex drops the servicio search index and rebuilds it from the
// database. It takes the same configuration as the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/config"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/servicios/internal/server/search"
	"github.com/dmitrijs2005/servicios/internal/server/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel).With("module", "reindex")

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "reindex failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	es, err := search.NewClient(cfg.ElasticsearchURLs, cfg.ElasticsearchUsername, cfg.ElasticsearchPassword)
	if err != nil {
		return err
	}
	index := search.NewElasticIndex(es, cfg.SearchIndexName, search.Options{
		MaxResults: cfg.SearchMaxResults,
		Refresh:    cfg.SearchRefresh,
	})

	n, err := services.NewServicioService(db, rm, index, logger).Reindex(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "reindex complete", "index", index.Name(), "documents", n)
	return nil
}
