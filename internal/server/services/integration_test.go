//go:build integration

// Integration tests against real PostgreSQL and Elasticsearch containers.
//
//	go test -tags=integration ./internal/server/services/...
//
// Docker must be running.
package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/servicios/internal/server/search"
	"github.com/dmitrijs2005/servicios/internal/server/services"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcelastic "github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type stack struct {
	svc     *services.ServicioService
	indexer *services.Indexer
	index   *search.ElasticIndex
}

func startStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("servicios"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repomanager.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewPostgresRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	esc, err := tcelastic.Run(ctx, "docker.elastic.co/elasticsearch/elasticsearch:8.15.3",
		tcelastic.WithPassword("changeme"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = esc.Terminate(context.Background()) })

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esc.Settings.Address},
		Username:  "elastic",
		Password:  esc.Settings.Password,
		CACert:    esc.Settings.CACert,
	})
	require.NoError(t, err)

	index := search.NewElasticIndex(client, "servicio", search.Options{Refresh: "wait_for"})
	require.NoError(t, index.EnsureIndex(ctx))

	logger := logging.NewJSONLogger(io.Discard, "info")
	return &stack{
		svc:     services.NewServicioService(db, rm, index, logger),
		indexer: services.NewIndexer(db, rm, index, logger, services.IndexerOptions{RetryBase: 10 * time.Millisecond}),
		index:   index,
	}
}

func TestIntegration_CRUDAndSearch(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	created, err := s.svc.Create(ctx, &models.Servicio{Name: "Bus A", Description: "airport shuttle", Price: 15, Status: 1})
	require.NoError(t, err)
	require.NotNil(t, created.ID)
	id := *created.ID

	got, found, err := s.svc.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Bus A", got.Name)

	hits, err := s.svc.Search(ctx, "Bus")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, id, *hits[0].ID)

	_, err = s.svc.Update(ctx, &models.Servicio{ID: &id, Name: "Bus A", Description: "night shuttle", Price: 20, Status: 1})
	require.NoError(t, err)

	hits, err = s.svc.Search(ctx, "description:night")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, s.svc.DeleteByID(ctx, id))

	_, found, err = s.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	hits, err = s.svc.Search(ctx, "Bus")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// delete of an unknown id is still fine
	require.NoError(t, s.svc.DeleteByID(ctx, id))
}

func TestIntegration_UpdateWithExplicitIDAdvancesSequence(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	explicit := int64(500)
	_, err := s.svc.Update(ctx, &models.Servicio{ID: &explicit, Name: "imported"})
	require.NoError(t, err)

	created, err := s.svc.Create(ctx, &models.Servicio{Name: "next"})
	require.NoError(t, err)
	assert.Greater(t, *created.ID, explicit)
}

func TestIntegration_IndexerAndReindex(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	for _, name := range []string{"Bus A", "Bus B", "Taxi"} {
		_, err := s.svc.Create(ctx, &models.Servicio{Name: name})
		require.NoError(t, err)
	}

	// wipe the index behind the service's back, then rebuild
	require.NoError(t, s.index.Recreate(ctx))
	hits, err := s.svc.Search(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := s.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err = s.svc.Search(ctx, "Bus")
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// nothing is left pending after successful inline writes
	applied, err := s.indexer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}
