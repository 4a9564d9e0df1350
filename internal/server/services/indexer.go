package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/servicios/internal/server/search"
	"github.com/sethvargo/go-retry"
)

// processedRetention is how long closed outbox events are kept before purge.
const processedRetention = 24 * time.Hour

// IndexerOptions controls polling and retry behaviour of an Indexer.
type IndexerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts is the number of failed passes after which an event is
	// no longer picked up.
	MaxAttempts int
	// RetryBase is the first delay of the in-pass exponential backoff.
	RetryBase time.Duration
	// RetriesPerPass bounds the backoff retries inside a single pass.
	RetriesPerPass uint64
}

// Indexer replays pending outbox events against the search index.
type Indexer struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	index       search.Index
	logger      logging.Logger
	opts        IndexerOptions
	now         func() time.Time
}

// NewIndexer constructs an Indexer. Zero options fall back to defaults.
func NewIndexer(db *sql.DB, m repomanager.RepositoryManager, index search.Index, logger logging.Logger, opts IndexerOptions) *Indexer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 100 * time.Millisecond
	}
	if opts.RetriesPerPass == 0 {
		opts.RetriesPerPass = 3
	}
	return &Indexer{
		db:          db,
		repomanager: m,
		index:       index,
		logger:      logger.With("module", "services.indexer"),
		opts:        opts,
		now:         time.Now,
	}
}

// Run polls the outbox until ctx is cancelled.
func (i *Indexer) Run(ctx context.Context) {
	i.logger.Info(ctx, "indexer started", "poll_interval", i.opts.PollInterval.String())

	ticker := time.NewTicker(i.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			i.logger.Info(ctx, "indexer stopped")
			return
		case <-ticker.C:
			if _, err := i.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				i.logger.Error(ctx, "indexer pass failed", "error", err)
			}
			if _, err := i.Purge(ctx); err != nil && ctx.Err() == nil {
				i.logger.Error(ctx, "indexer purge failed", "error", err)
			}
		}
	}
}

// ProcessPending applies one batch of pending events and returns how many
// were applied successfully.
func (i *Indexer) ProcessPending(ctx context.Context) (int, error) {
	events := i.repomanager.IndexEvents(i.db)

	pending, err := events.FetchPending(ctx, i.opts.BatchSize, i.opts.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("error fetching pending index events: %w", err)
	}

	applied := 0
	for _, e := range pending {
		backoff := retry.WithMaxRetries(i.opts.RetriesPerPass, retry.NewExponential(i.opts.RetryBase))

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := i.apply(ctx, e); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return applied, ctx.Err()
			}
			i.logger.Warn(ctx, "index event failed",
				"event_id", e.ID,
				"servicio_id", e.ServicioID,
				"attempts", e.Attempts+1,
				"error", err,
			)
			if err := events.MarkFailed(ctx, e.ID, err.Error()); err != nil {
				return applied, err
			}
			continue
		}

		if err := events.MarkProcessed(ctx, e.ID); err != nil {
			return applied, err
		}
		applied++
	}

	if applied > 0 {
		i.logger.Debug(ctx, "index events applied", "count", applied)
	}
	return applied, nil
}

// Purge removes processed events older than the retention window.
func (i *Indexer) Purge(ctx context.Context) (int64, error) {
	return i.repomanager.IndexEvents(i.db).DeleteProcessedBefore(ctx, i.now().Add(-processedRetention))
}

// apply brings the index in line with the current database row, whatever
// the queued operation was. An upsert of a row deleted after it was queued
// removes the document; a delete of a row written again since is re-saved.
func (i *Indexer) apply(ctx context.Context, e *models.IndexEvent) error {
	switch e.Operation {
	case models.IndexUpsert, models.IndexDelete:
	default:
		return fmt.Errorf("unknown index operation %q", e.Operation)
	}

	servicio, err := i.repomanager.Servicios(i.db).FindByID(ctx, e.ServicioID)
	if errors.Is(err, common.ErrorNotFound) {
		return i.index.DeleteByID(ctx, e.ServicioID)
	}
	if err != nil {
		return err
	}
	return i.index.Save(ctx, servicio)
}
