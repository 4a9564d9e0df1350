// Package services contains server-side business logic. ServicioService
// keeps the servicio table and its search index in step; Indexer drains the
// outbox of index writes that could not be applied inline.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/dmitrijs2005/servicios/internal/dbx"
	"github.com/dmitrijs2005/servicios/internal/logging"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/servicios/internal/server/search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EntityName is the entity name reported in alert and error payloads.
const EntityName = "servicio"

const tracerName = "github.com/dmitrijs2005/servicios/internal/server/services"

const (
	msgIDExists = "A new servicio cannot already have an ID"
	msgIDNull   = "Invalid id"
)

// ServicioService implements create/read/update/delete and search for servicios.
type ServicioService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	index       search.Index
	logger      logging.Logger
	tracer      trace.Tracer
}

// NewServicioService wires the service to the primary database and the search index.
func NewServicioService(db *sql.DB, m repomanager.RepositoryManager, index search.Index, logger logging.Logger) *ServicioService {
	return &ServicioService{
		db:          db,
		repomanager: m,
		index:       index,
		logger:      logger.With("module", "services.servicios"),
		tracer:      otel.Tracer(tracerName),
	}
}

// Create stores a new servicio and mirrors it into the search index.
// A servicio that already carries an ID is rejected.
func (s *ServicioService) Create(ctx context.Context, servicio *models.Servicio) (result *models.Servicio, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.Create")
	defer func() { endSpan(span, err) }()

	if servicio.HasID() {
		return nil, common.NewAlertError(msgIDExists, EntityName, "idexists")
	}
	return s.save(ctx, servicio)
}

// Update overwrites the servicio with the given ID, inserting it when absent.
// A servicio without ID is rejected.
func (s *ServicioService) Update(ctx context.Context, servicio *models.Servicio) (result *models.Servicio, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.Update")
	defer func() { endSpan(span, err) }()

	if !servicio.HasID() {
		return nil, common.NewAlertError(msgIDNull, EntityName, "idnull")
	}
	span.SetAttributes(attribute.Int64("servicio.id", *servicio.ID))
	return s.save(ctx, servicio)
}

func (s *ServicioService) save(ctx context.Context, servicio *models.Servicio) (*models.Servicio, error) {
	var (
		saved *models.Servicio
		event *models.IndexEvent
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		saved, err = s.repomanager.Servicios(tx).Save(ctx, servicio)
		if err != nil {
			return err
		}
		event = &models.IndexEvent{ServicioID: *saved.ID, Operation: models.IndexUpsert}
		return s.repomanager.IndexEvents(tx).Enqueue(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("error saving servicio: %w", err)
	}

	s.mirror(ctx, event, saved, func(ctx context.Context) error {
		return s.index.Save(ctx, saved)
	})
	return saved, nil
}

// ListAll returns every servicio ordered by ID.
func (s *ServicioService) ListAll(ctx context.Context) (result []models.Servicio, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.ListAll")
	defer func() { endSpan(span, err) }()

	result, err = s.repomanager.Servicios(s.db).FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing servicios: %w", err)
	}
	return result, nil
}

// GetByID returns the servicio and true, or nil and false when no row has that ID.
func (s *ServicioService) GetByID(ctx context.Context, id int64) (result *models.Servicio, found bool, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.GetByID", trace.WithAttributes(attribute.Int64("servicio.id", id)))
	defer func() { endSpan(span, err) }()

	result, err = s.repomanager.Servicios(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error getting servicio %d: %w", id, err)
	}
	return result, true, nil
}

// DeleteByID removes the servicio from the database and the search index.
// Deleting an unknown ID succeeds.
func (s *ServicioService) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.DeleteByID", trace.WithAttributes(attribute.Int64("servicio.id", id)))
	defer func() { endSpan(span, err) }()

	event := &models.IndexEvent{ServicioID: id, Operation: models.IndexDelete}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Servicios(tx).DeleteByID(ctx, id); err != nil {
			return err
		}
		return s.repomanager.IndexEvents(tx).Enqueue(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("error deleting servicio %d: %w", id, err)
	}

	s.mirror(ctx, event, nil, func(ctx context.Context) error {
		return s.index.DeleteByID(ctx, id)
	})
	return nil
}

// Search runs query against the search index only.
func (s *ServicioService) Search(ctx context.Context, query string) (result []models.Servicio, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.Search", trace.WithAttributes(attribute.String("search.query", query)))
	defer func() { endSpan(span, err) }()

	result, err = s.index.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching servicios: %w", err)
	}
	return result, nil
}

// Reindex rebuilds the search index from the database and returns the
// number of documents written. Indexes that support it are recreated first so
// stale documents do not survive.
func (s *ServicioService) Reindex(ctx context.Context) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, "ServicioService.Reindex")
	defer func() { endSpan(span, err) }()

	if r, ok := s.index.(search.Recreator); ok {
		if err := r.Recreate(ctx); err != nil {
			return 0, fmt.Errorf("error recreating index: %w", err)
		}
	}

	all, err := s.repomanager.Servicios(s.db).FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing servicios: %w", err)
	}

	for i := range all {
		if err := s.index.Save(ctx, &all[i]); err != nil {
			return n, fmt.Errorf("error indexing servicio %d: %w", *all[i].ID, err)
		}
		n++
	}
	s.logger.Info(ctx, "search index rebuilt", "documents", n)
	return n, nil
}

// mirror applies an index write right after the database commit. The event is
// closed only when the row still matches what was written (want, or no row for
// a delete); otherwise a concurrent change may have landed in the index before
// this write, so the event stays pending and the Indexer reconciles it.
func (s *ServicioService) mirror(ctx context.Context, event *models.IndexEvent, want *models.Servicio, apply func(context.Context) error) {
	if err := apply(ctx); err != nil {
		s.logger.Warn(ctx, "search index write failed, left for indexer",
			"servicio_id", event.ServicioID,
			"operation", string(event.Operation),
			"event_id", event.ID,
			"error", err,
		)
		return
	}

	current, err := s.repomanager.Servicios(s.db).FindByID(ctx, event.ServicioID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		current = nil
	case err != nil:
		s.logger.Warn(ctx, "failed to re-read servicio after index write, left for indexer",
			"servicio_id", event.ServicioID, "event_id", event.ID, "error", err)
		return
	}
	if !sameServicio(want, current) {
		s.logger.Warn(ctx, "servicio changed during index write, left for indexer",
			"servicio_id", event.ServicioID,
			"operation", string(event.Operation),
			"event_id", event.ID,
		)
		return
	}

	if err := s.repomanager.IndexEvents(s.db).MarkProcessed(ctx, event.ID); err != nil {
		s.logger.Warn(ctx, "failed to close index event", "event_id", event.ID, "error", err)
	}
}

func sameServicio(a, b *models.Servicio) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.HasID() != b.HasID() || (a.HasID() && *a.ID != *b.ID) {
		return false
	}
	return a.Name == b.Name &&
		a.Description == b.Description &&
		a.Price == b.Price &&
		a.IconKey == b.IconKey &&
		a.Status == b.Status
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
