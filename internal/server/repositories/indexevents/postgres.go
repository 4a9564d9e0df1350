// Package indexevents provides the PostgreSQL-backed outbox that records
// servicio changes still to be mirrored into the search index.
package indexevents

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/servicios/internal/dbx"
	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements the outbox over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Enqueue stores a pending event. An empty event ID is filled with a new UUID.
func (r *PostgresRepository) Enqueue(ctx context.Context, event *models.IndexEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `INSERT INTO index_events (id, service_id, operation) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, event.ID, event.ServicioID, string(event.Operation)); err != nil {
		return fmt.Errorf("enqueue index event: %w", err)
	}
	return nil
}

// FetchPending returns up to limit unprocessed events that have failed fewer
// than maxAttempts times, oldest first.
func (r *PostgresRepository) FetchPending(ctx context.Context, limit int, maxAttempts int) ([]*models.IndexEvent, error) {
	query := `
		SELECT id, service_id, operation, attempts, last_error, created_at
		FROM index_events
		WHERE processed_at IS NULL AND attempts < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select index events: %w", err)
	}
	defer rows.Close()

	var result []*models.IndexEvent
	for rows.Next() {
		var (
			e  models.IndexEvent
			op string
		)
		if err := rows.Scan(&e.ID, &e.ServicioID, &op, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Operation = models.IndexOperation(op)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE index_events SET processed_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark index event processed: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and records the cause.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, cause string) error {
	query := `UPDATE index_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, cause); err != nil {
		return fmt.Errorf("mark index event failed: %w", err)
	}
	return nil
}

// DeleteProcessedBefore purges processed events older than before and
// returns how many rows went away.
func (r *PostgresRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM index_events WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge index events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
