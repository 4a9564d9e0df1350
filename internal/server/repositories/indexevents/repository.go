package indexevents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/servicios/internal/server/models"
)

// Repository is the outbox of servicio changes waiting to reach the search index.
type Repository interface {
	Enqueue(ctx context.Context, event *models.IndexEvent) error
	FetchPending(ctx context.Context, limit int, maxAttempts int) ([]*models.IndexEvent, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
