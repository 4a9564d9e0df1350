package models

import "time"

// IndexOperation tells the indexer what to do with a servicio document.
type IndexOperation string

const (
	// IndexUpsert re-reads the row and writes it to the search index.
	IndexUpsert IndexOperation = "upsert"
	// IndexDelete removes the document from the search index.
	IndexDelete IndexOperation = "delete"
)

// IndexEvent is an outbox row recording that a servicio change still has to
// reach the search index.
type IndexEvent struct {
	ID          string         `db:"id"`
	ServicioID  int64          `db:"service_id"`
	Operation   IndexOperation `db:"operation"`
	Attempts    int            `db:"attempts"`
	LastError   string         `db:"last_error"`
	CreatedAt   time.Time      `db:"created_at"`
	ProcessedAt *time.Time     `db:"processed_at"`
}
