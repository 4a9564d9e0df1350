// Package search mirrors servicios into an Elasticsearch index and runs
// full-text queries against it.
package search

import (
	"context"

	"github.com/dmitrijs2005/servicios/internal/server/models"
)

// Index is the secondary, eventually consistent copy of the servicio table.
type Index interface {
	Save(ctx context.Context, servicio *models.Servicio) error
	DeleteByID(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]models.Servicio, error)
}

// Ensure *ElasticIndex implements Index at compile time.
var _ Index = (*ElasticIndex)(nil)

// Recreator is implemented by indexes that can be dropped and rebuilt empty.
type Recreator interface {
	Recreate(ctx context.Context) error
}

var _ Recreator = (*ElasticIndex)(nil)
