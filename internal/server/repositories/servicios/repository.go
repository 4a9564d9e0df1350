package servicios

import (
	"context"

	"github.com/dmitrijs2005/servicios/internal/server/models"
)

// Repository is the authoritative store for servicios.
type Repository interface {
	Save(ctx context.Context, servicio *models.Servicio) (*models.Servicio, error)
	FindAll(ctx context.Context) ([]models.Servicio, error)
	FindByID(ctx context.Context, id int64) (*models.Servicio, error)
	DeleteByID(ctx context.Context, id int64) error
}
