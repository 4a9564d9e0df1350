package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/servicios/internal/dbx"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/indexevents"
	"github.com/dmitrijs2005/servicios/internal/server/repositories/servicios"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Servicios(db dbx.DBTX) servicios.Repository
	IndexEvents(db dbx.DBTX) indexevents.Repository
}
