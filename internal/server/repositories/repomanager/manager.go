package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/qsolog/internal/dbx"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/archives"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Qsos(db dbx.DBTX) qsos.Repository
	Archives(db dbx.DBTX) archives.Repository
}
