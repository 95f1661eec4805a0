package archives

import (
	"context"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.ExportArchive) error
	MarkUploaded(ctx context.Context, id string, size int64) error
	ListByUser(ctx context.Context, userID string) ([]*models.ExportArchive, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.ExportArchive, error)
}
