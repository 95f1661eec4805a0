// Package archives provides the PostgreSQL ledger of export archives that
// were uploaded to object storage.
package archives

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/dbx"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresRepository implements archive storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new archive row, normally in the pending state.
func (r *PostgresRepository) Create(ctx context.Context, a *models.ExportArchive) error {
	query := `
		INSERT INTO export_archives (id, user_id, object_key, format, date_from, date_to, size_bytes, upload_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.ObjectKey, a.Format, date(a.Dates.From), date(a.Dates.To), a.SizeBytes, a.UploadStatus, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MarkUploaded flips the archive to completed and records its final size.
// Exactly one row must be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string, size int64) error {
	query := `UPDATE export_archives SET upload_status = 'completed', size_bytes = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, size)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

// ListByUser returns the user's completed archives, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.ExportArchive, error) {
	query := `SELECT id, user_id, object_key, format, date_from, date_to, size_bytes, upload_status, created_at
		FROM export_archives
		WHERE user_id = $1 AND upload_status = 'completed'
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select archives: %w", err)
	}
	defer rows.Close()

	var result []*models.ExportArchive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIDAndUser returns one archive row if it belongs to userID.
func (r *PostgresRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.ExportArchive, error) {
	query := `SELECT id, user_id, object_key, format, date_from, date_to, size_bytes, upload_status, created_at
		FROM export_archives
		WHERE id = $1 AND user_id = $2`

	a, err := scanArchive(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select archive: %w", err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArchive(s scanner) (*models.ExportArchive, error) {
	var a models.ExportArchive
	var from, to pgtype.Date
	if err := s.Scan(&a.ID, &a.UserID, &a.ObjectKey, &a.Format, &from, &to, &a.SizeBytes, &a.UploadStatus, &a.CreatedAt); err != nil {
		return nil, err
	}
	if from.Valid {
		a.Dates.From = from.Time
	}
	if to.Valid {
		a.Dates.To = to.Time
	}
	return &a, nil
}

func date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}
