package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/logging"
	"github.com/dmitrijs2005/qsolog/internal/server/export"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// FilePrefix starts every export file name.
const FilePrefix = "qsolog"

const archiveContentType = "application/zstd"

// ArchiveStore keeps compressed exports and signs download links for them.
type ArchiveStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key, filename string) (string, time.Time, error)
}

// ArchiveResult is a stored archive with a fresh download link.
type ArchiveResult struct {
	Archive   *models.ExportArchive
	Filename  string
	URL       string
	ExpiresAt time.Time
}

// ExportService renders a log as ADIF or CSV, either streamed to the caller
// or compressed into an object-storage archive.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ArchiveStore
	log         logging.Logger
	now         func() time.Time
}

func NewExportService(db *sql.DB, repomanager repomanager.RepositoryManager, store ArchiveStore, log logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: repomanager,
		store:       store,
		log:         log,
		now:         time.Now,
	}
}

// Stream returns the lazily encoded export of the owner's records within r,
// ordered by date and time ascending.
func (s *ExportService) Stream(ctx context.Context, ownerID string, format export.Format, r models.DateRange) iter.Seq2[string, error] {
	src := s.repomanager.Qsos(s.db).StreamForExport(ctx, ownerID, r)
	return export.Encode(export.CodecFor(format), src)
}

func (s *ExportService) ADIF(ctx context.Context, ownerID string, r models.DateRange) iter.Seq2[string, error] {
	return s.Stream(ctx, ownerID, export.FormatADIF, r)
}

func (s *ExportService) CSV(ctx context.Context, ownerID string, r models.DateRange) iter.Seq2[string, error] {
	return s.Stream(ctx, ownerID, export.FormatCSV, r)
}

// Filename builds the download name for an export, e.g.
// qsolog_20240101-20240131.adi or qsolog_from_20240101.csv.
func Filename(prefix string, r models.DateRange, ext string) string {
	const layout = "20060102"
	switch {
	case r.HasFrom() && r.HasTo():
		return fmt.Sprintf("%s_%s-%s.%s", prefix, r.From.Format(layout), r.To.Format(layout), ext)
	case r.HasFrom():
		return fmt.Sprintf("%s_from_%s.%s", prefix, r.From.Format(layout), ext)
	case r.HasTo():
		return fmt.Sprintf("%s_to_%s.%s", prefix, r.To.Format(layout), ext)
	default:
		return fmt.Sprintf("%s.%s", prefix, ext)
	}
}

func archiveKey(ownerID, id, filename string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%04d/%02d/%02d/%s/%s", ownerID, at.Year(), at.Month(), at.Day(), id, filename)
}

// Archive writes the export through zstd into a temporary file, uploads it
// and returns a presigned download link. The ledger row is created before
// the upload and marked completed after it.
func (s *ExportService) Archive(ctx context.Context, ownerID string, format export.Format, r models.DateRange) (*ArchiveResult, error) {
	now := s.now().UTC()
	id := uuid.New().String()
	filename := Filename(FilePrefix, r, format.Extension()) + ".zst"

	tmp, err := os.CreateTemp("", "qsolog-export-*.zst")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	raw, err := compress(tmp, s.Stream(ctx, ownerID, format, r))
	if err != nil {
		return nil, err
	}

	size, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("size temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}

	a := &models.ExportArchive{
		ID:           id,
		UserID:       ownerID,
		ObjectKey:    archiveKey(ownerID, id, filename, now),
		Format:       string(format),
		Dates:        r,
		UploadStatus: models.UploadStatusPending,
		CreatedAt:    now.Truncate(time.Microsecond),
	}

	repo := s.repomanager.Archives(s.db)
	if err := repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("error creating archive record: %w", err)
	}

	if err := s.store.Put(ctx, a.ObjectKey, tmp, size, archiveContentType); err != nil {
		s.log.Error(ctx, "archive upload failed", "archive_id", id, "key", a.ObjectKey, "error", err)
		return nil, err
	}

	if err := repo.MarkUploaded(ctx, id, size); err != nil {
		return nil, fmt.Errorf("error marking archive uploaded: %w", err)
	}
	a.SizeBytes = size
	a.UploadStatus = models.UploadStatusCompleted

	s.log.Info(ctx, "export archive stored", "archive_id", id, "format", format, "raw_bytes", raw, "stored_bytes", size)

	return s.presign(ctx, a)
}

// compress encodes chunks into w and returns the uncompressed byte count.
func compress(w io.Writer, chunks iter.Seq2[string, error]) (int64, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}

	n, err := export.WriteTo(zw, chunks)
	if err != nil {
		_ = zw.Close()
		return n, err
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("close zstd writer: %w", err)
	}
	return n, nil
}

// ListArchives returns the owner's completed archives, newest first.
func (s *ExportService) ListArchives(ctx context.Context, ownerID string) ([]*models.ExportArchive, error) {
	return s.repomanager.Archives(s.db).ListByUser(ctx, ownerID)
}

// ArchiveURL signs a new download link for a completed archive of ownerID.
func (s *ExportService) ArchiveURL(ctx context.Context, ownerID, id string) (*ArchiveResult, error) {
	a, err := s.repomanager.Archives(s.db).GetByIDAndUser(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	// A pending row has no object behind it yet.
	if a.UploadStatus != models.UploadStatusCompleted {
		return nil, common.ErrorNotFound
	}
	return s.presign(ctx, a)
}

func (s *ExportService) presign(ctx context.Context, a *models.ExportArchive) (*ArchiveResult, error) {
	filename := path.Base(a.ObjectKey)
	url, expires, err := s.store.PresignGet(ctx, a.ObjectKey, filename)
	if err != nil {
		return nil, fmt.Errorf("error presigning archive: %w", err)
	}
	return &ArchiveResult{Archive: a, Filename: filename, URL: url, ExpiresAt: expires}, nil
}
