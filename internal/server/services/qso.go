package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/dbx"
	sc "github.com/dmitrijs2005/qsolog/internal/server/config"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/qsolog/internal/server/validation"
	"github.com/google/uuid"
)

// QsoService runs the create/update/delete workflow around the repository:
// band check, mode rules, then (create only) duplicate detection.
type QsoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
	newID       func() string
}

func NewQsoService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config) *QsoService {
	return &QsoService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// WithClock replaces the time source used for CreatedAt/UpdatedAt.
func (s *QsoService) WithClock(now func() time.Time) *QsoService {
	s.now = now
	return s
}

// timestamp returns the current time at the precision Postgres keeps.
func (s *QsoService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// validate checks the band and mode configuration. On success the band is
// rewritten to its catalog spelling.
func validate(f *models.QsoFields) error {
	band, ok := validation.CanonicalBand(f.Band)
	if !ok {
		return &BandError{Band: f.Band}
	}
	f.Band = band

	if v := validation.ValidateModeConfiguration(f.Mode, f.Submode, f.CustomMode); len(v) > 0 {
		return &ModeError{Violations: v}
	}
	return nil
}

// Create validates f and stores a new record for ownerID. Unless
// confirmDuplicate is set, an existing record with the same callsign, date,
// band and mode aborts the call with *DuplicateError and nothing is written.
func (s *QsoService) Create(ctx context.Context, ownerID string, f models.QsoFields, confirmDuplicate bool) (*models.Qso, error) {
	if err := validate(&f); err != nil {
		return nil, err
	}

	repo := s.repomanager.Qsos(s.db)

	if ShouldCheck(confirmDuplicate) {
		ids, err := NewDuplicateDetector(repo).FindConflicts(ctx, ownerID, f.TheirCallsign, f.QsoDate, f.Band, f.Mode)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return nil, &DuplicateError{ExistingIDs: ids}
		}
	}

	q := models.NewQso(s.newID(), ownerID, f, s.timestamp())
	if err := repo.Save(ctx, &q); err != nil {
		return nil, fmt.Errorf("error creating qso: %w", err)
	}

	return &q, nil
}

// Update replaces every editable field of the record, applies the non-zero
// statuses of patch and stamps UpdatedAt. Records not owned by ownerID are
// reported as common.ErrorNotFound.
func (s *QsoService) Update(ctx context.Context, id, ownerID string, f models.QsoFields, patch models.StatusPatch) (*models.Qso, error) {
	if err := validate(&f); err != nil {
		return nil, err
	}

	var updated models.Qso
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Qsos(tx)

		existing, err := repo.FindByIDAndUser(ctx, id, ownerID)
		if err != nil {
			return err
		}

		updated = existing.ApplyUpdate(f, patch, s.timestamp())
		return repo.Save(ctx, &updated)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating qso: %w", err)
	}

	return &updated, nil
}

// Delete removes a record owned by ownerID.
func (s *QsoService) Delete(ctx context.Context, id, ownerID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Qsos(tx)

		if _, err := repo.FindByIDAndUser(ctx, id, ownerID); err != nil {
			return err
		}
		return repo.DeleteByIDAndUser(ctx, id, ownerID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting qso: %w", err)
	}
	return nil
}

// Get returns the record with id if ownerID owns it, and
// common.ErrorNotFound otherwise.
func (s *QsoService) Get(ctx context.Context, id, ownerID string) (*models.Qso, error) {
	return s.repomanager.Qsos(s.db).FindByIDAndUser(ctx, id, ownerID)
}

// List returns one page of the owner's log, newest first. Page is
// zero-based; a non-positive size falls back to the configured default and
// sizes above the configured maximum are capped.
func (s *QsoService) List(ctx context.Context, ownerID string, f qsos.ListFilter) ([]*models.Qso, error) {
	f.Page, f.Size = s.pageBounds(f.Page, f.Size)
	return s.repomanager.Qsos(s.db).List(ctx, ownerID, f)
}

// Count returns the total number of records in the owner's log.
func (s *QsoService) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.repomanager.Qsos(s.db).CountByUser(ctx, ownerID)
}

func (s *QsoService) pageBounds(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.config.DefaultPageSize
	}
	if s.config.MaxPageSize > 0 && size > s.config.MaxPageSize {
		size = s.config.MaxPageSize
	}
	return page, size
}
