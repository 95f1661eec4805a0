package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/qsolog/internal/dbx"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
)

// StatsSummary aggregates a log over a date range. A record counts as
// confirmed when any of its channels is CONFIRMED.
type StatsSummary struct {
	ByBand []qsos.GroupCount
	ByMode []qsos.GroupCount
	ByDay  []qsos.DayCount
	Totals qsos.Totals
}

type StatsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewStatsService(db *sql.DB, repomanager repomanager.RepositoryManager) *StatsService {
	return &StatsService{db: db, repomanager: repomanager}
}

// Summary computes every aggregate inside one read-only snapshot so the
// per-band, per-mode and per-day counts add up to the totals.
func (s *StatsService) Summary(ctx context.Context, ownerID string, r models.DateRange) (*StatsSummary, error) {
	var sum StatsSummary

	err := dbx.WithSnapshot(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Qsos(tx)

		var err error
		if sum.ByBand, err = repo.StatsByBand(ctx, ownerID, r); err != nil {
			return fmt.Errorf("stats by band: %w", err)
		}
		if sum.ByMode, err = repo.StatsByMode(ctx, ownerID, r); err != nil {
			return fmt.Errorf("stats by mode: %w", err)
		}
		if sum.ByDay, err = repo.StatsByDay(ctx, ownerID, r); err != nil {
			return fmt.Errorf("stats by day: %w", err)
		}
		if sum.Totals, err = repo.Totals(ctx, ownerID, r); err != nil {
			return fmt.Errorf("stats totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
