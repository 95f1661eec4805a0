package qsos

import (
	"context"
	"iter"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

// ListFilter narrows List results. Zero fields are ignored.
type ListFilter struct {
	// Callsign matches as a case-insensitive substring.
	Callsign string
	Band     string
	Dates    models.DateRange
	Page     int
	Size     int
}

// GroupCount is a per-key aggregate row.
type GroupCount struct {
	Key       string
	Total     int64
	Confirmed int64
}

// DayCount is a per-day aggregate row.
type DayCount struct {
	Day       time.Time
	Total     int64
	Confirmed int64
}

// Totals aggregates every QSO in a range.
type Totals struct {
	Total     int64
	Confirmed int64
}

type Repository interface {
	Save(ctx context.Context, q *models.Qso) error
	FindByIDAndUser(ctx context.Context, id, userID string) (*models.Qso, error)
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
	FindPotentialDuplicates(ctx context.Context, userID, callsign string, date time.Time, band string, mode models.Mode) ([]*models.Qso, error)
	List(ctx context.Context, userID string, f ListFilter) ([]*models.Qso, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	StreamForExport(ctx context.Context, userID string, r models.DateRange) iter.Seq2[*models.Qso, error]

	StatsByBand(ctx context.Context, userID string, r models.DateRange) ([]GroupCount, error)
	StatsByMode(ctx context.Context, userID string, r models.DateRange) ([]GroupCount, error)
	StatsByDay(ctx context.Context, userID string, r models.DateRange) ([]DayCount, error)
	Totals(ctx context.Context, userID string, r models.DateRange) (Totals, error)

	MostRecentByCallsign(ctx context.Context, userID, callsign string) (*models.Qso, error)
	MostCommonBand(ctx context.Context, userID, callsign string) (string, error)
	MostCommonMode(ctx context.Context, userID, callsign string) (models.Mode, error)
}
