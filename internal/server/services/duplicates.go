package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
)

// DuplicateDetector finds existing records of the same owner sharing
// callsign, date, band and mode with a candidate. Time of day is not
// compared and the callsign match is case-sensitive.
//
// Detection is advisory: nothing stops a concurrent identical insert from
// landing between the check and the write.
type DuplicateDetector struct {
	repo qsos.Repository
}

func NewDuplicateDetector(repo qsos.Repository) *DuplicateDetector {
	return &DuplicateDetector{repo: repo}
}

// FindConflicts returns the ids of colliding records, oldest first.
func (d *DuplicateDetector) FindConflicts(ctx context.Context, ownerID, callsign string, date time.Time, band string, mode models.Mode) ([]string, error) {
	found, err := d.repo.FindPotentialDuplicates(ctx, ownerID, callsign, date, band, mode)
	if err != nil {
		return nil, fmt.Errorf("find potential duplicates: %w", err)
	}

	ids := make([]string, 0, len(found))
	for _, q := range found {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

// ShouldCheck reports whether detection runs for a request. An explicit
// override skips it.
func ShouldCheck(override bool) bool {
	return !override
}
