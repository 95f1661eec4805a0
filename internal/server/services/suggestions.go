package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
)

const (
	nameMarker      = "name:"
	snippetMaxRunes = 100
)

// Suggestion pre-fills a new entry from earlier contacts with a callsign.
// Empty strings mean "unknown".
type Suggestion struct {
	Callsign         string
	LastKnownName    string
	LastKnownQth     string
	LastNotesSnippet string
	MostCommonBand   string
	MostCommonMode   models.Mode
}

type SuggestionsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSuggestionsService(db *sql.DB, repomanager repomanager.RepositoryManager) *SuggestionsService {
	return &SuggestionsService{db: db, repomanager: repomanager}
}

// Suggest looks up the owner's history with callsign, matched without
// regard to case. Without any earlier contact it returns common.ErrorNotFound.
func (s *SuggestionsService) Suggest(ctx context.Context, ownerID, callsign string) (*Suggestion, error) {
	repo := s.repomanager.Qsos(s.db)

	recent, err := repo.MostRecentByCallsign(ctx, ownerID, callsign)
	if err != nil {
		return nil, err
	}

	band, err := repo.MostCommonBand(ctx, ownerID, callsign)
	if err != nil {
		return nil, fmt.Errorf("most common band: %w", err)
	}
	mode, err := repo.MostCommonMode(ctx, ownerID, callsign)
	if err != nil {
		return nil, fmt.Errorf("most common mode: %w", err)
	}

	return &Suggestion{
		Callsign:         strings.ToUpper(callsign),
		LastKnownName:    nameFromNotes(recent.Notes),
		LastKnownQth:     recent.Qth,
		LastNotesSnippet: snippet(recent.Notes),
		MostCommonBand:   band,
		MostCommonMode:   mode,
	}, nil
}

// nameFromNotes returns the text after a "name:" marker (any case) up to the
// end of that line.
func nameFromNotes(notes string) string {
	for i := 0; i+len(nameMarker) <= len(notes); i++ {
		if !strings.EqualFold(notes[i:i+len(nameMarker)], nameMarker) {
			continue
		}
		rest := notes[i+len(nameMarker):]
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return ""
}

func snippet(notes string) string {
	r := []rune(notes)
	if len(r) <= snippetMaxRunes {
		return notes
	}
	return string(r[:snippetMaxRunes-3]) + "..."
}
