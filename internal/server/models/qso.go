// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	// DateLayout is the wire and CSV layout of QsoDate.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire and CSV layout of TimeOn.
	TimeLayout = "15:04:05"
)

// Qso is one logged two-way radio contact owned by a single operator.
//
// Values are treated as immutable once built: updates go through
// ApplyUpdate, which returns a new value.
type Qso struct {
	ID     string
	UserID string

	TheirCallsign string
	// QsoDate is the calendar date of the contact at UTC midnight.
	QsoDate time.Time
	// TimeOn is the time of day; only the clock part is meaningful.
	TimeOn time.Time
	Band   string
	// FrequencyKHz is absent when Valid is false.
	FrequencyKHz pgtype.Numeric

	Mode       Mode
	Submode    Submode
	CustomMode string

	RstSent    string
	RstRecv    string
	Qth        string
	GridSquare string
	Notes      string

	QslStatus  ConfirmationStatus
	LotwStatus ConfirmationStatus
	EqslStatus ConfirmationStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QsoFields carries the operator-editable part of a Qso.
type QsoFields struct {
	TheirCallsign string
	QsoDate       time.Time
	TimeOn        time.Time
	Band          string
	FrequencyKHz  pgtype.Numeric
	Mode          Mode
	Submode       Submode
	CustomMode    string
	RstSent       string
	RstRecv       string
	Qth           string
	GridSquare    string
	Notes         string
}

// StatusPatch optionally overrides confirmation statuses. Zero fields are
// left unchanged.
type StatusPatch struct {
	Qsl  ConfirmationStatus
	Lotw ConfirmationStatus
	Eqsl ConfirmationStatus
}

// NewQso builds a new record with initial confirmation statuses and both
// timestamps set to now.
func NewQso(id, userID string, f QsoFields, now time.Time) Qso {
	q := Qso{
		ID:         id,
		UserID:     userID,
		QslStatus:  ChannelQSL.Initial(),
		LotwStatus: ChannelLoTW.Initial(),
		EqslStatus: ChannelEQSL.Initial(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	q.setFields(f)
	return q
}

// ApplyUpdate returns a copy of q with every editable field replaced by f,
// non-zero statuses from p applied and UpdatedAt stamped with now.
// Identity, owner and CreatedAt are preserved.
func (q Qso) ApplyUpdate(f QsoFields, p StatusPatch, now time.Time) Qso {
	next := q
	next.setFields(f)
	if p.Qsl.IsSet() {
		next.QslStatus = p.Qsl
	}
	if p.Lotw.IsSet() {
		next.LotwStatus = p.Lotw
	}
	if p.Eqsl.IsSet() {
		next.EqslStatus = p.Eqsl
	}
	next.UpdatedAt = now
	return next
}

// Fields extracts the editable part of q.
func (q Qso) Fields() QsoFields {
	return QsoFields{
		TheirCallsign: q.TheirCallsign,
		QsoDate:       q.QsoDate,
		TimeOn:        q.TimeOn,
		Band:          q.Band,
		FrequencyKHz:  q.FrequencyKHz,
		Mode:          q.Mode,
		Submode:       q.Submode,
		CustomMode:    q.CustomMode,
		RstSent:       q.RstSent,
		RstRecv:       q.RstRecv,
		Qth:           q.Qth,
		GridSquare:    q.GridSquare,
		Notes:         q.Notes,
	}
}

// IsConfirmed reports whether any channel has confirmed the contact.
func (q Qso) IsConfirmed() bool {
	return q.QslStatus == StatusConfirmed || q.LotwStatus == StatusConfirmed || q.EqslStatus == StatusConfirmed
}

func (q *Qso) setFields(f QsoFields) {
	q.TheirCallsign = f.TheirCallsign
	q.QsoDate = f.QsoDate
	q.TimeOn = f.TimeOn
	q.Band = f.Band
	q.FrequencyKHz = f.FrequencyKHz
	q.Mode = f.Mode
	q.Submode = f.Submode
	q.CustomMode = f.CustomMode
	q.RstSent = f.RstSent
	q.RstRecv = f.RstRecv
	q.Qth = f.Qth
	q.GridSquare = f.GridSquare
	q.Notes = f.Notes
}

// Date returns the calendar date y-m-d at UTC midnight.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clock returns a time-of-day value for h:m:s.
func Clock(h, m, s int) time.Time {
	return time.Date(0, time.January, 1, h, m, s, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, common.ErrorValidation)
	}
	return t, nil
}

// ParseClock parses HH:MM:SS or HH:MM.
func ParseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: %w", s, common.ErrorValidation)
}

// ClockFromPg converts a database time-of-day into a Clock value.
func ClockFromPg(t pgtype.Time) time.Time {
	secs := t.Microseconds / 1_000_000
	return Clock(int(secs/3600), int(secs%3600/60), int(secs%60))
}

// ClockToPg converts a Clock value into a database time-of-day.
func ClockToPg(t time.Time) pgtype.Time {
	secs := int64(t.Hour()*3600 + t.Minute()*60 + t.Second())
	return pgtype.Time{Microseconds: secs * 1_000_000, Valid: true}
}
