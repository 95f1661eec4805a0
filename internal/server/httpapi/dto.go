package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/server/export"
	"github.com/dmitrijs2005/qsolog/internal/server/lookup"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/services"
	"github.com/jackc/pgx/v5/pgtype"
)

// qsoRequest is the body of create and update calls. Status fields are
// only read on update; ConfirmDuplicate only on create.
type qsoRequest struct {
	TheirCallsign    string       `json:"theirCallsign"`
	QsoDate          string       `json:"qsoDate"`
	TimeOn           string       `json:"timeOn"`
	Band             string       `json:"band"`
	FrequencyKhz     *json.Number `json:"frequencyKhz"`
	Mode             string       `json:"mode"`
	Submode          string       `json:"submode"`
	CustomMode       string       `json:"customMode"`
	RstSent          string       `json:"rstSent"`
	RstRecv          string       `json:"rstRecv"`
	Qth              string       `json:"qth"`
	GridSquare       string       `json:"gridSquare"`
	Notes            string       `json:"notes"`
	ConfirmDuplicate bool         `json:"confirmDuplicate"`
	QslStatus        string       `json:"qslStatus"`
	LotwStatus       string       `json:"lotwStatus"`
	EqslStatus       string       `json:"eqslStatus"`
}

// fields converts the request into domain fields, collecting every
// structural problem. Band membership and mode rules are left to the
// service.
func (req *qsoRequest) fields() (models.QsoFields, []string) {
	var (
		f    models.QsoFields
		errs []string
	)

	f.TheirCallsign = strings.TrimSpace(req.TheirCallsign)
	if f.TheirCallsign == "" {
		errs = append(errs, "Callsign is required")
	}

	if strings.TrimSpace(req.QsoDate) == "" {
		errs = append(errs, "QSO date is required")
	} else if d, err := models.ParseDate(req.QsoDate); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid qsoDate '%s': expected YYYY-MM-DD", req.QsoDate))
	} else {
		f.QsoDate = d
	}

	if strings.TrimSpace(req.TimeOn) == "" {
		errs = append(errs, "Time on is required")
	} else if t, err := models.ParseClock(req.TimeOn); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid timeOn '%s': expected HH:MM:SS", req.TimeOn))
	} else {
		f.TimeOn = t
	}

	f.Band = strings.TrimSpace(req.Band)
	if f.Band == "" {
		errs = append(errs, "Band is required")
	}

	if req.FrequencyKhz != nil {
		if err := f.FrequencyKHz.Scan(req.FrequencyKhz.String()); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid frequencyKhz '%s'", req.FrequencyKhz.String()))
		}
	}

	if strings.TrimSpace(req.Mode) == "" {
		errs = append(errs, "Mode is required")
	} else if m, err := models.ParseMode(req.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid mode '%s'", req.Mode))
	} else {
		f.Mode = m
	}

	if sm, err := models.ParseSubmode(req.Submode); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid submode '%s'", req.Submode))
	} else {
		f.Submode = sm
	}

	f.CustomMode = strings.TrimSpace(req.CustomMode)
	f.RstSent = req.RstSent
	f.RstRecv = req.RstRecv
	f.Qth = req.Qth
	f.GridSquare = req.GridSquare
	f.Notes = req.Notes

	return f, errs
}

func (req *qsoRequest) statusPatch() (models.StatusPatch, []string) {
	var (
		p    models.StatusPatch
		errs []string
		err  error
	)
	if p.Qsl, err = models.ParseConfirmationStatus(models.ChannelQSL, req.QslStatus); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid qslStatus '%s'", req.QslStatus))
	}
	if p.Lotw, err = models.ParseConfirmationStatus(models.ChannelLoTW, req.LotwStatus); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid lotwStatus '%s'", req.LotwStatus))
	}
	if p.Eqsl, err = models.ParseConfirmationStatus(models.ChannelEQSL, req.EqslStatus); err != nil {
		errs = append(errs, fmt.Sprintf("Invalid eqslStatus '%s'", req.EqslStatus))
	}
	return p, errs
}

type qsoResponse struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	TheirCallsign string       `json:"theirCallsign"`
	QsoDate       string       `json:"qsoDate"`
	TimeOn        string       `json:"timeOn"`
	Band          string       `json:"band"`
	FrequencyKhz  *json.Number `json:"frequencyKhz"`
	Mode          string       `json:"mode"`
	Submode       *string      `json:"submode"`
	CustomMode    *string      `json:"customMode"`
	RstSent       *string      `json:"rstSent"`
	RstRecv       *string      `json:"rstRecv"`
	Qth           *string      `json:"qth"`
	GridSquare    *string      `json:"gridSquare"`
	Notes         *string      `json:"notes"`
	QslStatus     string       `json:"qslStatus"`
	LotwStatus    string       `json:"lotwStatus"`
	EqslStatus    string       `json:"eqslStatus"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decimal(n pgtype.Numeric) *json.Number {
	s := export.FormatDecimal(n)
	if s == "" {
		return nil
	}
	num := json.Number(s)
	return &num
}

func newQsoResponse(q *models.Qso) qsoResponse {
	return qsoResponse{
		ID:            q.ID,
		UserID:        q.UserID,
		TheirCallsign: q.TheirCallsign,
		QsoDate:       q.QsoDate.Format(models.DateLayout),
		TimeOn:        q.TimeOn.Format(models.TimeLayout),
		Band:          q.Band,
		FrequencyKhz:  decimal(q.FrequencyKHz),
		Mode:          string(q.Mode),
		Submode:       nullable(string(q.Submode)),
		CustomMode:    nullable(q.CustomMode),
		RstSent:       nullable(q.RstSent),
		RstRecv:       nullable(q.RstRecv),
		Qth:           nullable(q.Qth),
		GridSquare:    nullable(q.GridSquare),
		Notes:         nullable(q.Notes),
		QslStatus:     string(q.QslStatus),
		LotwStatus:    string(q.LotwStatus),
		EqslStatus:    string(q.EqslStatus),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

type archiveResponse struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Format    string     `json:"format"`
	From      *string    `json:"from"`
	To        *string    `json:"to"`
	SizeBytes int64      `json:"sizeBytes"`
	CreatedAt time.Time  `json:"createdAt"`
	Filename  string     `json:"filename,omitempty"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func dateOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	return nullable(t.Format(models.DateLayout))
}

func newArchiveResponse(a *models.ExportArchive) archiveResponse {
	return archiveResponse{
		ID:        a.ID,
		Key:       a.ObjectKey,
		Format:    a.Format,
		From:      dateOrNil(a.Dates.From),
		To:        dateOrNil(a.Dates.To),
		SizeBytes: a.SizeBytes,
		CreatedAt: a.CreatedAt,
	}
}

func newArchiveResultResponse(res *services.ArchiveResult) archiveResponse {
	out := newArchiveResponse(res.Archive)
	out.Filename = res.Filename
	out.URL = res.URL
	if !res.ExpiresAt.IsZero() {
		exp := res.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

type bandCount struct {
	Band           string `json:"band"`
	CountAll       int64  `json:"countAll"`
	CountConfirmed int64  `json:"countConfirmed"`
}

type modeCount struct {
	Mode           string `json:"mode"`
	CountAll       int64  `json:"countAll"`
	CountConfirmed int64  `json:"countConfirmed"`
}

type dayCount struct {
	Date           string `json:"date"`
	CountAll       int64  `json:"countAll"`
	CountConfirmed int64  `json:"countConfirmed"`
}

type totalsResponse struct {
	CountAll       int64 `json:"countAll"`
	CountConfirmed int64 `json:"countConfirmed"`
}

type statsResponse struct {
	CountsByBand []bandCount    `json:"countsByBand"`
	CountsByMode []modeCount    `json:"countsByMode"`
	CountsByDay  []dayCount     `json:"countsByDay"`
	Totals       totalsResponse `json:"totals"`
}

func newStatsResponse(s *services.StatsSummary) statsResponse {
	out := statsResponse{
		CountsByBand: make([]bandCount, 0, len(s.ByBand)),
		CountsByMode: make([]modeCount, 0, len(s.ByMode)),
		CountsByDay:  make([]dayCount, 0, len(s.ByDay)),
		Totals:       totalsResponse{CountAll: s.Totals.Total, CountConfirmed: s.Totals.Confirmed},
	}
	for _, g := range s.ByBand {
		out.CountsByBand = append(out.CountsByBand, bandCount{Band: g.Key, CountAll: g.Total, CountConfirmed: g.Confirmed})
	}
	for _, g := range s.ByMode {
		out.CountsByMode = append(out.CountsByMode, modeCount{Mode: g.Key, CountAll: g.Total, CountConfirmed: g.Confirmed})
	}
	for _, d := range s.ByDay {
		out.CountsByDay = append(out.CountsByDay, dayCount{Date: d.Day.Format(models.DateLayout), CountAll: d.Total, CountConfirmed: d.Confirmed})
	}
	return out
}

type suggestionResponse struct {
	Callsign         string  `json:"callsign"`
	LastKnownName    *string `json:"lastKnownName"`
	LastKnownQth     *string `json:"lastKnownQth"`
	LastNotesSnippet *string `json:"lastNotesSnippet"`
	MostCommonBand   *string `json:"mostCommonBand"`
	MostCommonMode   *string `json:"mostCommonMode"`
}

func newSuggestionResponse(s *services.Suggestion) suggestionResponse {
	return suggestionResponse{
		Callsign:         s.Callsign,
		LastKnownName:    nullable(s.LastKnownName),
		LastKnownQth:     nullable(s.LastKnownQth),
		LastNotesSnippet: nullable(s.LastNotesSnippet),
		MostCommonBand:   nullable(s.MostCommonBand),
		MostCommonMode:   nullable(string(s.MostCommonMode)),
	}
}

type lookupResponse struct {
	Callsign string  `json:"callsign"`
	Name     *string `json:"name"`
	Qth      *string `json:"qth"`
	Grid     *string `json:"grid"`
	Country  *string `json:"country"`
}

func newLookupResponse(r *lookup.Result) lookupResponse {
	return lookupResponse{
		Callsign: r.Callsign,
		Name:     nullable(r.Name),
		Qth:      nullable(r.Qth),
		Grid:     nullable(r.Grid),
		Country:  nullable(r.Country),
	}
}
