// Package qsos provides the PostgreSQL-backed QSO repository: CRUD with
// ownership guards, filtered listing, the ordered export cursor and the
// aggregate queries behind statistics and callsign suggestions.
package qsos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/dbx"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/jackc/pgx/v5/pgtype"
)

const columns = `id, user_id, their_callsign, qso_date, time_on, band, frequency_khz,
	mode, submode, custom_mode, rst_sent, rst_recv, qth, grid_square, notes,
	qsl_status, lotw_status, eqsl_status, created_at, updated_at`

const confirmedExpr = `COUNT(*) FILTER (WHERE qsl_status = 'CONFIRMED' OR lotw_status = 'CONFIRMED' OR eqsl_status = 'CONFIRMED')`

const rangeClause = `($2::date IS NULL OR qso_date >= $2::date) AND ($3::date IS NULL OR qso_date <= $3::date)`

// PostgresRepository implements QSO storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts q or replaces the stored row with the same id. A row owned
// by another user is never touched; that case reports common.ErrorNotFound.
func (r *PostgresRepository) Save(ctx context.Context, q *models.Qso) error {
	query := `
		INSERT INTO qso (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id)
		DO UPDATE SET
			their_callsign = EXCLUDED.their_callsign,
			qso_date = EXCLUDED.qso_date,
			time_on = EXCLUDED.time_on,
			band = EXCLUDED.band,
			frequency_khz = EXCLUDED.frequency_khz,
			mode = EXCLUDED.mode,
			submode = EXCLUDED.submode,
			custom_mode = EXCLUDED.custom_mode,
			rst_sent = EXCLUDED.rst_sent,
			rst_recv = EXCLUDED.rst_recv,
			qth = EXCLUDED.qth,
			grid_square = EXCLUDED.grid_square,
			notes = EXCLUDED.notes,
			qsl_status = EXCLUDED.qsl_status,
			lotw_status = EXCLUDED.lotw_status,
			eqsl_status = EXCLUDED.eqsl_status,
			updated_at = EXCLUDED.updated_at
			WHERE qso.user_id = EXCLUDED.user_id;
	`
	res, err := r.db.ExecContext(ctx, query,
		q.ID, q.UserID, q.TheirCallsign, q.QsoDate, models.ClockToPg(q.TimeOn), q.Band, q.FrequencyKHz,
		string(q.Mode), text(string(q.Submode)), text(q.CustomMode),
		text(q.RstSent), text(q.RstRecv), text(q.Qth), text(q.GridSquare), text(q.Notes),
		string(q.QslStatus), string(q.LotwStatus), string(q.EqslStatus),
		q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// FindByIDAndUser returns the QSO with id if it belongs to userID.
func (r *PostgresRepository) FindByIDAndUser(ctx context.Context, id, userID string) (*models.Qso, error) {
	query := `SELECT ` + columns + ` FROM qso WHERE id = $1 AND user_id = $2`

	q, err := scanQso(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

// DeleteByIDAndUser removes the QSO with id if it belongs to userID.
func (r *PostgresRepository) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM qso WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// FindPotentialDuplicates returns the owner's QSOs matching callsign, date,
// band and mode exactly.
func (r *PostgresRepository) FindPotentialDuplicates(ctx context.Context, userID, callsign string, date time.Time, band string, mode models.Mode) ([]*models.Qso, error) {
	query := `SELECT ` + columns + ` FROM qso
		WHERE user_id = $1 AND their_callsign = $2 AND qso_date = $3 AND band = $4 AND mode = $5
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID, callsign, date, band, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to select duplicates: %w", err)
	}
	return collect(rows)
}

// List returns one page of the owner's QSOs, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, f ListFilter) ([]*models.Qso, error) {
	query := `SELECT ` + columns + ` FROM qso
		WHERE user_id = $1
		AND ` + rangeClause + `
		AND ($4::text IS NULL OR UPPER(their_callsign) LIKE UPPER($4::text))
		AND ($5::text IS NULL OR band = $5::text)
		ORDER BY qso_date DESC, time_on DESC
		LIMIT $6 OFFSET $7`

	var pattern pgtype.Text
	if f.Callsign != "" {
		pattern = text("%" + escapeLike(f.Callsign) + "%")
	}
	offset := int64(f.Page) * int64(f.Size)

	rows, err := r.db.QueryContext(ctx, query,
		userID, date(f.Dates.From), date(f.Dates.To), pattern, text(f.Band), f.Size, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select qsos: %w", err)
	}
	return collect(rows)
}

// CountByUser returns how many QSOs the owner has logged.
func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qso WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// StreamForExport lazily yields the owner's QSOs in the range ordered by
// date then time, ascending. The query runs when iteration starts and the
// cursor is closed when iteration ends.
func (r *PostgresRepository) StreamForExport(ctx context.Context, userID string, dr models.DateRange) iter.Seq2[*models.Qso, error] {
	return func(yield func(*models.Qso, error) bool) {
		query := `SELECT ` + columns + ` FROM qso
			WHERE user_id = $1 AND ` + rangeClause + `
			ORDER BY qso_date ASC, time_on ASC, created_at ASC`

		rows, err := r.db.QueryContext(ctx, query, userID, date(dr.From), date(dr.To))
		if err != nil {
			yield(nil, fmt.Errorf("failed to select qsos for export: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			q, err := scanQso(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(q, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// StatsByBand counts the owner's QSOs per band.
func (r *PostgresRepository) StatsByBand(ctx context.Context, userID string, dr models.DateRange) ([]GroupCount, error) {
	return r.groupCounts(ctx, "band", userID, dr)
}

// StatsByMode counts the owner's QSOs per mode.
func (r *PostgresRepository) StatsByMode(ctx context.Context, userID string, dr models.DateRange) ([]GroupCount, error) {
	return r.groupCounts(ctx, "mode", userID, dr)
}

// groupCounts aggregates by column, which must be a trusted identifier.
func (r *PostgresRepository) groupCounts(ctx context.Context, column, userID string, dr models.DateRange) ([]GroupCount, error) {
	query := `SELECT ` + column + `, COUNT(*), ` + confirmedExpr + ` FROM qso
		WHERE user_id = $1 AND ` + rangeClause + `
		GROUP BY ` + column + `
		ORDER BY ` + column

	rows, err := r.db.QueryContext(ctx, query, userID, date(dr.From), date(dr.To))
	if err != nil {
		return nil, fmt.Errorf("failed to select stats by %s: %w", column, err)
	}
	defer rows.Close()

	var result []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Total, &g.Confirmed); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// StatsByDay counts the owner's QSOs per calendar day.
func (r *PostgresRepository) StatsByDay(ctx context.Context, userID string, dr models.DateRange) ([]DayCount, error) {
	query := `SELECT qso_date, COUNT(*), ` + confirmedExpr + ` FROM qso
		WHERE user_id = $1 AND ` + rangeClause + `
		GROUP BY qso_date
		ORDER BY qso_date`

	rows, err := r.db.QueryContext(ctx, query, userID, date(dr.From), date(dr.To))
	if err != nil {
		return nil, fmt.Errorf("failed to select stats by day: %w", err)
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Total, &d.Confirmed); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Totals counts every QSO of the owner in the range.
func (r *PostgresRepository) Totals(ctx context.Context, userID string, dr models.DateRange) (Totals, error) {
	query := `SELECT COUNT(*), ` + confirmedExpr + ` FROM qso
		WHERE user_id = $1 AND ` + rangeClause

	var t Totals
	err := r.db.QueryRowContext(ctx, query, userID, date(dr.From), date(dr.To)).Scan(&t.Total, &t.Confirmed)
	if err != nil {
		return Totals{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// MostRecentByCallsign returns the latest QSO with callsign, compared
// case-insensitively.
func (r *PostgresRepository) MostRecentByCallsign(ctx context.Context, userID, callsign string) (*models.Qso, error) {
	query := `SELECT ` + columns + ` FROM qso
		WHERE user_id = $1 AND UPPER(their_callsign) = UPPER($2)
		ORDER BY qso_date DESC, time_on DESC
		LIMIT 1`

	q, err := scanQso(r.db.QueryRowContext(ctx, query, userID, callsign))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

// MostCommonBand returns the band used most often with callsign, or ""
// when there is no history.
func (r *PostgresRepository) MostCommonBand(ctx context.Context, userID, callsign string) (string, error) {
	return r.mostCommon(ctx, "band", userID, callsign)
}

// MostCommonMode returns the mode used most often with callsign, or ""
// when there is no history.
func (r *PostgresRepository) MostCommonMode(ctx context.Context, userID, callsign string) (models.Mode, error) {
	m, err := r.mostCommon(ctx, "mode", userID, callsign)
	return models.Mode(m), err
}

func (r *PostgresRepository) mostCommon(ctx context.Context, column, userID, callsign string) (string, error) {
	query := `SELECT ` + column + ` FROM qso
		WHERE user_id = $1 AND UPPER(their_callsign) = UPPER($2)
		GROUP BY ` + column + `
		ORDER BY COUNT(*) DESC, ` + column + `
		LIMIT 1`

	var v string
	err := r.db.QueryRowContext(ctx, query, userID, callsign).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQso(s scanner) (*models.Qso, error) {
	var q models.Qso
	var timeOn pgtype.Time
	var mode, qsl, lotw, eqsl string
	var submode, custom, rstS, rstR, qth, grid, notes pgtype.Text
	if err := s.Scan(
		&q.ID, &q.UserID, &q.TheirCallsign, &q.QsoDate, &timeOn, &q.Band, &q.FrequencyKHz,
		&mode, &submode, &custom, &rstS, &rstR, &qth, &grid, &notes,
		&qsl, &lotw, &eqsl, &q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		return nil, err
	}

	q.QsoDate = models.Date(q.QsoDate.Date())
	q.TimeOn = models.ClockFromPg(timeOn)
	q.Mode = models.Mode(mode)
	q.Submode = models.Submode(submode.String)
	q.CustomMode = custom.String
	q.RstSent = rstS.String
	q.RstRecv = rstR.String
	q.Qth = qth.String
	q.GridSquare = grid.String
	q.Notes = notes.String
	q.QslStatus = models.ConfirmationStatus(qsl)
	q.LotwStatus = models.ConfirmationStatus(lotw)
	q.EqslStatus = models.ConfirmationStatus(eqsl)
	return &q, nil
}

func collect(rows *sql.Rows) ([]*models.Qso, error) {
	defer rows.Close()

	var result []*models.Qso
	for rows.Next() {
		q, err := scanQso(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// text maps "" to SQL NULL.
func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// date maps the zero time to SQL NULL.
func date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
