package services

import (
	"context"
	"database/sql"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/dbx"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/archives"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeQsoRepo keeps records in memory and mimics the SQL orderings.
type fakeQsoRepo struct {
	mu   sync.Mutex
	rows map[string]models.Qso

	saves int
	err   error

	byBand []qsos.GroupCount
	byMode []qsos.GroupCount
	byDay  []qsos.DayCount
	totals qsos.Totals
}

func newFakeQsoRepo() *fakeQsoRepo {
	return &fakeQsoRepo{rows: map[string]models.Qso{}}
}

func (f *fakeQsoRepo) Save(ctx context.Context, q *models.Qso) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if old, ok := f.rows[q.ID]; ok && old.UserID != q.UserID {
		return common.ErrorNotFound
	}
	f.rows[q.ID] = *q
	f.saves++
	return nil
}

func (f *fakeQsoRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*models.Qso, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.rows[id]
	if !ok || q.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return &q, nil
}

func (f *fakeQsoRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.rows[id]; ok && q.UserID == userID {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeQsoRepo) owned(userID string) []models.Qso {
	var out []models.Qso
	for _, q := range f.rows {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out
}

func compareAsc(a, b models.Qso) int {
	if c := a.QsoDate.Compare(b.QsoDate); c != 0 {
		return c
	}
	if c := a.TimeOn.Compare(b.TimeOn); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func (f *fakeQsoRepo) FindPotentialDuplicates(ctx context.Context, userID, callsign string, date time.Time, band string, mode models.Mode) ([]*models.Qso, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Qso
	for _, q := range f.owned(userID) {
		if q.TheirCallsign == callsign && q.QsoDate.Equal(date) && q.Band == band && q.Mode == mode {
			out = append(out, &q)
		}
	}
	slices.SortFunc(out, func(a, b *models.Qso) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (f *fakeQsoRepo) List(ctx context.Context, userID string, lf qsos.ListFilter) ([]*models.Qso, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Qso
	for _, q := range f.owned(userID) {
		if lf.Callsign != "" && !strings.Contains(strings.ToUpper(q.TheirCallsign), strings.ToUpper(lf.Callsign)) {
			continue
		}
		if lf.Band != "" && q.Band != lf.Band {
			continue
		}
		if !lf.Dates.Contains(q.QsoDate) {
			continue
		}
		all = append(all, q)
	}
	slices.SortFunc(all, func(a, b models.Qso) int { return compareAsc(b, a) })

	var out []*models.Qso
	for i := lf.Page * lf.Size; i < len(all) && len(out) < lf.Size; i++ {
		out = append(out, &all[i])
	}
	return out, nil
}

func (f *fakeQsoRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.owned(userID))), nil
}

func (f *fakeQsoRepo) StreamForExport(ctx context.Context, userID string, r models.DateRange) iter.Seq2[*models.Qso, error] {
	return func(yield func(*models.Qso, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		f.mu.Lock()
		var all []models.Qso
		for _, q := range f.owned(userID) {
			if r.Contains(q.QsoDate) {
				all = append(all, q)
			}
		}
		f.mu.Unlock()
		slices.SortFunc(all, compareAsc)
		for i := range all {
			if !yield(&all[i], nil) {
				return
			}
		}
	}
}

func (f *fakeQsoRepo) StatsByBand(ctx context.Context, userID string, r models.DateRange) ([]qsos.GroupCount, error) {
	return f.byBand, f.err
}

func (f *fakeQsoRepo) StatsByMode(ctx context.Context, userID string, r models.DateRange) ([]qsos.GroupCount, error) {
	return f.byMode, f.err
}

func (f *fakeQsoRepo) StatsByDay(ctx context.Context, userID string, r models.DateRange) ([]qsos.DayCount, error) {
	return f.byDay, f.err
}

func (f *fakeQsoRepo) Totals(ctx context.Context, userID string, r models.DateRange) (qsos.Totals, error) {
	return f.totals, f.err
}

func (f *fakeQsoRepo) matching(userID, callsign string) []models.Qso {
	var out []models.Qso
	for _, q := range f.owned(userID) {
		if strings.EqualFold(q.TheirCallsign, callsign) {
			out = append(out, q)
		}
	}
	return out
}

func (f *fakeQsoRepo) MostRecentByCallsign(ctx context.Context, userID, callsign string) (*models.Qso, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(userID, callsign)
	if len(all) == 0 {
		return nil, common.ErrorNotFound
	}
	q := slices.MaxFunc(all, compareAsc)
	return &q, nil
}

func mostCommon[K comparable](keys []K) K {
	counts := map[K]int{}
	var best K
	for _, k := range keys {
		counts[k]++
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func (f *fakeQsoRepo) MostCommonBand(ctx context.Context, userID, callsign string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var bands []string
	for _, q := range f.matching(userID, callsign) {
		bands = append(bands, q.Band)
	}
	return mostCommon(bands), nil
}

func (f *fakeQsoRepo) MostCommonMode(ctx context.Context, userID, callsign string) (models.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var modes []models.Mode
	for _, q := range f.matching(userID, callsign) {
		modes = append(modes, q.Mode)
	}
	return mostCommon(modes), nil
}

type fakeArchiveRepo struct {
	rows      map[string]*models.ExportArchive
	createErr error
	markErr   error
}

func newFakeArchiveRepo() *fakeArchiveRepo {
	return &fakeArchiveRepo{rows: map[string]*models.ExportArchive{}}
}

func (f *fakeArchiveRepo) Create(ctx context.Context, a *models.ExportArchive) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeArchiveRepo) MarkUploaded(ctx context.Context, id string, size int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	a, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.SizeBytes = size
	a.UploadStatus = models.UploadStatusCompleted
	return nil
}

func (f *fakeArchiveRepo) ListByUser(ctx context.Context, userID string) ([]*models.ExportArchive, error) {
	var out []*models.ExportArchive
	for _, a := range f.rows {
		if a.UserID == userID && a.UploadStatus == models.UploadStatusCompleted {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b *models.ExportArchive) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeArchiveRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*models.ExportArchive, error) {
	a, ok := f.rows[id]
	if !ok || a.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

// fakeRepoManager hands out the same in-memory repos for any handle.
type fakeRepoManager struct {
	qsos     *fakeQsoRepo
	archives *fakeArchiveRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{qsos: newFakeQsoRepo(), archives: newFakeArchiveRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Qsos(dbx.DBTX) qsos.Repository { return m.qsos }
func (m *fakeRepoManager) Archives(dbx.DBTX) archives.Repository { return m.archives }
