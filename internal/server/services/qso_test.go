package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/config"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/qsos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

// stepClock advances one second per call so CreatedAt values differ.
func stepClock() func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return baseTime.Add(time.Duration(n) * time.Second)
	}
}

func newQsoService(t *testing.T) (*QsoService, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	cfg := &config.Config{DefaultPageSize: 20, MaxPageSize: 50}
	return NewQsoService(db, rm, cfg).WithClock(stepClock()), rm
}

func fields(callsign string, date time.Time, tm time.Time) models.QsoFields {
	return models.QsoFields{
		TheirCallsign: callsign,
		QsoDate:       date,
		TimeOn:        tm,
		Band:          "20m",
		Mode:          models.ModeCW,
		RstSent:       "599",
		RstRecv:       "599",
	}
}

func TestCreate_StoresWithDefaults(t *testing.T) {
	svc, rm := newQsoService(t)

	f := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0))
	f.Band = "20M"

	q, err := svc.Create(context.Background(), "u1", f, false)
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "u1", q.UserID)
	assert.Equal(t, "20m", q.Band, "band stored in catalog spelling")
	assert.Equal(t, models.StatusNone, q.QslStatus)
	assert.Equal(t, models.StatusUnknown, q.LotwStatus)
	assert.Equal(t, models.StatusUnknown, q.EqslStatus)
	assert.Equal(t, q.CreatedAt, q.UpdatedAt)
	assert.Equal(t, 1, rm.qsos.saves)
}

func TestCreate_BandError(t *testing.T) {
	svc, rm := newQsoService(t)

	f := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0))
	f.Band = "21m"

	_, err := svc.Create(context.Background(), "u1", f, false)

	var be *BandError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Invalid band '21m'. Must be a valid ADIF band (e.g., 160m, 80m, 40m, 20m, etc.)", err.Error())
	assert.True(t, errors.Is(err, common.ErrorValidation))
	assert.Equal(t, 0, rm.qsos.saves)
}

func TestCreate_ModeErrorJoinsViolations(t *testing.T) {
	svc, rm := newQsoService(t)

	f := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0))
	f.Mode = models.ModeSSB
	f.Submode = models.SubmodeFT8
	f.CustomMode = "VARAC"

	_, err := svc.Create(context.Background(), "u1", f, false)

	var me *ModeError
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Violations, 3)
	assert.Equal(t, "Mode validation failed: customMode requires mode=DATA, customMode requires submode=null, "+
		"Submode FT8 requires mode MFSK, but got SSB", err.Error())
	assert.True(t, errors.Is(err, common.ErrorValidation))
	assert.Equal(t, 0, rm.qsos.saves)
}

func TestCreate_DuplicateFlow(t *testing.T) {
	svc, rm := newQsoService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)

	// Different time of day still collides.
	second := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(18, 0, 0))

	_, err = svc.Create(ctx, "u1", second, false)
	var de *DuplicateError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{first.ID}, de.ExistingIDs)
	assert.Equal(t, fmt.Sprintf("Potential duplicate detected (found 1 similar QSO(s)). "+
		"Pass confirmDuplicate=true to save anyway. Existing IDs: %s", first.ID), err.Error())
	assert.False(t, errors.Is(err, common.ErrorValidation))

	n, err := svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "conflict must not write")

	_, err = svc.Create(ctx, "u1", second, true)
	require.NoError(t, err)

	n, err = svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2, rm.qsos.saves)
}

func TestCreate_NoDuplicateAcrossOwnersOrCase(t *testing.T) {
	svc, _ := newQsoService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u2", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	assert.NoError(t, err, "other owner")

	_, err = svc.Create(ctx, "u1", fields("sp1abc", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	assert.NoError(t, err, "callsign match is case-sensitive")

	f := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0))
	f.Band = "40m"
	_, err = svc.Create(ctx, "u1", f, false)
	assert.NoError(t, err, "other band")
}

func TestCreate_RepositoryErrorWrapped(t *testing.T) {
	svc, rm := newQsoService(t)
	rm.qsos.err = errors.New("db down")

	_, err := svc.Create(context.Background(), "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestUpdate_ReplacesFieldsAndPatchesStatuses(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	svc := NewQsoService(db, rm, &config.Config{}).WithClock(stepClock())
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	f := fields("SP1ABD", models.Date(2024, 1, 16), models.Clock(9, 0, 0))
	f.Mode = models.ModePSK
	f.Submode = models.SubmodePSK31
	f.Notes = "corrected"

	updated, err := svc.Update(ctx, created.ID, "u1", f, models.StatusPatch{Qsl: models.StatusSent})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "SP1ABD", updated.TheirCallsign)
	assert.Equal(t, models.SubmodePSK31, updated.Submode)
	assert.Equal(t, "corrected", updated.Notes)
	assert.Equal(t, models.StatusSent, updated.QslStatus)
	assert.Equal(t, models.StatusUnknown, updated.LotwStatus)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	stored, err := svc.Get(ctx, created.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, *updated, *stored)
}

func TestUpdate_SkipsDuplicateCheck(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	svc := NewQsoService(db, rm, &config.Config{}).WithClock(stepClock())
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u1", fields("DL1XYZ", models.Date(2024, 1, 15), models.Clock(15, 0, 0)), false)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	// b becomes an exact twin of a.
	_, err = svc.Update(ctx, b.ID, "u1", a.Fields(), models.StatusPatch{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFoundAndForeignOwner(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	svc := NewQsoService(db, rm, &config.Config{}).WithClock(stepClock())
	ctx := context.Background()

	q, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Update(ctx, "missing", "u1", q.Fields(), models.StatusPatch{})
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Update(ctx, q.ID, "intruder", q.Fields(), models.StatusPatch{})
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ValidationBeforeLookup(t *testing.T) {
	svc, _ := newQsoService(t)

	f := fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0))
	f.Band = "11m"

	// No transaction expected: validation fails first.
	_, err := svc.Update(context.Background(), "any", "u1", f, models.StatusPatch{})
	var be *BandError
	assert.ErrorAs(t, err, &be)
}

func TestDelete(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	svc := NewQsoService(db, rm, &config.Config{}).WithClock(stepClock())
	ctx := context.Background()

	q, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.Delete(ctx, q.ID, "intruder")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Delete(ctx, q.ID, "u1"))

	_, err = svc.Get(ctx, q.ID, "u1")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAndCount_ScopedToOwner(t *testing.T) {
	svc, _ := newQsoService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, "u1", fields("SP1ABC", models.Date(2024, 1, 15), models.Clock(14, 30, 0)), false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", fields("DL1XYZ", models.Date(2024, 1, 16), models.Clock(9, 0, 0)), false)
	require.NoError(t, err)

	got, err := svc.Get(ctx, q.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "SP1ABC", got.TheirCallsign)

	_, err = svc.Get(ctx, q.ID, "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.Count(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_PagingBoundsAndOrder(t *testing.T) {
	svc, _ := newQsoService(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		_, err := svc.Create(ctx, "u1", fields(fmt.Sprintf("SP%dAA", d), models.Date(2024, 1, d), models.Clock(10, 0, 0)), false)
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, "u1", qsos.ListFilter{Page: -3})
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "SP5AA", got[0].TheirCallsign, "newest first")

	got, err = svc.List(ctx, "u1", qsos.ListFilter{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SP3AA", got[0].TheirCallsign)

	got, err = svc.List(ctx, "u1", qsos.ListFilter{Callsign: "sp2"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	page, _ := svc.pageBounds(-1, 10)
	assert.Equal(t, 0, page)
	_, size := svc.pageBounds(0, 500)
	assert.Equal(t, 50, size)
	_, size = svc.pageBounds(0, 0)
	assert.Equal(t, 20, size)
}
