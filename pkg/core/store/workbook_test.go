package store_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/fileops"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/store"
	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestWorkbook(t *testing.T) *store.Workbook {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)
	return store.NewWorkbook(filepath.Join(t.TempDir(), "video_detail.xlsx"), logger)
}

// writeRaw builds a workbook by hand, the way older extraction runs laid it out.
func writeRaw(t *testing.T, path string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestWorkbook_SaveLoadRoundTrip(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	rs := &model.RecordSet{
		Titles: []model.TitleRecord{{Name: "神探", Description: "劇集簡介"}},
		Seasons: []model.SeasonRecord{
			{DisplayName: "第 2 季", Number: 2, Description: "s2"},
			{DisplayName: "Specials", Number: 0},
		},
		Episodes: []model.EpisodeRecord{
			{SeasonNumber: model.Int(2), EpisodeNumber: 1, Title: "A", Description: "a"},
			{EpisodeNumber: 2, Title: "unresolved"},
		},
		Reconciled: true,
	}
	require.NoError(t, wb.Save(ctx, rs))

	got, rowErrs, err := wb.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Equal(t, rs.Titles, got.Titles)
	assert.Equal(t, rs.Seasons, got.Seasons)
	assert.Equal(t, rs.Episodes, got.Episodes)
	assert.Empty(t, got.Movies)
	assert.True(t, got.Reconciled)
}

func TestWorkbook_InitAndClear(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	require.NoError(t, wb.Init(ctx))
	rs, _, err := wb.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rs.Seasons)
	assert.False(t, rs.Reconciled)

	require.NoError(t, wb.Save(ctx, &model.RecordSet{Movies: []model.TitleRecord{{Name: "M", Description: "d"}}}))
	// Init leaves an existing workbook alone.
	require.NoError(t, wb.Init(ctx))
	rs, _, err = wb.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rs.Movies, 1)

	require.NoError(t, wb.Clear(ctx))
	rs, _, err = wb.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rs.Movies)

	f, err := excelize.OpenFile(wb.Path())
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Title", "Seasons", "Episodes", "Movies"}, f.GetSheetList())
	header, err := f.GetRows("Episodes")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Season Number", "Episode Number", "Episode Title", "Episode Description"}}, header)
}

func TestWorkbook_LoadMissingFile(t *testing.T) {
	wb := newTestWorkbook(t)
	_, _, err := wb.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, coreErrors.ErrStoreUnavailable)
	assert.False(t, coreErrors.IsRetryable(err))
}

func TestWorkbook_OpenInOfficeIsRetryable(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()
	require.NoError(t, wb.Init(ctx))

	owner := fileops.OwnerLockPath(wb.Path())
	require.NoError(t, os.WriteFile(owner, []byte("someone"), 0644))

	err := wb.Save(ctx, &model.RecordSet{})
	require.Error(t, err)
	assert.ErrorIs(t, err, coreErrors.ErrStoreLocked)
	assert.True(t, coreErrors.IsRetryable(err))

	_, _, err = wb.Load(ctx)
	assert.True(t, coreErrors.IsRetryable(err))

	require.NoError(t, os.Remove(owner))
	assert.NoError(t, wb.Save(ctx, &model.RecordSet{}))
}

func TestWorkbook_LockedByAnotherProcess(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()
	require.NoError(t, wb.Init(ctx))

	other := flock.New(wb.Path() + ".lock")
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	err = wb.Save(ctx, &model.RecordSet{})
	require.Error(t, err)
	assert.True(t, coreErrors.IsRetryable(err))
}

func TestWorkbook_FailedSaveLeavesWorkbookIntact(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()
	orig := &model.RecordSet{Seasons: []model.SeasonRecord{{DisplayName: "第 1 季", Number: 1}}}
	require.NoError(t, wb.Save(ctx, orig))

	require.NoError(t, os.WriteFile(fileops.OwnerLockPath(wb.Path()), nil, 0644))
	require.Error(t, wb.Save(ctx, &model.RecordSet{}))
	require.NoError(t, os.Remove(fileops.OwnerLockPath(wb.Path())))

	got, _, err := wb.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, orig.Seasons, got.Seasons)
}

func TestWorkbook_LoadMalformedRows(t *testing.T) {
	wb := newTestWorkbook(t)
	writeRaw(t, wb.Path(), map[string][][]interface{}{
		"Title": {{"TV Show Title", "TV Show Description"}, {"Show", "About"}},
		// Column order used by an older Prime Video extractor.
		"Seasons": {
			{"Season Number", "Season Name", "Season Description"},
			{1, "第 1 季", "one"},
			{"n/a", "第 2 季", "two"},
			{"3.0", "第 3 季", ""},
		},
		"Episodes": {
			{"Season Number", "Episode Number", "Episode Title", "Episode Description"},
			{1, 1, "Pilot", "p"},
			{2, "x", "Broken", ""},
			{"", 3, "No season", ""},
			{"two", 4, "Bad season", ""},
			{"2.0", "5", "Float season"},
		},
	})

	rs, rowErrs, err := wb.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.TitleRecord{{Name: "Show", Description: "About"}}, rs.Titles)
	assert.Equal(t, []model.SeasonRecord{
		{DisplayName: "第 1 季", Number: 1, Description: "one"},
		{DisplayName: "第 2 季", Number: 2, Description: "two"},
		{DisplayName: "第 3 季", Number: 3},
	}, rs.Seasons)

	require.Len(t, rs.Episodes, 5)
	assert.Equal(t, "Pilot", rs.Episodes[0].Title)
	assert.True(t, rs.Episodes[1].Malformed())
	assert.Equal(t, []string{"2", "x", "Broken", ""}, rs.Episodes[1].Raw)
	assert.False(t, rs.Episodes[2].SeasonNumber.Valid)
	assert.False(t, rs.Episodes[3].SeasonNumber.Valid)
	assert.Equal(t, model.Int(2), rs.Episodes[4].SeasonNumber)
	assert.Equal(t, "", rs.Episodes[4].Description)

	var sheets []string
	var rows []int
	for _, re := range rowErrs {
		sheets = append(sheets, re.Sheet)
		rows = append(rows, re.Row)
	}
	assert.Equal(t, []string{"Seasons", "Episodes", "Episodes"}, sheets)
	assert.Equal(t, []int{3, 3, 5}, rows)

	// Unreadable rows survive a rewrite of the workbook.
	require.NoError(t, wb.Save(context.Background(), rs))
	again, _, err := wb.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, again.Episodes, 5)
	assert.Equal(t, []string{"2", "x", "Broken", ""}, again.Episodes[1].Raw)
	assert.Equal(t, "Float season", again.Episodes[4].Title)
}

func TestWorkbook_BlankSeasonRowKeepsPositions(t *testing.T) {
	wb := newTestWorkbook(t)
	writeRaw(t, wb.Path(), map[string][][]interface{}{
		"Seasons": {
			{"Season Name", "Season Number", "Season Description"},
			{"第 1 季", 1, ""},
			{},
			{"第 3 季", 3, ""},
		},
		"Episodes": {
			{"Season Number", "Episode Number", "Episode Title", "Episode Description"},
			{1, 1, "A", ""},
			{2, 1, "B", ""},
			{3, 1, "C", ""},
		},
	})

	rs, rowErrs, err := wb.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rs.Seasons, 3)
	for i, s := range rs.Seasons {
		assert.Equal(t, i+1, s.Number, "season row %d", i)
	}
	assert.True(t, rs.Seasons[1].Blank)
	assert.Equal(t, "第 3 季", rs.Seasons[2].DisplayName)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, model.RowError{Sheet: "Seasons", Row: 3, Err: rowErrs[0].Err}, rowErrs[0])

	// The blank row is written back in place.
	require.NoError(t, wb.Save(context.Background(), rs))
	again, _, err := wb.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, again.Seasons, 3)
	assert.True(t, again.Seasons[1].Blank)
	assert.Equal(t, "第 3 季", again.Seasons[2].DisplayName)
}

func TestWorkbook_LoadMissingSheets(t *testing.T) {
	wb := newTestWorkbook(t)
	writeRaw(t, wb.Path(), map[string][][]interface{}{
		"Movies": {{"Movie Title", "Movie Description"}, {"Film", "Plot"}},
	})

	rs, rowErrs, err := wb.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Empty(t, rs.Seasons)
	assert.Empty(t, rs.Episodes)
	assert.True(t, rs.IsMovie())
}
