package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/fileops"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Sheet names used in the workbook.
const (
	SheetTitle    = "Title"
	SheetSeasons  = "Seasons"
	SheetEpisodes = "Episodes"
	SheetMovies   = "Movies"
)

// reconciledStatus is stored in the workbook's content status property once
// season numbers have been reconciled.
const reconciledStatus = "reconciled"

var (
	titleHeader   = []string{"Name", "Description"}
	movieHeader   = []string{"Movie Title", "Movie Description"}
	seasonHeader  = []string{"Season Name", "Season Number", "Season Description"}
	episodeHeader = []string{"Season Number", "Episode Number", "Episode Title", "Episode Description"}
)

// Workbook is a spreadsheet-backed record store. A workbook holds the records
// of exactly one title.
type Workbook struct {
	path   string
	logger *log.Logger
}

// NewWorkbook returns a store for the xlsx file at path. The file is not
// touched until the first operation.
func NewWorkbook(path string, logger *log.Logger) *Workbook {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	return &Workbook{path: path, logger: logger}
}

// Path returns the workbook file path.
func (w *Workbook) Path() string { return w.path }

func (w *Workbook) fail(op string, err error) error {
	switch {
	case errors.Is(err, coreErrors.ErrStoreLocked), errors.Is(err, coreErrors.ErrStoreUnavailable):
	case errors.Is(err, fs.ErrPermission):
		err = fmt.Errorf("%w: %w", coreErrors.ErrStoreLocked, err)
	default:
		err = fmt.Errorf("%w: %w", coreErrors.ErrStoreUnavailable, err)
	}
	return &coreErrors.StoreError{Op: op, Path: w.path, Err: err}
}

// lock takes the inter-process lock guarding the workbook. Writers take it
// exclusively, readers shared. The returned func releases it.
func (w *Workbook) lock(exclusive bool) (func(), error) {
	if fileops.IsOpenInOffice(w.path) {
		return nil, fmt.Errorf("%w (owner file %s exists)", coreErrors.ErrStoreLocked, fileops.OwnerLockPath(w.path))
	}
	fl := flock.New(w.path + ".lock")
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = fl.TryLock()
	} else {
		ok, err = fl.TryRLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire workbook lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (held by another tmdbimporter process)", coreErrors.ErrStoreLocked)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Init creates the workbook with empty sheets if it does not exist yet.
func (w *Workbook) Init(ctx context.Context) error {
	exists, err := fileops.Exists(w.path)
	if err != nil {
		return w.fail("init", err)
	}
	if exists {
		return nil
	}
	w.logger.Infof("Creating workbook %s", w.path)
	return w.write(ctx, "init", &model.RecordSet{})
}

// Clear replaces the workbook with empty sheets, keeping the headers.
func (w *Workbook) Clear(ctx context.Context) error {
	w.logger.Debugf("Clearing workbook %s", w.path)
	return w.write(ctx, "clear", &model.RecordSet{})
}

// Save replaces every sheet of the workbook with rs in a single atomic write.
func (w *Workbook) Save(ctx context.Context, rs *model.RecordSet) error {
	return w.write(ctx, "save", rs)
}

func (w *Workbook) write(ctx context.Context, op string, rs *model.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock, err := w.lock(true)
	if err != nil {
		return w.fail(op, err)
	}
	defer unlock()

	f, err := buildFile(rs)
	if err != nil {
		return w.fail(op, err)
	}
	defer f.Close()

	err = fileops.WriteFileAtomic(w.path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	})
	if err != nil {
		return w.fail(op, err)
	}
	w.logger.Debugf("Wrote workbook %s (%d seasons, %d episodes)", w.path, len(rs.Seasons), len(rs.Episodes))
	return nil
}

func buildFile(rs *model.RecordSet) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetTitle); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetSeasons, SheetEpisodes, SheetMovies} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	titles := make([][]interface{}, 0, len(rs.Titles))
	for _, t := range rs.Titles {
		titles = append(titles, []interface{}{t.Name, t.Description})
	}
	movies := make([][]interface{}, 0, len(rs.Movies))
	for _, m := range rs.Movies {
		movies = append(movies, []interface{}{m.Name, m.Description})
	}
	seasons := make([][]interface{}, 0, len(rs.Seasons))
	for _, s := range rs.Seasons {
		if s.Blank {
			seasons = append(seasons, nil)
			continue
		}
		seasons = append(seasons, []interface{}{s.DisplayName, s.Number, s.Description})
	}
	episodes := make([][]interface{}, 0, len(rs.Episodes))
	for _, e := range rs.Episodes {
		if e.Malformed() {
			raw := make([]interface{}, len(e.Raw))
			for i, c := range e.Raw {
				raw[i] = c
			}
			episodes = append(episodes, raw)
			continue
		}
		var season interface{} = ""
		if n, ok := e.SeasonNumber.Get(); ok {
			season = n
		}
		episodes = append(episodes, []interface{}{season, e.EpisodeNumber, e.Title, e.Description})
	}

	for _, sheet := range []struct {
		name   string
		header []string
		rows   [][]interface{}
	}{
		{SheetTitle, titleHeader, titles},
		{SheetSeasons, seasonHeader, seasons},
		{SheetEpisodes, episodeHeader, episodes},
		{SheetMovies, movieHeader, movies},
	} {
		if err := writeSheet(f, sheet.name, sheet.header, sheet.rows); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", sheet.name, err)
		}
	}

	if rs.Reconciled {
		if err := f.SetDocProps(&excelize.DocProperties{ContentStatus: reconciledStatus}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	for i, row := range rows {
		// An empty row is left blank in place.
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the workbook. Rows that cannot be read as-is are kept as
// placeholders or coerced and reported as RowErrors, so a later Save writes
// them back. Only failures to open the workbook are returned as an error.
func (w *Workbook) Load(ctx context.Context) (*model.RecordSet, []model.RowError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	exists, err := fileops.Exists(w.path)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	if !exists {
		return nil, nil, w.fail("load", fmt.Errorf("%w: %s does not exist", coreErrors.ErrStoreUnavailable, w.path))
	}

	unlock, err := w.lock(false)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	defer unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	defer f.Close()

	rs := &model.RecordSet{}
	var rowErrs []model.RowError

	if props, err := f.GetDocProps(); err == nil && props.ContentStatus == reconciledStatus {
		rs.Reconciled = true
	}

	rows, err := w.sheetRows(f, SheetTitle)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	rs.Titles = readTitles(rows)

	rows, err = w.sheetRows(f, SheetMovies)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	rs.Movies = readTitles(rows)

	rows, err = w.sheetRows(f, SheetSeasons)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	var errs []model.RowError
	rs.Seasons, errs = readSeasons(rows)
	rowErrs = append(rowErrs, errs...)

	rows, err = w.sheetRows(f, SheetEpisodes)
	if err != nil {
		return nil, nil, w.fail("load", err)
	}
	rs.Episodes, errs = readEpisodes(rows)
	rowErrs = append(rowErrs, errs...)

	w.logger.Debugf("Loaded workbook %s: %d titles, %d movies, %d seasons, %d episodes, %d row errors",
		w.path, len(rs.Titles), len(rs.Movies), len(rs.Seasons), len(rs.Episodes), len(rowErrs))
	return rs, rowErrs, nil
}

// sheetRows returns all rows of sheet, header included. A missing sheet reads
// as empty.
func (w *Workbook) sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		w.logger.Warnf("Workbook %s has no %q sheet, treating it as empty.", w.path, sheet)
		return nil, nil
	}
	return f.GetRows(sheet)
}

// columns maps canonical column positions to the positions found in a header
// row. Headers that cannot be found keep their canonical position.
func columns(header []string, canonical []string) []int {
	pos := make([]int, len(canonical))
	for i, name := range canonical {
		pos[i] = i
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				pos[i] = j
				break
			}
		}
	}
	return pos
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseInt accepts integers and integral floats such as "2.0", which is how
// some writers store integer columns that contain gaps.
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

func readTitles(rows [][]string) []model.TitleRecord {
	var out []model.TitleRecord
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		out = append(out, model.TitleRecord{Name: cell(row, 0), Description: cell(row, 1)})
	}
	return out
}

func readSeasons(rows [][]string) ([]model.SeasonRecord, []model.RowError) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := columns(rows[0], seasonHeader)

	var (
		out  []model.SeasonRecord
		errs []model.RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		// Every row keeps its place so episode joins stay aligned. A number
		// that cannot be read falls back to the row's position.
		ordinal := len(out) + 1
		if isBlank(row) {
			errs = append(errs, model.RowError{Sheet: SheetSeasons, Row: rowNum, Err: errors.New("blank row, no episode joins to it")})
			out = append(out, model.SeasonRecord{Number: ordinal, Blank: true})
			continue
		}
		s := model.SeasonRecord{
			DisplayName: cell(row, col[0]),
			Description: cell(row, col[2]),
		}
		n, err := parseInt(cell(row, col[1]))
		if err != nil {
			errs = append(errs, model.RowError{Sheet: SheetSeasons, Row: rowNum, Err: fmt.Errorf("season number: %w, using %d", err, ordinal)})
			n = ordinal
		}
		s.Number = n
		out = append(out, s)
	}
	return out, errs
}

func readEpisodes(rows [][]string) ([]model.EpisodeRecord, []model.RowError) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := columns(rows[0], episodeHeader)

	var (
		out  []model.EpisodeRecord
		errs []model.RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		number, err := parseInt(cell(row, col[1]))
		if err != nil {
			errs = append(errs, model.RowError{Sheet: SheetEpisodes, Row: rowNum, Err: fmt.Errorf("episode number: %w, row kept as is", err)})
			raw := make([]string, len(col))
			for j, c := range col {
				raw[j] = cell(row, c)
			}
			out = append(out, model.EpisodeRecord{Raw: raw})
			continue
		}
		ep := model.EpisodeRecord{
			EpisodeNumber: number,
			Title:         cell(row, col[2]),
			Description:   cell(row, col[3]),
		}
		if raw := cell(row, col[0]); raw != "" {
			season, err := parseInt(raw)
			if err != nil {
				errs = append(errs, model.RowError{Sheet: SheetEpisodes, Row: rowNum, Err: fmt.Errorf("season number: %w, left unresolved", err)})
			} else {
				ep.SeasonNumber = model.Int(season)
			}
		}
		out = append(out, ep)
	}
	return out, errs
}
