package model

import "fmt"

// IssueKind classifies a consistency problem found in a record set.
type IssueKind string

const (
	// IssueSeasonOutOfRange marks an episode whose provisional season number
	// does not point at any row of the Seasons sheet.
	IssueSeasonOutOfRange IssueKind = "season_out_of_range"
	// IssueMissingSeason marks an episode with no season number at all.
	IssueMissingSeason IssueKind = "missing_season"
	// IssueDuplicateSeasonName marks a season whose display name was already
	// used by an earlier season. The later season wins the name join.
	IssueDuplicateSeasonName IssueKind = "duplicate_season_name"
	// IssueBlankSeason marks an episode whose provisional season number
	// points at a blank row of the Seasons sheet.
	IssueBlankSeason IssueKind = "blank_season"
)

// Issue is a single validation finding. Row is 0-based within its sheet.
type Issue struct {
	Kind  IssueKind
	Sheet string
	Row   int
	Msg   string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s row %d: %s", i.Sheet, i.Row+1, i.Msg)
}

// RowError describes a spreadsheet row that could not be read as-is.
// Row is the 1-based spreadsheet row number, header included.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("sheet %s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Validate checks the positional join between Episodes and Seasons of a
// record set that has not been reconciled yet: every provisional episode
// season number must be in [1, len(Seasons)]. It also reports duplicate
// season display names. The record set is not modified.
func Validate(rs RecordSet) []Issue {
	var issues []Issue

	seen := make(map[string]int, len(rs.Seasons))
	for i, s := range rs.Seasons {
		if s.Blank {
			continue
		}
		if first, ok := seen[s.DisplayName]; ok {
			issues = append(issues, Issue{
				Kind:  IssueDuplicateSeasonName,
				Sheet: "Seasons",
				Row:   i,
				Msg:   fmt.Sprintf("season name %q already used by row %d", s.DisplayName, first+1),
			})
			continue
		}
		seen[s.DisplayName] = i
	}

	for i, ep := range rs.Episodes {
		if ep.Malformed() {
			continue
		}
		n, ok := ep.SeasonNumber.Get()
		if !ok {
			issues = append(issues, Issue{
				Kind:  IssueMissingSeason,
				Sheet: "Episodes",
				Row:   i,
				Msg:   fmt.Sprintf("episode %d %q has no season number", ep.EpisodeNumber, ep.Title),
			})
			continue
		}
		if n < 1 || n > len(rs.Seasons) {
			issues = append(issues, Issue{
				Kind:  IssueSeasonOutOfRange,
				Sheet: "Episodes",
				Row:   i,
				Msg:   fmt.Sprintf("season %d is outside 1..%d", n, len(rs.Seasons)),
			})
			continue
		}
		if rs.Seasons[n-1].Blank {
			issues = append(issues, Issue{
				Kind:  IssueBlankSeason,
				Sheet: "Episodes",
				Row:   i,
				Msg:   fmt.Sprintf("season %d is a blank row", n),
			})
		}
	}
	return issues
}
