package model

import "strconv"

// TitleRecord holds the name and synopsis of a series or a movie.
type TitleRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeasonRecord is one row of the Seasons sheet.
//
// Number is provisional as produced by extraction (usually the traversal order)
// and canonical after reconciliation. DisplayName identifies the season within
// one title and is the join key used to move episodes onto canonical numbers.
type SeasonRecord struct {
	DisplayName string `json:"displayName"`
	Number      int    `json:"number"`
	Description string `json:"description"`

	// Blank marks a placeholder for an empty Seasons row. It holds the row's
	// position so the seasons after it keep theirs; no episode joins to it
	// and it is written back empty.
	Blank bool `json:"-"`
}

// EpisodeRecord is one row of the Episodes sheet.
//
// Before reconciliation SeasonNumber is the 1-based position of the season the
// episode was scraped under, i.e. an index into RecordSet.Seasons. After
// reconciliation it is the canonical number, or invalid when no season could be
// joined.
type EpisodeRecord struct {
	SeasonNumber  NullInt `json:"seasonNumber"`
	EpisodeNumber int     `json:"episodeNumber"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`

	// Raw holds the cells of a row whose episode number could not be read,
	// in Episodes column order. Such a row is left out of reconciliation and
	// upload and is written back as it was found.
	Raw []string `json:"-"`
}

// Malformed reports whether the row could not be read as an episode.
func (e EpisodeRecord) Malformed() bool {
	return e.Raw != nil
}

// RecordSet is everything extracted for a single title.
type RecordSet struct {
	Titles   []TitleRecord   `json:"titles,omitempty"`
	Movies   []TitleRecord   `json:"movies,omitempty"`
	Seasons  []SeasonRecord  `json:"seasons,omitempty"`
	Episodes []EpisodeRecord `json:"episodes,omitempty"`

	// Reconciled is set once season numbers have been rewritten, so a stored
	// record set is never renumbered twice.
	Reconciled bool `json:"reconciled,omitempty"`
}

// IsMovie reports whether the record set describes a movie.
func (rs RecordSet) IsMovie() bool {
	return len(rs.Movies) > 0 && len(rs.Titles) == 0
}

// Clone returns a copy whose slices do not alias rs.
func (rs RecordSet) Clone() RecordSet {
	out := rs
	out.Titles = append([]TitleRecord(nil), rs.Titles...)
	out.Movies = append([]TitleRecord(nil), rs.Movies...)
	out.Seasons = append([]SeasonRecord(nil), rs.Seasons...)
	out.Episodes = append([]EpisodeRecord(nil), rs.Episodes...)
	return out
}

// NullInt is an integer that may be missing. The zero value is missing.
type NullInt struct {
	Int   int  `json:"int"`
	Valid bool `json:"valid"`
}

// Int returns a present NullInt.
func Int(n int) NullInt {
	return NullInt{Int: n, Valid: true}
}

// Get returns the value and whether it is present.
func (n NullInt) Get() (int, bool) {
	return n.Int, n.Valid
}

// String renders a missing value as the empty string.
func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.Int)
}
