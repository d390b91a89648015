package metadata

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/google/uuid"
)

// TargetKind is the type of TMDB page a workbook is uploaded to.
type TargetKind string

const (
	TargetTV    TargetKind = "tv"
	TargetMovie TargetKind = "movie"
)

// Target identifies a TMDB title, parsed from any URL on its pages.
type Target struct {
	Kind TargetKind `json:"kind"`
	// ID is the path slug, e.g. "1399" or "1399-game-of-thrones".
	ID string `json:"id"`
}

// ParseTarget extracts the title kind and id from a TMDB URL such as
// https://www.themoviedb.org/tv/1399-game-of-thrones/season/2?language=zh-HK.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", coreErrors.ErrInvalidTarget, err)
	}
	if host := strings.ToLower(u.Hostname()); host != "themoviedb.org" && !strings.HasSuffix(host, ".themoviedb.org") {
		return Target{}, fmt.Errorf("%w: %q is not a themoviedb.org url", coreErrors.ErrInvalidTarget, raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		kind := TargetKind(segments[i])
		if (kind == TargetTV || kind == TargetMovie) && segments[i+1] != "" {
			return Target{Kind: kind, ID: segments[i+1]}, nil
		}
	}
	return Target{}, fmt.Errorf("%w: %q", coreErrors.ErrInvalidTarget, raw)
}

// IsMovie reports whether the target is a movie page.
func (t Target) IsMovie() bool { return t.Kind == TargetMovie }

// NumericID returns the leading numeric part of the id slug, as used by the API.
func (t Target) NumericID() (int, error) {
	digits, _, _ := strings.Cut(t.ID, "-")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not numeric", coreErrors.ErrInvalidTarget, t.ID)
	}
	return n, nil
}

// EditURL is the edit page of the series or movie itself.
func (t Target) EditURL(webURL, language string) string {
	return fmt.Sprintf("%s/%s/%s/edit?language=%s", strings.TrimRight(webURL, "/"), t.Kind, t.ID, language)
}

// SeasonEditURL is the edit page of one season of a series.
func (t Target) SeasonEditURL(webURL, language string, season int) string {
	return fmt.Sprintf("%s/tv/%s/season/%d/edit?language=%s", strings.TrimRight(webURL, "/"), t.ID, season, language)
}

// EpisodeEditURL is the edit page of one episode of a series.
func (t Target) EpisodeEditURL(webURL, language string, season, episode int) string {
	return fmt.Sprintf("%s/tv/%s/season/%d/episode/%d/edit?language=%s", strings.TrimRight(webURL, "/"), t.ID, season, episode, language)
}

// JobKind is the kind of TMDB page an upload job edits.
type JobKind string

const (
	KindSeries  JobKind = "series"
	KindSeason  JobKind = "season"
	KindEpisode JobKind = "episode"
	KindMovie   JobKind = "movie"
)

// UploadJob is one translation to write to one TMDB edit page.
type UploadJob struct {
	ID       string  `json:"id"`
	Kind     JobKind `json:"kind"`
	EditURL  string  `json:"editUrl"`
	Language string  `json:"language"`
	Season   int     `json:"season,omitempty"`
	Episode  int     `json:"episode,omitempty"`

	Name     string `json:"name"`
	Overview string `json:"overview"`
	// SkipEmptyOverview leaves the overview field untouched when Overview is
	// blank, so an existing translation is not wiped.
	SkipEmptyOverview bool `json:"skipEmptyOverview,omitempty"`

	// Status tracking
	Status      JobStatus `json:"status"`
	Message     string    `json:"message,omitempty"` // Error or success message
	SubmittedAt time.Time `json:"submittedAt,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// NewUploadJob returns a pending job with a fresh ID.
func NewUploadJob(kind JobKind, editURL, language, name, overview string) UploadJob {
	return UploadJob{
		ID:                uuid.NewString(),
		Kind:              kind,
		EditURL:           editURL,
		Language:          language,
		Name:              name,
		Overview:          overview,
		SkipEmptyOverview: kind == KindSeason || kind == KindEpisode,
		Status:            StatusPending,
	}
}

// FieldIDs returns the element ids of the name and overview inputs on the
// job's edit form, e.g. "zh_HK_name" and "zh_HK_overview". Movies use a
// translated title field instead of a name.
func (j UploadJob) FieldIDs() (name, overview string) {
	prefix := strings.ReplaceAll(j.Language, "-", "_")
	if j.Kind == KindMovie {
		return prefix + "_translated_title", prefix + "_overview"
	}
	return prefix + "_name", prefix + "_overview"
}

// JobStatus defines the possible states of an upload job.
type JobStatus string

const (
	StatusPending   JobStatus = "Pending"   // Waiting in the queue
	StatusUploading JobStatus = "Uploading" // Form is being filled
	StatusComplete  JobStatus = "Complete"  // Form submitted
	StatusFailed    JobStatus = "Failed"
	StatusSkipped   JobStatus = "Skipped" // Nothing to write
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusSkipped
}
