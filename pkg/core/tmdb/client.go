package tmdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelospk/tmdbimporter/internal/constants"
	"github.com/angelospk/tmdbimporter/internal/httpclient"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
)

// API is the read side of TMDB used to verify an upload.
type API interface {
	GetTVDetails(ctx context.Context, id int) (*TVDetails, error)
	GetMovieDetails(ctx context.Context, id int) (*MovieDetails, error)
}

var _ API = (*Client)(nil)

// Client talks to the TMDB v3 REST API.
type Client struct {
	http     *httpclient.Client
	language string
}

// NewClient creates an API client. An empty apiURL selects the public API.
func NewClient(apiURL, apiKey, language string) *Client {
	if apiURL == "" {
		apiURL = constants.DefaultAPIURL
	}
	if language == "" {
		language = constants.DefaultLanguage
	}
	return &Client{
		http:     httpclient.New(apiURL, apiKey, constants.UserAgent),
		language: language,
	}
}

type detailsParams struct {
	Language string `url:"language,omitempty"`
}

// SeasonSummary is a season entry of TVDetails.
type SeasonSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// TVDetails is the response of GET /tv/{id}.
type TVDetails struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	OriginalName     string          `json:"original_name"`
	Overview         string          `json:"overview"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	Seasons          []SeasonSummary `json:"seasons"`
}

// MovieDetails is the response of GET /movie/{id}.
type MovieDetails struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Overview      string `json:"overview"`
	ReleaseDate   string `json:"release_date"`
}

// GetTVDetails fetches a series in the client's language.
func (c *Client) GetTVDetails(ctx context.Context, id int) (*TVDetails, error) {
	var out TVDetails
	if err := c.http.Get(ctx, fmt.Sprintf("/tv/%d", id), detailsParams{Language: c.language}, &out); err != nil {
		return nil, fmt.Errorf("get tv %d: %w", id, err)
	}
	return &out, nil
}

// GetMovieDetails fetches a movie in the client's language.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	var out MovieDetails
	if err := c.http.Get(ctx, fmt.Sprintf("/movie/%d", id), detailsParams{Language: c.language}, &out); err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &out, nil
}

// SeasonCheck compares one season between the workbook and TMDB.
type SeasonCheck struct {
	Number           int
	WorkbookName     string
	TMDBName         string
	WorkbookEpisodes int
	TMDBEpisodes     int
	// MissingOnTMDB is set when TMDB has no season with this number.
	MissingOnTMDB bool
}

// OK reports whether the season exists on TMDB with the same episode count.
func (s SeasonCheck) OK() bool {
	return !s.MissingOnTMDB && s.WorkbookEpisodes == s.TMDBEpisodes
}

// CompareSeasons lines up the workbook's seasons with TMDB's by season number,
// counting episodes per season on both sides. Seasons present on either side
// are reported, ordered by number.
func CompareSeasons(rs *model.RecordSet, tv *TVDetails) []SeasonCheck {
	checks := make(map[int]*SeasonCheck)
	get := func(n int) *SeasonCheck {
		if c, ok := checks[n]; ok {
			return c
		}
		c := &SeasonCheck{Number: n, MissingOnTMDB: true}
		checks[n] = c
		return c
	}

	for _, s := range rs.Seasons {
		if s.Blank {
			continue
		}
		get(s.Number).WorkbookName = s.DisplayName
	}
	for _, ep := range rs.Episodes {
		if n, ok := ep.SeasonNumber.Get(); ok {
			get(n).WorkbookEpisodes++
		}
	}
	for _, s := range tv.Seasons {
		c := get(s.SeasonNumber)
		c.MissingOnTMDB = false
		c.TMDBName = s.Name
		c.TMDBEpisodes = s.EpisodeCount
	}

	out := make([]SeasonCheck, 0, len(checks))
	for _, c := range checks {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
