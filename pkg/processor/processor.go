package processor

import (
	"context"
	"errors"
	"os"

	"github.com/angelospk/tmdbimporter/internal/constants"
	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	log "github.com/sirupsen/logrus"
)

// ErrNothingToUpload is returned when a record set yields no job for the target.
var ErrNothingToUpload = errors.New("processor: workbook has no records for this target")

// ProcessorInterface defines the methods for turning records into upload jobs.
type ProcessorInterface interface {
	CreateJobsFromRecordSet(ctx context.Context, rs *model.RecordSet, target metadata.Target) ([]metadata.UploadJob, error)
}

// Ensure Processor implements ProcessorInterface
var _ ProcessorInterface = (*Processor)(nil)

// Options configure where jobs point to.
type Options struct {
	WebURL   string
	Language string
}

// Processor maps workbook records onto TMDB edit pages.
type Processor struct {
	opts   Options
	logger *log.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(opts Options, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New()
		logger.SetFormatter(&log.TextFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	if opts.WebURL == "" {
		opts.WebURL = constants.DefaultWebURL
	}
	if opts.Language == "" {
		opts.Language = constants.DefaultLanguage
	}
	return &Processor{opts: opts, logger: logger}
}

// CreateJobsFromRecordSet creates one job for the movie, or one for the
// series plus one per season and per episode. Blank season rows are left out.
// Episodes that are unreadable or whose season number is unresolved are
// skipped and logged.
func (p *Processor) CreateJobsFromRecordSet(ctx context.Context, rs *model.RecordSet, target metadata.Target) ([]metadata.UploadJob, error) {
	web, lang := p.opts.WebURL, p.opts.Language

	if target.IsMovie() {
		if len(rs.Movies) == 0 {
			return nil, ErrNothingToUpload
		}
		movie := rs.Movies[0]
		job := metadata.NewUploadJob(metadata.KindMovie, target.EditURL(web, lang), lang, movie.Name, movie.Description)
		p.logger.Infof("Created movie job for %s", movie.Name)
		return []metadata.UploadJob{job}, nil
	}

	if !rs.Reconciled {
		p.logger.Warn("Records have not been reconciled; season numbers may not match TMDB")
	}

	var jobs []metadata.UploadJob
	if len(rs.Titles) > 0 {
		title := rs.Titles[0]
		jobs = append(jobs, metadata.NewUploadJob(metadata.KindSeries, target.EditURL(web, lang), lang, title.Name, title.Description))
	} else {
		p.logger.Warn("No series title found, skipping series job")
	}

	seasons := 0
	for _, s := range rs.Seasons {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.Blank {
			continue
		}
		seasons++
		job := metadata.NewUploadJob(metadata.KindSeason, target.SeasonEditURL(web, lang, s.Number), lang, s.DisplayName, s.Description)
		job.Season = s.Number
		jobs = append(jobs, job)
	}

	skipped := 0
	for _, ep := range rs.Episodes {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ep.Malformed() {
			p.logger.Warnf("  Skipping unreadable episode row %q", ep.Raw)
			skipped++
			continue
		}
		season, ok := ep.SeasonNumber.Get()
		if !ok {
			p.logger.Warnf("  Skipping episode %d %q: season number is unresolved", ep.EpisodeNumber, ep.Title)
			skipped++
			continue
		}
		job := metadata.NewUploadJob(metadata.KindEpisode, target.EpisodeEditURL(web, lang, season, ep.EpisodeNumber), lang, ep.Title, ep.Description)
		job.Season = season
		job.Episode = ep.EpisodeNumber
		jobs = append(jobs, job)
	}

	if len(jobs) == 0 {
		return nil, ErrNothingToUpload
	}
	p.logger.Infof("Created %d jobs (%d seasons, %d episodes skipped)", len(jobs), seasons, skipped)
	return jobs, nil
}
