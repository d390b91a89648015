package reconcile

import (
	"context"
	"fmt"
	"os"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence boundary of the pipeline.
//
// Load returns the record set together with the rows it had to skip or
// coerce. A non-nil error means the store itself could not be read; it is
// never returned for a single bad row.
type Store interface {
	Load(ctx context.Context) (*model.RecordSet, []model.RowError, error)
	Save(ctx context.Context, rs *model.RecordSet) error
}

// Options control a pipeline run.
type Options struct {
	// Force renumbers a record set that is already marked reconciled.
	Force bool
	// DryRun skips the final Save.
	DryRun bool
}

// Report summarizes a reconciliation.
type Report struct {
	Skipped           bool // record set was already reconciled
	SeasonsRenumbered int
	// EpisodesRenumbered counts episodes that were joined to a season whose
	// number differs from their provisional one. Unresolved and malformed
	// rows are never counted here.
	EpisodesRenumbered int
	// UnresolvedEpisodes holds the 0-based Episodes rows whose season could
	// not be joined, including rows that had no provisional season at all.
	// They are disjoint from the rows counted in EpisodesRenumbered.
	UnresolvedEpisodes []int
	RowErrors          []model.RowError
	Issues             []model.Issue
}

// Reconcile derives canonical season numbers and moves every episode onto
// them. Titles and Movies pass through untouched. rs is not modified.
func Reconcile(rs model.RecordSet) (model.RecordSet, Report) {
	var report Report

	out := rs.Clone()
	out.Seasons = ResolveSeasonNumbers(rs.Seasons)
	out.Episodes = RemapEpisodes(rs.Seasons, out.Seasons, rs.Episodes)
	out.Reconciled = true

	for i := range rs.Seasons {
		if rs.Seasons[i].Number != out.Seasons[i].Number {
			report.SeasonsRenumbered++
		}
	}
	for i := range rs.Episodes {
		if rs.Episodes[i].Malformed() {
			continue
		}
		if !out.Episodes[i].SeasonNumber.Valid {
			report.UnresolvedEpisodes = append(report.UnresolvedEpisodes, i)
			continue
		}
		if rs.Episodes[i].SeasonNumber != out.Episodes[i].SeasonNumber {
			report.EpisodesRenumbered++
		}
	}
	return out, report
}

// Pipeline loads a record set from a Store, reconciles it and writes it back.
type Pipeline struct {
	store  Store
	logger *log.Logger
}

// NewPipeline creates a Pipeline over store.
func NewPipeline(store Store, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New()
		logger.SetFormatter(&log.TextFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	return &Pipeline{store: store, logger: logger}
}

// Run performs one load-transform-save cycle. Errors from the store are
// returned as-is so callers can check coreErrors.IsRetryable.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	rs, rowErrs, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, re := range rowErrs {
		p.logger.Warnf("Skipped or coerced row: %v", re)
	}

	if rs.Reconciled && !opts.Force {
		p.logger.Info("Workbook is already reconciled, nothing to do.")
		return &Report{Skipped: true, RowErrors: rowErrs}, nil
	}

	issues := model.Validate(*rs)
	for _, is := range issues {
		p.logger.Warnf("Consistency warning: %s", is)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out, report := Reconcile(*rs)
	report.RowErrors = rowErrs
	report.Issues = issues

	for _, row := range report.UnresolvedEpisodes {
		ep := rs.Episodes[row]
		p.logger.Warnf("Episode %d %q (provisional season %s) has no matching season; left unresolved.",
			ep.EpisodeNumber, ep.Title, ep.SeasonNumber)
	}
	p.logger.Infof("Reconciled %d seasons and %d episodes (%d renumbered seasons, %d renumbered episodes, %d unresolved).",
		len(out.Seasons), len(out.Episodes), report.SeasonsRenumbered, report.EpisodesRenumbered, len(report.UnresolvedEpisodes))

	if opts.DryRun {
		return &report, nil
	}
	if err := p.store.Save(ctx, &out); err != nil {
		return nil, fmt.Errorf("save reconciled workbook: %w", err)
	}
	return &report, nil
}
