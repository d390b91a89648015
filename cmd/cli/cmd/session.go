package cmd

import (
	"context"
	"fmt"
	"strings"

	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/extractors"
	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/angelospk/tmdbimporter/pkg/core/queue"
	"github.com/angelospk/tmdbimporter/pkg/core/reconcile"
	"github.com/angelospk/tmdbimporter/pkg/core/tmdb"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session is the state one command invocation shares between its steps. The
// browser, queue and uploader are created on first use and reused, so an
// interactive run logs in to each site once.
type session struct {
	ctx      context.Context
	logger   *log.Logger
	closeLog func()
	prompt   *prompter
	wb       WorkbookStore

	driver     pagedriver.Driver
	extractors map[string]extractors.Extractor
	qm         queue.QueueManagerInterface
	uploader   QueueUploader
}

func newSession(cmd *cobra.Command) *session {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger, closeLog := newLogger(cmd.ErrOrStderr())
	return &session{
		ctx:        ctx,
		logger:     logger,
		closeLog:   closeLog,
		prompt:     newPrompter(cmd),
		wb:         openWorkbook(logger),
		extractors: map[string]extractors.Extractor{},
	}
}

func (s *session) Close() {
	if s.driver != nil {
		if err := s.driver.Close(); err != nil {
			s.logger.Warnf("Failed to close browser: %v", err)
		}
		s.driver = nil
	}
	s.closeLog()
}

func (s *session) browser() (pagedriver.Driver, error) {
	if s.driver != nil {
		return s.driver, nil
	}
	d, err := NewDriverFunc(s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	s.driver = d
	return d, nil
}

// retry runs fn until it succeeds, fails for good, or the user gives up
// waiting for the workbook to be closed.
func (s *session) retry(fn func() error) error {
	for {
		err := fn()
		if err == nil || !coreErrors.IsRetryable(err) {
			return err
		}
		s.logger.Warn(err)
		answer, aerr := s.prompt.ask(fmt.Sprintf("Please close %s and press Enter to retry (q to give up): ", s.wb.Path()))
		if aerr != nil || strings.EqualFold(answer, "q") {
			return err
		}
	}
}

// requireCredentials prompts for any missing keys and offers to save them.
func (s *session) requireCredentials(keys map[string]string, order ...string) error {
	prompted := false
	for _, key := range order {
		_, asked, err := s.prompt.requireSetting(key, keys[key])
		if err != nil {
			return err
		}
		prompted = prompted || asked
	}
	if prompted {
		return s.prompt.offerSave()
	}
	return nil
}

func (s *session) extractorFor(rawURL string) (extractors.Extractor, error) {
	e, err := NewExtractorFunc(rawURL, extractorOptions(s.logger))
	if err != nil {
		return nil, err
	}
	if cached, ok := s.extractors[e.Name()]; ok {
		return cached, nil
	}
	if _, ok := e.(extractors.Authenticator); ok {
		err := s.requireCredentials(map[string]string{
			CfgKeyDisneyPlusEmail:    "Disney+ email",
			CfgKeyDisneyPlusPassword: "Disney+ password",
		}, CfgKeyDisneyPlusEmail, CfgKeyDisneyPlusPassword)
		if err != nil {
			return nil, err
		}
		if e, err = NewExtractorFunc(rawURL, extractorOptions(s.logger)); err != nil {
			return nil, err
		}
	}
	s.extractors[e.Name()] = e
	return e, nil
}

// extract scrapes rawURL and replaces the workbook contents with the result.
func (s *session) extract(rawURL string) (*model.RecordSet, error) {
	e, err := s.extractorFor(rawURL)
	if err != nil {
		return nil, err
	}
	d, err := s.browser()
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Extracting %s with the %s extractor...", rawURL, e.Name())
	rs, err := e.Extract(s.ctx, d, rawURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	if err := s.retry(func() error { return s.wb.Save(s.ctx, rs) }); err != nil {
		return nil, err
	}
	s.logger.Infof("Saved %d seasons and %d episodes to %s", len(rs.Seasons), len(rs.Episodes), s.wb.Path())
	return rs, nil
}

func (s *session) reconcile(opts reconcile.Options) (*reconcile.Report, error) {
	var report *reconcile.Report
	err := s.retry(func() error {
		var err error
		report, err = reconcile.NewPipeline(s.wb, s.logger).Run(s.ctx, opts)
		return err
	})
	return report, err
}

func (s *session) load() (*model.RecordSet, error) {
	var rs *model.RecordSet
	err := s.retry(func() error {
		var (
			rowErrs []model.RowError
			err     error
		)
		rs, rowErrs, err = s.wb.Load(s.ctx)
		for _, re := range rowErrs {
			s.logger.Warnf("Skipped or coerced row: %v", re)
		}
		return err
	})
	return rs, err
}

func (s *session) queueManager() (queue.QueueManagerInterface, error) {
	if s.qm != nil {
		return s.qm, nil
	}
	dir, err := queueDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue directory: %w", err)
	}
	qm, err := NewQueueManagerFunc(dir, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue manager: %w", err)
	}
	s.qm = qm
	return qm, nil
}

func (s *session) tmdbUploader() (QueueUploader, error) {
	if s.uploader != nil {
		return s.uploader, nil
	}
	err := s.requireCredentials(map[string]string{
		CfgKeyTMDBUsername: "TMDB username",
		CfgKeyTMDBPassword: "TMDB password",
	}, CfgKeyTMDBUsername, CfgKeyTMDBPassword)
	if err != nil {
		return nil, err
	}
	d, err := s.browser()
	if err != nil {
		return nil, err
	}
	creds := tmdb.Credentials{
		Username: viper.GetString(CfgKeyTMDBUsername),
		Password: viper.GetString(CfgKeyTMDBPassword),
	}
	s.uploader = NewUploaderFunc(d, creds, s.logger)
	return s.uploader, nil
}

// enqueue turns the workbook into upload jobs for target and adds them to the
// queue.
func (s *session) enqueue(target metadata.Target) (added, skipped int, err error) {
	rs, err := s.load()
	if err != nil {
		return 0, 0, err
	}
	jobs, err := NewProcessorFunc(processorOptions(), s.logger).CreateJobsFromRecordSet(s.ctx, rs, target)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create upload jobs: %w", err)
	}
	qm, err := s.queueManager()
	if err != nil {
		return 0, 0, err
	}
	added, skipped = qm.AddToQueue(jobs)
	s.logger.Infof("Added %d jobs to the queue (%d skipped).", added, skipped)
	return added, skipped, nil
}

// upload drains the queue into TMDB.
func (s *session) upload() (tmdb.Summary, error) {
	qm, err := s.queueManager()
	if err != nil {
		return tmdb.Summary{}, err
	}
	up, err := s.tmdbUploader()
	if err != nil {
		return tmdb.Summary{}, err
	}
	sum, err := up.ProcessQueue(s.ctx, qm)
	s.logger.Infof("Upload finished: %d completed, %d failed, %d skipped.", sum.Completed, sum.Failed, sum.Skipped)
	return sum, err
}
