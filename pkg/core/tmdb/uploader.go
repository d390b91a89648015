// Package tmdb writes translations to themoviedb.org through its edit forms
// and reads title details back through the REST API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/angelospk/tmdbimporter/internal/constants"
	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/angelospk/tmdbimporter/pkg/core/queue"
	log "github.com/sirupsen/logrus"
)

const (
	usernameSelector       = `input[name="username"]`
	passwordSelector       = `input[name="password"]`
	cookieBannerSelector   = "#onetrust-accept-btn-handler"
	addTranslationSelector = "button.translate"
	submitSelector         = "#submit"
)

// Credentials for a TMDB account.
type Credentials struct {
	Username string
	Password string
}

// UploaderOptions configure an Uploader.
type UploaderOptions struct {
	WebURL string
	// WaitTimeout bounds the wait for an edit form to render. Zero means 5s.
	WaitTimeout time.Duration
}

// Uploader fills TMDB edit forms in a browser session.
type Uploader struct {
	driver pagedriver.Driver
	creds  Credentials
	opts   UploaderOptions
	logger *log.Logger

	mu       sync.Mutex
	loggedIn bool
}

// Summary counts the outcome of a ProcessQueue run.
type Summary struct {
	Completed int
	Failed    int
	Skipped   int
}

// NewUploader creates an Uploader. It does not log in until the first upload.
func NewUploader(d pagedriver.Driver, creds Credentials, opts UploaderOptions, logger *log.Logger) *Uploader {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}
	if opts.WebURL == "" {
		opts.WebURL = constants.DefaultWebURL
	}
	opts.WebURL = strings.TrimRight(opts.WebURL, "/")
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Second
	}
	return &Uploader{driver: d, creds: creds, opts: opts, logger: logger}
}

// Login signs in and dismisses the cookie banner. It is a no-op after the
// first successful login.
func (u *Uploader) Login(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.loggedIn {
		return nil
	}
	if u.creds.Username == "" || u.creds.Password == "" {
		return fmt.Errorf("%w: username and password are required", coreErrors.ErrNotLoggedIn)
	}

	if err := u.driver.Navigate(ctx, u.opts.WebURL+"/login"); err != nil {
		return err
	}
	if err := u.driver.WaitVisible(ctx, usernameSelector, u.opts.WaitTimeout); err != nil {
		return fmt.Errorf("%w: login form not found: %w", coreErrors.ErrNotLoggedIn, err)
	}
	if err := u.driver.Type(ctx, usernameSelector, u.creds.Username); err != nil {
		return err
	}
	if err := u.driver.Type(ctx, passwordSelector, u.creds.Password); err != nil {
		return err
	}
	if err := u.driver.Submit(ctx, passwordSelector); err != nil {
		return err
	}

	// A rejected login renders the form again.
	stillThere, err := u.driver.Exists(ctx, passwordSelector)
	if err != nil {
		return err
	}
	if stillThere {
		return fmt.Errorf("%w: credentials rejected for %s", coreErrors.ErrNotLoggedIn, u.creds.Username)
	}
	u.logger.Info("Logged in to TMDB.")
	u.acceptCookies(ctx)
	u.loggedIn = true
	return nil
}

func (u *Uploader) acceptCookies(ctx context.Context) {
	found, err := u.driver.Exists(ctx, cookieBannerSelector)
	if err != nil || !found {
		u.logger.Debug("No cookies to accept or already accepted.")
		return
	}
	if err := u.driver.Click(ctx, cookieBannerSelector); err != nil {
		u.logger.Warnf("Failed to accept cookies: %v", err)
		return
	}
	u.logger.Debug("Accepted cookies.")
}

// Upload writes one job's translation. Series and movie pages without a
// translation for the job's language get one added, then the form is filled
// again once.
func (u *Uploader) Upload(ctx context.Context, job metadata.UploadJob) error {
	if err := u.Login(ctx); err != nil {
		return err
	}

	u.logger.Infof("Updating %s info for URL: %s", job.Kind, job.EditURL)
	if err := u.driver.Navigate(ctx, job.EditURL); err != nil {
		return err
	}
	err := u.fillForm(ctx, job)
	if !errors.Is(err, coreErrors.ErrFormNotFound) || (job.Kind != metadata.KindSeries && job.Kind != metadata.KindMovie) {
		return err
	}

	added, addErr := u.addTranslation(ctx)
	if addErr != nil || !added {
		return err
	}
	if err := u.driver.Navigate(ctx, job.EditURL); err != nil {
		return err
	}
	return u.fillForm(ctx, job)
}

func (u *Uploader) addTranslation(ctx context.Context) (bool, error) {
	found, err := u.driver.Exists(ctx, addTranslationSelector)
	if err != nil || !found {
		u.logger.Info("No translation needed or already present.")
		return false, err
	}
	if err := u.driver.Click(ctx, addTranslationSelector); err != nil {
		return false, err
	}
	u.logger.Info("Added translation.")
	return true, nil
}

func (u *Uploader) fillForm(ctx context.Context, job metadata.UploadJob) error {
	nameID, overviewID := job.FieldIDs()
	nameSel, overviewSel := "#"+nameID, "#"+overviewID

	if err := u.driver.WaitVisible(ctx, nameSel, u.opts.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s on %s", coreErrors.ErrFormNotFound, nameSel, job.EditURL)
	}
	if ok, err := u.driver.Exists(ctx, overviewSel); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s on %s", coreErrors.ErrFormNotFound, overviewSel, job.EditURL)
	}

	if strings.TrimSpace(job.Name) != "" {
		if err := u.driver.Type(ctx, nameSel, job.Name); err != nil {
			return err
		}
		u.logger.Debugf("Updated title: %s", job.Name)
	}
	if !job.SkipEmptyOverview || strings.TrimSpace(job.Overview) != "" {
		if err := u.driver.Type(ctx, overviewSel, job.Overview); err != nil {
			return err
		}
		u.logger.Debug("Updated description.")
	}
	if err := u.driver.Click(ctx, submitSelector); err != nil {
		return err
	}
	u.logger.Info("Successfully updated the information.")
	return nil
}

// ProcessQueue uploads pending jobs one by one until none is left, recording
// each outcome and moving finished jobs to history. A login failure or a
// cancelled context stops the run and puts the current job back as pending.
func (u *Uploader) ProcessQueue(ctx context.Context, qm queue.QueueManagerInterface) (Summary, error) {
	var sum Summary
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		job := qm.ClaimNextPendingJob()
		if job == nil {
			return sum, nil
		}

		if strings.TrimSpace(job.Name) == "" && strings.TrimSpace(job.Overview) == "" {
			u.finish(qm, job, metadata.StatusSkipped, "nothing to write")
			sum.Skipped++
			continue
		}

		err := u.Upload(ctx, *job)
		switch {
		case err == nil:
			u.finish(qm, job, metadata.StatusComplete, "")
			sum.Completed++
		case errors.Is(err, coreErrors.ErrNotLoggedIn), ctx.Err() != nil:
			if uerr := qm.UpdateJobStatus(job.ID, metadata.StatusPending, err.Error()); uerr != nil {
				u.logger.Errorf("Failed to requeue job %s: %v", job.ID, uerr)
			}
			return sum, err
		default:
			u.logger.Warnf("Upload failed for %s: %v", job.EditURL, err)
			u.finish(qm, job, metadata.StatusFailed, err.Error())
			sum.Failed++
		}
	}
}

func (u *Uploader) finish(qm queue.QueueManagerInterface, job *metadata.UploadJob, status metadata.JobStatus, message string) {
	if err := qm.UpdateJobStatus(job.ID, status, message); err != nil {
		u.logger.Errorf("Failed to update job %s: %v", job.ID, err)
	}
	if err := qm.MoveJobToHistory(job.ID); err != nil {
		u.logger.Errorf("Failed to move job %s to history: %v", job.ID, err)
	}
}
