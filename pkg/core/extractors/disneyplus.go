package extractors

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	log "github.com/sirupsen/logrus"
)

// DisneyPlusLoginURL is where the sign-in flow starts.
const DisneyPlusLoginURL = "https://www.disneyplus.com/zh-hk/identity/login"

// photosensitivityWarning is appended to many Disney+ synopses.
const photosensitivityWarning = "部分閃光片段或圖案可能會影響對光敏感的觀眾。"

const (
	disneySubmitSelector   = `button[type="submit"]`
	disneyProfileSelector  = `div[role="button"][data-testid^="profile-avatar-"]`
	disneyDetailsTab       = `li[data-testid="details-page-tab"][aria-controls="details"]`
	disneyEpisodesTab      = `li[data-testid="details-page-tab"][aria-controls="episodes"]`
	disneyDropdown         = `[data-testid="dropdown-button"]:not([disabled])`
	disneyDisabledDropdown = `[data-testid="dropdown-button"][disabled]`
	disneyDropdownItems    = `[data-testid="dropdown-list"] li`
	disneyEpisodeItem      = `[data-testid="set-item"]`
)

// DisneyPlus reads a Disney+ details page. The site only renders for a
// signed-in profile, so the extractor logs in once per browser session.
type DisneyPlus struct {
	logger  *log.Logger
	options Options

	mu       sync.Mutex
	loggedIn bool
}

var _ Authenticator = (*DisneyPlus)(nil)

// NewDisneyPlus creates a Disney+ extractor using opts.DisneyPlus to sign in.
func NewDisneyPlus(opts Options) *DisneyPlus {
	opts = opts.withDefaults()
	return &DisneyPlus{logger: opts.Logger, options: opts}
}

func (dp *DisneyPlus) Name() string { return "disneyplus" }

func (dp *DisneyPlus) Match(u *url.URL) bool { return hostIs(u, "disneyplus.com") }

// Login signs in with email and password and picks the first profile. It is a
// no-op once a login on this extractor has succeeded.
func (dp *DisneyPlus) Login(ctx context.Context, d pagedriver.Driver) error {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.loggedIn {
		return nil
	}
	creds := dp.options.DisneyPlus
	if creds.Email == "" || creds.Password == "" {
		return fmt.Errorf("disneyplus: %w: email and password are required", coreErrors.ErrNotLoggedIn)
	}

	wait := dp.options.WaitTimeout
	steps := []func() error{
		func() error { return d.Navigate(ctx, DisneyPlusLoginURL) },
		func() error { return d.WaitVisible(ctx, `input[name="email"]`, wait) },
		func() error { return d.Type(ctx, `input[name="email"]`, creds.Email) },
		func() error { return d.Click(ctx, disneySubmitSelector) },
		func() error { return d.WaitVisible(ctx, `input[name="password"]`, wait) },
		func() error { return d.Type(ctx, `input[name="password"]`, creds.Password) },
		func() error { return d.Click(ctx, disneySubmitSelector) },
		func() error { return d.WaitVisible(ctx, disneyProfileSelector, wait) },
		func() error { return d.Click(ctx, disneyProfileSelector) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("disneyplus login: %w: %w", coreErrors.ErrNotLoggedIn, err)
		}
	}
	dp.loggedIn = true
	dp.logger.Info("Logged in to Disney+")
	return nil
}

func (dp *DisneyPlus) Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error) {
	if err := dp.Login(ctx, d); err != nil {
		return nil, err
	}
	if err := d.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	if err := d.WaitVisible(ctx, disneyDetailsTab, dp.options.WaitTimeout); err != nil {
		return nil, fmt.Errorf("disneyplus %s: %w", rawURL, err)
	}
	if err := d.Click(ctx, disneyDetailsTab); err != nil {
		return nil, err
	}

	doc, err := d.Document(ctx)
	if err != nil {
		return nil, err
	}
	title := firstText(doc.Selection, `[data-testid="details-tab-title"]`)
	if title == "" {
		return nil, noTitle(dp.Name(), rawURL)
	}
	description := stripPhotosensitivityWarning(firstText(doc.Selection, `[data-testid="details-tab-description"]`))
	dp.logger.Infof("Title: %s", title)

	if doc.Find(`[aria-controls="episodes"]`).Length() == 0 {
		dp.logger.Info("No episodes tab found, treating as movie")
		return newRecordSet(title, description, true), nil
	}

	rs := newRecordSet(title, description, false)
	if err := d.Click(ctx, disneyEpisodesTab); err != nil {
		return nil, err
	}
	if err := dp.seasons(ctx, d, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (dp *DisneyPlus) seasons(ctx context.Context, d pagedriver.Driver, rs *model.RecordSet) error {
	multi, err := d.Exists(ctx, disneyDropdown)
	if err != nil {
		return err
	}

	if !multi {
		doc, err := d.Document(ctx)
		if err != nil {
			return err
		}
		name := firstText(doc.Selection, disneyDisabledDropdown+" span")
		if name == "" {
			dp.logger.Warn("No season information found")
			return nil
		}
		rs.Seasons = append(rs.Seasons, model.SeasonRecord{DisplayName: name, Number: 1})
		return dp.grabEpisodes(ctx, d, 1, rs)
	}

	if err := d.Click(ctx, disneyDropdown); err != nil {
		return err
	}
	doc, err := d.Document(ctx)
	if err != nil {
		return err
	}
	var names []string
	doc.Find(disneyDropdownItems).Each(func(_ int, s *goquery.Selection) {
		names = append(names, text(s))
	})
	dp.logger.Infof("Found %d seasons", len(names))

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if i > 0 {
			if err := d.Click(ctx, disneyDropdown); err != nil {
				return err
			}
		}
		if err := d.Click(ctx, fmt.Sprintf("%s:nth-child(%d)", disneyDropdownItems, i+1)); err != nil {
			return err
		}

		position := len(rs.Seasons) + 1
		rs.Seasons = append(rs.Seasons, model.SeasonRecord{DisplayName: name, Number: position})
		if err := dp.grabEpisodes(ctx, d, position, rs); err != nil {
			return err
		}
	}
	return nil
}

// grabEpisodes scrolls the current season's list to the end and records every
// episode once.
func (dp *DisneyPlus) grabEpisodes(ctx context.Context, d pagedriver.Driver, season int, rs *model.RecordSet) error {
	dp.logger.Infof("Reading episodes of season %d", season)
	if err := d.ScrollToBottom(ctx); err != nil {
		return err
	}
	doc, err := d.Document(ctx)
	if err != nil {
		return err
	}

	seen := make(map[int]bool)
	doc.Find(disneyEpisodeItem).Each(func(_ int, item *goquery.Selection) {
		heading := firstText(item, `[data-testid="standard-regular-list-item-title"]`)
		number, title, ok := splitNumberedTitle(heading)
		if !ok {
			dp.logger.Warnf("Skipping episode with unnumbered title %q", heading)
			return
		}
		if seen[number] {
			return
		}
		seen[number] = true
		rs.Episodes = append(rs.Episodes, model.EpisodeRecord{
			SeasonNumber:  model.Int(season),
			EpisodeNumber: number,
			Title:         title,
			Description:   stripPhotosensitivityWarning(firstText(item, `[data-testid="standard-regular-list-item-description"]`)),
		})
	})
	return nil
}

// splitNumberedTitle splits "3. Title" into 3 and "Title".
func splitNumberedTitle(s string) (int, string, bool) {
	num, title, found := strings.Cut(s, ".")
	if !found {
		return 0, "", false
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(title), true
}

func stripPhotosensitivityWarning(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, photosensitivityWarning, ""))
}
