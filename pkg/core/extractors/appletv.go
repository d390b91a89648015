package extractors

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	log "github.com/sirupsen/logrus"
)

const (
	appleBreadcrumbSelector = `script[id="schema:breadcrumb-list"]`
	appleEpisodeSelector    = ".episode-lockup__content"
	appleNextPageSelector   = "button.shelf-grid-nav__arrow--next:not([disabled])"
	appleMaxPages           = 100
)

var (
	appleSeasonSummaries = regexp.MustCompile(`(?s)"seasonSummaries":(\[.*?\]),"selectedEpisodeIndex"`)
	digits               = regexp.MustCompile(`\d+`)
)

type appleBreadcrumbs struct {
	ItemListElement []struct {
		Item struct {
			Name string `json:"name"`
		} `json:"item"`
	} `json:"itemListElement"`
}

type appleSeasonSummary struct {
	Title        string `json:"title"`
	SeasonNumber int    `json:"seasonNumber"`
}

// AppleTV reads the Apple TV product page. Episodes of all seasons share one
// paginated shelf, so a drop in episode number marks the start of the next
// season.
type AppleTV struct {
	logger  *log.Logger
	options Options
}

// NewAppleTV creates an Apple TV extractor.
func NewAppleTV(opts Options) *AppleTV {
	opts = opts.withDefaults()
	return &AppleTV{logger: opts.Logger, options: opts}
}

func (a *AppleTV) Name() string { return "appletv" }

func (a *AppleTV) Match(u *url.URL) bool { return hostIs(u, "tv.apple.com") }

func (a *AppleTV) Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error) {
	if err := d.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	if err := d.WaitVisible(ctx, appleBreadcrumbSelector, a.options.WaitTimeout); err != nil {
		a.logger.Warnf("Breadcrumb data did not load: %v", err)
	}
	doc, err := d.Document(ctx)
	if err != nil {
		return nil, err
	}

	title := a.title(doc)
	if title == "" {
		return nil, noTitle(a.Name(), rawURL)
	}
	description := firstText(doc.Selection, "div.product-header__content__details__synopsis")
	a.logger.Infof("Title: %s", title)

	if doc.Find(appleEpisodeSelector).Length() == 0 {
		a.logger.Info("No episode list found, treating as movie")
		return newRecordSet(title, description, true), nil
	}

	rs := newRecordSet(title, description, false)
	rs.Seasons = a.seasons(doc)
	rs.Episodes, err = a.episodes(ctx, d, doc)
	if err != nil {
		return nil, err
	}

	// Without season summaries, name one season per break in the episode run.
	if len(rs.Seasons) == 0 {
		last := 0
		for _, ep := range rs.Episodes {
			if n, ok := ep.SeasonNumber.Get(); ok && n > last {
				last = n
			}
		}
		for i := 1; i <= last; i++ {
			rs.Seasons = append(rs.Seasons, model.SeasonRecord{DisplayName: seasonName(i), Number: i})
		}
	}
	return rs, nil
}

func (a *AppleTV) title(doc *goquery.Document) string {
	raw := doc.Find(appleBreadcrumbSelector).First().Text()
	if raw == "" {
		return ""
	}
	var crumbs appleBreadcrumbs
	if err := json.Unmarshal([]byte(raw), &crumbs); err != nil {
		a.logger.Warnf("Failed to parse breadcrumb data: %v", err)
		return ""
	}
	if len(crumbs.ItemListElement) == 0 {
		return ""
	}
	return crumbs.ItemListElement[len(crumbs.ItemListElement)-1].Item.Name
}

func (a *AppleTV) seasons(doc *goquery.Document) []model.SeasonRecord {
	var summaries []appleSeasonSummary
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := appleSeasonSummaries.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		if err := json.Unmarshal([]byte(m[1]), &summaries); err != nil {
			a.logger.Warnf("Failed to parse season summaries: %v", err)
			summaries = nil
		}
		return false
	})

	seasons := make([]model.SeasonRecord, 0, len(summaries))
	for _, s := range summaries {
		seasons = append(seasons, model.SeasonRecord{DisplayName: s.Title, Number: s.SeasonNumber})
		a.logger.Infof("Season: %s (%d)", s.Title, s.SeasonNumber)
	}
	return seasons
}

// episodes walks the episode shelf page by page until no new episode shows up
// or there is no next page.
func (a *AppleTV) episodes(ctx context.Context, d pagedriver.Driver, doc *goquery.Document) ([]model.EpisodeRecord, error) {
	var (
		episodes    []model.EpisodeRecord
		seen        = make(map[string]bool)
		season      = 1
		lastEpisode = 0
	)

	for page := 0; page < appleMaxPages; page++ {
		added := 0
		doc.Find(appleEpisodeSelector).Each(func(_ int, item *goquery.Selection) {
			title := firstText(item, ".episode-lockup__content__title")
			if title == "" || seen[title] {
				return
			}
			label := firstText(item, ".episode-lockup__content__episode-number span")
			number, err := strconv.Atoi(digits.FindString(label))
			if err != nil {
				a.logger.Warnf("Skipping episode %q: no episode number in %q", title, label)
				return
			}
			if number < lastEpisode {
				season++
			}
			lastEpisode = number
			seen[title] = true
			added++

			episodes = append(episodes, model.EpisodeRecord{
				SeasonNumber:  model.Int(season),
				EpisodeNumber: number,
				Title:         title,
				Description:   firstText(item, ".episode-lockup__description"),
			})
			a.logger.Debugf("Episode %s: %s", label, title)
		})
		if added == 0 && page > 0 {
			break
		}

		more, err := d.Exists(ctx, appleNextPageSelector)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		if err := d.Click(ctx, appleNextPageSelector); err != nil {
			a.logger.Infof("No more episode pages: %v", err)
			break
		}
		if doc, err = d.Document(ctx); err != nil {
			return nil, err
		}
	}
	return episodes, nil
}
