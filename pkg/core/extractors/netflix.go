package extractors

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	log "github.com/sirupsen/logrus"
)

var episodeTitlePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^第 \d+ 集。`),
	regexp.MustCompile(`^第\d+話`),
}

// CleanEpisodeTitle strips the "第 N 集。" and "第N話" prefixes Netflix puts in
// front of episode titles.
func CleanEpisodeTitle(title string) string {
	for _, re := range episodeTitlePrefixes {
		title = strings.TrimSpace(re.ReplaceAllString(title, ""))
	}
	return title
}

// Netflix reads the public title page, which lists every season at once.
type Netflix struct {
	logger *log.Logger
}

// NewNetflix creates a Netflix extractor.
func NewNetflix(opts Options) *Netflix {
	return &Netflix{logger: opts.withDefaults().Logger}
}

func (n *Netflix) Name() string { return "netflix" }

func (n *Netflix) Match(u *url.URL) bool { return hostIs(u, "netflix.com") }

// StandardizeNetflixURL rewrites any Netflix link carrying a title id (in the
// jbv query parameter or as a numeric path segment) to the Hong Kong title page.
func StandardizeNetflixURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", coreErrors.ErrUnsupportedSite, err)
	}
	id := u.Query().Get("jbv")
	if id == "" {
		for _, seg := range strings.Split(u.Path, "/") {
			if seg != "" && strings.Trim(seg, "0123456789") == "" {
				id = seg
				break
			}
		}
	}
	if id == "" {
		return "", fmt.Errorf("%w: no title id in %s", coreErrors.ErrUnsupportedSite, rawURL)
	}
	return "https://www.netflix.com/hk/title/" + id, nil
}

func (n *Netflix) Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error) {
	target, err := StandardizeNetflixURL(rawURL)
	if err != nil {
		return nil, err
	}
	n.logger.Infof("Standardized URL: %s", target)

	if err := d.Navigate(ctx, target); err != nil {
		return nil, err
	}
	doc, err := d.Document(ctx)
	if err != nil {
		return nil, err
	}

	title := firstText(doc.Selection, "h1.title-title")
	description := firstText(doc.Selection, "div.title-info-synopsis")
	if title == "" {
		return nil, noTitle(n.Name(), target)
	}
	n.logger.Infof("Title: %s", title)

	if doc.Find("div.episode-metadata").Length() == 0 {
		n.logger.Info("No episode list found, treating as movie")
		return newRecordSet(title, description, true), nil
	}

	rs := newRecordSet(title, description, false)
	rs.Seasons = n.seasons(doc, description)
	rs.Episodes = n.episodes(doc)
	if len(rs.Episodes) == 0 {
		n.logger.Warnf("No episodes found on %s", target)
	}
	return rs, nil
}

func (n *Netflix) seasons(doc *goquery.Document, seriesDescription string) []model.SeasonRecord {
	options := doc.Find(`select[data-uia="season-selector"] option`)
	blocks := doc.Find("div.season")
	n.logger.Infof("Found %d seasons", blocks.Length())

	if blocks.Length() == 0 {
		return []model.SeasonRecord{{DisplayName: seasonName(1), Number: 1, Description: seriesDescription}}
	}

	seasons := make([]model.SeasonRecord, 0, blocks.Length())
	blocks.Each(func(i int, block *goquery.Selection) {
		name := seasonName(i + 1)
		if i < options.Length() {
			name = text(options.Eq(i))
		}
		description := firstText(block, "p.season-synopsis")
		if description == "" {
			description = seriesDescription
		}
		seasons = append(seasons, model.SeasonRecord{DisplayName: name, Number: i + 1, Description: description})
		n.logger.Debugf("Season %s: %s", name, description)
	})
	return seasons
}

func (n *Netflix) episodes(doc *goquery.Document) []model.EpisodeRecord {
	var episodes []model.EpisodeRecord
	doc.Find("div.season").Each(func(i int, block *goquery.Selection) {
		items := block.Find("div.episode-item")
		if items.Length() == 0 {
			items = block.Find("div.episode")
		}
		if items.Length() == 0 {
			items = block.Find("li.episode")
		}
		n.logger.Infof("Found %d episodes in season %d", items.Length(), i+1)

		number := 1
		items.Each(func(_ int, item *goquery.Selection) {
			heading := item.Find("h3").First()
			if heading.Length() == 0 {
				n.logger.Errorf("Episode without a title in season %d, skipping", i+1)
				return
			}
			episodes = append(episodes, model.EpisodeRecord{
				SeasonNumber:  model.Int(i + 1),
				EpisodeNumber: number,
				Title:         CleanEpisodeTitle(text(heading)),
				Description:   firstText(item, "p"),
			})
			number++
		})
	})
	return episodes
}
