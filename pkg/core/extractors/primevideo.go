package extractors

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	log "github.com/sirupsen/logrus"
)

const (
	primeLanguageLabel   = ".QDmWMz"
	primeLanguageMenu    = ".bBPMYR"
	primeChineseOption   = `form[action*="zh_TW"] input[type="submit"]`
	primeEpisodesTab     = `button[data-testid="btf-episodes-tab"]`
	primeSeasonLinks     = "div._3R4jka ul li a"
	primeSynopsis        = "span._1H6ABQ"
	primeInfoLabel       = "span._36qUej"
	primeEpisodeItem     = `li[id^="av-ep-episodes-"]`
	primeEpisodeTitle    = "span.P1uAb6"
	primeEpisodeSynopsis = `div._3qsVvm.e8yjMf > div[dir="auto"]`
)

var primeEpisodeNumber = regexp.MustCompile(`季第 \d+ 集(\d+)`)

// PrimeVideo reads a Prime Video detail page, following the season links when
// the title has more than one season.
type PrimeVideo struct {
	logger  *log.Logger
	options Options
}

// NewPrimeVideo creates a Prime Video extractor.
func NewPrimeVideo(opts Options) *PrimeVideo {
	opts = opts.withDefaults()
	return &PrimeVideo{logger: opts.Logger, options: opts}
}

func (p *PrimeVideo) Name() string { return "primevideo" }

func (p *PrimeVideo) Match(u *url.URL) bool {
	return hostIs(u, "primevideo.com") || (hostIs(u, "amazon.com") && strings.Contains(u.Path, "/gp/video/"))
}

func (p *PrimeVideo) Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error) {
	if err := d.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	p.ensureChinese(ctx, d)

	doc, err := d.Document(ctx)
	if err != nil {
		return nil, err
	}
	title := firstText(doc.Selection, `h1[data-automation-id="title"]`)
	if title == "" {
		return nil, noTitle(p.Name(), rawURL)
	}
	description := firstText(doc.Selection, primeSynopsis)
	p.logger.Infof("Title: %s", title)

	if doc.Find("#tab-content-episodes").Length() == 0 {
		p.logger.Info("No episodes tab found, treating as movie")
		return newRecordSet(title, description, true), nil
	}

	rs := newRecordSet(title, description, false)
	if err := d.Click(ctx, primeEpisodesTab); err != nil {
		p.logger.Warnf("Failed to open episodes tab: %v", err)
	}
	if doc, err = d.Document(ctx); err != nil {
		return nil, err
	}

	links := p.seasonLinks(doc, rawURL)
	if len(links) == 0 {
		p.readSeason(doc, 1, description, rs)
		return rs, nil
	}
	for i, link := range links {
		p.logger.Infof("Reading season page %s", link)
		if err := d.Navigate(ctx, link); err != nil {
			return nil, err
		}
		page, err := d.Document(ctx)
		if err != nil {
			return nil, err
		}
		p.readSeason(page, i+1, description, rs)
	}
	return rs, nil
}

// ensureChinese switches the site language to Traditional Chinese, which the
// episode label pattern depends on. Failures are logged and ignored.
func (p *PrimeVideo) ensureChinese(ctx context.Context, d pagedriver.Driver) {
	doc, err := d.Document(ctx)
	if err != nil {
		return
	}
	label := doc.Find(primeLanguageLabel).First()
	if label.Length() == 0 || text(label) == "ZH" {
		return
	}
	if err := d.Click(ctx, primeLanguageMenu); err != nil {
		p.logger.Errorf("Failed to set language to Traditional Chinese: %v", err)
		return
	}
	if err := d.Click(ctx, primeChineseOption); err != nil {
		p.logger.Errorf("Failed to set language to Traditional Chinese: %v", err)
	}
}

func (p *PrimeVideo) seasonLinks(doc *goquery.Document, base string) []string {
	baseURL, _ := url.Parse(base)
	var links []string
	doc.Find(primeSeasonLinks).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if baseURL != nil {
			if ref, err := baseURL.Parse(href); err == nil {
				href = ref.String()
			}
		}
		links = append(links, href)
	})
	return links
}

func (p *PrimeVideo) readSeason(doc *goquery.Document, position int, seriesDescription string, rs *model.RecordSet) {
	name := seasonName(position)
	doc.Find(primeInfoLabel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// Episode labels share the class but also carry "集".
		if t := text(s); strings.Contains(t, "第") && strings.Contains(t, "季") && !strings.Contains(t, "集") {
			name = t
			return false
		}
		return true
	})
	description := firstText(doc.Selection, primeSynopsis)
	if description == "" {
		description = seriesDescription
	}
	rs.Seasons = append(rs.Seasons, model.SeasonRecord{DisplayName: name, Number: position, Description: description})
	p.logger.Infof("Season: %s", name)

	items := doc.Find(primeEpisodeItem)
	p.logger.Infof("Found %d episodes in season %d", items.Length(), position)
	items.Each(func(_ int, item *goquery.Selection) {
		label := firstText(item, primeInfoLabel)
		title := firstText(item, primeEpisodeTitle)
		m := primeEpisodeNumber.FindStringSubmatch(label)
		if m == nil {
			p.logger.Warnf("Skipping episode %q: no episode number in %q", title, label)
			return
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warnf("Skipping episode %q: %v", title, err)
			return
		}
		rs.Episodes = append(rs.Episodes, model.EpisodeRecord{
			SeasonNumber:  model.Int(position),
			EpisodeNumber: number,
			Title:         title,
			Description:   firstText(item, primeEpisodeSynopsis),
		})
	})
}
