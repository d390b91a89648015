// Package extractors scrape series and movie metadata from streaming sites
// into a model.RecordSet.
//
// Every extractor reports seasons in the order the site lists them. The
// season number written on each season is provisional, and each episode's
// SeasonNumber is the 1-based position of the season it was listed under.
// Canonical numbers are assigned later by the reconcile package.
package extractors

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	log "github.com/sirupsen/logrus"
)

// Extractor reads one title from one site.
type Extractor interface {
	Name() string
	// Match reports whether the extractor handles u.
	Match(u *url.URL) bool
	Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error)
}

// Authenticator is implemented by extractors for sites that need a signed-in
// session before any page can be read.
type Authenticator interface {
	Login(ctx context.Context, d pagedriver.Driver) error
}

// Credentials for sites that require a login.
type Credentials struct {
	Email    string
	Password string
}

// Options configure the extractors returned by All and ForURL.
type Options struct {
	Logger     *log.Logger
	DisneyPlus Credentials
	// WaitTimeout bounds waits for elements that render late. Zero means 10s.
	WaitTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.New()
		o.Logger.SetOutput(os.Stdout)
		o.Logger.SetLevel(log.InfoLevel)
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 10 * time.Second
	}
	return o
}

// All returns one extractor per supported site.
func All(opts Options) []Extractor {
	opts = opts.withDefaults()
	return []Extractor{
		NewNetflix(opts),
		NewAppleTV(opts),
		NewDisneyPlus(opts),
		NewPrimeVideo(opts),
	}
}

// ForURL picks the extractor for rawURL by host name.
func ForURL(rawURL string, opts Options) (Extractor, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", coreErrors.ErrUnsupportedSite, rawURL)
	}
	for _, e := range All(opts) {
		if e.Match(u) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", coreErrors.ErrUnsupportedSite, u.Hostname())
}

// hostIs reports whether u is on domain or one of its subdomains.
func hostIs(u *url.URL, domain string) bool {
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// firstText returns the trimmed text of the first element matching selector.
func firstText(root *goquery.Selection, selector string) string {
	return text(root.Find(selector).First())
}

func seasonName(n int) string {
	return fmt.Sprintf("第 %d 季", n)
}

func noTitle(site, rawURL string) error {
	return fmt.Errorf("%s %s: %w", site, rawURL, coreErrors.ErrNoTitleFound)
}

// newRecordSet returns a series or movie record set for title.
func newRecordSet(title, description string, movie bool) *model.RecordSet {
	rec := model.TitleRecord{Name: title, Description: description}
	if movie {
		return &model.RecordSet{Movies: []model.TitleRecord{rec}}
	}
	return &model.RecordSet{Titles: []model.TitleRecord{rec}}
}
