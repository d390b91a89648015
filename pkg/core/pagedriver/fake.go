package pagedriver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fake is an in-memory Driver backed by static HTML. Clicking a selector that
// has a registered transition replaces the current page, so multi-step flows
// such as "open season 2" or "add translation" can be scripted in tests.
// Transitions registered for the same selector are consumed in order; the
// last one stays in place for any further clicks.
type Fake struct {
	mu      sync.Mutex
	pages   map[string]string
	clicks  map[string][]string
	submits map[string][]string
	current string
	html    string

	// Typed records the last text typed into each selector.
	Typed map[string]string
	// Submitted records selectors passed to Submit, in order.
	Submitted []string
	// Clicked records selectors passed to Click, in order.
	Clicked []string
	// Visited records navigated URLs, in order.
	Visited []string
	Closed  bool

	// ClickHook, when set, runs after every successful click. It may call
	// SetPage to model server-side changes caused by the click.
	ClickHook func(selector string)
}

var _ Driver = (*Fake)(nil)

// NewFake returns a Fake serving pages keyed by URL.
func NewFake(pages map[string]string) *Fake {
	if pages == nil {
		pages = map[string]string{}
	}
	return &Fake{
		pages:   pages,
		clicks:  map[string][]string{},
		submits: map[string][]string{},
		Typed:   map[string]string{},
	}
}

// SetPage registers or replaces the HTML served for url.
func (f *Fake) SetPage(url, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = html
}

// OnClick makes the next click on selector swap the current page for html.
func (f *Fake) OnClick(selector, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks[selector] = append(f.clicks[selector], html)
}

// OnSubmit makes the next submit through selector swap the current page for html.
func (f *Fake) OnSubmit(selector, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits[selector] = append(f.submits[selector], html)
}

// transition swaps in the next page registered for selector, if any.
func (f *Fake) transition(pages map[string][]string, selector string) {
	next := pages[selector]
	if len(next) == 0 {
		return
	}
	f.html = next[0]
	if len(next) > 1 {
		pages[selector] = next[1:]
	}
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	html, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("navigate %s: no such page", url)
	}
	f.current = url
	f.html = html
	f.Visited = append(f.Visited, url)
	return nil
}

func (f *Fake) doc() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

func (f *Fake) Document(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc()
}

func (f *Fake) find(selector string) (bool, error) {
	doc, err := f.doc()
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	found, err := f.find(selector)
	if err != nil || !found {
		f.mu.Unlock()
		if err != nil {
			return err
		}
		return fmt.Errorf("click %s: element not found", selector)
	}
	f.Clicked = append(f.Clicked, selector)
	f.transition(f.clicks, selector)
	hook := f.ClickHook
	f.mu.Unlock()

	if hook != nil {
		hook(selector)
	}
	return nil
}

func (f *Fake) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	found, err := f.find(selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("type %s: element not found", selector)
	}
	f.Typed[selector] = text
	return nil
}

func (f *Fake) Submit(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	found, err := f.find(selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("submit %s: element not found", selector)
	}
	f.Submitted = append(f.Submitted, selector)
	f.transition(f.submits, selector)
	return nil
}

// WaitVisible does not wait: the fake DOM never changes on its own.
func (f *Fake) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	found, err := f.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

func (f *Fake) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(selector)
}

func (f *Fake) ScrollToBottom(ctx context.Context) error {
	return ctx.Err()
}

func (f *Fake) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
