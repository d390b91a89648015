package pagedriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// ChromeOptions configures a Chrome driver.
type ChromeOptions struct {
	Headless bool
	// ActionTimeout bounds every single browser action. Zero means 30s.
	ActionTimeout time.Duration
	// SettleDelay is waited after navigations and clicks so client-side
	// rendering can catch up. Zero means 1s.
	SettleDelay time.Duration
	UserAgent   string
}

// Chrome drives a local Chrome/Chromium through the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	opts        ChromeOptions
	logger      *log.Logger
}

var _ Driver = (*Chrome)(nil)

// NewChrome starts a browser. The browser lives until Close is called.
func NewChrome(opts ChromeOptions, logger *log.Logger) (*Chrome, error) {
	if logger == nil {
		logger = log.New()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = time.Second
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	// Run with no actions starts the browser so start-up errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debugf("Browser started (headless: %t)", opts.Headless)

	return &Chrome{
		ctx:         tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		opts:        opts,
		logger:      logger,
	}, nil
}

// run executes actions on the tab, bounded by both ctx and the action timeout.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the body to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debugf("Navigate %s", url)
	return c.run(ctx, c.opts.ActionTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.SettleDelay),
	)
}

// Document parses the current page source.
func (c *Chrome) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Click clicks the first element matching selector.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	// A JS click is not blocked by overlays the way a synthetic mouse click is.
	script := fmt.Sprintf(`(function(){var el=document.querySelector(%q); if(!el){return false;} el.scrollIntoView({block:"center"}); el.click(); return true;})()`, selector)
	var clicked bool
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("click %s: element not found", selector)
	}
	return c.run(ctx, c.opts.ActionTimeout, chromedp.Sleep(c.opts.SettleDelay))
}

// Type replaces the value of the input matching selector with text.
func (c *Chrome) Type(ctx context.Context, selector, text string) error {
	return c.run(ctx, c.opts.ActionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// Submit submits the form that contains selector.
func (c *Chrome) Submit(ctx context.Context, selector string) error {
	return c.run(ctx, c.opts.ActionTimeout,
		chromedp.Submit(selector, chromedp.ByQuery),
		chromedp.Sleep(c.opts.SettleDelay),
	)
}

// WaitVisible waits up to timeout for selector to become visible.
func (c *Chrome) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return err
}

// Exists reports whether any element matches selector.
func (c *Chrome) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return false, err
	}
	return found, nil
}

// ScrollToBottom scrolls until the page stops growing, then back to the top.
func (c *Chrome) ScrollToBottom(ctx context.Context) error {
	var last float64
	for i := 0; i < 50; i++ {
		var height float64
		err := c.run(ctx, c.opts.ActionTimeout,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height),
			chromedp.Sleep(2*time.Second),
		)
		if err != nil {
			return err
		}
		if height == last {
			break
		}
		last = height
	}
	return c.run(ctx, c.opts.ActionTimeout, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}

// Location returns the URL of the current page.
func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, c.opts.ActionTimeout, chromedp.Location(&loc))
	return loc, err
}

// Close shuts down the tab and the browser.
func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
