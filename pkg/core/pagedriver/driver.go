// Package pagedriver abstracts the browser used to read streaming sites and
// to fill TMDB edit forms.
package pagedriver

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrTimeout is returned by WaitVisible when the selector never showed up.
var ErrTimeout = errors.New("pagedriver: timed out waiting for element")

// Driver is a single browser tab. Selectors are CSS selectors.
type Driver interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Document returns a snapshot of the current DOM.
	Document(ctx context.Context) (*goquery.Document, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Type clears the first input matching selector and types text into it.
	Type(ctx context.Context, selector, text string) error
	// Submit submits the form that owns the element matching selector.
	Submit(ctx context.Context, selector string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Exists reports whether any element matches selector right now.
	Exists(ctx context.Context, selector string) (bool, error)
	// ScrollToBottom scrolls until the page height stops growing, so lazily
	// loaded lists are fully rendered.
	ScrollToBottom(ctx context.Context) error
	// Location returns the current URL.
	Location(ctx context.Context) (string, error)
	Close() error
}
