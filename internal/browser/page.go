// internal/browser/page.go
package browser

import "time"

// Page is the minimal engine surface the signup driver works against:
// navigate, query visibility, fill, click, screenshot, read content and
// URLs, run a script. The concrete implementation is a live Playwright
// page (Session); tests substitute fakes.
type Page interface {
	// Goto opens the URL and waits for network idle, bounded by timeout.
	Goto(url string, timeout time.Duration) error

	// WaitNetworkIdle blocks until the page network settles or the timeout
	// elapses.
	WaitNetworkIdle(timeout time.Duration) error

	// IsVisible reports whether the selector matches a visible element
	// right now. Engine errors read as "not visible".
	IsVisible(selector string) bool

	// WaitVisible blocks until the selector is visible, bounded by timeout.
	WaitVisible(selector string, timeout time.Duration) error

	// Fill sets the field's text. A positive perChar delay paces the typing
	// character by character to mimic human input.
	Fill(selector, value string, perChar time.Duration) error

	// Click presses the element, bounded by timeout.
	Click(selector string, timeout time.Duration) error

	// Screenshot captures the full page.
	Screenshot() ([]byte, error)

	// Content returns the page HTML.
	Content() (string, error)

	// URL returns the current page URL.
	URL() string

	// FrameURLs returns the URLs of all frames embedded in the page.
	FrameURLs() []string

	// Evaluate runs a script on the page, ignoring its result.
	Evaluate(script string) error

	// Closed reports whether the underlying session is gone.
	Closed() bool

	// Close tears the session down. Idempotent.
	Close() error
}

// Launcher opens a live page for a job on a given browser channel. An empty
// channel means the engine's bundled browser.
type Launcher interface {
	Launch(jobID, channel string) (Page, error)
}
