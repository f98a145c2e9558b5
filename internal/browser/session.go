// internal/browser/session.go
package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Session wraps one persistent Playwright browser context and its page.
// A session belongs to exactly one job and lives in the Registry from
// launch until explicit release.
type Session struct {
	jobID  string
	pctx   playwright.BrowserContext
	page   playwright.Page
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

var _ Page = (*Session)(nil)

func newSession(jobID string, pctx playwright.BrowserContext, page playwright.Page, logger *zap.Logger) *Session {
	return &Session{
		jobID:  jobID,
		pctx:   pctx,
		page:   page,
		logger: logger.Named("session").With(zap.String("job_id", jobID)),
	}
}

// SetOnClose registers a callback fired exactly once when the session closes.
func (s *Session) SetOnClose(fn func()) { s.onClose = fn }

// Goto opens the URL and waits for network idle.
func (s *Session) Goto(url string, timeout time.Duration) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle waits for the page network to settle.
func (s *Session) WaitNetworkIdle(timeout time.Duration) error {
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// IsVisible reports current visibility. Engine errors read as not visible.
func (s *Session) IsVisible(selector string) bool {
	visible, err := s.page.IsVisible(selector)
	if err != nil {
		s.logger.Debug("Visibility probe failed.", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return visible
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s visible: %w", selector, err)
	}
	return nil
}

// Fill types the value into the field. With a positive perChar delay the
// text is typed character by character; otherwise it is set in one shot.
func (s *Session) Fill(selector, value string, perChar time.Duration) error {
	if perChar > 0 {
		err := s.page.Type(selector, value, playwright.PageTypeOptions{
			Delay: playwright.Float(float64(perChar.Milliseconds())),
		})
		if err != nil {
			return fmt.Errorf("type into %s: %w", selector, err)
		}
		return nil
	}
	if err := s.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

// Click presses the element.
func (s *Session) Click(selector string, timeout time.Duration) error {
	err := s.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Screenshot captures the full page.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}

// Content returns the page HTML.
func (s *Session) Content() (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return content, nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// FrameURLs lists the URLs of every frame on the page.
func (s *Session) FrameURLs() []string {
	frames := s.page.Frames()
	urls := make([]string, 0, len(frames))
	for _, f := range frames {
		if u := f.URL(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Evaluate runs a script on the page and discards the result.
func (s *Session) Evaluate(script string) error {
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	return nil
}

// Closed reports whether the page is gone.
func (s *Session) Closed() bool {
	return s.page.IsClosed()
}

// Close tears down the browser context. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing session.")
		if err := s.pctx.Close(); err != nil {
			s.closeErr = fmt.Errorf("close browser context: %w", err)
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.closeErr
}
