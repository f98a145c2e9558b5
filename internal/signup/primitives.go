// internal/signup/primitives.go
package signup

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/signupd/internal/browser"
	"github.com/xkilldash9x/signupd/internal/heuristics"
	"github.com/xkilldash9x/signupd/internal/joblog"
)

// Highlight colors: green while filling, red while clicking. The outline is
// pure operator feedback on a headful browser and never affects whether an
// interaction counts as a success.
const (
	fillHighlight  = "#2e7d32"
	clickHighlight = "#b00020"
)

const bannerID = "signupd-resume-banner"

// actions bundles the safe interaction primitives for one page. Every
// primitive converts engine failures into an (ok, detail) pair and emits
// one log entry; nothing here lets an engine error escape.
type actions struct {
	page browser.Page
	jlog *joblog.Log

	typingDelay  time.Duration
	waitVisible  time.Duration
	clickTimeout time.Duration
	idleTimeout  time.Duration
}

// trySetText waits for the target to become visible, then fills it with
// character-paced typing under a transient highlight.
func (a *actions) trySetText(step string, probe heuristics.Probe, value string) (bool, string) {
	if err := a.page.WaitVisible(probe.Selector, a.waitVisible); err != nil {
		detail := fmt.Sprintf("%s never became visible: %v", probe.Selector, err)
		a.jlog.Append(step, false, detail, map[string]any{"probe": probe.Label})
		return false, detail
	}

	a.highlight(probe.Selector, fillHighlight)
	err := a.page.Fill(probe.Selector, value, a.typingDelay)
	a.clearHighlight(probe.Selector)

	if err != nil {
		detail := fmt.Sprintf("fill failed on %s: %v", probe.Selector, err)
		a.jlog.Append(step, false, detail, map[string]any{"probe": probe.Label})
		return false, detail
	}

	detail := fmt.Sprintf("filled %s", probe.Selector)
	a.jlog.Append(step, true, detail, map[string]any{"probe": probe.Label})
	return true, detail
}

// tryClick waits for the target, flashes the click highlight, and presses it.
func (a *actions) tryClick(step string, probe heuristics.Probe) (bool, string) {
	if err := a.page.WaitVisible(probe.Selector, a.waitVisible); err != nil {
		detail := fmt.Sprintf("%s never became visible: %v", probe.Selector, err)
		a.jlog.Append(step, false, detail, map[string]any{"probe": probe.Label})
		return false, detail
	}

	a.highlight(probe.Selector, clickHighlight)
	err := a.page.Click(probe.Selector, a.clickTimeout)
	a.clearHighlight(probe.Selector)

	if err != nil {
		detail := fmt.Sprintf("click failed on %s: %v", probe.Selector, err)
		a.jlog.Append(step, false, detail, map[string]any{"probe": probe.Label})
		return false, detail
	}

	detail := fmt.Sprintf("clicked %s", probe.Selector)
	a.jlog.Append(step, true, detail, map[string]any{"probe": probe.Label})
	return true, detail
}

// fillFirst walks the probe list in priority order and fills the first
// visible candidate. Returns false when no candidate showed up, which the
// driver treats as "this flow variant skips the field", not as fatal.
func (a *actions) fillFirst(step string, probes []heuristics.Probe, value string) bool {
	for _, p := range probes {
		if a.page.IsVisible(p.Selector) {
			ok, _ := a.trySetText(step, p, value)
			return ok
		}
	}
	a.jlog.Append(step, false, "no candidate field visible", nil)
	return false
}

// clickFirst walks the probe list and clicks the first visible candidate.
func (a *actions) clickFirst(step string, probes []heuristics.Probe) bool {
	for _, p := range probes {
		if a.page.IsVisible(p.Selector) {
			ok, _ := a.tryClick(step, p)
			return ok
		}
	}
	a.jlog.Append(step, false, "no candidate control visible", nil)
	return false
}

// waitIdle waits for the network to settle after a submit. Timeouts are
// tolerated; the flow proceeds either way.
func (a *actions) waitIdle(step string) {
	if err := a.page.WaitNetworkIdle(a.idleTimeout); err != nil {
		a.jlog.Append(step, false, fmt.Sprintf("network idle wait gave up: %v", err), nil)
		return
	}
	a.jlog.Append(step, true, "network idle", nil)
}

// capture takes a full-page screenshot and persists it under the given
// classification kind. Returns the artifact path, or "" when the capture
// failed (logged, never fatal).
func (a *actions) capture(kind string) string {
	shot, err := a.page.Screenshot()
	if err != nil {
		a.jlog.Append("screenshot", false, fmt.Sprintf("capture failed: %v", err), map[string]any{"kind": kind})
		return ""
	}
	path, err := a.jlog.SaveScreenshot(shot, kind)
	if err != nil {
		a.jlog.Append("screenshot", false, fmt.Sprintf("persist failed: %v", err), map[string]any{"kind": kind})
		return ""
	}
	a.jlog.Append("screenshot", true, path, map[string]any{"kind": kind})
	return path
}

// readContent returns the page text, or "" when the session cannot be read.
func (a *actions) readContent() string {
	content, err := a.page.Content()
	if err != nil {
		a.jlog.Append("page_content", false, fmt.Sprintf("content read failed: %v", err), nil)
		return ""
	}
	return content
}

func (a *actions) highlight(selector, color string) {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (el) { el.dataset.prevOutline = el.style.outline; el.style.outline = '3px solid %s'; } })()`,
		selector, color)
	_ = a.page.Evaluate(script)
}

func (a *actions) clearHighlight(selector string) {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (el) { el.style.outline = el.dataset.prevOutline || ''; delete el.dataset.prevOutline; } })()`,
		selector)
	_ = a.page.Evaluate(script)
}

// showBanner pins a fixed notice to the page while the job waits for a
// human. Cosmetic only; failures are ignored.
func (a *actions) showBanner() {
	script := fmt.Sprintf(`(() => {
	if (document.getElementById(%q)) { return; }
	const b = document.createElement('div');
	b.id = %q;
	b.textContent = 'signupd: resolve the challenge in this window, then resume the job';
	b.style.cssText = 'position:fixed;top:0;left:0;right:0;z-index:2147483647;background:#b00020;color:#fff;font:14px sans-serif;padding:8px;text-align:center;';
	document.body.appendChild(b);
})()`, bannerID, bannerID)
	_ = a.page.Evaluate(script)
}

// stripBanner removes the suspended-job notice before re-reading the page,
// so the banner text cannot pollute classification.
func (a *actions) stripBanner() {
	script := fmt.Sprintf(
		`(() => { const b = document.getElementById(%q); if (b) { b.remove(); } })()`, bannerID)
	_ = a.page.Evaluate(script)
}
