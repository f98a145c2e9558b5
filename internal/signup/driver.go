// internal/signup/driver.go

// Package signup drives the webmail signup flow against a live browser
// session: navigate, discover fields, fill, submit, classify the result.
// The driver produces a fixed set of terminal or suspended outcomes and
// never lets an engine error escape to its caller.
package signup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/signupd/api/schemas"
	"github.com/xkilldash9x/signupd/internal/browser"
	"github.com/xkilldash9x/signupd/internal/config"
	"github.com/xkilldash9x/signupd/internal/creds"
	"github.com/xkilldash9x/signupd/internal/heuristics"
	"github.com/xkilldash9x/signupd/internal/joblog"
)

// Driver executes one signup attempt per job. Sessions it launches are
// registered under the job id immediately, released on every terminal
// outcome, and retained only while waiting for a human.
type Driver struct {
	launcher browser.Launcher
	registry *browser.Registry
	rules    heuristics.RuleSet
	bcfg     config.BrowserConfig
	scfg     config.SignupConfig
	logger   *zap.Logger
}

// NewDriver wires the driver with its collaborators.
func NewDriver(
	launcher browser.Launcher,
	registry *browser.Registry,
	rules heuristics.RuleSet,
	bcfg config.BrowserConfig,
	scfg config.SignupConfig,
	logger *zap.Logger,
) *Driver {
	return &Driver{
		launcher: launcher,
		registry: registry,
		rules:    rules,
		bcfg:     bcfg,
		scfg:     scfg,
		logger:   logger.Named("driver"),
	}
}

// Run executes the full signup flow for a job: launch on the preferred
// channel with a fallback retry, navigate, fill, submit, classify.
func (d *Driver) Run(ctx context.Context, jobID string, account schemas.Credentials, jlog *joblog.Log) Outcome {
	log := d.logger.With(zap.String("job_id", jobID))

	channels := []string{d.bcfg.Channel}
	if d.bcfg.FallbackChannel != d.bcfg.Channel {
		channels = append(channels, d.bcfg.FallbackChannel)
	}

	lastDetail := "no launch attempted"
	for _, channel := range channels {
		if ctx.Err() != nil {
			lastDetail = fmt.Sprintf("run canceled: %v", ctx.Err())
			break
		}

		jlog.Append("launch", true, fmt.Sprintf("launching browser channel=%s", channelLabel(channel)), nil)
		page, err := d.launcher.Launch(jobID, channel)
		if err != nil {
			lastDetail = fmt.Sprintf("channel %s failed to launch: %v", channelLabel(channel), err)
			jlog.Append("launch", false, lastDetail, nil)
			continue
		}

		// The registry owns the session from this point on; every exit
		// path below goes through it.
		d.registry.Store(jobID, page)

		outcome, attemptErr := d.attempt(ctx, jobID, page, account, jlog)
		if attemptErr == nil {
			return outcome
		}

		if page.Closed() {
			// Someone tore the session down under us (manual close). Not a
			// channel problem; report it instead of retrying.
			d.registry.Release(jobID)
			detail := fmt.Sprintf("session closed mid-run: %v", attemptErr)
			jlog.Append("session_lost", false, detail, nil)
			return Outcome{Status: schemas.StatusError, Reason: ReasonSessionClosed, Detail: detail}
		}

		lastDetail = fmt.Sprintf("channel %s failed: %v", channelLabel(channel), attemptErr)
		jlog.Append("channel_error", false, lastDetail, nil)
		log.Warn("Signup attempt failed; trying next channel.", zap.String("channel", channelLabel(channel)), zap.Error(attemptErr))
		d.registry.Release(jobID)
	}

	jlog.Append("fatal_error", false, "no usable browser engine: "+lastDetail, nil)
	return Outcome{Status: schemas.StatusFailed, Reason: ReasonLaunchFailure, Detail: lastDetail}
}

// attempt runs one channel's worth of the state machine. A returned error
// means an engine-level failure the caller may retry on the fallback
// channel; classified outcomes come back with a nil error.
func (d *Driver) attempt(ctx context.Context, jobID string, page browser.Page, account schemas.Credentials, jlog *joblog.Log) (Outcome, error) {
	act := d.newActions(page, jlog)

	jlog.Append("goto", true, "navigating to "+d.scfg.StartURL, nil)
	if err := page.Goto(d.scfg.StartURL, d.bcfg.NavigationTimeout); err != nil {
		jlog.Append("goto", false, err.Error(), nil)
		return Outcome{}, fmt.Errorf("navigation: %w", err)
	}

	// Never poke at a protection interstitial; it only digs the hole deeper.
	if d.rules.LooksLikeProtection(page.URL(), page.FrameURLs()) {
		detail := "protection detected url=" + page.URL()
		return d.suspend(act, ReasonProtection, detail, false), nil
	}

	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}

	// Some flow variants start at the password step, so a missing email
	// field is logged and skipped, not fatal.
	if act.fillFirst("fill_alias", heuristics.EmailProbes(), creds.Alias(account.Email)) {
		act.clickFirst("submit_alias", heuristics.SubmitProbes())
		act.waitIdle("alias_settle")
	}

	if act.fillFirst("fill_password", heuristics.PasswordProbes(), account.Password) {
		act.clickFirst("submit_password", heuristics.SubmitProbes())
		act.waitIdle("password_settle")
	}

	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}

	return d.classify(jobID, page, act, jlog, false), nil
}

// Resume re-enters the state machine at the classification step against the
// job's existing live session. No re-navigation, no re-fill.
func (d *Driver) Resume(ctx context.Context, jobID string, jlog *joblog.Log) Outcome {
	page, ok := d.registry.Lookup(jobID)
	if !ok {
		detail := "no live session for job"
		jlog.Append("resume", false, detail, nil)
		return Outcome{Status: schemas.StatusError, Reason: ReasonSessionNotFound, Detail: detail}
	}

	if page.Closed() {
		// The registry said waiting_for_human but the browser is gone: the
		// round-trip invariant broke. Report it loudly, don't misreport.
		d.registry.Release(jobID)
		detail := "session was closed while suspended"
		jlog.Append("resume", false, detail, nil)
		return Outcome{Status: schemas.StatusError, Reason: ReasonSessionClosed, Detail: detail}
	}

	if ctx.Err() != nil {
		detail := fmt.Sprintf("resume canceled: %v", ctx.Err())
		jlog.Append("resume", false, detail, nil)
		return Outcome{Status: schemas.StatusError, Reason: ReasonSessionClosed, Detail: detail}
	}

	jlog.Append("resume", true, "re-checking live session url="+page.URL(), nil)

	act := d.newActions(page, jlog)
	act.stripBanner()

	return d.classify(jobID, page, act, jlog, true)
}

// classify reads the page and applies the outcome priority: challenge
// indicators beat success indicators, because a success keyword on a
// challenge page means the challenge, not the account, is what's real.
func (d *Driver) classify(jobID string, page browser.Page, act *actions, jlog *joblog.Log, resume bool) Outcome {
	content := act.readContent()
	pageURL := page.URL()

	if content == "" && page.Closed() {
		d.registry.Release(jobID)
		detail := "session closed before classification"
		jlog.Append("session_lost", false, detail, nil)
		return Outcome{Status: schemas.StatusError, Reason: ReasonSessionClosed, Detail: detail}
	}

	if d.rules.LooksLikeCaptcha(content) {
		return d.suspend(act, ReasonCaptcha, "captcha challenge detected url="+pageURL, resume)
	}
	if d.rules.LooksLikeProtection(pageURL, page.FrameURLs()) {
		return d.suspend(act, ReasonProtection, "protection detected url="+pageURL, resume)
	}

	if d.rules.LooksLikeSuccess(content, pageURL) {
		// Best effort; a missing success screenshot never blocks completion.
		shot := act.capture(screenshotKind(ReasonSuccess, resume))
		jlog.Append("completed", true, "signup completed url="+pageURL, nil)
		d.registry.Release(jobID)
		return Outcome{
			Status:     schemas.StatusCompleted,
			Reason:     ReasonSuccess,
			Detail:     "success indicator matched",
			Screenshot: shot,
		}
	}

	return d.suspend(act, ReasonUnknownState, "unrecognized page state url="+pageURL, resume)
}

// suspend parks the job for a human: persist the evidence screenshot, pin
// the banner, keep the session registered.
func (d *Driver) suspend(act *actions, reason Reason, detail string, resume bool) Outcome {
	act.jlog.Append(string(reason), false, detail, nil)
	shot := act.capture(screenshotKind(reason, resume))
	act.showBanner()
	return Outcome{
		Status:     schemas.StatusWaitingForHuman,
		Reason:     reason,
		Detail:     detail,
		Screenshot: shot,
	}
}

func (d *Driver) newActions(page browser.Page, jlog *joblog.Log) *actions {
	return &actions{
		page:         page,
		jlog:         jlog,
		typingDelay:  d.bcfg.TypingDelay,
		waitVisible:  d.bcfg.WaitVisibleTimeout,
		clickTimeout: d.bcfg.WaitVisibleTimeout,
		idleTimeout:  d.bcfg.NetworkIdleTimeout,
	}
}

func screenshotKind(reason Reason, resume bool) string {
	if resume {
		return "resume_" + string(reason)
	}
	return string(reason)
}

func channelLabel(channel string) string {
	if channel == "" {
		return "chromium"
	}
	return channel
}
