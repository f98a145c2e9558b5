package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeProtection(t *testing.T) {
	rules := Default()

	t.Run("page url match", func(t *testing.T) {
		assert.True(t, rules.LooksLikeProtection("https://iframe.hsprotect.net/challenge", nil))
	})

	t.Run("frame url match", func(t *testing.T) {
		frames := []string{
			"https://signup.live.com/inner",
			"https://client.a.PerimeterX.net/px.html",
		}
		assert.True(t, rules.LooksLikeProtection("https://signup.live.com", frames))
	})

	t.Run("subdomain substring match", func(t *testing.T) {
		// Vendors rotate subdomains; substring matching must still hit.
		assert.True(t, rules.LooksLikeProtection("https://eu-west.arkoselabs.com/fc/gt2", nil))
	})

	t.Run("clean page", func(t *testing.T) {
		assert.False(t, rules.LooksLikeProtection("https://signup.live.com", []string{"https://signup.live.com/frame"}))
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.False(t, rules.LooksLikeProtection("", nil))
	})
}

func TestLooksLikeCaptcha(t *testing.T) {
	rules := Default()

	assert.True(t, rules.LooksLikeCaptcha("Please solve this CAPTCHA to continue"))
	assert.True(t, rules.LooksLikeCaptcha("Press and hold the button"))
	assert.True(t, rules.LooksLikeCaptcha("Help us prove you're not a robot"))
	assert.False(t, rules.LooksLikeCaptcha("Enter your new email address"))
	assert.False(t, rules.LooksLikeCaptcha(""))
}

func TestCaptchaWinsOverSuccess(t *testing.T) {
	// A success keyword next to a challenge banner must still read as a
	// challenge. The driver checks captcha first; this pins down that both
	// classifiers fire on such a page.
	rules := Default()
	text := "Welcome! Please solve this challenge: press and hold"

	assert.True(t, rules.LooksLikeCaptcha(text))
	assert.True(t, rules.LooksLikeSuccess(text, "https://signup.live.com"))
}

func TestLooksLikeSuccess(t *testing.T) {
	rules := Default()

	assert.True(t, rules.LooksLikeSuccess("Welcome to your new account", "https://account.live.com"))
	assert.True(t, rules.LooksLikeSuccess("all set", "https://account.live.com/welcome"))
	assert.False(t, rules.LooksLikeSuccess("Enter a password", "https://signup.live.com"))
}

func TestMergeOverrides(t *testing.T) {
	rules := Default().Merge([]string{"customshield"}, nil, nil)

	assert.True(t, rules.LooksLikeProtection("https://cdn.customshield.io/x", nil))
	assert.False(t, rules.LooksLikeProtection("https://iframe.hsprotect.net", nil))
	// Untouched categories keep defaults.
	assert.True(t, rules.LooksLikeCaptcha("press and hold"))
}

func TestProbeListsAreOrdered(t *testing.T) {
	// The first probe must stay the flow's canonical selector; the driver
	// depends on priority order, not set membership.
	assert.Equal(t, `input[name="MemberName"]`, EmailProbes()[0].Selector)
	assert.Equal(t, `input[name="Password"]`, PasswordProbes()[0].Selector)
	assert.Equal(t, `input[type="submit"]`, SubmitProbes()[0].Selector)
}
