// internal/heuristics/heuristics.go

// Package heuristics holds the page-classification rules and the ordered
// element-probe lists the signup driver works through. Everything here is
// data plus pure functions; detection rules can change without touching the
// state machine.
package heuristics

import "strings"

// RuleSet classifies pages by substring matching. All matching is
// case-insensitive and deliberately loose: protection vendors serve from
// rotating subdomains, and challenge copy varies between rollouts. False
// negatives fall through to the driver's unknown-state branch.
type RuleSet struct {
	ProtectionHosts []string
	CaptchaKeywords []string
	SuccessMarkers  []string
}

// Default returns the built-in rule set tuned for the Microsoft account
// signup flow.
func Default() RuleSet {
	return RuleSet{
		ProtectionHosts: []string{
			"hsprotect",
			"perimeterx",
			"arkoselabs",
			"crcldu",
			"fpt.live.com",
		},
		CaptchaKeywords: []string{
			"help us",
			"captcha",
			"prove you're not",
			"press and hold",
		},
		SuccessMarkers: []string{
			"welcome",
		},
	}
}

// LooksLikeProtection reports whether the page URL or any embedded frame URL
// belongs to a known bot-protection host.
func (r RuleSet) LooksLikeProtection(pageURL string, frameURLs []string) bool {
	if containsAny(pageURL, r.ProtectionHosts) {
		return true
	}
	for _, u := range frameURLs {
		if containsAny(u, r.ProtectionHosts) {
			return true
		}
	}
	return false
}

// LooksLikeCaptcha reports whether the page text contains a known challenge
// phrase.
func (r RuleSet) LooksLikeCaptcha(pageText string) bool {
	return containsAny(pageText, r.CaptchaKeywords)
}

// LooksLikeSuccess reports whether the page text or URL carries a success
// indicator. Callers must check captcha/protection first; a success marker
// next to a challenge banner does not mean the signup finished.
func (r RuleSet) LooksLikeSuccess(pageText, pageURL string) bool {
	return containsAny(pageText, r.SuccessMarkers) || containsAny(pageURL, r.SuccessMarkers)
}

// Merge overlays non-empty override lists onto r and returns the result.
func (r RuleSet) Merge(protectionHosts, captchaKeywords, successMarkers []string) RuleSet {
	out := r
	if len(protectionHosts) > 0 {
		out.ProtectionHosts = protectionHosts
	}
	if len(captchaKeywords) > 0 {
		out.CaptchaKeywords = captchaKeywords
	}
	if len(successMarkers) > 0 {
		out.SuccessMarkers = successMarkers
	}
	return out
}

func containsAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	lowered := strings.ToLower(s)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
