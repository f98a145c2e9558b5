// internal/creds/creds.go

// Package creds generates account identities for signup jobs: an email
// alias derived from the applicant's CURP and a random strong password.
package creds

import (
	"fmt"
	"math/rand"
	"strings"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// DefaultPasswordLength matches the signup flow's minimum complexity rules
// with headroom.
const DefaultPasswordLength = 12

// EmailFromCURP derives a deterministic-ish alias from the first four CURP
// characters plus a random three-digit suffix to dodge collisions.
// An empty CURP falls back to a generic alias.
func EmailFromCURP(curp, domain string) string {
	core := "user"
	if trimmed := strings.TrimSpace(curp); trimmed != "" {
		if len(trimmed) > 4 {
			trimmed = trimmed[:4]
		}
		core = strings.ToLower(trimmed)
	}
	suffix := 100 + rand.Intn(900)
	return fmt.Sprintf("%s%d@%s", core, suffix, domain)
}

// NewPassword returns a random mixed-case password of the given length over
// letters, digits and symbols. Lengths below one fall back to the default.
func NewPassword(length int) string {
	if length < 1 {
		length = DefaultPasswordLength
	}
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(passwordAlphabet[rand.Intn(len(passwordAlphabet))])
	}
	return sb.String()
}

// Alias returns the local part of an email address; the signup form asks
// for the alias alone, not the full address.
func Alias(email string) string {
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}
