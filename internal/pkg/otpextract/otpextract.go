// Package otpextract pulls a numeric one-time code out of free-form SMS text.
//
// Patterns are tried in priority order and the first one that matches wins.
// A keyword-anchored code ("OTP is 482917", "code: 4821") is trusted first
// because message bodies often carry unrelated numbers such as phone numbers
// or dates; the bare digit patterns are fallbacks.
package otpextract

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Patterns lists the extraction patterns in the order they are tried.
var Patterns = []*regexp.Regexp{
	// whole-word keyword followed within a short gap by a 4-6 digit run that
	// is not part of a longer run
	regexp.MustCompile(`(?i)\b(?:otp|code|verification|pin)\b\D{0,20}?(\d{4,6})(?:\D|$)`),
	regexp.MustCompile(`\b\d{4,6}\b`),
	regexp.MustCompile(`([0-9]{4,6})`),
	regexp.MustCompile(`\d{4,8}`),
}

var reCode = regexp.MustCompile(`^\d{4,8}$`)

// Extract returns the best-guess code in raw and true, or "" and false when
// no pattern yields a 4 to 8 digit code.
//
// Within the first pattern that matches, the last submatch that is itself a
// valid code is chosen. Separators are never stripped, so "12-34" holds no code.
func Extract(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}

	for _, re := range Patterns {
		groups := re.FindStringSubmatch(raw)
		if groups == nil {
			continue
		}

		code, _, ok := lo.FindLastIndexOf(groups, reCode.MatchString)
		if ok {
			return code, true
		}
	}

	return "", false
}

// IsCode reports whether s is a well-formed code: 4 to 8 ASCII digits.
func IsCode(s string) bool {
	return reCode.MatchString(s)
}
