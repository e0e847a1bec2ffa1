// Package game implements the pure word-game logic: phrase masking,
// phrase validation and guess evaluation. Nothing in this package touches
// storage or the ledger.
package game

import (
	"regexp"
	"strings"
)

// Placeholder is the character shown for letters that have not been
// guessed yet.
const Placeholder = "_"

var phrasePattern = regexp.MustCompile(`^[A-Z0-9 ]*$`)

// NormalizePhrase collapses internal whitespace runs to single spaces,
// trims and uppercases a candidate phrase.
func NormalizePhrase(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// ValidPhrase reports whether a normalized phrase contains only uppercase
// letters, digits and spaces, and at least one non-space character.
func ValidPhrase(phrase string) bool {
	if strings.TrimSpace(phrase) == "" {
		return false
	}
	return phrasePattern.MatchString(phrase)
}

// MaskPhrase returns the display form of a phrase: spaces pass through,
// every other character is replaced with the placeholder unless its
// uppercase form appears in correct. Matching is case-insensitive; the
// phrase is uppercased internally.
func MaskPhrase(phrase string, correct []string) string {
	upper := strings.ToUpper(phrase)
	set := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		set[strings.ToUpper(c)] = struct{}{}
	}

	var b strings.Builder
	b.Grow(len(upper))
	for _, ch := range upper {
		if ch == ' ' {
			b.WriteRune(' ')
			continue
		}
		if _, ok := set[string(ch)]; ok {
			b.WriteRune(ch)
		} else {
			b.WriteString(Placeholder)
		}
	}
	return b.String()
}
