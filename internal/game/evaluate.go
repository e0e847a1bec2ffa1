package game

import (
	"strings"
	"unicode/utf8"

	"fio-word-game/internal/model"
)

// Result is the outcome of evaluating one guess against a game.
type Result struct {
	// Normalized is the trimmed, uppercased guess text as it should be
	// recorded.
	Normalized string
	// FullPhrase reports whether the guess was treated as a full-phrase
	// attempt (more than one character) rather than a letter attempt.
	FullPhrase bool
	Correct    bool
	Winner     bool
}

// Outcome maps the result onto the stored guess outcome.
func (r Result) Outcome() string {
	switch {
	case r.Winner:
		return model.OutcomeWinner
	case r.Correct:
		return model.OutcomeCorrect
	default:
		return model.OutcomeMiss
	}
}

// Evaluate decides correctness and the win condition for a new guess.
//
// The guess is trimmed and uppercased. Anything longer than one character
// is a full-phrase attempt and is correct (and winning) only on exact
// equality with the phrase. A single character is a letter attempt,
// correct when the phrase contains it anywhere, and winning when every
// distinct non-space character of the phrase has been guessed across
// past guesses plus this one.
//
// The correct-token set is recomputed from the supplied history on every
// call, so replaying the same history in any order yields the same
// answer.
func Evaluate(phrase string, past []string, guess string) Result {
	norm := strings.ToUpper(strings.TrimSpace(guess))
	upper := strings.ToUpper(phrase)

	r := Result{
		Normalized: norm,
		FullPhrase: utf8.RuneCountInString(norm) > 1,
	}

	if r.FullPhrase {
		r.Correct = norm == upper
		r.Winner = r.Correct
		return r
	}

	r.Correct = norm != "" && strings.Contains(upper, norm)
	if !r.Correct {
		return r
	}

	tokens := correctTokenSet(upper, past)
	tokens[norm] = struct{}{}
	r.Winner = allLettersCovered(upper, tokens)
	return r
}

// CorrectTokens returns the distinct guesses from history that are
// contained in the phrase, uppercased, in order of first appearance.
// This is the authoritative set the masked projection is derived from.
func CorrectTokens(phrase string, guesses []string) []string {
	upper := strings.ToUpper(phrase)
	seen := make(map[string]struct{}, len(guesses))
	var tokens []string
	for _, g := range guesses {
		t := strings.ToUpper(g)
		if t == "" || !strings.Contains(upper, t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}

func correctTokenSet(upperPhrase string, guesses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(guesses))
	for _, g := range guesses {
		t := strings.ToUpper(g)
		if t != "" && strings.Contains(upperPhrase, t) {
			set[t] = struct{}{}
		}
	}
	return set
}

func allLettersCovered(upperPhrase string, tokens map[string]struct{}) bool {
	for _, ch := range upperPhrase {
		if ch == ' ' {
			continue
		}
		if _, ok := tokens[string(ch)]; !ok {
			return false
		}
	}
	return true
}
