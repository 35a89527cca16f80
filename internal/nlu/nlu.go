// Package nlu holds the fixed keyword and lemma rules used to read transcribed
// commands. There is no statistical model here: text is normalised, split
// into tokens and compared against stems.
package nlu

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Normalize case-folds text, collapses whitespace and drops trailing
// sentence punctuation that transcribers like to append.
func Normalize(text string) string {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.TrimRight(s, ".!?,;: ")
}

// NormalizeName reduces a resource or query name to lower-case alphanumeric
// words separated by single spaces. "Google-Chrome.exe" -> "google chrome exe".
func NormalizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokens returns the normalised word tokens of text.
func Tokens(text string) []string {
	return strings.Fields(NormalizeName(text))
}

// HasToken reports whether any word of text equals one of words.
func HasToken(text string, words ...string) bool {
	for _, tok := range Tokens(text) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// ContainsAny reports whether text contains any of the substrings.
func ContainsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// HasPrefixAny returns the first prefix text starts with.
func HasPrefixAny(text string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return p, true
		}
	}
	return "", false
}

// Lemma returns the stem used to compare inflected forms ("reminding",
// "reminded" and "remind" share one).
func Lemma(word string) string {
	return english.Stem(strings.ToLower(word), false)
}

// HasLemma reports whether any token of text shares a stem with one of lemmas.
func HasLemma(text string, lemmas ...string) bool {
	want := make(map[string]struct{}, len(lemmas))
	for _, l := range lemmas {
		want[Lemma(l)] = struct{}{}
	}
	for _, tok := range Tokens(text) {
		if _, ok := want[Lemma(tok)]; ok {
			return true
		}
	}
	return false
}

// After returns the trimmed text following the first occurrence of marker.
func After(text, marker string) string {
	_, rest, ok := strings.Cut(text, marker)
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

// ContainsPhrase reports whether phrase appears in text on word boundaries,
// after both are normalised as names.
func ContainsPhrase(text, phrase string) bool {
	t := " " + NormalizeName(text) + " "
	p := NormalizeName(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(t, " "+p+" ")
}
