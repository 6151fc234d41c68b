// Package textnorm folds free text (form questions, button labels, page
// copy) into a comparable form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips accents and punctuation, and collapses
// whitespace. "Avez-vous déjà postulé ?" becomes "avez vous deja postule".
func Normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Words returns the set of words of an already normalised string.
func Words(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// ContainsAny reports whether the normalised text contains any of the
// phrases, each normalised first. Empty phrases never match.
func ContainsAny(text string, phrases []string) bool {
	_, ok := FirstMatch(text, phrases)
	return ok
}

// FirstMatch returns the first phrase contained in text.
func FirstMatch(text string, phrases []string) (string, bool) {
	t := Normalize(text)
	if t == "" {
		return "", false
	}
	for _, p := range phrases {
		np := Normalize(p)
		if np == "" {
			continue
		}
		if containsPhrase(t, np) {
			return p, true
		}
	}
	return "", false
}

// containsPhrase matches on word boundaries so that "no" does not match
// "now" and "apply" does not match "reapplying".
func containsPhrase(text, phrase string) bool {
	padded := " " + text + " "
	return strings.Contains(padded, " "+phrase+" ")
}
