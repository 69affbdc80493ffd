// Package normalize canonicalizes estimate text for comparison across
// languages and vendors. German and French repair estimates spell the same
// component a dozen ways; every matcher stage compares normalized forms only.
package normalize

import (
	"strings"
	"unicode"
)

// diacritics is the fixed substitution table applied before any comparison.
// Kept as an explicit table rather than Unicode decomposition so the mapping
// is stable and reviewable (ä must become "a", not "ae" in one place and "a"
// in another).
var diacritics = strings.NewReplacer(
	"ä", "a", "ö", "o", "ü", "u",
	"à", "a", "â", "a", "á", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i", "í", "i",
	"ô", "o", "ó", "o",
	"û", "u", "ù", "u", "ú", "u",
	"ç", "c",
	"ß", "ss",
)

// Normalize lower-cases, strips diacritics, removes punctuation that is not
// part of an alphanumeric token and collapses whitespace.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = diacritics.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Punctuation and whitespace both collapse to a single
			// separator so "oil-cooler" and "oil cooler" compare equal.
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Code canonicalizes a catalog part number: spaces, dashes, dots and
// slashes are stripped and the rest upper-cased, so "11 42-7.807/990"
// and "11427807990" collide.
func Code(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		switch r {
		case ' ', '-', '.', '/':
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Tokens returns the whitespace-separated tokens of the normalized text
func Tokens(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// TermMatches reports whether a dictionary term occurs in the normalized
// text. Short tokens (<= 3 normalized characters) must match a whole token
// exactly, never as a substring, in either direction: "asr" must not be found
// inside "abgasrueckfuehrung", and a three-letter description must not
// substring-match a longer term.
func TermMatches(term, text string) bool {
	nt := Normalize(term)
	if nt == "" {
		return false
	}
	nx := Normalize(text)

	if len(nt) <= 3 || len(nx) <= 3 {
		for _, tok := range strings.Fields(nx) {
			if tok == nt {
				return true
			}
		}
		return false
	}
	return strings.Contains(nx, nt)
}

// MoreSpecific reports whether term a should win over term b when both
// match the same description: the longer normalized form wins, equal
// lengths fall back to lexicographic order. Dictionary terms live in maps,
// and a tie must never be decided by iteration order.
func MoreSpecific(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if len(na) != len(nb) {
		return len(na) > len(nb)
	}
	return na < nb
}
