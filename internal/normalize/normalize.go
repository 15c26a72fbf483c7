// Package normalize holds the pure text transformations applied to every
// imported cell before it is used as a lookup key or a display value.
//
// Nothing in this package touches the store. Every function is safe for
// concurrent use; x/text casers are stateful, so a fresh one is built per call.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// connectors stay lower-case inside proper names and are ignored when
// deriving initials.
var connectors = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
	"of": true, "the": true, "and": true,
}

// Whitespace collapses internal runs of whitespace (including NBSP) into a
// single space and trims both ends.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title proper-cases a display value: "JOÃO  DA silva" -> "João da Silva".
// Connector words keep lower case unless they open the name.
func Title(s string) string {
	s = Whitespace(s)
	if s == "" {
		return ""
	}
	words := strings.Split(cases.Title(language.BrazilianPortuguese).String(s), " ")
	for i, w := range words {
		if i > 0 && connectors[strings.ToLower(w)] {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

// Key derives the comparison key for a name: collapsed whitespace, Unicode
// case folding, NFC. Stores compare it against the same transformation of
// the stored value, so cosmetic differences never produce a miss.
func Key(s string) string {
	return norm.NFC.String(cases.Fold().String(Whitespace(s)))
}

// EmailKey is the comparison key for an email address.
func EmailKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StripAccents removes combining marks: "São" -> "Sao".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Words splits a name into accent-free words, dropping connectors.
func Words(s string) []string {
	var out []string
	for _, w := range strings.Fields(StripAccents(Whitespace(s))) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if w == "" || connectors[strings.ToLower(w)] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Slug renders s as a lower-case ASCII token joined by dots, suitable for the
// local part of a synthesized email address.
func Slug(s string) string {
	var b strings.Builder
	dot := false
	for _, r := range strings.ToLower(StripAccents(s)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dot && b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteRune(r)
			dot = false
		default:
			dot = true
		}
	}
	return b.String()
}

// Split breaks a multi-value cell on delim. Fragments are whitespace
// normalized and empty fragments are dropped.
func Split(raw, delim string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, delim)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Whitespace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
