package normalize

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultCodeLength caps generated codes when no limit is configured.
const DefaultCodeLength = 10

// Code derives a short upper-case code from a name. Multi-word names give
// their initials ("Santa Catarina" -> "SC"); a single word gives the word
// itself. Connector words are skipped and accents removed. The result is at
// most max runes long.
func Code(name string, max int) string {
	if max <= 0 {
		max = DefaultCodeLength
	}
	words := Words(name)
	var code string
	switch len(words) {
	case 0:
		code = "X"
	case 1:
		code = strings.ToUpper(words[0])
	default:
		var b strings.Builder
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			b.WriteRune(r)
		}
		code = strings.ToUpper(b.String())
	}
	return truncate(code, max)
}

// WithSuffix appends n to base, shortening base so the result fits max.
// WithSuffix("SC", 1, 10) == "SC1".
func WithSuffix(base string, n, max int) string {
	if max <= 0 {
		max = DefaultCodeLength
	}
	suffix := strconv.Itoa(n)
	keep := max - len(suffix)
	if keep < 1 {
		keep = 1
	}
	return truncate(base, keep) + suffix
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
