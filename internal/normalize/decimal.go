package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberError reports a cell that is not a readable amount.
type NumberError struct {
	Raw    string
	Reason string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("invalid number %q: %s", e.Raw, e.Reason)
}

// ParseAmount reads a monetary amount written either way round:
// "1.234,56", "1,234.56", "R$ 800", "800,00". When only one separator kind
// appears, a comma is decimal and dots are thousands unless a single dot is
// followed by something other than exactly three digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, sym := range []string{"R$", "US$", "$", " ", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if s == "" {
		return decimal.Zero, &NumberError{Raw: raw, Reason: "empty"}
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, &NumberError{Raw: raw, Reason: "more than one decimal comma"}
		}
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &NumberError{Raw: raw, Reason: "not a number"}
	}
	return d, nil
}
