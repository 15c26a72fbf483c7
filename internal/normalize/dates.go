package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Accepted date shapes. Separators '-', '/' and '.' are interchangeable in
// the day-first forms; ISO must use '-'.
var (
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2}|\d{4})$`)
	isoDate      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// DateError reports a value that matches none of the accepted date formats.
type DateError struct {
	Raw    string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Raw, e.Reason)
}

// DateFormats is the human-readable list shown in errors and templates.
const DateFormats = "DD-MM-YY, DD/MM/YYYY or YYYY-MM-DD"

// ParseDate parses DD-MM-YY, DD/MM/YYYY and YYYY-MM-DD into a UTC date.
// Two-digit years 00-49 map to 2000-2049 and 50-99 to 1950-1999.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &DateError{Raw: raw, Reason: "empty"}
	}

	var day, month, year int
	if m := isoDate.FindStringSubmatch(s); m != nil {
		year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
	} else if m := dayFirstDate.FindStringSubmatch(s); m != nil {
		day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			year = expandYear(year)
		}
	} else {
		return time.Time{}, &DateError{Raw: raw, Reason: "expected " + DateFormats}
	}

	if month < 1 || month > 12 {
		return time.Time{}, &DateError{Raw: raw, Reason: fmt.Sprintf("month %d out of range", month)}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31-02 into March; reject instead of shifting.
	if day < 1 || t.Day() != day {
		return time.Time{}, &DateError{Raw: raw, Reason: fmt.Sprintf("day %d does not exist in %s %d", day, time.Month(month), year)}
	}
	return t, nil
}

// ParseOptionalDate returns nil for a blank cell.
func ParseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func expandYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
