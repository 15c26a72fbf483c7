package core

// convert.go turns cleaned cells into typed values for profile Build
// functions. Each helper records a ValidationError carrying the column header
// and the raw cell instead of returning it, so a profile can report every
// problem of a row at once.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/uniimport/internal/normalize"
)

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"`))
}

// Date parses field. A blank optional cell yields nil without error.
func (r *Record) Date(field string, required bool, errs *ValidationErrors) *time.Time {
	raw := r.Optional(field)
	if raw == "" {
		if required {
			errs.Add(r.Header(field), "", CodeRequired, "required field is empty")
		}
		return nil
	}
	t, err := normalize.ParseDate(raw)
	if err != nil {
		errs.Add(r.Header(field), raw, CodeInvalidDate, err.Error())
		return nil
	}
	return &t
}

// PositiveAmount parses a required monetary field that must be > 0.
func (r *Record) PositiveAmount(field string, errs *ValidationErrors) decimal.Decimal {
	raw := r.Optional(field)
	if raw == "" {
		errs.Add(r.Header(field), "", CodeRequired, "required field is empty")
		return decimal.Zero
	}
	d, err := normalize.ParseAmount(raw)
	if err != nil {
		errs.Add(r.Header(field), raw, CodeInvalidNumber, err.Error())
		return decimal.Zero
	}
	if !d.IsPositive() {
		errs.Add(r.Header(field), raw, CodeNotPositive, fmt.Sprintf("value %s must be positive", d.String()))
		return decimal.Zero
	}
	return d
}

// Email returns the lower-cased address in field, or "" when blank.
func (r *Record) Email(field string, errs *ValidationErrors) string {
	raw := r.Optional(field)
	if raw == "" {
		return ""
	}
	email := normalize.EmailKey(raw)
	if !normalize.ValidEmail(email) {
		errs.Add(r.Header(field), raw, CodeInvalidEmail, fmt.Sprintf("invalid email %q", raw))
		return ""
	}
	return email
}

// URL returns the website in field, or "" when blank.
func (r *Record) URL(field string, errs *ValidationErrors) string {
	raw := r.Optional(field)
	if raw == "" {
		return ""
	}
	if !normalize.ValidURL(raw) {
		errs.Add(r.Header(field), raw, CodeInvalidURL, fmt.Sprintf("invalid url %q", raw))
		return ""
	}
	return raw
}

// CheckPeriod records an error when end is before start.
func (r *Record) CheckPeriod(startField, endField string, start, end *time.Time, errs *ValidationErrors) {
	if start == nil || end == nil || !end.Before(*start) {
		return
	}
	errs.Add(r.Header(endField), r.Optional(endField), CodeEndBeforeStart,
		fmt.Sprintf("period ends before it starts (%s is %s)", r.Header(startField), start.Format(time.DateOnly)))
}

// Contacts parses a list field of people. With strict set every entry must
// be "Name (email)" and a bad entry fails the row; otherwise bare names are
// accepted and bad entries are dropped with a warning.
func (r *Record) Contacts(field string, strict bool, errs *ValidationErrors) []normalize.Contact {
	var out []normalize.Contact
	for _, entry := range r.List(field) {
		parse := normalize.ParseLooseContact
		if strict {
			parse = normalize.ParseContact
		}
		c, err := parse(entry)
		if err != nil {
			if strict {
				errs.Add(r.Header(field), entry, CodeInvalidContact, err.Error())
			} else {
				r.Warn(field, entry, "entry dropped: "+err.Error())
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// Person reads a single-person field plus its optional companion email
// column. The name cell may itself be written as "Name (email)".
func (r *Record) Person(nameField, emailField string, required bool, errs *ValidationErrors) *normalize.Contact {
	raw := r.Optional(nameField)
	if raw == "" {
		if required {
			errs.Add(r.Header(nameField), "", CodeRequired, "required field is empty")
		}
		return nil
	}
	c, err := normalize.ParseLooseContact(raw)
	if err != nil {
		errs.Add(r.Header(nameField), raw, CodeInvalidContact, err.Error())
		return nil
	}
	if emailField != "" {
		if email := r.Email(emailField, errs); email != "" {
			c.Email = email
		}
	}
	return &c
}
