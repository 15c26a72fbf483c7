package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// contactPattern matches "Name (email)". The email group excludes
// parentheses so "A (B) (c@d)" does not parse.
var contactPattern = regexp.MustCompile(`^([^()]+?)\s*\(\s*([^()\s]+)\s*\)$`)

// Contact is a person reference as it appears in a cell.
type Contact struct {
	Name  string
	Email string
}

// ContactError reports a cell entry that cannot be read as a contact.
type ContactError struct {
	Raw    string
	Reason string
}

func (e *ContactError) Error() string {
	return fmt.Sprintf("invalid contact %q: %s", e.Raw, e.Reason)
}

// ParseContact reads the strict "Name (email)" form. Both parts are required.
func ParseContact(raw string) (Contact, error) {
	s := Whitespace(raw)
	m := contactPattern.FindStringSubmatch(s)
	if m == nil {
		return Contact{}, &ContactError{Raw: raw, Reason: `expected "Name (email)"`}
	}
	c := Contact{Name: Title(m[1]), Email: EmailKey(m[2])}
	if !ValidEmail(c.Email) {
		return Contact{}, &ContactError{Raw: raw, Reason: fmt.Sprintf("%q is not a valid email", m[2])}
	}
	return c, nil
}

// ParseLooseContact accepts either a bare name or "Name (email)". When the
// parenthesized part is present it must be a valid email.
func ParseLooseContact(raw string) (Contact, error) {
	s := Whitespace(raw)
	if s == "" {
		return Contact{}, &ContactError{Raw: raw, Reason: "empty"}
	}
	if !strings.ContainsAny(s, "()") {
		return Contact{Name: Title(s)}, nil
	}
	return ParseContact(s)
}

// ValidEmail reports whether s is a syntactically valid address.
func ValidEmail(s string) bool {
	return s != "" && validate.Var(s, "email") == nil
}

// ValidURL reports whether s is an absolute http(s) URL.
func ValidURL(s string) bool {
	if s == "" || validate.Var(s, "url") != nil {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
