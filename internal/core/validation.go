package core

// validation.go binds a CSV header to a profile and exposes each data row as
// a Record keyed by canonical field name.
//
// Header binding happens once per file and is all-or-nothing: a missing
// required column or a column bound twice is a ParseError, and no row is
// attempted. Row-level checks (required cells, formats) happen in each
// profile's Build function through the Record helpers.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/uniimport/internal/normalize"
)

// ColumnMapping maps a CSV header to a canonical field name. Header
// comparison ignores case and surrounding or repeated whitespace.
type ColumnMapping map[string]string

// DefaultMapping returns the profile's built-in header -> field mapping.
func DefaultMapping(def ProfileDefinition) ColumnMapping {
	m := make(ColumnMapping, len(def.FieldSpecs))
	for _, f := range def.FieldSpecs {
		m[f.Header] = f.Name
	}
	return m
}

// Binding is a header row resolved against a profile.
type Binding struct {
	def     ProfileDefinition
	columns map[string]int    // field -> column index
	headers map[string]string // field -> header as written in the file
	Ignored []string          // headers that map to no field
}

// BindHeader resolves header against def. Overrides take precedence over
// the default headers; their targets must be fields of the profile.
func BindHeader(def ProfileDefinition, header []string, overrides ColumnMapping) (*Binding, error) {
	lookup := make(map[string]string, len(def.FieldSpecs)*2)
	for _, f := range def.FieldSpecs {
		lookup[normalize.Key(f.Header)] = f.Name
		lookup[normalize.Key(f.Name)] = f.Name
	}
	for h, field := range overrides {
		if _, ok := def.Field(field); !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid mapping: %q is not a field of profile %s", field, def.Info.Key)}
		}
		lookup[normalize.Key(h)] = field
	}

	b := &Binding{
		def:     def,
		columns: make(map[string]int, len(def.FieldSpecs)),
		headers: make(map[string]string, len(def.FieldSpecs)),
	}
	for i, raw := range header {
		h := normalize.Whitespace(CleanCell(raw))
		if h == "" {
			continue
		}
		field, ok := lookup[normalize.Key(h)]
		if !ok {
			b.Ignored = append(b.Ignored, h)
			continue
		}
		if prev, dup := b.headers[field]; dup {
			return nil, &ParseError{Line: 1, Reason: fmt.Sprintf("duplicate column: %q and %q both map to %s", prev, h, field)}
		}
		b.columns[field] = i
		b.headers[field] = h
	}

	var missing []string
	for _, f := range def.FieldSpecs {
		if _, ok := b.columns[f.Name]; f.Required && !ok {
			missing = append(missing, expectedHeader(f, overrides))
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Line: 1, Reason: fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", "))}
	}

	return b, nil
}

// expectedHeader names the header the user should add for f.
func expectedHeader(f FieldSpec, overrides ColumnMapping) string {
	var custom []string
	for h, field := range overrides {
		if field == f.Name {
			custom = append(custom, h)
		}
	}
	if len(custom) == 0 {
		return f.Header
	}
	sort.Strings(custom)
	return custom[0]
}

// Record builds the record for one data row. rowNum is 1-based and excludes
// the header.
func (b *Binding) Record(rowNum int, cells []string) *Record {
	values := make(map[string]string, len(b.columns))
	for field, idx := range b.columns {
		if idx < len(cells) {
			values[field] = CleanCell(cells[idx])
		}
	}
	return &Record{Row: rowNum, binding: b, values: values}
}

// Record is one data row addressed by canonical field name.
type Record struct {
	Row      int
	binding  *Binding
	values   map[string]string
	warnings []RowWarning
}

// Value returns the cleaned cell for field, or "" when the column is absent.
func (r *Record) Value(field string) string {
	return r.values[field]
}

// Header returns the header the user wrote for field, falling back to the
// default header when the column is absent.
func (r *Record) Header(field string) string {
	if h, ok := r.binding.headers[field]; ok {
		return h
	}
	if f, ok := r.binding.def.Field(field); ok {
		return f.Header
	}
	return field
}

// Require returns the whitespace-normalized value of field and records a
// validation error when it is empty.
func (r *Record) Require(field string, errs *ValidationErrors) string {
	v := normalize.Whitespace(r.values[field])
	if v == "" {
		errs.Add(r.Header(field), "", CodeRequired, "required field is empty")
	}
	return v
}

// Optional returns the whitespace-normalized value of field.
func (r *Record) Optional(field string) string {
	return normalize.Whitespace(r.values[field])
}

// List splits a multi-value field on its delimiter.
func (r *Record) List(field string) []string {
	delim := ";"
	if f, ok := r.binding.def.Field(field); ok && f.Delimiter != "" {
		delim = f.Delimiter
	}
	return normalize.Split(r.values[field], delim)
}

// Warn records a non-fatal problem, such as a dropped list entry.
func (r *Record) Warn(field, raw, message string) {
	r.warnings = append(r.warnings, RowWarning{Row: r.Row, Field: r.Header(field), RawValue: raw, Message: message})
}

// Warnings returns the warnings recorded so far.
func (r *Record) Warnings() []RowWarning { return r.warnings }

// BlankRow reports whether every cell is empty after cleaning.
func BlankRow(cells []string) bool {
	for _, c := range cells {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}
