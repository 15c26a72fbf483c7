package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a row or file error.
type ErrorKind string

const (
	KindParse       ErrorKind = "parse"
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindPersistence ErrorKind = "persistence"
)

// ParseError is a file-level problem: bad encoding, broken CSV structure, a
// missing required column. It aborts the run before any row is attempted.
type ParseError struct {
	Line   int // 0 when the problem is not tied to a line
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *ParseError) Kind() ErrorKind { return KindParse }

// FieldError locates a row error: the column it came from, the raw cell and
// the reason. Field and Raw may be empty for row-level problems. Code is the
// user-facing code, set where the error is raised; reasons quote user data,
// so they are never searched for one.
type FieldError struct {
	Field  string
	Raw    string
	Reason string
	Code   string
}

func (e FieldError) describe() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// RowError is any error that fails a single row.
type RowError interface {
	error
	Kind() ErrorKind
	Detail() FieldError
}

// ValidationError is a cell or row that cannot be normalized.
type ValidationError struct{ FieldError }

func (e *ValidationError) Error() string      { return e.describe() }
func (e *ValidationError) Kind() ErrorKind    { return KindValidation }
func (e *ValidationError) Detail() FieldError { return e.FieldError }

// ConflictError is a row that matches an existing record in a way that
// cannot be skipped, such as an overlapping scholarship period.
type ConflictError struct{ FieldError }

func (e *ConflictError) Error() string      { return e.describe() }
func (e *ConflictError) Kind() ErrorKind    { return KindConflict }
func (e *ConflictError) Detail() FieldError { return e.FieldError }

// PersistenceError wraps a store failure during resolution or persistence.
// Its code comes from the wrapped store error.
type PersistenceError struct {
	FieldError
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.describe(), e.Err)
	}
	return e.describe()
}
func (e *PersistenceError) Kind() ErrorKind    { return KindPersistence }
func (e *PersistenceError) Detail() FieldError { return e.FieldError }
func (e *PersistenceError) Unwrap() error      { return e.Err }

// rowReason is the report text of a row error: the reason without the field
// prefix, plus the store error for persistence failures.
func rowReason(e RowError) string {
	var pe *PersistenceError
	if errors.As(e, &pe) && pe.Err != nil {
		return fmt.Sprintf("%s: %v", pe.Reason, pe.Err)
	}
	return e.Detail().Reason
}

// ValidationErrors collects every validation problem found in one row.
type ValidationErrors []*ValidationError

// Add records a problem for field with its raw value and code.
func (v *ValidationErrors) Add(field, raw, code, reason string) {
	*v = append(*v, &ValidationError{FieldError{Field: field, Raw: raw, Reason: reason, Code: code}})
}

// Err returns nil when nothing was recorded.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Unwrap exposes the individual errors to errors.As.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out
}

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// rowErrors flattens err into typed row errors. Untyped errors become
// persistence errors.
func rowErrors(err error) []RowError {
	if err == nil {
		return nil
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]RowError, len(verrs))
		for i, e := range verrs {
			out[i] = e
		}
		return out
	}
	var re RowError
	if errors.As(err, &re) {
		return []RowError{re}
	}
	return []RowError{&PersistenceError{FieldError: FieldError{Reason: "unexpected error"}, Err: err}}
}
