package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/JonMunkholm/uniimport/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large",
			err:         &ParseError{Reason: "file too large: exceeds 10485760 bytes"},
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "broken quotes",
			err:         &ParseError{Line: 3, Reason: `invalid csv: extraneous or missing " in quoted-field`},
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV",
		},
		{
			name:        "unsupported type",
			err:         fmt.Errorf("%w (got a.xlsx)", ErrUnsupportedFileType),
			wantCode:    "FILE006",
			wantMessage: "Only CSV files are accepted",
		},
		{
			name:        "invalid date",
			err:         &ValidationError{FieldError{Field: "DataInicio", Raw: "31-02-24", Reason: `invalid date "31-02-24"`}},
			wantCode:    "VAL001",
			wantMessage: "Invalid date",
		},
		{
			name:        "required field",
			err:         &ValidationError{FieldError{Field: "Titulo", Reason: "required field is empty"}},
			wantCode:    "VAL003",
			wantMessage: "Required field is empty",
		},
		{
			name:        "ambiguous person",
			err:         &ValidationError{FieldError{Reason: `ambiguous person: 2 people are named "Ana"; add an email`}},
			wantCode:    "VAL010",
			wantMessage: "More than one person has this name",
		},
		{
			name:        "overlapping scholarship",
			err:         &ConflictError{FieldError{Reason: "overlapping scholarship: student already holds PIBIC"}},
			wantCode:    "CNF002",
			wantMessage: "Student already holds a scholarship in this period",
		},
		{
			name:        "code set at the source wins over reason text",
			err:         &ConflictError{FieldError{Reason: `overlapping scholarship: Rui already holds "Required Field Study"`, Code: CodeOverlap}},
			wantCode:    "CNF002",
			wantMessage: "Student already holds a scholarship in this period",
		},
		{
			name:        "uncoded conflict only matches conflict patterns",
			err:         &ConflictError{FieldError{Reason: `short name already used on campus by "Invalid Date Lab"`}},
			wantCode:    "CNF001",
			wantMessage: "Short name is taken by another organization's group on this campus",
		},
		{
			name:        "row errors inside a collection",
			err:         fmt.Errorf("build row: %w", ValidationErrors{&ValidationError{FieldError{Field: "Site", Reason: "bad", Code: CodeInvalidURL}}}),
			wantCode:    "VAL007",
			wantMessage: "Invalid website",
		},
		{
			name:        "lost uniqueness race",
			err:         &PersistenceError{FieldError: FieldError{Reason: "resolve campus"}, Err: store.ErrConflict},
			wantCode:    "DB002",
			wantMessage: "A concurrent import created the same record",
		},
		{
			name:        "row blocked past the lock timeout",
			err:         &PersistenceError{FieldError: FieldError{Reason: "persist"}, Err: errors.New("lock timeout: ERROR: canceling statement due to lock timeout (SQLSTATE 55P03)")},
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "postgres unique violation",
			err:         errors.New(`ERROR: duplicate key value violates unique constraint "people_email_key"`),
			wantCode:    "DB002",
			wantMessage: "A concurrent import created the same record",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "busy",
			err:         ErrTooManyImports,
			wantCode:    "IMP002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "cancelled",
			err:         context.Canceled,
			wantCode:    "IMP004",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "invalid mapping",
			err:         &ParseError{Reason: `invalid mapping: "titel" is not a field of profile initiative`},
			wantCode:    "IMP006",
			wantMessage: "Column mapping is invalid",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("INVALID EMAIL \"x\""),
			wantCode:    "VAL006",
			wantMessage: "Invalid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(errors.New("no file provided"))

	expected := "No file was provided (Code: FILE004). Attach a CSV file to the request"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("invalid url \"x\""),
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorPatterns_CodesAreWellFormed(t *testing.T) {
	for _, ep := range errorPatterns {
		if ep.msg.Message == "" || ep.msg.Action == "" {
			t.Errorf("pattern %q has an empty message or action", ep.pattern)
		}
		if !codeShape.MatchString(ep.msg.Code) {
			t.Errorf("pattern %q has malformed code %q", ep.pattern, ep.msg.Code)
		}
	}
}

var codeShape = regexp.MustCompile(`^[A-Z]+\d{3}$`)

func TestRowCodes_AreInTheTable(t *testing.T) {
	codes := []string{
		CodeInvalidDate, CodeInvalidNumber, CodeRequired, CodeInvalidEmail,
		CodeInvalidURL, CodeEndBeforeStart, CodeInvalidContact,
		CodeAmbiguousPerson, CodeNotPositive, CodeShortNameTaken, CodeOverlap,
	}
	for _, code := range codes {
		if msg := messageFor(code); msg.Message == defaultMessage.Message {
			t.Errorf("code %s has no message", code)
		}
	}
}
