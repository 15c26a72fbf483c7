// Package core provides the import engine.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Every entry of an import report carries one of these codes, and
// the HTTP layer uses them for request-level failures.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the configured size limit
//	          Patterns: "file too large"
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Patterns: "invalid csv"
//	FILE003 - Encoding error: File is not valid UTF-8
//	          Patterns: "encoding error"
//	FILE004 - No file: No file was provided
//	          Patterns: "no file provided"
//	FILE005 - Empty file: The file has no header row
//	          Patterns: "empty file"
//	FILE006 - Unsupported type: Only .csv files are accepted
//	          Patterns: "unsupported file type"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date                  Patterns: "invalid date"
//	VAL002 - Invalid number                Patterns: "invalid number"
//	VAL003 - Required field is empty       Patterns: "required field"
//	VAL004 - Missing column                Patterns: "missing required column"
//	VAL005 - Duplicate column              Patterns: "duplicate column"
//	VAL006 - Invalid email                 Patterns: "invalid email"
//	VAL007 - Invalid URL                   Patterns: "invalid url"
//	VAL008 - End before start              Patterns: "ends before it starts"
//	VAL009 - Invalid contact               Patterns: "invalid contact"
//	VAL010 - Ambiguous person              Patterns: "ambiguous person"
//	VAL011 - Non-positive amount           Patterns: "must be positive"
//
// # Conflict Errors (CNF001-CNF099)
//
//	CNF001 - Short name taken by a group of another organization
//	         Patterns: "short name already used"
//	CNF002 - Overlapping scholarship       Patterns: "overlapping scholarship"
//
// # Database Errors (DB001-DB099)
//
//	DB002 - Unique constraint lost to a concurrent import
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key                    Patterns: "foreign key", "store: not found"
//	DB004 - Connection refused             Patterns: "connection refused"
//	DB005 - Connection reset               Patterns: "connection reset"
//	DB006 - Timeout                        Patterns: "timeout"
//	DB007 - Deadlock                       Patterns: "deadlock"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Unknown profile               Patterns: "unknown profile"
//	IMP002 - System busy                   Patterns: "too many imports"
//	IMP003 - Import not found              Patterns: "import not found"
//	IMP004 - Request cancelled             Patterns: "context canceled"
//	IMP005 - Request timeout               Patterns: "context deadline exceeded"
//	IMP006 - Invalid mapping               Patterns: "invalid mapping"
//	IMP007 - Invalid option                Patterns: "invalid option"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests            Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original technical error.
//
// # Pattern Matching
//
// Row errors carry their code from where they were raised (the Code
// constants below). Patterns are only matched against file-level and store
// errors, case-insensitively using strings.Contains. The first matching
// pattern wins, so more specific patterns come first.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Codes set on row errors.
const (
	CodeInvalidDate     = "VAL001"
	CodeInvalidNumber   = "VAL002"
	CodeRequired        = "VAL003"
	CodeInvalidEmail    = "VAL006"
	CodeInvalidURL      = "VAL007"
	CodeEndBeforeStart  = "VAL008"
	CodeInvalidContact  = "VAL009"
	CodeAmbiguousPerson = "VAL010"
	CodeNotPositive     = "VAL011"
	CodeShortNameTaken  = "CNF001"
	CodeOverlap         = "CNF002"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{"file too large", UserMessage{"File exceeds the maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with balanced quotes", "FILE002"}},
	{"encoding error", UserMessage{"File is not valid UTF-8", "Save the file with UTF-8 encoding", "FILE003"}},
	{"no file provided", UserMessage{"No file was provided", "Attach a CSV file to the request", "FILE004"}},
	{"empty file", UserMessage{"The file is empty", "Upload a CSV file with a header row", "FILE005"}},
	{"unsupported file type", UserMessage{"Only CSV files are accepted", "Export the spreadsheet as .csv", "FILE006"}},

	// =========================================================================
	// Validation Errors
	// =========================================================================
	{"invalid date", UserMessage{"Invalid date", "Use DD-MM-YY, DD/MM/YYYY or YYYY-MM-DD", "VAL001"}},
	{"invalid number", UserMessage{"Invalid number", "Use digits with an optional decimal comma, e.g. 1.234,56", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Fill in every required column", "VAL003"}},
	{"missing required column", UserMessage{"Required column is missing", "Download the template and compare the headers", "VAL004"}},
	{"duplicate column", UserMessage{"A column appears twice in the header", "Remove or rename the repeated column", "VAL005"}},
	{"invalid email", UserMessage{"Invalid email address", "Use an address like name@university.edu", "VAL006"}},
	{"invalid url", UserMessage{"Invalid website", "Use a full address starting with http:// or https://", "VAL007"}},
	{"ends before it starts", UserMessage{"End date is before the start date", "Check the date columns of the row", "VAL008"}},
	{"invalid contact", UserMessage{"Invalid person entry", `Write people as "Name (email)"`, "VAL009"}},
	{"ambiguous person", UserMessage{"More than one person has this name", "Add the person's email to the row", "VAL010"}},
	{"must be positive", UserMessage{"Amount must be greater than zero", "Check the value column", "VAL011"}},

	// =========================================================================
	// Conflict Errors
	// =========================================================================
	{"short name already used", UserMessage{"Short name is taken by another organization's group on this campus", "Choose a different short name", "CNF001"}},
	{"overlapping scholarship", UserMessage{"Student already holds a scholarship in this period", "Check the scholarship dates", "CNF002"}},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{"unique constraint", UserMessage{"A concurrent import created the same record", "Re-run the import; the row will be skipped as a duplicate", "DB002"}},
	{"violates unique", UserMessage{"A concurrent import created the same record", "Re-run the import; the row will be skipped as a duplicate", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Re-run the import", "DB003"}},
	{"store: not found", UserMessage{"Referenced record does not exist", "Re-run the import", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// =========================================================================
	// Import Errors
	// =========================================================================
	{"unknown profile", UserMessage{"Unknown import profile", "Use one of the profiles listed at /api/profiles", "IMP001"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP002"}},
	{"import not found", UserMessage{"Import not found", "Check the import id", "IMP003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP004"}},
	{"context deadline exceeded", UserMessage{"Import timed out", "Split the file or try again later", "IMP005"}},
	{"invalid mapping", UserMessage{"Column mapping is invalid", "Map CSV headers to the field names listed for the profile", "IMP006"}},
	{"invalid option", UserMessage{"Import option is invalid", "Use true or false for dry_run and stop_on_first_error", "IMP007"}},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	var re RowError
	if errors.As(err, &re) {
		return mapRowError(re)
	}
	return matchPattern(err.Error(), "")
}

// mapRowError uses the code the error was raised with. Uncoded validation
// and conflict errors only match patterns of their own family; persistence
// errors are mapped by the store error they wrap.
func mapRowError(e RowError) UserMessage {
	d := e.Detail()
	if d.Code != "" {
		return messageFor(d.Code)
	}
	switch e.Kind() {
	case KindValidation:
		return matchPattern(d.Reason, "VAL")
	case KindConflict:
		return matchPattern(d.Reason, "CNF")
	}
	var pe *PersistenceError
	if errors.As(e, &pe) && pe.Err != nil {
		return matchPattern(pe.Err.Error(), "")
	}
	return defaultMessage
}

func matchPattern(text, family string) UserMessage {
	text = strings.ToLower(text)
	for _, ep := range errorPatterns {
		if family != "" && !strings.HasPrefix(ep.msg.Code, family) {
			continue
		}
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func messageFor(code string) UserMessage {
	for _, ep := range errorPatterns {
		if ep.msg.Code == code {
			return ep.msg
		}
	}
	msg := defaultMessage
	msg.Code = code
	return msg
}

// FormatUserError creates "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
