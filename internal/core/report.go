package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorEntry is one row error as shown to the user.
type ErrorEntry struct {
	Row      int       `json:"row"`
	Field    string    `json:"field,omitempty"`
	RawValue string    `json:"rawValue,omitempty"`
	Reason   string    `json:"reason"`
	Kind     ErrorKind `json:"kind"`
	Code     string    `json:"code"`
}

// String renders "row 3, DataInicio: invalid date ... (VAL001)".
func (e ErrorEntry) String() string {
	loc := fmt.Sprintf("row %d", e.Row)
	if e.Field != "" {
		loc += ", " + e.Field
	}
	return fmt.Sprintf("%s: %s (%s)", loc, e.Reason, e.Code)
}

// SkippedRow records why a row was a duplicate.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportReport summarizes one run. Created + Skipped + Failed + NotAttempted
// always equals TotalRows.
type ImportReport struct {
	RunID              uuid.UUID             `json:"runId"`
	Profile            string                `json:"profile"`
	FileName           string                `json:"fileName,omitempty"`
	DryRun             bool                  `json:"dryRun"`
	StopOnFirstError   bool                  `json:"stopOnFirstError"`
	StartedAt          time.Time             `json:"startedAt"`
	FinishedAt         time.Time             `json:"finishedAt"`
	DurationMs         int64                 `json:"durationMs"`
	BytesRead          int64                 `json:"bytesRead"`
	TotalRows          int                   `json:"totalRows"`
	Created            int                   `json:"created"`
	Skipped            int                   `json:"skipped"`
	Failed             int                   `json:"failed"`
	NotAttempted       int                   `json:"notAttempted"`
	NewReferenceCounts map[ReferenceKind]int `json:"newReferenceCounts"`
	Errors             []ErrorEntry          `json:"errors"`
	SkippedRows        []SkippedRow          `json:"skippedRows"`
	Warnings           []RowWarning          `json:"warnings"`
	IgnoredColumns     []string              `json:"ignoredColumns,omitempty"`
	Aborted            string                `json:"aborted,omitempty"`
}

func newReport(profile string, opts ImportOptions, started time.Time) *ImportReport {
	counts := make(map[ReferenceKind]int, len(ReferenceKinds))
	for _, k := range ReferenceKinds {
		counts[k] = 0
	}
	return &ImportReport{
		RunID:              uuid.New(),
		Profile:            profile,
		DryRun:             opts.DryRun,
		StopOnFirstError:   opts.StopOnFirstError,
		StartedAt:          started,
		NewReferenceCounts: counts,
		Errors:             []ErrorEntry{},
		SkippedRows:        []SkippedRow{},
		Warnings:           []RowWarning{},
	}
}

// record folds one row result into the counters.
func (r *ImportReport) record(res RowResult) {
	r.TotalRows++
	r.Warnings = append(r.Warnings, res.Warnings...)

	switch res.State {
	case StateCommitted:
		r.Created++
		for kind, n := range res.NewReferences {
			r.NewReferenceCounts[kind] += n
		}
	case StateSkipped:
		r.Skipped++
		r.SkippedRows = append(r.SkippedRows, SkippedRow{Row: res.Row, Reason: res.SkipReason})
	case StateFailed:
		r.Failed++
		for _, e := range res.Errors {
			d := e.Detail()
			r.Errors = append(r.Errors, ErrorEntry{
				Row:      res.Row,
				Field:    d.Field,
				RawValue: d.Raw,
				Reason:   rowReason(e),
				Kind:     e.Kind(),
				Code:     MapError(e).Code,
			})
		}
	}
}

func (r *ImportReport) notAttempted(n int) {
	r.TotalRows += n
	r.NotAttempted += n
}

func (r *ImportReport) finish(now time.Time) {
	r.FinishedAt = now
	r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
}

// Succeeded reports whether no row failed and nothing was left unattempted.
func (r *ImportReport) Succeeded() bool {
	return r.Failed == 0 && r.NotAttempted == 0 && r.Aborted == ""
}

// DisplayErrors returns at most limit errors and how many were left out.
// A limit of zero or less returns every error.
func (r *ImportReport) DisplayErrors(limit int) ([]ErrorEntry, int) {
	if limit <= 0 || len(r.Errors) <= limit {
		return r.Errors, 0
	}
	return r.Errors[:limit], len(r.Errors) - limit
}

// Summary is a one-line outcome for logs and CLI output.
func (r *ImportReport) Summary() string {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	return fmt.Sprintf("%s%s: %d rows, %d created, %d skipped, %d failed, %d not attempted",
		r.Profile, mode, r.TotalRows, r.Created, r.Skipped, r.Failed, r.NotAttempted)
}
