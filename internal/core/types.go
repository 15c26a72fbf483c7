// Package core provides the import engine: header binding, row
// coordination, reference resolution and the import report.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/uniimport/internal/store"
)

// FieldSpec describes one logical column of a profile.
type FieldSpec struct {
	Name        string // Canonical field name: "title", "leaders"
	Header      string // Default CSV header: "Titulo"
	Required    bool   // Column must exist and the cell must be non-empty
	Delimiter   string // Non-empty for multi-value cells
	Description string // Shown in templates and profile listings
}

// Multi reports whether the field holds a delimited list.
func (f FieldSpec) Multi() bool { return f.Delimiter != "" }

// ProfileInfo contains display information about a profile.
type ProfileInfo struct {
	Key     string // Unique identifier: "scholarship"
	Label   string // Display name: "Scholarships"
	Primary string // Primary entity created per row
}

// BuildFunc turns a bound record into a normalized candidate. It returns a
// ValidationError (or ValidationErrors) when the row cannot be read.
type BuildFunc func(rec *Record) (any, error)

// ResolveFunc resolves every reference of the candidate, creating missing
// referenced entities through the Resolver.
type ResolveFunc func(ctx context.Context, res *Resolver, candidate any) error

// DetectFunc decides whether the resolved candidate already exists.
type DetectFunc func(ctx context.Context, repo store.Repository, candidate any) (Verdict, error)

// PersistFunc writes the primary entity and its associations.
type PersistFunc func(ctx context.Context, repo store.Repository, candidate any) error

// ProfileDefinition contains everything needed to import one kind of row.
type ProfileDefinition struct {
	Info       ProfileInfo
	FieldSpecs []FieldSpec
	Build      BuildFunc
	Resolve    ResolveFunc
	Detect     DetectFunc
	Persist    PersistFunc
}

// Field returns the spec for a canonical field name.
func (d ProfileDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.FieldSpecs {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Headers returns the default CSV header row.
func (d ProfileDefinition) Headers() []string {
	out := make([]string, len(d.FieldSpecs))
	for i, f := range d.FieldSpecs {
		out[i] = f.Header
	}
	return out
}

// Verdict is the duplicate detector's decision for one candidate.
type Verdict struct {
	Duplicate bool   // Skip the row
	Reason    string // Why the row is a duplicate, or why it conflicts
	Conflict  bool   // Fail the row: same identity but incompatible data
	Code      string // Error code of a conflict
}

// ImportOptions are the per-run switches.
type ImportOptions struct {
	DryRun           bool
	StopOnFirstError bool
}

// RowState is the coordinator state of one row.
type RowState string

const (
	StatePending        RowState = "pending"
	StateNormalizing    RowState = "normalizing"
	StateResolving      RowState = "resolving"
	StateDuplicateCheck RowState = "duplicate_check"
	StatePersisting     RowState = "persisting"
	StateCommitted      RowState = "committed"
	StateSkipped        RowState = "skipped"
	StateFailed         RowState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s RowState) Terminal() bool {
	return s == StateCommitted || s == StateSkipped || s == StateFailed
}

// ReferenceKind names an entity the resolver may create on the fly.
type ReferenceKind string

const (
	RefPerson          ReferenceKind = "person"
	RefCampus          ReferenceKind = "campus"
	RefKnowledgeArea   ReferenceKind = "knowledge_area"
	RefScholarshipType ReferenceKind = "scholarship_type"
	RefOrganization    ReferenceKind = "organization"
)

// ReferenceKinds lists every kind in report order.
var ReferenceKinds = []ReferenceKind{RefPerson, RefCampus, RefKnowledgeArea, RefScholarshipType, RefOrganization}

// RowWarning is a non-fatal note about a row, such as a dropped optional
// list entry.
type RowWarning struct {
	Row      int    `json:"row"`
	Field    string `json:"field"`
	RawValue string `json:"rawValue"`
	Message  string `json:"message"`
}

// RowResult is the coordinator's outcome for one row.
type RowResult struct {
	Row           int
	State         RowState
	Transitions   []RowState
	Errors        []RowError
	SkipReason    string
	NewReferences map[ReferenceKind]int
	Warnings      []RowWarning
	Duration      time.Duration
}
