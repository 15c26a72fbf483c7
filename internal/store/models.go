package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Person is anyone referenced by an import: coordinators, advisors,
// students, team members, group leaders and members.
type Person struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Placeholder bool // email was synthesized because the file had none
	CreatedAt   time.Time
}

type Campus struct {
	ID        uuid.UUID
	Name      string
	Code      string
	Location  string
	CreatedAt time.Time
}

type KnowledgeArea struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type ScholarshipType struct {
	ID        uuid.UUID
	Name      string
	Code      string
	CreatedAt time.Time
}

type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Initiative is a research or extension project.
type Initiative struct {
	ID              uuid.UUID
	Title           string
	Description     string
	StartDate       time.Time
	EndDate         *time.Time
	CoordinatorID   uuid.UUID
	KnowledgeAreaID *uuid.UUID
	TeamIDs         []uuid.UUID
	StudentIDs      []uuid.UUID
	CreatedAt       time.Time
}

// Scholarship is a funded stipend for one student under one advisor.
type Scholarship struct {
	ID             uuid.UUID
	Title          string
	TypeID         uuid.UUID
	CampusID       uuid.UUID
	StartDate      time.Time
	EndDate        *time.Time
	Value          decimal.Decimal
	AdvisorID      uuid.UUID
	StudentID      uuid.UUID
	OrganizationID *uuid.UUID
	CreatedAt      time.Time
}

// OrganizationalGroup is a research group or lab. ShortName is unique per
// campus.
type OrganizationalGroup struct {
	ID              uuid.UUID
	Name            string
	ShortName       string
	CampusID        uuid.UUID
	KnowledgeAreaID uuid.UUID
	OrganizationID  *uuid.UUID
	Website         string
	Email           string
	Keywords        []string
	LeaderIDs       []uuid.UUID
	MemberIDs       []uuid.UUID
	CreatedAt       time.Time
}

// ImportRun is one entry of the import history. Report holds the
// JSON-encoded import report.
type ImportRun struct {
	ID           uuid.UUID
	Profile      string
	FileName     string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   time.Time
	TotalRows    int
	Created      int
	Skipped      int
	Failed       int
	NotAttempted int
	Report       []byte
	ClientIP     string
	UserAgent    string
}

// Overlaps reports whether the closed date intervals [aStart, aEnd] and
// [bStart, bEnd] share at least one day. A nil end is open-ended.
func Overlaps(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}
