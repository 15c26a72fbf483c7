// Package store defines the persistence contract the import engine runs
// against. Implementations live in store/postgres and store/memory.
//
// All lookups by name take a key produced by normalize.Key and compare it
// with the same transformation of the stored value. Find methods return
// ErrNotFound when nothing matches; Create methods return ErrConflict when a
// uniqueness rule would be broken.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: unique constraint violated")
	ErrTxDone   = errors.New("store: transaction already finished")
)

// Beginner opens a transaction. Store opens a top-level one; Tx opens a
// nested one (a savepoint) whose effects vanish if the parent rolls back.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Store is a transactional entity store.
type Store interface {
	Beginner
	Ping(ctx context.Context) error
	Close()
}

// Tx is a unit of work. Rollback after Commit is a no-op, so callers may
// defer Rollback unconditionally.
type Tx interface {
	Beginner
	Repository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository groups every query the engine issues inside a transaction.
type Repository interface {
	PersonRepository
	CampusRepository
	CatalogRepository
	InitiativeRepository
	ScholarshipRepository
	GroupRepository
	RunRepository
}

type PersonRepository interface {
	FindPersonByEmail(ctx context.Context, email string) (Person, error)
	// FindPeopleByName returns every person whose name key matches.
	FindPeopleByName(ctx context.Context, nameKey string) ([]Person, error)
	CreatePerson(ctx context.Context, p Person) (Person, error)
}

type CampusRepository interface {
	FindCampusByName(ctx context.Context, nameKey string) (Campus, error)
	CampusCodeExists(ctx context.Context, code string) (bool, error)
	CreateCampus(ctx context.Context, c Campus) (Campus, error)
}

// CatalogRepository covers the small lookup tables: knowledge areas,
// scholarship types and organizations.
type CatalogRepository interface {
	FindKnowledgeAreaByName(ctx context.Context, nameKey string) (KnowledgeArea, error)
	CreateKnowledgeArea(ctx context.Context, k KnowledgeArea) (KnowledgeArea, error)

	FindScholarshipTypeByName(ctx context.Context, nameKey string) (ScholarshipType, error)
	ScholarshipTypeCodeExists(ctx context.Context, code string) (bool, error)
	CreateScholarshipType(ctx context.Context, t ScholarshipType) (ScholarshipType, error)

	FindOrganizationByName(ctx context.Context, nameKey string) (Organization, error)
	CreateOrganization(ctx context.Context, o Organization) (Organization, error)
}

type InitiativeRepository interface {
	InitiativeExists(ctx context.Context, titleKey string, coordinatorID uuid.UUID) (bool, error)
	CreateInitiative(ctx context.Context, i Initiative) (Initiative, error)
}

type ScholarshipRepository interface {
	// FindOverlappingScholarship returns a scholarship of the student whose
	// period shares at least one day with [start, end].
	FindOverlappingScholarship(ctx context.Context, studentID uuid.UUID, start time.Time, end *time.Time) (Scholarship, error)
	CreateScholarship(ctx context.Context, s Scholarship) (Scholarship, error)
}

type GroupRepository interface {
	FindGroupByShortName(ctx context.Context, shortNameKey string, campusID uuid.UUID) (OrganizationalGroup, error)
	FindGroupByName(ctx context.Context, nameKey string, campusID uuid.UUID) (OrganizationalGroup, error)
	CreateGroup(ctx context.Context, g OrganizationalGroup) (OrganizationalGroup, error)
}

type RunRepository interface {
	RecordImportRun(ctx context.Context, r ImportRun) error
	ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error)
	GetImportRun(ctx context.Context, id uuid.UUID) (ImportRun, error)
	PurgeImportRuns(ctx context.Context, before time.Time) (int64, error)
}

// WithTx runs fn inside a transaction on b, committing when fn returns nil.
func WithTx(ctx context.Context, b Beginner, fn func(Tx) error) error {
	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
