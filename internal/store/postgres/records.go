package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

// queueMembers adds one insert per person, keeping list order in position.
func queueMembers(b *pgx.Batch, table, ownerColumn string, owner uuid.UUID, role string, ids []uuid.UUID) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, person_id, role, position) VALUES ($1, $2, $3, $4)`, table, ownerColumn)
	for i, id := range ids {
		b.Queue(query, owner, id, role, i)
	}
}

func sendBatch(ctx context.Context, db DBTX, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapError(err)
		}
	}
	return mapError(br.Close())
}

// ---- initiatives ----

func (t *tx) InitiativeExists(ctx context.Context, titleKey string, coordinatorID uuid.UUID) (bool, error) {
	return exists(ctx, t.db(),
		`SELECT 1 FROM initiatives WHERE title_key = $1 AND coordinator_id = $2`,
		titleKey, coordinatorID)
}

func (t *tx) CreateInitiative(ctx context.Context, i store.Initiative) (store.Initiative, error) {
	i.ID = newID(i.ID)
	err := t.db().QueryRow(ctx,
		`INSERT INTO initiatives (id, title, title_key, description, start_date, end_date, coordinator_id, knowledge_area_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		i.ID, i.Title, normalize.Key(i.Title), i.Description, i.StartDate, i.EndDate, i.CoordinatorID, i.KnowledgeAreaID,
	).Scan(&i.CreatedAt)
	if err != nil {
		return store.Initiative{}, mapError(err)
	}

	b := &pgx.Batch{}
	queueMembers(b, "initiative_members", "initiative_id", i.ID, "team", i.TeamIDs)
	queueMembers(b, "initiative_members", "initiative_id", i.ID, "student", i.StudentIDs)
	if err := sendBatch(ctx, t.db(), b); err != nil {
		return store.Initiative{}, err
	}
	return i, nil
}

// ---- scholarships ----

const scholarshipColumns = `id, title, type_id, campus_id, start_date, end_date, value::text,
	advisor_id, student_id, organization_id, created_at`

func scanScholarship(row pgx.Row) (store.Scholarship, error) {
	var (
		s     store.Scholarship
		value string
	)
	err := row.Scan(&s.ID, &s.Title, &s.TypeID, &s.CampusID, &s.StartDate, &s.EndDate, &value,
		&s.AdvisorID, &s.StudentID, &s.OrganizationID, &s.CreatedAt)
	if err != nil {
		return store.Scholarship{}, mapError(err)
	}
	if s.Value, err = decimal.NewFromString(value); err != nil {
		return store.Scholarship{}, fmt.Errorf("scholarship %s: value %q: %w", s.ID, value, err)
	}
	return s, nil
}

// FindOverlappingScholarship treats a NULL end date as open-ended on both
// sides of the comparison.
func (t *tx) FindOverlappingScholarship(ctx context.Context, studentID uuid.UUID, start time.Time, end *time.Time) (store.Scholarship, error) {
	return scanScholarship(t.db().QueryRow(ctx,
		`SELECT `+scholarshipColumns+`
		 FROM scholarships
		 WHERE student_id = $1
		   AND (end_date IS NULL OR end_date >= $2::date)
		   AND ($3::date IS NULL OR start_date <= $3::date)
		 ORDER BY start_date, id
		 LIMIT 1`,
		studentID, start, end))
}

func (t *tx) CreateScholarship(ctx context.Context, s store.Scholarship) (store.Scholarship, error) {
	return scanScholarship(t.db().QueryRow(ctx,
		`INSERT INTO scholarships (id, title, type_id, campus_id, start_date, end_date, value,
		                           advisor_id, student_id, organization_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)
		 RETURNING `+scholarshipColumns,
		newID(s.ID), s.Title, s.TypeID, s.CampusID, s.StartDate, s.EndDate, s.Value.String(),
		s.AdvisorID, s.StudentID, s.OrganizationID))
}

// ---- groups ----

const groupColumns = `id, name, short_name, campus_id, knowledge_area_id, organization_id,
	website, email, keywords, created_at`

func scanGroup(row pgx.Row) (store.OrganizationalGroup, error) {
	var g store.OrganizationalGroup
	err := row.Scan(&g.ID, &g.Name, &g.ShortName, &g.CampusID, &g.KnowledgeAreaID, &g.OrganizationID,
		&g.Website, &g.Email, &g.Keywords, &g.CreatedAt)
	return g, mapError(err)
}

func (t *tx) FindGroupByShortName(ctx context.Context, shortNameKey string, campusID uuid.UUID) (store.OrganizationalGroup, error) {
	return scanGroup(t.db().QueryRow(ctx,
		`SELECT `+groupColumns+` FROM organizational_groups WHERE campus_id = $1 AND short_name_key = $2`,
		campusID, shortNameKey))
}

func (t *tx) FindGroupByName(ctx context.Context, nameKey string, campusID uuid.UUID) (store.OrganizationalGroup, error) {
	return scanGroup(t.db().QueryRow(ctx,
		`SELECT `+groupColumns+` FROM organizational_groups
		 WHERE campus_id = $1 AND name_key = $2
		 ORDER BY created_at, id
		 LIMIT 1`,
		campusID, nameKey))
}

func (t *tx) CreateGroup(ctx context.Context, g store.OrganizationalGroup) (store.OrganizationalGroup, error) {
	keywords := g.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	created, err := scanGroup(t.db().QueryRow(ctx,
		`INSERT INTO organizational_groups (id, name, name_key, short_name, short_name_key, campus_id,
		                                    knowledge_area_id, organization_id, website, email, keywords)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+groupColumns,
		newID(g.ID), g.Name, normalize.Key(g.Name), g.ShortName, normalize.Key(g.ShortName), g.CampusID,
		g.KnowledgeAreaID, g.OrganizationID, g.Website, g.Email, keywords))
	if err != nil {
		return store.OrganizationalGroup{}, err
	}

	b := &pgx.Batch{}
	queueMembers(b, "group_members", "group_id", created.ID, "leader", g.LeaderIDs)
	queueMembers(b, "group_members", "group_id", created.ID, "member", g.MemberIDs)
	if err := sendBatch(ctx, t.db(), b); err != nil {
		return store.OrganizationalGroup{}, err
	}
	created.LeaderIDs = g.LeaderIDs
	created.MemberIDs = g.MemberIDs
	return created, nil
}
