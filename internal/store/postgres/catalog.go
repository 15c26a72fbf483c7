package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

// newID keeps a caller-chosen ID and generates one otherwise.
func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func exists(ctx context.Context, db DBTX, query string, args ...any) (bool, error) {
	var found bool
	err := db.QueryRow(ctx, `SELECT EXISTS (`+query+`)`, args...).Scan(&found)
	return found, mapError(err)
}

// ---- campuses ----

const campusColumns = `id, name, code, location, created_at`

func scanCampus(row pgx.Row) (store.Campus, error) {
	var c store.Campus
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Location, &c.CreatedAt)
	return c, mapError(err)
}

func (t *tx) FindCampusByName(ctx context.Context, nameKey string) (store.Campus, error) {
	return scanCampus(t.db().QueryRow(ctx,
		`SELECT `+campusColumns+` FROM campuses WHERE name_key = $1`, nameKey))
}

func (t *tx) CampusCodeExists(ctx context.Context, code string) (bool, error) {
	return exists(ctx, t.db(), `SELECT 1 FROM campuses WHERE code = $1`, code)
}

func (t *tx) CreateCampus(ctx context.Context, c store.Campus) (store.Campus, error) {
	return scanCampus(t.db().QueryRow(ctx,
		`INSERT INTO campuses (id, name, name_key, code, location)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+campusColumns,
		newID(c.ID), c.Name, normalize.Key(c.Name), c.Code, c.Location))
}

// ---- knowledge areas ----

func (t *tx) FindKnowledgeAreaByName(ctx context.Context, nameKey string) (store.KnowledgeArea, error) {
	var k store.KnowledgeArea
	err := t.db().QueryRow(ctx,
		`SELECT id, name, created_at FROM knowledge_areas WHERE name_key = $1`, nameKey,
	).Scan(&k.ID, &k.Name, &k.CreatedAt)
	return k, mapError(err)
}

func (t *tx) CreateKnowledgeArea(ctx context.Context, k store.KnowledgeArea) (store.KnowledgeArea, error) {
	err := t.db().QueryRow(ctx,
		`INSERT INTO knowledge_areas (id, name, name_key) VALUES ($1, $2, $3)
		 RETURNING id, name, created_at`,
		newID(k.ID), k.Name, normalize.Key(k.Name),
	).Scan(&k.ID, &k.Name, &k.CreatedAt)
	return k, mapError(err)
}

// ---- scholarship types ----

func (t *tx) FindScholarshipTypeByName(ctx context.Context, nameKey string) (store.ScholarshipType, error) {
	var st store.ScholarshipType
	err := t.db().QueryRow(ctx,
		`SELECT id, name, code, created_at FROM scholarship_types WHERE name_key = $1`, nameKey,
	).Scan(&st.ID, &st.Name, &st.Code, &st.CreatedAt)
	return st, mapError(err)
}

func (t *tx) ScholarshipTypeCodeExists(ctx context.Context, code string) (bool, error) {
	return exists(ctx, t.db(), `SELECT 1 FROM scholarship_types WHERE code = $1`, code)
}

func (t *tx) CreateScholarshipType(ctx context.Context, st store.ScholarshipType) (store.ScholarshipType, error) {
	err := t.db().QueryRow(ctx,
		`INSERT INTO scholarship_types (id, name, name_key, code) VALUES ($1, $2, $3, $4)
		 RETURNING id, name, code, created_at`,
		newID(st.ID), st.Name, normalize.Key(st.Name), st.Code,
	).Scan(&st.ID, &st.Name, &st.Code, &st.CreatedAt)
	return st, mapError(err)
}

// ---- organizations ----

func (t *tx) FindOrganizationByName(ctx context.Context, nameKey string) (store.Organization, error) {
	var o store.Organization
	err := t.db().QueryRow(ctx,
		`SELECT id, name, created_at FROM organizations WHERE name_key = $1`, nameKey,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	return o, mapError(err)
}

func (t *tx) CreateOrganization(ctx context.Context, o store.Organization) (store.Organization, error) {
	err := t.db().QueryRow(ctx,
		`INSERT INTO organizations (id, name, name_key) VALUES ($1, $2, $3)
		 RETURNING id, name, created_at`,
		newID(o.ID), o.Name, normalize.Key(o.Name),
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	return o, mapError(err)
}
