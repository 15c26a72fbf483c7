package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

const personColumns = `id, name, email, placeholder, created_at`

func scanPerson(row pgx.Row) (store.Person, error) {
	var p store.Person
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Placeholder, &p.CreatedAt)
	return p, mapError(err)
}

func (t *tx) FindPersonByEmail(ctx context.Context, email string) (store.Person, error) {
	return scanPerson(t.db().QueryRow(ctx,
		`SELECT `+personColumns+` FROM people WHERE email = $1`,
		normalize.EmailKey(email)))
}

func (t *tx) FindPeopleByName(ctx context.Context, nameKey string) ([]store.Person, error) {
	rows, err := t.db().Query(ctx,
		`SELECT `+personColumns+` FROM people WHERE name_key = $1 ORDER BY created_at, id`,
		nameKey)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []store.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func (t *tx) CreatePerson(ctx context.Context, p store.Person) (store.Person, error) {
	return scanPerson(t.db().QueryRow(ctx,
		`INSERT INTO people (id, name, name_key, email, placeholder)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+personColumns,
		newID(p.ID), p.Name, normalize.Key(p.Name), normalize.EmailKey(p.Email), p.Placeholder))
}
