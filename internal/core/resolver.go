package core

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

// ResolverOptions tune reference creation.
type ResolverOptions struct {
	CodeMaxLength     int    // Cap for generated campus, type and group codes
	PlaceholderDomain string // Domain of synthesized person emails
}

func (o ResolverOptions) withDefaults() ResolverOptions {
	if o.CodeMaxLength <= 0 {
		o.CodeMaxLength = normalize.DefaultCodeLength
	}
	if o.PlaceholderDomain == "" {
		o.PlaceholderDomain = "placeholder.invalid"
	}
	return o
}

// createAttempts bounds retries when a generated code loses a race.
const createAttempts = 3

// Resolver maps natural keys to stored entities inside one row transaction,
// creating what is missing. Every create runs in its own savepoint so a lost
// uniqueness race can be rolled back and re-read without poisoning the row.
//
// A Resolver belongs to a single row and is not safe for concurrent use.
type Resolver struct {
	tx      store.Tx
	opts    ResolverOptions
	created map[ReferenceKind]int
}

func NewResolver(tx store.Tx, opts ResolverOptions) *Resolver {
	return &Resolver{tx: tx, opts: opts.withDefaults(), created: make(map[ReferenceKind]int)}
}

// Repo exposes the row transaction for lookups that need no creation.
func (r *Resolver) Repo() store.Repository { return r.tx }

// Created returns how many references of each kind this resolver created.
func (r *Resolver) Created() map[ReferenceKind]int {
	out := make(map[ReferenceKind]int, len(r.created))
	for k, v := range r.created {
		out[k] = v
	}
	return out
}

// findOrCreate looks the entity up and creates it when absent. A conflict
// on create means someone else created it first: the savepoint is rolled
// back and the lookup retried.
func findOrCreate[T any](ctx context.Context, r *Resolver, kind ReferenceKind, field, raw string,
	find func(store.Repository) (T, error),
	create func(store.Repository) (T, error),
) (T, bool, error) {
	var zero T
	fail := func(err error) (T, bool, error) {
		return zero, false, &PersistenceError{
			FieldError: FieldError{Field: field, Raw: raw, Reason: fmt.Sprintf("resolve %s", kind)},
			Err:        err,
		}
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		found, err := find(r.tx)
		if err == nil {
			return found, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fail(err)
		}

		sp, err := r.tx.Begin(ctx)
		if err != nil {
			return fail(err)
		}
		made, err := create(sp)
		if err != nil {
			_ = sp.Rollback(ctx)
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return fail(err)
		}
		if err := sp.Commit(ctx); err != nil {
			return fail(err)
		}
		r.created[kind]++
		return made, true, nil
	}
	return fail(store.ErrConflict)
}

// Person resolves a person by email, then by name. Without an email the
// placeholder person of that name is tried first, so a re-import finds the
// person the first run created even when a real person of the same name was
// added later. Otherwise a name shared by more than one stored person is
// ambiguous and fails the row. When nothing matches, the person is created;
// without an email a placeholder address is synthesized from the name.
func (r *Resolver) Person(ctx context.Context, c normalize.Contact, field string) (store.Person, error) {
	raw := c.Name
	if c.Email != "" {
		raw = fmt.Sprintf("%s (%s)", c.Name, c.Email)
		p, _, err := findOrCreate(ctx, r, RefPerson, field, raw,
			func(repo store.Repository) (store.Person, error) {
				return repo.FindPersonByEmail(ctx, c.Email)
			},
			func(repo store.Repository) (store.Person, error) {
				return repo.CreatePerson(ctx, store.Person{Name: c.Name, Email: c.Email})
			})
		return p, err
	}

	email := PlaceholderEmail(c.Name, r.opts.PlaceholderDomain)
	placeholder, err := r.tx.FindPersonByEmail(ctx, email)
	if err == nil {
		return placeholder, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Person{}, &PersistenceError{FieldError: FieldError{Field: field, Raw: raw, Reason: "resolve person"}, Err: err}
	}

	matches, err := r.tx.FindPeopleByName(ctx, normalize.Key(c.Name))
	if err != nil {
		return store.Person{}, &PersistenceError{FieldError: FieldError{Field: field, Raw: raw, Reason: "resolve person"}, Err: err}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
	default:
		return store.Person{}, &ValidationError{FieldError{
			Field:  field,
			Raw:    raw,
			Reason: fmt.Sprintf("ambiguous person: %d people are named %q; add an email", len(matches), c.Name),
			Code:   CodeAmbiguousPerson,
		}}
	}

	p, _, err := findOrCreate(ctx, r, RefPerson, field, raw,
		func(repo store.Repository) (store.Person, error) {
			return repo.FindPersonByEmail(ctx, email)
		},
		func(repo store.Repository) (store.Person, error) {
			return repo.CreatePerson(ctx, store.Person{Name: c.Name, Email: email, Placeholder: true})
		})
	return p, err
}

// People resolves a list, dropping repeated people.
func (r *Resolver) People(ctx context.Context, contacts []normalize.Contact, field string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(contacts))
	ids := make([]uuid.UUID, 0, len(contacts))
	for _, c := range contacts {
		p, err := r.Person(ctx, c, field)
		if err != nil {
			return nil, err
		}
		if !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// PlaceholderEmail derives a stable, unique-per-name address for a person
// imported without one: "joao.silva.1a2b3c4d@placeholder.invalid".
func PlaceholderEmail(name, domain string) string {
	sum := sha1.Sum([]byte(normalize.Key(name)))
	local := normalize.Slug(name)
	if local == "" {
		local = "person"
	}
	return fmt.Sprintf("%s.%s@%s", local, hex.EncodeToString(sum[:4]), domain)
}

// Campus resolves a campus by name, generating a unique code on creation.
func (r *Resolver) Campus(ctx context.Context, name, location, field string) (store.Campus, error) {
	key := normalize.Key(name)
	c, _, err := findOrCreate(ctx, r, RefCampus, field, name,
		func(repo store.Repository) (store.Campus, error) {
			return repo.FindCampusByName(ctx, key)
		},
		func(repo store.Repository) (store.Campus, error) {
			code, err := r.uniqueCode(ctx, name, func(code string) (bool, error) {
				return repo.CampusCodeExists(ctx, code)
			})
			if err != nil {
				return store.Campus{}, err
			}
			return repo.CreateCampus(ctx, store.Campus{Name: name, Code: code, Location: location})
		})
	return c, err
}

func (r *Resolver) KnowledgeArea(ctx context.Context, name, field string) (store.KnowledgeArea, error) {
	key := normalize.Key(name)
	k, _, err := findOrCreate(ctx, r, RefKnowledgeArea, field, name,
		func(repo store.Repository) (store.KnowledgeArea, error) {
			return repo.FindKnowledgeAreaByName(ctx, key)
		},
		func(repo store.Repository) (store.KnowledgeArea, error) {
			return repo.CreateKnowledgeArea(ctx, store.KnowledgeArea{Name: name})
		})
	return k, err
}

func (r *Resolver) ScholarshipType(ctx context.Context, name, field string) (store.ScholarshipType, error) {
	key := normalize.Key(name)
	t, _, err := findOrCreate(ctx, r, RefScholarshipType, field, name,
		func(repo store.Repository) (store.ScholarshipType, error) {
			return repo.FindScholarshipTypeByName(ctx, key)
		},
		func(repo store.Repository) (store.ScholarshipType, error) {
			code, err := r.uniqueCode(ctx, name, func(code string) (bool, error) {
				return repo.ScholarshipTypeCodeExists(ctx, code)
			})
			if err != nil {
				return store.ScholarshipType{}, err
			}
			return repo.CreateScholarshipType(ctx, store.ScholarshipType{Name: name, Code: code})
		})
	return t, err
}

func (r *Resolver) Organization(ctx context.Context, name, field string) (store.Organization, error) {
	key := normalize.Key(name)
	o, _, err := findOrCreate(ctx, r, RefOrganization, field, name,
		func(repo store.Repository) (store.Organization, error) {
			return repo.FindOrganizationByName(ctx, key)
		},
		func(repo store.Repository) (store.Organization, error) {
			return repo.CreateOrganization(ctx, store.Organization{Name: name})
		})
	return o, err
}

// GroupShortName generates a short name for a group that has none, unique
// within the campus.
func (r *Resolver) GroupShortName(ctx context.Context, name string, campusID uuid.UUID) (string, error) {
	code, err := r.uniqueCode(ctx, name, func(code string) (bool, error) {
		_, err := r.tx.FindGroupByShortName(ctx, normalize.Key(code), campusID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return "", &PersistenceError{FieldError: FieldError{Raw: name, Reason: "generate short name"}, Err: err}
	}
	return code, nil
}

// uniqueCode derives a code from name and appends 1, 2, ... until taken
// reports false. "Santa Catarina" yields "SC", then "SC1".
func (r *Resolver) uniqueCode(ctx context.Context, name string, taken func(string) (bool, error)) (string, error) {
	base := normalize.Code(name, r.opts.CodeMaxLength)
	candidate := base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = normalize.WithSuffix(base, n, r.opts.CodeMaxLength)
	}
}
