package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// ---- people ----

func (t *tx) FindPersonByEmail(_ context.Context, email string) (store.Person, error) {
	key := normalize.EmailKey(email)
	for _, p := range t.state.people {
		if normalize.EmailKey(p.Email) == key {
			return p, nil
		}
	}
	return store.Person{}, store.ErrNotFound
}

func (t *tx) FindPeopleByName(_ context.Context, nameKey string) ([]store.Person, error) {
	var out []store.Person
	for _, p := range t.state.people {
		if normalize.Key(p.Name) == nameKey {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b store.Person) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (t *tx) CreatePerson(ctx context.Context, p store.Person) (store.Person, error) {
	if _, err := t.FindPersonByEmail(ctx, p.Email); err == nil {
		return store.Person{}, store.ErrConflict
	}
	p.ID = ensureID(p.ID)
	p.Email = normalize.EmailKey(p.Email)
	p.CreatedAt = t.now()
	t.state.people[p.ID] = p
	return p, nil
}

// ---- campuses ----

func (t *tx) FindCampusByName(_ context.Context, nameKey string) (store.Campus, error) {
	for _, c := range t.state.campuses {
		if normalize.Key(c.Name) == nameKey {
			return c, nil
		}
	}
	return store.Campus{}, store.ErrNotFound
}

func (t *tx) CampusCodeExists(_ context.Context, code string) (bool, error) {
	for _, c := range t.state.campuses {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateCampus(ctx context.Context, c store.Campus) (store.Campus, error) {
	if _, err := t.FindCampusByName(ctx, normalize.Key(c.Name)); err == nil {
		return store.Campus{}, store.ErrConflict
	}
	if taken, _ := t.CampusCodeExists(ctx, c.Code); taken {
		return store.Campus{}, store.ErrConflict
	}
	c.ID = ensureID(c.ID)
	c.CreatedAt = t.now()
	t.state.campuses[c.ID] = c
	return c, nil
}

// ---- catalog ----

func (t *tx) FindKnowledgeAreaByName(_ context.Context, nameKey string) (store.KnowledgeArea, error) {
	for _, k := range t.state.areas {
		if normalize.Key(k.Name) == nameKey {
			return k, nil
		}
	}
	return store.KnowledgeArea{}, store.ErrNotFound
}

func (t *tx) CreateKnowledgeArea(ctx context.Context, k store.KnowledgeArea) (store.KnowledgeArea, error) {
	if _, err := t.FindKnowledgeAreaByName(ctx, normalize.Key(k.Name)); err == nil {
		return store.KnowledgeArea{}, store.ErrConflict
	}
	k.ID = ensureID(k.ID)
	k.CreatedAt = t.now()
	t.state.areas[k.ID] = k
	return k, nil
}

func (t *tx) FindScholarshipTypeByName(_ context.Context, nameKey string) (store.ScholarshipType, error) {
	for _, st := range t.state.types {
		if normalize.Key(st.Name) == nameKey {
			return st, nil
		}
	}
	return store.ScholarshipType{}, store.ErrNotFound
}

func (t *tx) ScholarshipTypeCodeExists(_ context.Context, code string) (bool, error) {
	for _, st := range t.state.types {
		if st.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateScholarshipType(ctx context.Context, st store.ScholarshipType) (store.ScholarshipType, error) {
	if _, err := t.FindScholarshipTypeByName(ctx, normalize.Key(st.Name)); err == nil {
		return store.ScholarshipType{}, store.ErrConflict
	}
	if taken, _ := t.ScholarshipTypeCodeExists(ctx, st.Code); taken {
		return store.ScholarshipType{}, store.ErrConflict
	}
	st.ID = ensureID(st.ID)
	st.CreatedAt = t.now()
	t.state.types[st.ID] = st
	return st, nil
}

func (t *tx) FindOrganizationByName(_ context.Context, nameKey string) (store.Organization, error) {
	for _, o := range t.state.orgs {
		if normalize.Key(o.Name) == nameKey {
			return o, nil
		}
	}
	return store.Organization{}, store.ErrNotFound
}

func (t *tx) CreateOrganization(ctx context.Context, o store.Organization) (store.Organization, error) {
	if _, err := t.FindOrganizationByName(ctx, normalize.Key(o.Name)); err == nil {
		return store.Organization{}, store.ErrConflict
	}
	o.ID = ensureID(o.ID)
	o.CreatedAt = t.now()
	t.state.orgs[o.ID] = o
	return o, nil
}

// ---- initiatives ----

func (t *tx) InitiativeExists(_ context.Context, titleKey string, coordinatorID uuid.UUID) (bool, error) {
	for _, i := range t.state.initiatives {
		if i.CoordinatorID == coordinatorID && normalize.Key(i.Title) == titleKey {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateInitiative(ctx context.Context, i store.Initiative) (store.Initiative, error) {
	if exists, _ := t.InitiativeExists(ctx, normalize.Key(i.Title), i.CoordinatorID); exists {
		return store.Initiative{}, store.ErrConflict
	}
	if _, ok := t.state.people[i.CoordinatorID]; !ok {
		return store.Initiative{}, store.ErrNotFound
	}
	i.ID = ensureID(i.ID)
	i.TeamIDs = slices.Clone(i.TeamIDs)
	i.StudentIDs = slices.Clone(i.StudentIDs)
	i.CreatedAt = t.now()
	t.state.initiatives[i.ID] = i
	return i, nil
}

// ---- scholarships ----

func (t *tx) FindOverlappingScholarship(_ context.Context, studentID uuid.UUID, start time.Time, end *time.Time) (store.Scholarship, error) {
	for _, s := range t.state.scholarships {
		if s.StudentID == studentID && store.Overlaps(s.StartDate, s.EndDate, start, end) {
			return s, nil
		}
	}
	return store.Scholarship{}, store.ErrNotFound
}

func (t *tx) CreateScholarship(_ context.Context, s store.Scholarship) (store.Scholarship, error) {
	for _, id := range []uuid.UUID{s.AdvisorID, s.StudentID} {
		if _, ok := t.state.people[id]; !ok {
			return store.Scholarship{}, store.ErrNotFound
		}
	}
	s.ID = ensureID(s.ID)
	s.CreatedAt = t.now()
	t.state.scholarships[s.ID] = s
	return s, nil
}

// ---- groups ----

func (t *tx) FindGroupByShortName(_ context.Context, shortNameKey string, campusID uuid.UUID) (store.OrganizationalGroup, error) {
	for _, g := range t.state.groups {
		if g.CampusID == campusID && normalize.Key(g.ShortName) == shortNameKey {
			return g, nil
		}
	}
	return store.OrganizationalGroup{}, store.ErrNotFound
}

func (t *tx) FindGroupByName(_ context.Context, nameKey string, campusID uuid.UUID) (store.OrganizationalGroup, error) {
	for _, g := range t.state.groups {
		if g.CampusID == campusID && normalize.Key(g.Name) == nameKey {
			return g, nil
		}
	}
	return store.OrganizationalGroup{}, store.ErrNotFound
}

func (t *tx) CreateGroup(ctx context.Context, g store.OrganizationalGroup) (store.OrganizationalGroup, error) {
	if _, err := t.FindGroupByShortName(ctx, normalize.Key(g.ShortName), g.CampusID); err == nil {
		return store.OrganizationalGroup{}, store.ErrConflict
	}
	if _, ok := t.state.campuses[g.CampusID]; !ok {
		return store.OrganizationalGroup{}, store.ErrNotFound
	}
	g.ID = ensureID(g.ID)
	g.Keywords = slices.Clone(g.Keywords)
	g.LeaderIDs = slices.Clone(g.LeaderIDs)
	g.MemberIDs = slices.Clone(g.MemberIDs)
	g.CreatedAt = t.now()
	t.state.groups[g.ID] = g
	return g, nil
}

// ---- import runs ----

func (t *tx) RecordImportRun(_ context.Context, r store.ImportRun) error {
	r.ID = ensureID(r.ID)
	if _, exists := t.state.runs[r.ID]; exists {
		return store.ErrConflict
	}
	r.Report = slices.Clone(r.Report)
	t.state.runs[r.ID] = r
	return nil
}

// ListImportRuns returns the newest runs first.
func (t *tx) ListImportRuns(_ context.Context, limit int) ([]store.ImportRun, error) {
	out := make([]store.ImportRun, 0, len(t.state.runs))
	for _, r := range t.state.runs {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b store.ImportRun) int { return b.StartedAt.Compare(a.StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) GetImportRun(_ context.Context, id uuid.UUID) (store.ImportRun, error) {
	r, ok := t.state.runs[id]
	if !ok {
		return store.ImportRun{}, store.ErrNotFound
	}
	return r, nil
}

func (t *tx) PurgeImportRuns(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, r := range t.state.runs {
		if r.StartedAt.Before(before) {
			delete(t.state.runs, id)
			n++
		}
	}
	return n, nil
}
