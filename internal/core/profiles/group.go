package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

func init() {
	registerGroup()
}

type groupRow struct {
	header func(string) string

	name      string
	shortName string
	generated bool // shortName was derived from name
	campus    string
	location  string
	area      string
	org       string
	leaders   []normalize.Contact
	members   []normalize.Contact
	website   string
	email     string
	keywords  []string

	campusID  uuid.UUID
	areaID    uuid.UUID
	orgID     *uuid.UUID
	leaderIDs []uuid.UUID
	memberIDs []uuid.UUID
}

func registerGroup() {
	core.Register(core.ProfileDefinition{
		Info: core.ProfileInfo{
			Key:     "group",
			Label:   "Organizational Groups",
			Primary: "group",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Header: "Nome", Required: true},
			{Name: "short_name", Header: "Sigla", Description: "Generated from the name when empty"},
			{Name: "campus.name", Header: "Campus", Required: true},
			{Name: "campus.location", Header: "LocalCampus"},
			{Name: "knowledge_area.name", Header: "AreaConhecimento", Required: true},
			{Name: "organization.name", Header: "Organizacao"},
			{Name: "leaders", Header: "Lideres", Required: true, Delimiter: ";", Description: `"Name (email)" entries separated by ;`},
			{Name: "members", Header: "Membros", Delimiter: ";"},
			{Name: "website", Header: "Site"},
			{Name: "email", Header: "Email"},
			{Name: "keywords", Header: "PalavrasChave", Delimiter: ","},
		},
		Build:   buildGroup,
		Resolve: resolveGroup,
		Detect:  detectGroup,
		Persist: persistGroup,
	})
}

func buildGroup(rec *core.Record) (any, error) {
	var errs core.ValidationErrors
	row := &groupRow{header: rec.Header}

	row.name = rec.Require("name", &errs)
	row.shortName = rec.Optional("short_name")
	row.campus = normalize.Title(rec.Require("campus.name", &errs))
	row.location = rec.Optional("campus.location")
	row.area = normalize.Title(rec.Require("knowledge_area.name", &errs))
	row.org = normalize.Title(rec.Optional("organization.name"))
	if rec.Require("leaders", &errs) != "" {
		row.leaders = rec.Contacts("leaders", true, &errs)
	}
	row.members = rec.Contacts("members", false, &errs)
	row.website = rec.URL("website", &errs)
	row.email = rec.Email("email", &errs)
	row.keywords = rec.List("keywords")

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return row, nil
}

func resolveGroup(ctx context.Context, res *core.Resolver, candidate any) error {
	row := candidate.(*groupRow)

	campus, err := res.Campus(ctx, row.campus, row.location, row.header("campus.name"))
	if err != nil {
		return err
	}
	row.campusID = campus.ID

	area, err := res.KnowledgeArea(ctx, row.area, row.header("knowledge_area.name"))
	if err != nil {
		return err
	}
	row.areaID = area.ID

	if row.org != "" {
		org, err := res.Organization(ctx, row.org, row.header("organization.name"))
		if err != nil {
			return err
		}
		row.orgID = &org.ID
	}

	if row.leaderIDs, err = res.People(ctx, row.leaders, row.header("leaders")); err != nil {
		return err
	}
	if row.memberIDs, err = res.People(ctx, row.members, row.header("members")); err != nil {
		return err
	}

	if row.shortName == "" {
		if row.shortName, err = res.GroupShortName(ctx, row.name, row.campusID); err != nil {
			return err
		}
		row.generated = true
	}
	return nil
}

// detectGroup: same short name on the same campus is the same group unless
// both rows name different organizations, which is a conflict. A generated
// short name says nothing about identity, so the group name is compared
// instead.
func detectGroup(ctx context.Context, repo store.Repository, candidate any) (core.Verdict, error) {
	row := candidate.(*groupRow)

	var (
		existing store.OrganizationalGroup
		err      error
	)
	if row.generated {
		existing, err = repo.FindGroupByName(ctx, normalize.Key(row.name), row.campusID)
	} else {
		existing, err = repo.FindGroupByShortName(ctx, normalize.Key(row.shortName), row.campusID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return core.Verdict{}, nil
	}
	if err != nil {
		return core.Verdict{}, err
	}

	sameOrg := row.orgID == nil || existing.OrganizationID == nil || *row.orgID == *existing.OrganizationID
	switch {
	case sameOrg:
		return core.Verdict{
			Duplicate: true,
			Reason:    fmt.Sprintf("group %s (%s) already exists on campus %s", existing.Name, existing.ShortName, row.campus),
		}, nil
	case row.generated:
		// Same name under another organization is another group.
		return core.Verdict{}, nil
	default:
		return core.Verdict{
			Conflict: true,
			Code:     core.CodeShortNameTaken,
			Reason:   fmt.Sprintf("short name already used on campus %s by %s of another organization", row.campus, existing.Name),
		}, nil
	}
}

func persistGroup(ctx context.Context, repo store.Repository, candidate any) error {
	row := candidate.(*groupRow)
	_, err := repo.CreateGroup(ctx, store.OrganizationalGroup{
		Name:            row.name,
		ShortName:       row.shortName,
		CampusID:        row.campusID,
		KnowledgeAreaID: row.areaID,
		OrganizationID:  row.orgID,
		Website:         row.website,
		Email:           row.email,
		Keywords:        row.keywords,
		LeaderIDs:       row.leaderIDs,
		MemberIDs:       row.memberIDs,
	})
	return err
}
