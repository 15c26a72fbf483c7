package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

func init() {
	registerInitiative()
}

type initiativeRow struct {
	header func(string) string

	title       string
	description string
	start       time.Time
	end         *time.Time
	coordinator normalize.Contact
	area        string
	team        []normalize.Contact
	students    []normalize.Contact

	coordinatorID uuid.UUID
	areaID        *uuid.UUID
	teamIDs       []uuid.UUID
	studentIDs    []uuid.UUID
}

func registerInitiative() {
	core.Register(core.ProfileDefinition{
		Info: core.ProfileInfo{
			Key:     "initiative",
			Label:   "Initiatives",
			Primary: "initiative",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "title", Header: "Titulo", Required: true, Description: "Initiative title"},
			{Name: "description", Header: "Descricao"},
			{Name: "start_date", Header: "DataInicio", Required: true, Description: "DD-MM-YY, DD/MM/YYYY or YYYY-MM-DD"},
			{Name: "end_date", Header: "DataFim", Description: "Empty when ongoing"},
			{Name: "coordinator", Header: "Coordenador", Required: true, Description: `"Name (email)" or "Name"`},
			{Name: "coordinator.email", Header: "EmailCoordenador"},
			{Name: "knowledge_area.name", Header: "AreaConhecimento"},
			{Name: "team_members", Header: "Equipe", Delimiter: ";", Description: `"Name (email)" entries separated by ;`},
			{Name: "students", Header: "Alunos", Delimiter: ";", Description: `"Name (email)" entries separated by ;`},
		},
		Build:   buildInitiative,
		Resolve: resolveInitiative,
		Detect:  detectInitiative,
		Persist: persistInitiative,
	})
}

func buildInitiative(rec *core.Record) (any, error) {
	var errs core.ValidationErrors
	row := &initiativeRow{header: rec.Header}

	row.title = rec.Require("title", &errs)
	row.description = rec.Optional("description")
	start := rec.Date("start_date", true, &errs)
	row.end = rec.Date("end_date", false, &errs)
	rec.CheckPeriod("start_date", "end_date", start, row.end, &errs)
	if c := rec.Person("coordinator", "coordinator.email", true, &errs); c != nil {
		row.coordinator = *c
	}
	row.area = normalize.Title(rec.Optional("knowledge_area.name"))
	row.team = rec.Contacts("team_members", false, &errs)
	row.students = rec.Contacts("students", false, &errs)

	if err := errs.Err(); err != nil {
		return nil, err
	}
	row.start = *start
	return row, nil
}

func resolveInitiative(ctx context.Context, res *core.Resolver, candidate any) error {
	row := candidate.(*initiativeRow)

	coord, err := res.Person(ctx, row.coordinator, row.header("coordinator"))
	if err != nil {
		return err
	}
	row.coordinatorID = coord.ID

	if row.area != "" {
		area, err := res.KnowledgeArea(ctx, row.area, row.header("knowledge_area.name"))
		if err != nil {
			return err
		}
		row.areaID = &area.ID
	}

	if row.teamIDs, err = res.People(ctx, row.team, row.header("team_members")); err != nil {
		return err
	}
	if row.studentIDs, err = res.People(ctx, row.students, row.header("students")); err != nil {
		return err
	}
	return nil
}

// detectInitiative: same title (case and whitespace insensitive) under the
// same coordinator.
func detectInitiative(ctx context.Context, repo store.Repository, candidate any) (core.Verdict, error) {
	row := candidate.(*initiativeRow)
	exists, err := repo.InitiativeExists(ctx, normalize.Key(row.title), row.coordinatorID)
	if err != nil {
		return core.Verdict{}, err
	}
	if exists {
		return core.Verdict{
			Duplicate: true,
			Reason:    fmt.Sprintf("initiative %q already exists for coordinator %s", row.title, row.coordinator.Name),
		}, nil
	}
	return core.Verdict{}, nil
}

func persistInitiative(ctx context.Context, repo store.Repository, candidate any) error {
	row := candidate.(*initiativeRow)
	_, err := repo.CreateInitiative(ctx, store.Initiative{
		Title:           row.title,
		Description:     row.description,
		StartDate:       row.start,
		EndDate:         row.end,
		CoordinatorID:   row.coordinatorID,
		KnowledgeAreaID: row.areaID,
		TeamIDs:         row.teamIDs,
		StudentIDs:      row.studentIDs,
	})
	return err
}
