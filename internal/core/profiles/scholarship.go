package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/normalize"
	"github.com/JonMunkholm/uniimport/internal/store"
)

func init() {
	registerScholarship()
}

type scholarshipRow struct {
	header func(string) string

	title     string
	typeName  string
	campus    string
	location  string
	start     time.Time
	end       *time.Time
	value     decimal.Decimal
	advisor   normalize.Contact
	student   normalize.Contact
	sponsor   string

	typeID    uuid.UUID
	campusID  uuid.UUID
	advisorID uuid.UUID
	studentID uuid.UUID
	sponsorID *uuid.UUID
}

func registerScholarship() {
	core.Register(core.ProfileDefinition{
		Info: core.ProfileInfo{
			Key:     "scholarship",
			Label:   "Scholarships",
			Primary: "scholarship",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "title", Header: "Titulo", Required: true},
			{Name: "type.name", Header: "TipoBolsa", Required: true, Description: "Scholarship type, created when new"},
			{Name: "campus.name", Header: "CampusExecucao", Required: true, Description: "Campus, created when new"},
			{Name: "campus.location", Header: "LocalCampus", Description: "Location used for a new campus"},
			{Name: "start_date", Header: "DataInicio", Required: true},
			{Name: "end_date", Header: "DataFim", Description: "Empty when open-ended"},
			{Name: "value", Header: "Valor", Required: true, Description: "Positive amount: 1234.56, 1.234,56 or R$ 1.234,56"},
			{Name: "supervisor", Header: "Orientador", Required: true},
			{Name: "supervisor.email", Header: "EmailOrientador"},
			{Name: "student", Header: "Aluno", Required: true},
			{Name: "student.email", Header: "EmailAluno"},
			{Name: "sponsor.name", Header: "Patrocinador"},
		},
		Build:   buildScholarship,
		Resolve: resolveScholarship,
		Detect:  detectScholarship,
		Persist: persistScholarship,
	})
}

func buildScholarship(rec *core.Record) (any, error) {
	var errs core.ValidationErrors
	row := &scholarshipRow{header: rec.Header}

	row.title = rec.Require("title", &errs)
	row.typeName = normalize.Title(rec.Require("type.name", &errs))
	row.campus = normalize.Title(rec.Require("campus.name", &errs))
	row.location = rec.Optional("campus.location")
	start := rec.Date("start_date", true, &errs)
	row.end = rec.Date("end_date", false, &errs)
	rec.CheckPeriod("start_date", "end_date", start, row.end, &errs)
	row.value = rec.PositiveAmount("value", &errs)
	if c := rec.Person("supervisor", "supervisor.email", true, &errs); c != nil {
		row.advisor = *c
	}
	if c := rec.Person("student", "student.email", true, &errs); c != nil {
		row.student = *c
	}
	row.sponsor = normalize.Title(rec.Optional("sponsor.name"))

	if err := errs.Err(); err != nil {
		return nil, err
	}
	row.start = *start
	return row, nil
}

func resolveScholarship(ctx context.Context, res *core.Resolver, candidate any) error {
	row := candidate.(*scholarshipRow)

	typ, err := res.ScholarshipType(ctx, row.typeName, row.header("type.name"))
	if err != nil {
		return err
	}
	row.typeID = typ.ID

	campus, err := res.Campus(ctx, row.campus, row.location, row.header("campus.name"))
	if err != nil {
		return err
	}
	row.campusID = campus.ID

	advisor, err := res.Person(ctx, row.advisor, row.header("supervisor"))
	if err != nil {
		return err
	}
	row.advisorID = advisor.ID

	student, err := res.Person(ctx, row.student, row.header("student"))
	if err != nil {
		return err
	}
	row.studentID = student.ID

	if row.sponsor != "" {
		org, err := res.Organization(ctx, row.sponsor, row.header("sponsor.name"))
		if err != nil {
			return err
		}
		row.sponsorID = &org.ID
	}
	return nil
}

// detectScholarship rejects a second scholarship for a student whose period
// overlaps one already stored. An exact re-import overlaps itself, so it is
// reported the same way.
func detectScholarship(ctx context.Context, repo store.Repository, candidate any) (core.Verdict, error) {
	row := candidate.(*scholarshipRow)
	existing, err := repo.FindOverlappingScholarship(ctx, row.studentID, row.start, row.end)
	if errors.Is(err, store.ErrNotFound) {
		return core.Verdict{}, nil
	}
	if err != nil {
		return core.Verdict{}, err
	}
	return core.Verdict{
		Conflict: true,
		Code:     core.CodeOverlap,
		Reason: fmt.Sprintf("overlapping scholarship: %s already holds %q from %s to %s",
			row.student.Name, existing.Title, existing.StartDate.Format(time.DateOnly), formatEnd(existing.EndDate)),
	}, nil
}

func formatEnd(end *time.Time) string {
	if end == nil {
		return "open end"
	}
	return end.Format(time.DateOnly)
}

func persistScholarship(ctx context.Context, repo store.Repository, candidate any) error {
	row := candidate.(*scholarshipRow)
	_, err := repo.CreateScholarship(ctx, store.Scholarship{
		Title:          row.title,
		TypeID:         row.typeID,
		CampusID:       row.campusID,
		StartDate:      row.start,
		EndDate:        row.end,
		Value:          row.value,
		AdvisorID:      row.advisorID,
		StudentID:      row.studentID,
		OrganizationID: row.sponsorID,
	})
	return err
}
