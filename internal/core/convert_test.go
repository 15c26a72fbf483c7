package core

import (
	"testing"
	"time"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{
			name:  "simple string unchanged",
			input: "hello",
			want:  "hello",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},

		// Whitespace trimming
		{
			name:  "surrounded by whitespace",
			input: "  hello  ",
			want:  "hello",
		},
		{
			name:  "inner whitespace kept",
			input: "Ana  Souza",
			want:  "Ana  Souza",
		},

		// Excel formula prefix handling
		{
			name:  "Excel formula with quotes",
			input: `="12345"`,
			want:  "12345",
		},
		{
			name:  "bare equals sign",
			input: "=SUM(A1)",
			want:  "SUM(A1)",
		},

		// Quote handling
		{
			name:  "double quotes removed",
			input: `"hello"`,
			want:  "hello",
		},
		{
			name:  "apostrophe in a name kept",
			input: "Joana D'Arc",
			want:  "Joana D'Arc",
		},

		// Combined cleaning
		{
			name:  "excel formula with whitespace",
			input: `  ="test"  `,
			want:  "test",
		},
		{
			name:  "only quotes",
			input: `""`,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// cellsProfile has one field per Record helper.
func cellsProfile() ProfileDefinition {
	return ProfileDefinition{
		Info: ProfileInfo{Key: "cells"},
		FieldSpecs: []FieldSpec{
			{Name: "start", Header: "Inicio"},
			{Name: "end", Header: "Fim"},
			{Name: "value", Header: "Valor"},
			{Name: "email", Header: "Email"},
			{Name: "site", Header: "Site"},
			{Name: "leaders", Header: "Lideres", Delimiter: ";"},
			{Name: "person", Header: "Pessoa"},
		},
	}
}

func cellsRecord(t *testing.T, values map[string]string) *Record {
	t.Helper()
	def := cellsProfile()
	b, err := BindHeader(def, def.Headers(), nil)
	if err != nil {
		t.Fatalf("BindHeader() error = %v", err)
	}
	cells := make([]string, len(def.FieldSpecs))
	for i, f := range def.FieldSpecs {
		cells[i] = values[f.Name]
	}
	return b.Record(1, cells)
}

func TestRecord_Date(t *testing.T) {
	rec := cellsRecord(t, map[string]string{"start": "05-03-24", "end": "31/02/2024"})
	var errs ValidationErrors

	start := rec.Date("start", true, &errs)
	if start == nil || !start.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want 2024-03-05", start)
	}
	if end := rec.Date("end", false, &errs); end != nil {
		t.Errorf("end = %v, want nil for a non-existent day", end)
	}
	if len(errs) != 1 || errs[0].Field != "Fim" || errs[0].Raw != "31/02/2024" {
		t.Fatalf("errors = %v", errs)
	}
	if MapError(errs[0]).Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", MapError(errs[0]).Code)
	}

	errs = nil
	blank := cellsRecord(t, nil)
	if d := blank.Date("end", false, &errs); d != nil || len(errs) != 0 {
		t.Errorf("blank optional date should be nil without error, got %v %v", d, errs)
	}
	if blank.Date("start", true, &errs); len(errs) != 1 {
		t.Errorf("blank required date should record one error, got %v", errs)
	}
}

func TestRecord_PositiveAmount(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantCode string
	}{
		{raw: "1.234,56", want: "1234.56"},
		{raw: "R$ 800", want: "800"},
		{raw: "0", wantCode: "VAL011"},
		{raw: "-5", wantCode: "VAL011"},
		{raw: "abc", wantCode: "VAL002"},
		{raw: "", wantCode: "VAL003"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var errs ValidationErrors
			got := cellsRecord(t, map[string]string{"value": tt.raw}).PositiveAmount("value", &errs)
			if tt.wantCode == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				if got.String() != tt.want {
					t.Errorf("amount = %s, want %s", got, tt.want)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("errors = %v, want one", errs)
			}
			if code := MapError(errs[0]).Code; code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestRecord_EmailAndURL(t *testing.T) {
	var errs ValidationErrors
	rec := cellsRecord(t, map[string]string{"email": " Ana@UNI.br ", "site": "https://lab.uni.br"})
	if got := rec.Email("email", &errs); got != "ana@uni.br" {
		t.Errorf("Email() = %q, want lower-cased address", got)
	}
	if got := rec.URL("site", &errs); got != "https://lab.uni.br" {
		t.Errorf("URL() = %q", got)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	bad := cellsRecord(t, map[string]string{"email": "ana.uni.br", "site": "lab"})
	bad.Email("email", &errs)
	bad.URL("site", &errs)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want two", errs)
	}
	if MapError(errs[0]).Code != "VAL006" || MapError(errs[1]).Code != "VAL007" {
		t.Errorf("codes = %s, %s", MapError(errs[0]).Code, MapError(errs[1]).Code)
	}
}

func TestRecord_CheckPeriod(t *testing.T) {
	var errs ValidationErrors
	rec := cellsRecord(t, map[string]string{"start": "2024-06-01", "end": "2024-05-31"})
	start := rec.Date("start", true, &errs)
	end := rec.Date("end", false, &errs)
	rec.CheckPeriod("start", "end", start, end, &errs)

	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	if errs[0].Field != "Fim" || MapError(errs[0]).Code != "VAL008" {
		t.Errorf("error = %+v, code %s", errs[0], MapError(errs[0]).Code)
	}

	errs = nil
	same := cellsRecord(t, map[string]string{"start": "2024-06-01", "end": "01/06/2024"})
	s, e := same.Date("start", true, &errs), same.Date("end", false, &errs)
	same.CheckPeriod("start", "end", s, e, &errs)
	if len(errs) != 0 {
		t.Errorf("single-day period should be valid, got %v", errs)
	}
}

func TestRecord_Contacts(t *testing.T) {
	raw := "Ana Souza (ana@uni.br); Bruno; ; Carla (carla@)"

	t.Run("strict", func(t *testing.T) {
		var errs ValidationErrors
		got := cellsRecord(t, map[string]string{"leaders": raw}).Contacts("leaders", true, &errs)
		if len(got) != 1 || got[0].Email != "ana@uni.br" {
			t.Errorf("contacts = %+v", got)
		}
		if len(errs) != 2 {
			t.Fatalf("errors = %v, want two", errs)
		}
		for _, e := range errs {
			if MapError(e).Code != "VAL009" {
				t.Errorf("code = %s, want VAL009", MapError(e).Code)
			}
		}
	})

	t.Run("loose", func(t *testing.T) {
		var errs ValidationErrors
		rec := cellsRecord(t, map[string]string{"leaders": raw})
		got := rec.Contacts("leaders", false, &errs)
		if len(errs) != 0 {
			t.Fatalf("loose parsing should not fail the row: %v", errs)
		}
		if len(got) != 2 || got[1].Name != "Bruno" || got[1].Email != "" {
			t.Errorf("contacts = %+v", got)
		}
		warnings := rec.Warnings()
		if len(warnings) != 1 || warnings[0].Field != "Lideres" || warnings[0].RawValue != "Carla (carla@)" {
			t.Errorf("warnings = %+v", warnings)
		}
	})
}

func TestRecord_Person(t *testing.T) {
	var errs ValidationErrors
	rec := cellsRecord(t, map[string]string{"person": "maria da silva", "email": "MARIA@uni.br"})
	p := rec.Person("person", "email", true, &errs)
	if p == nil || p.Name != "Maria da Silva" || p.Email != "maria@uni.br" {
		t.Fatalf("Person() = %+v, errs %v", p, errs)
	}

	inline := cellsRecord(t, map[string]string{"person": "Maria (m@uni.br)"})
	if p := inline.Person("person", "email", true, &errs); p == nil || p.Email != "m@uni.br" {
		t.Errorf("inline email not read: %+v", p)
	}

	if p := cellsRecord(t, nil).Person("person", "", false, &errs); p != nil {
		t.Errorf("blank optional person = %+v, want nil", p)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}
