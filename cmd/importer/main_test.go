package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uniimport/internal/core"
)

const scholarshipsCSV = "Titulo,TipoBolsa,CampusExecucao,DataInicio,DataFim,Valor,Orientador,Aluno\n" +
	"Bolsa A,Pesquisa,Joinville,2024-01-01,2024-12-31,500,Prof (p@uni.br),Rui (rui@uni.br)\n" +
	"Bolsa B,Pesquisa,Joinville,2024-06-01,2024-12-31,500,Prof (p@uni.br),Rui (rui@uni.br)\n"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_FailedRowsExitCode(t *testing.T) {
	path := writeCSV(t, "bolsas.csv", scholarshipsCSV)

	out, err := execute(t, "", "run", "scholarship", path)
	require.Error(t, err)
	assert.Equal(t, exitRowsFailed, exitCode(err))
	assert.Contains(t, out, "scholarship: 2 rows, 1 created, 0 skipped, 1 failed, 0 not attempted")
	assert.Contains(t, out, "(CNF002)")
	assert.Contains(t, out, "new campus: 1")
}

func TestRun_JSONFromStdin(t *testing.T) {
	csv := "Titulo,DataInicio,Coordenador\nProjeto,2024-05-01,Ana (ana@uni.br)\n"

	out, err := execute(t, csv, "run", "initiative", "-", "--json", "--dry-run")
	require.NoError(t, err)

	var rep core.ImportReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.True(t, rep.DryRun)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.NewReferenceCounts[core.RefPerson])
}

func TestRun_MappingFile(t *testing.T) {
	csv := writeCSV(t, "a.csv", "Title,Start,Lead\nProjeto,2024-05-01,Ana (ana@uni.br)\n")
	mapping := writeCSV(t, "initiative.yaml", "profile: initiative\ncolumns:\n  Title: title\n  Start: start_date\n  Lead: coordinator\n")

	out, err := execute(t, "", "run", "initiative", csv, "--mapping", mapping)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 created")
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want int
	}{
		{
			name: "unknown profile",
			args: func(t *testing.T) []string { return []string{"run", "budget", writeCSV(t, "a.csv", "x\n")} },
			want: exitUsage,
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string { return []string{"run", "initiative", "/does/not/exist.csv"} },
			want: exitUsage,
		},
		{
			name: "mapping for another profile",
			args: func(t *testing.T) []string {
				m := writeCSV(t, "m.yaml", "profile: group\ncolumns:\n  X: name\n")
				return []string{"run", "initiative", writeCSV(t, "a.csv", "Titulo\n"), "--mapping", m}
			},
			want: exitUsage,
		},
		{
			name: "missing required column",
			args: func(t *testing.T) []string {
				return []string{"run", "initiative", writeCSV(t, "a.csv", "Titulo\nProjeto\n")}
			},
			want: exitValidation,
		},
		{
			name: "not a csv",
			args: func(t *testing.T) []string {
				return []string{"run", "initiative", writeCSV(t, "a.xlsx", "Titulo\n")}
			},
			want: exitValidation,
		},
		{
			name: "migrate needs postgres",
			args: func(t *testing.T) []string { return []string{"migrate"} },
			want: exitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args(t)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, exitCode(err), err.Error())
		})
	}
}

func TestProfilesAndTemplate(t *testing.T) {
	out, err := execute(t, "", "profiles")
	require.NoError(t, err)
	for _, key := range []string{"initiative", "scholarship", "group"} {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "PalavrasChave")

	out, err = execute(t, "", "template", "group")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Nome,Sigla,Campus,"), out)

	dest := filepath.Join(t.TempDir(), "bolsas.csv")
	_, err = execute(t, "", "template", "scholarship", "-o", dest)
	require.NoError(t, err)
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Titulo,TipoBolsa,"))
}

func TestHistory_MemoryStoreStartsEmpty(t *testing.T) {
	out, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "PROFILE")

	_, err = execute(t, "", "history", "--id", "6f1f7c1e-0000-4000-8000-000000000000")
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("plain")))
	assert.Equal(t, exitDB, exitCode(withCode(exitDB, errors.New("down"))))
	assert.Nil(t, withCode(exitDB, nil))
}
