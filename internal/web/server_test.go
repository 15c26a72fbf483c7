package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uniimport/internal/config"
	"github.com/JonMunkholm/uniimport/internal/core"
	_ "github.com/JonMunkholm/uniimport/internal/core/profiles"
	"github.com/JonMunkholm/uniimport/internal/store/memory"
)

const initiativesCSV = "Titulo,DataInicio,DataFim,Coordenador,AreaConhecimento\n" +
	"Robótica Educacional,01-03-24,30-11-24,Ana Souza (ana@uni.br),Engenharia\n" +
	"Projeto B,31-02-24,,Ana Souza (ana@uni.br),\n"

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:       1 << 20,
			ErrorDisplayLimit: 10,
		},
		Telemetry: config.TelemetryConfig{MetricsEnabled: true, MetricsPath: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := core.NewService(st, core.ServiceConfig{
		MaxFileSize:       cfg.Import.MaxFileSize,
		ErrorDisplayLimit: cfg.Import.ErrorDisplayLimit,
	}, core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewServer(svc, st, cfg), st
}

// uploadRequest builds a multipart POST with a file part and form fields.
func uploadRequest(t *testing.T, path, fileName, body string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.WriteString(part, body)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", "web-test")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

// ============================================================================
// Imports
// ============================================================================

func TestHandleImport(t *testing.T) {
	s, st := newTestServer(t, testConfig())

	rec := serve(s, uploadRequest(t, "/api/imports/initiative", "iniciativas.csv", initiativesCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.TotalRows)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, "iniciativas.csv", rep.FileName)
	require.Len(t, rep.DisplayErrors, 1)
	assert.Equal(t, "VAL001", rep.DisplayErrors[0].Code)
	assert.Zero(t, rep.MoreErrors)
	assert.Equal(t, 1, st.Counts().Initiatives)

	runs, err := s.service.ListImports(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "web-test", runs[0].UserAgent)
	assert.NotEmpty(t, runs[0].ClientIP)
}

func TestHandleImport_DryRunAndMapping(t *testing.T) {
	s, st := newTestServer(t, testConfig())

	csv := "Title,Start,Coordinator\nProjeto,2024-05-01,Ana (ana@uni.br)\n"
	rec := serve(s, uploadRequest(t, "/api/imports/initiative", "a.csv", csv, map[string]string{
		"dry_run": "true",
		"mapping": `{"Title":"title","Start":"start_date","Coordinator":"coordinator"}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.DryRun)
	assert.Equal(t, 1, rep.Created)
	assert.Zero(t, st.Counts().Initiatives)
	assert.Zero(t, st.Counts().People)
}

func TestHandleImport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		fileName   string
		body       string
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown profile",
			path:       "/api/imports/budget",
			fileName:   "a.csv",
			body:       initiativesCSV,
			wantStatus: http.StatusNotFound,
			wantCode:   "IMP001",
		},
		{
			name:       "no file",
			path:       "/api/imports/initiative",
			fields:     map[string]string{"dry_run": "true"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "spreadsheet",
			path:       "/api/imports/initiative",
			fileName:   "a.xlsx",
			body:       initiativesCSV,
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE006",
		},
		{
			name:       "bad option",
			path:       "/api/imports/initiative",
			fileName:   "a.csv",
			body:       initiativesCSV,
			fields:     map[string]string{"dry_run": "maybe"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "IMP007",
		},
		{
			name:       "bad mapping json",
			path:       "/api/imports/initiative",
			fileName:   "a.csv",
			body:       initiativesCSV,
			fields:     map[string]string{"mapping": "{"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "IMP006",
		},
		{
			name:       "missing required column",
			path:       "/api/imports/initiative",
			fileName:   "a.csv",
			body:       "Titulo\nProjeto\n",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL004",
		},
		{
			name:       "empty file",
			path:       "/api/imports/initiative",
			fileName:   "a.csv",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, testConfig())
			rec := serve(s, uploadRequest(t, tt.path, tt.fileName, tt.body, tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			e := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestHandleImport_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s, _ := newTestServer(t, cfg)

	big := initiativesCSV + strings.Repeat("Projeto,01-03-24,,Ana (ana@uni.br),\n", 2000)
	rec := serve(s, uploadRequest(t, "/api/imports/initiative", "a.csv", big, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

// ============================================================================
// History
// ============================================================================

func TestHandleHistory(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	for range 3 {
		rec := serve(s, uploadRequest(t, "/api/imports/initiative", "a.csv", initiativesCSV, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []runSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+runs[0].ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail struct {
		Run    runSummary     `json:"run"`
		Report importResponse `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, runs[0].ID, detail.Run.ID)
	assert.Equal(t, runs[0].ID, detail.Report.RunID)

	t.Run("unknown id", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/6f1f7c1e-0000-4000-8000-000000000000", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "IMP003", decodeError(t, rec).Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/not-a-uuid", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "IMP003", decodeError(t, rec).Code)
	})
}

// ============================================================================
// Profiles, health, auth, metrics
// ============================================================================

func TestHandleProfiles(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles []profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profiles))

	keys := make([]string, len(profiles))
	for i, p := range profiles {
		keys[i] = p.Key
		assert.NotEmpty(t, p.Fields, p.Key)
	}
	assert.ElementsMatch(t, []string{"initiative", "scholarship", "group"}, keys)
}

func TestHandleTemplate(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles/group/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Nome,Sigla,Campus"), rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles/budget/template", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, core.DefaultMaxConcurrentImports, body.Imports.MaxConcurrent)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s, _ := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	// Health and metrics stay open without a key.
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	s, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil)).Code)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	serve(s, uploadRequest(t, "/api/imports/initiative", "a.csv", initiativesCSV, nil))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uniimport_runs_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{&core.ParseError{Reason: "file too large: exceeds 10 bytes"}, http.StatusRequestEntityTooLarge},
		{&core.ParseError{Reason: "encoding error: invalid UTF-8 at byte 3"}, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
