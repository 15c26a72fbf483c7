package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/store"
)

// ============================================================================
// Imports
// ============================================================================

// importResponse is the report plus the errors a client should render
// before collapsing the rest into "+N more".
type importResponse struct {
	*core.ImportReport
	DisplayErrors []core.ErrorEntry `json:"displayErrors"`
	MoreErrors    int               `json:"moreErrors"`
}

func (s *Server) newImportResponse(rep *core.ImportReport) importResponse {
	shown, more := rep.DisplayErrors(s.service.ErrorDisplayLimit())
	return importResponse{ImportReport: rep, DisplayErrors: shown, MoreErrors: more}
}

// handleImport runs one multipart upload through the engine. The form
// carries the CSV in "file" and optionally dry_run, stop_on_first_error and
// a JSON header-to-field "mapping".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	if _, ok := core.Get(profile); !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownProfile, profile), http.StatusNotFound)
		return
	}

	limit := s.cfg.Import.MaxFileSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			err = fmt.Errorf("file too large: request exceeds %d bytes: %w", limit, err)
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	opts, err := importOptions(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var mapping core.ColumnMapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			s.respondError(w, r, &core.ParseError{Reason: "invalid mapping: " + err.Error()}, http.StatusBadRequest)
			return
		}
	}

	ctx := withRequestMetadata(r.Context(), r)
	rep, err := s.service.RunImport(ctx, core.ImportRequest{
		Profile:  profile,
		FileName: header.Filename,
		Body:     file,
		Mapping:  mapping,
		Options:  opts,
	})
	if rep == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	// A run cut short still returns its partial report; Aborted says why.
	writeJSON(w, s.newImportResponse(rep))
}

func importOptions(r *http.Request) (core.ImportOptions, error) {
	var opts core.ImportOptions
	var err error
	if opts.DryRun, err = formBool(r, "dry_run"); err != nil {
		return opts, err
	}
	if opts.StopOnFirstError, err = formBool(r, "stop_on_first_error"); err != nil {
		return opts, err
	}
	return opts, nil
}

func formBool(r *http.Request, name string) (bool, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid option %s=%q: want true or false", name, raw)
	}
	return v, nil
}

// ============================================================================
// History
// ============================================================================

// runSummary is an ImportRun without its report body.
type runSummary struct {
	ID           uuid.UUID `json:"id"`
	Profile      string    `json:"profile"`
	FileName     string    `json:"fileName"`
	DryRun       bool      `json:"dryRun"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	TotalRows    int       `json:"totalRows"`
	Created      int       `json:"created"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	NotAttempted int       `json:"notAttempted"`
	ClientIP     string    `json:"clientIp,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
}

func newRunSummary(run store.ImportRun) runSummary {
	return runSummary{
		ID:           run.ID,
		Profile:      run.Profile,
		FileName:     run.FileName,
		DryRun:       run.DryRun,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		TotalRows:    run.TotalRows,
		Created:      run.Created,
		Skipped:      run.Skipped,
		Failed:       run.Failed,
		NotAttempted: run.NotAttempted,
		ClientIP:     run.ClientIP,
		UserAgent:    run.UserAgent,
	}
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListImports(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	out := make([]runSummary, len(runs))
	for i, run := range runs {
		out[i] = newRunSummary(run)
	}
	writeJSON(w, out)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errInvalidID, http.StatusNotFound)
		return
	}

	run, rep, err := s.service.GetImport(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, struct {
		Run    runSummary     `json:"run"`
		Report importResponse `json:"report"`
	}{newRunSummary(run), s.newImportResponse(rep)})
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// ============================================================================
// Profiles
// ============================================================================

type fieldResponse struct {
	Name        string `json:"name"`
	Header      string `json:"header"`
	Required    bool   `json:"required"`
	Delimiter   string `json:"delimiter,omitempty"`
	Description string `json:"description,omitempty"`
}

type profileResponse struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Primary string          `json:"primary"`
	Fields  []fieldResponse `json:"fields"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	infos := s.service.ListProfiles()
	out := make([]profileResponse, 0, len(infos))
	for _, info := range infos {
		specs, err := s.service.ProfileFields(info.Key)
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		fields := make([]fieldResponse, len(specs))
		for i, f := range specs {
			fields[i] = fieldResponse{
				Name:        f.Name,
				Header:      f.Header,
				Required:    f.Required,
				Delimiter:   f.Delimiter,
				Description: f.Description,
			}
		}
		out = append(out, profileResponse{Key: info.Key, Label: info.Label, Primary: info.Primary, Fields: fields})
	}
	writeJSON(w, out)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	body, err := s.service.Template(profile)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, profile))
	_, _ = w.Write(body)
}
