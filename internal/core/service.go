package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/uniimport/internal/store"
)

var (
	ErrUnknownProfile      = errors.New("unknown profile")
	ErrUnsupportedFileType = errors.New("unsupported file type: only .csv files are accepted")
	ErrNoFile              = errors.New("no file provided")
	ErrImportNotFound      = errors.New("import not found")
)

// DefaultImportTimeout bounds a run when ServiceConfig.Timeout is zero.
const DefaultImportTimeout = 5 * time.Minute

// ServiceConfig holds the engine settings the service applies to every run.
type ServiceConfig struct {
	MaxFileSize       int64
	Timeout           time.Duration
	MaxConcurrent     int
	MaxWait           time.Duration
	ErrorDisplayLimit int
	Resolver          ResolverOptions

	// Mappings are per-profile column overrides used when a request
	// carries none.
	Mappings map[string]ColumnMapping
}

// Service is the entry point for callers (HTTP handlers, CLI). It applies
// the import limiter and timeout, runs the orchestrator and keeps the import
// history.
type Service struct {
	store   store.Store
	cfg     ServiceConfig
	limiter *ImportLimiter
	orch    *Orchestrator
	logger  *slog.Logger
}

// NewService creates a Service over st.
func NewService(st store.Store, cfg ServiceConfig, opts ...OrchestratorOption) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}
	if cfg.MaxFileSize > 0 {
		opts = append([]OrchestratorOption{WithMaxBytes(cfg.MaxFileSize)}, opts...)
	}
	orch := NewOrchestrator(st, cfg.Resolver, opts...)
	return &Service{
		store:   st,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		orch:    orch,
		logger:  orch.logger,
	}
}

// Limiter exposes the import limiter for status reporting.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// ErrorDisplayLimit is how many report errors callers should render.
func (s *Service) ErrorDisplayLimit() int { return s.cfg.ErrorDisplayLimit }

// ImportRequest is one file submitted for import.
type ImportRequest struct {
	Profile  string
	FileName string
	Body     io.Reader
	Mapping  ColumnMapping // nil means the configured or default mapping
	Options  ImportOptions
}

// RunImport imports one file. File-level failures (unknown profile, file
// type, size, encoding, header) return a nil report. Once rows are
// attempted the report is returned, persisted to the history and, when the
// run was cut short, accompanied by the context error.
func (s *Service) RunImport(ctx context.Context, req ImportRequest) (*ImportReport, error) {
	def, ok := Get(req.Profile)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, req.Profile)
	}
	if req.Body == nil {
		return nil, ErrNoFile
	}
	if req.FileName != "" && !strings.EqualFold(filepath.Ext(req.FileName), ".csv") {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedFileType, filepath.Base(req.FileName))
	}
	mapping := req.Mapping
	if mapping == nil {
		mapping = s.cfg.Mappings[def.Info.Key]
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	logger := s.logger.With("profile", def.Info.Key, "file", req.FileName, "dry_run", req.Options.DryRun)
	logger.Info("import started")
	started := time.Now()

	rep, err := s.orch.Run(runCtx, req.Body, def, mapping, req.Options)

	m := getMetrics()
	m.runDuration.WithLabelValues(def.Info.Key).Observe(time.Since(started).Seconds())
	m.runsTotal.WithLabelValues(def.Info.Key, strconv.FormatBool(req.Options.DryRun), runResult(rep, err)).Inc()

	if rep == nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}
	rep.FileName = req.FileName

	if herr := s.recordRun(context.WithoutCancel(ctx), rep); herr != nil {
		logger.Error("failed to record import history", "run_id", rep.RunID, "error", herr)
	}

	level := slog.LevelInfo
	if rep.Failed > 0 || err != nil {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "import finished",
		"run_id", rep.RunID,
		"rows", rep.TotalRows,
		"created", rep.Created,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"not_attempted", rep.NotAttempted,
		"duration_ms", rep.DurationMs,
	)
	return rep, err
}

func runResult(rep *ImportReport, err error) string {
	switch {
	case rep == nil:
		return "rejected"
	case err != nil:
		return "aborted"
	case rep.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}

func (s *Service) recordRun(ctx context.Context, rep *ImportReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	run := store.ImportRun{
		ID:           rep.RunID,
		Profile:      rep.Profile,
		FileName:     rep.FileName,
		DryRun:       rep.DryRun,
		StartedAt:    rep.StartedAt,
		FinishedAt:   rep.FinishedAt,
		TotalRows:    rep.TotalRows,
		Created:      rep.Created,
		Skipped:      rep.Skipped,
		Failed:       rep.Failed,
		NotAttempted: rep.NotAttempted,
		Report:       body,
		ClientIP:     ClientIPFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
	}
	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		return tx.RecordImportRun(ctx, run)
	})
}

// ListProfiles returns every registered profile.
func (s *Service) ListProfiles() []ProfileInfo {
	defs := All()
	infos := make([]ProfileInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// ProfileFields returns the column specs of a profile.
func (s *Service) ProfileFields(key string) ([]FieldSpec, error) {
	def, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, key)
	}
	return def.FieldSpecs, nil
}

// Template returns a header-only CSV for the profile.
func (s *Service) Template(key string) ([]byte, error) {
	def, ok := Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, key)
	}
	return TemplateCSV(def)
}

// TemplateCSV renders the default header row of def.
func TemplateCSV(def ProfileDefinition) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(def.Headers()); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ListImports returns the most recent runs, newest first.
func (s *Service) ListImports(ctx context.Context, limit int) ([]store.ImportRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var runs []store.ImportRun
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		var err error
		runs, err = tx.ListImportRuns(ctx, limit)
		return err
	})
	return runs, err
}

// GetImport returns one run with its decoded report.
func (s *Service) GetImport(ctx context.Context, id uuid.UUID) (store.ImportRun, *ImportReport, error) {
	var run store.ImportRun
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		var err error
		run, err = tx.GetImportRun(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return store.ImportRun{}, nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	if err != nil {
		return store.ImportRun{}, nil, err
	}
	var rep ImportReport
	if err := json.Unmarshal(run.Report, &rep); err != nil {
		return run, nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return run, &rep, nil
}

// PurgeHistory deletes runs started before the cutoff.
func (s *Service) PurgeHistory(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		var err error
		n, err = tx.PurgeImportRuns(ctx, before)
		return err
	})
	return n, err
}
