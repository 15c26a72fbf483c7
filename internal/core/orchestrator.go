package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/uniimport/internal/store"
)

const tracerName = "github.com/JonMunkholm/uniimport/internal/core"

// Orchestrator runs a whole file through a profile, row by row in file
// order, and produces the ImportReport.
type Orchestrator struct {
	store    store.Store
	opts     ResolverOptions
	maxBytes int64
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithMaxBytes(n int64) OrchestratorOption {
	return func(o *Orchestrator) { o.maxBytes = n }
}

// DefaultMaxBytes caps input size when no limit is configured (10MB).
const DefaultMaxBytes int64 = 10 << 20

func NewOrchestrator(st store.Store, opts ResolverOptions, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		opts:     opts,
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Run imports src. A ParseError (size, encoding, CSV structure, header) is
// returned before any row is attempted and yields no report. Otherwise the
// report is always returned; the error is non-nil only when the run was cut
// short by ctx, in which case the remaining rows count as not attempted.
//
// In a dry run every row transaction is nested in one outer transaction
// that is always rolled back: rows see each other's effects exactly as in a
// real run, and nothing is persisted.
func (o *Orchestrator) Run(ctx context.Context, src io.Reader, def ProfileDefinition, mapping ColumnMapping, opts ImportOptions) (_ *ImportReport, err error) {
	ctx, span := o.tracer.Start(ctx, "import.run", trace.WithAttributes(
		attribute.String("import.profile", def.Info.Key),
		attribute.Bool("import.dry_run", opts.DryRun),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	m := getMetrics()
	data, n, err := ReadInput(src, o.maxBytes)
	m.bytesRead.WithLabelValues(def.Info.Key).Add(float64(n))
	if err != nil {
		return nil, err
	}
	records, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}
	binding, err := BindHeader(def, records[0], mapping)
	if err != nil {
		return nil, err
	}
	if len(binding.Ignored) > 0 {
		o.logger.Debug("ignoring unmapped columns", "profile", def.Info.Key, "columns", binding.Ignored)
	}

	rep := newReport(def.Info.Key, opts, o.now())
	rep.BytesRead = n
	rep.IgnoredColumns = binding.Ignored
	defer func() { rep.finish(o.now()) }()

	var scope store.Beginner = o.store
	if opts.DryRun {
		outer, err := o.store.Begin(ctx)
		if err != nil {
			return nil, &PersistenceError{FieldError: FieldError{Reason: "begin dry run"}, Err: err}
		}
		// Rolled back once every row is done, whatever happened.
		defer func() { _ = outer.Rollback(context.WithoutCancel(ctx)) }()
		scope = outer
	}

	coord := NewRowCoordinator(def, o.opts, o.logger, o.tracer)
	rows := records[1:]
	for i, cells := range rows {
		rowNum := i + 1
		if BlankRow(cells) {
			continue
		}
		if err := ctx.Err(); err != nil {
			rep.notAttempted(countNonBlank(rows[i:]))
			rep.Aborted = err.Error()
			return rep, err
		}

		res := coord.Process(ctx, scope, binding.Record(rowNum, cells))
		rep.record(res)
		m.rowsTotal.WithLabelValues(def.Info.Key, string(res.State)).Inc()
		m.rowDuration.WithLabelValues(def.Info.Key, string(res.State)).Observe(res.Duration.Seconds())

		if res.State == StateFailed && opts.StopOnFirstError {
			rep.notAttempted(countNonBlank(rows[i+1:]))
			o.logger.Info("stopping at first failed row", "profile", def.Info.Key, "row", rowNum)
			break
		}
	}

	if !opts.DryRun {
		for kind, n := range rep.NewReferenceCounts {
			if n > 0 {
				m.refsCreated.WithLabelValues(def.Info.Key, string(kind)).Add(float64(n))
			}
		}
	}
	span.SetAttributes(
		attribute.Int("import.rows", rep.TotalRows),
		attribute.Int("import.created", rep.Created),
		attribute.Int("import.failed", rep.Failed),
		attribute.String("import.run_id", rep.RunID.String()),
		attribute.Int("import.skipped", rep.Skipped),
	)
	return rep, nil
}

func countNonBlank(rows [][]string) int {
	n := 0
	for _, r := range rows {
		if !BlankRow(r) {
			n++
		}
	}
	return n
}
