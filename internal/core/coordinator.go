package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/uniimport/internal/store"
)

// RowCoordinator drives one row through
// Pending -> Normalizing -> Resolving -> DuplicateCheck -> Persisting ->
// Committed, leaving early for Skipped or Failed.
//
// Everything a row writes, including references created on the fly, lives
// in one transaction opened from the scope passed to Process. Only a
// committed row keeps its writes.
type RowCoordinator struct {
	def    ProfileDefinition
	opts   ResolverOptions
	logger *slog.Logger
	tracer trace.Tracer
}

func NewRowCoordinator(def ProfileDefinition, opts ResolverOptions, logger *slog.Logger, tracer trace.Tracer) *RowCoordinator {
	return &RowCoordinator{def: def, opts: opts, logger: logger, tracer: tracer}
}

type rowRun struct {
	result RowResult
	logger *slog.Logger
}

func (r *rowRun) advance(next RowState) {
	r.result.State = next
	r.result.Transitions = append(r.result.Transitions, next)
}

func (r *rowRun) fail(err error) RowResult {
	r.advance(StateFailed)
	r.result.Errors = rowErrors(err)
	r.logger.Debug("row failed", "row", r.result.Row, "error", err)
	return r.result
}

func (r *rowRun) skip(reason string) RowResult {
	r.advance(StateSkipped)
	r.result.SkipReason = reason
	r.logger.Debug("row skipped", "row", r.result.Row, "reason", reason)
	return r.result
}

// Process runs rec to a terminal state inside a transaction begun on scope.
// It never returns an error: every failure, including a panic in profile
// code, ends as a Failed row.
func (c *RowCoordinator) Process(ctx context.Context, scope store.Beginner, rec *Record) (result RowResult) {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "import.row", trace.WithAttributes(
		attribute.String("import.profile", c.def.Info.Key),
		attribute.Int("import.row", rec.Row),
	))

	run := &rowRun{
		result: RowResult{Row: rec.Row, State: StatePending, Transitions: []RowState{StatePending}},
		logger: c.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("row panicked", "row", rec.Row, "panic", p)
			result = run.fail(&PersistenceError{FieldError: FieldError{Reason: "internal error"}, Err: fmt.Errorf("panic: %v", p)})
		}
		result.Warnings = rec.Warnings()
		result.Duration = time.Since(started)
		span.SetAttributes(attribute.String("import.row.state", string(result.State)))
		if result.State == StateFailed && len(result.Errors) > 0 {
			span.SetStatus(codes.Error, result.Errors[0].Error())
		}
		span.End()
	}()

	run.advance(StateNormalizing)
	candidate, err := c.def.Build(rec)
	if err != nil {
		return run.fail(err)
	}

	tx, err := scope.Begin(ctx)
	if err != nil {
		return run.fail(&PersistenceError{FieldError: FieldError{Reason: "begin row transaction"}, Err: err})
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	run.advance(StateResolving)
	res := NewResolver(tx, c.opts)
	if err := c.def.Resolve(ctx, res, candidate); err != nil {
		return run.fail(err)
	}

	run.advance(StateDuplicateCheck)
	verdict, err := c.def.Detect(ctx, tx, candidate)
	if err != nil {
		return run.fail(err)
	}
	if verdict.Conflict {
		return run.fail(&ConflictError{FieldError{Reason: verdict.Reason, Code: verdict.Code}})
	}
	if verdict.Duplicate {
		return run.skip(verdict.Reason)
	}

	run.advance(StatePersisting)
	if err := c.def.Persist(ctx, tx, candidate); err != nil {
		if _, typed := err.(RowError); !typed {
			err = &PersistenceError{FieldError: FieldError{Reason: "persist " + c.def.Info.Primary}, Err: err}
		}
		return run.fail(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return run.fail(&PersistenceError{FieldError: FieldError{Reason: "commit row"}, Err: err})
	}

	run.advance(StateCommitted)
	run.result.NewReferences = res.Created()
	return run.result
}
