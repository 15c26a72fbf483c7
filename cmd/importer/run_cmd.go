package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uniimport/internal/core"
)

type runOptions struct {
	dryRun           bool
	stopOnFirstError bool
	mappingFile      string
	jsonOutput       bool
	errorLimit       int
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <profile> <file.csv|->",
		Short: "Import one CSV file",
		Long: `Run imports a CSV file with the given profile and prints the report.

With --store memory the file is checked against an empty in-memory store:
nothing is written anywhere, which makes it a format and validation check.

Exit codes: 0 every row created or skipped, 2 the file was rejected,
3 bad usage, 4 database unavailable, 5 some rows failed or were not attempted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, global, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "run every row and roll everything back")
	cmd.Flags().BoolVar(&opts.stopOnFirstError, "stop-on-first-error", false, "stop after the first failed row")
	cmd.Flags().StringVar(&opts.mappingFile, "mapping", "", "YAML file mapping CSV headers to profile fields")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the full report as JSON")
	cmd.Flags().IntVar(&opts.errorLimit, "error-limit", -1, "row errors to print before \"+N more\" (default: IMPORT_ERROR_DISPLAY_LIMIT)")
	return cmd
}

func runImport(cmd *cobra.Command, global *globalOptions, opts runOptions, profile, path string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if _, ok := core.Get(profile); !ok {
		return withCode(exitUsage, fmt.Errorf("%w: %q (see importer profiles)", core.ErrUnknownProfile, profile))
	}

	var mapping core.ColumnMapping
	if opts.mappingFile != "" {
		if mapping, err = core.LoadMapping(opts.mappingFile, profile); err != nil {
			return withCode(exitUsage, err)
		}
	}
	mappings, err := core.LoadMappingsDir(cfg.Import.MappingsDir)
	if err != nil {
		return withCode(exitUsage, err)
	}

	body, fileName, err := openInput(cmd, path)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer body.Close()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := newService(st, cfg, mappings)
	rep, err := svc.RunImport(core.ContextWithUserAgent(ctx, "importer-cli"), core.ImportRequest{
		Profile:  profile,
		FileName: fileName,
		Body:     body,
		Mapping:  mapping,
		Options:  core.ImportOptions{DryRun: opts.dryRun, StopOnFirstError: opts.stopOnFirstError},
	})
	if rep == nil {
		return withCode(rejectionCode(err), err)
	}

	limit := opts.errorLimit
	if limit < 0 {
		limit = svc.ErrorDisplayLimit()
	}
	if werr := printReport(cmd.OutOrStdout(), rep, opts.jsonOutput, limit); werr != nil {
		return werr
	}

	switch {
	case err != nil:
		return withCode(exitRowsFailed, fmt.Errorf("import stopped early: %w", err))
	case !rep.Succeeded():
		return withCode(exitRowsFailed, fmt.Errorf("%d rows failed, %d not attempted", rep.Failed, rep.NotAttempted))
	}
	return nil
}

// openInput opens path, or stdin for "-". Stdin has no file name, so the
// extension check is skipped for it.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// rejectionCode classifies an error that stopped the run before any row.
func rejectionCode(err error) int {
	var parseErr *core.ParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, core.ErrUnsupportedFileType),
		errors.Is(err, core.ErrNoFile):
		return exitValidation
	case errors.Is(err, core.ErrUnknownProfile):
		return exitUsage
	default:
		return exitDB
	}
}

func printReport(w io.Writer, rep *core.ImportReport, asJSON bool, limit int) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintln(w, rep.Summary())
	for _, kind := range core.ReferenceKinds {
		if n := rep.NewReferenceCounts[kind]; n > 0 {
			fmt.Fprintf(w, "  new %s: %d\n", kind, n)
		}
	}
	for _, s := range rep.SkippedRows {
		fmt.Fprintf(w, "  skipped row %d: %s\n", s.Row, s.Reason)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "  warning row %d, %s: %s\n", warn.Row, warn.Field, warn.Message)
	}

	shown, more := rep.DisplayErrors(limit)
	for _, e := range shown {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if more > 0 {
		fmt.Fprintf(w, "  +%d more\n", more)
	}
	if rep.Aborted != "" {
		fmt.Fprintf(w, "  aborted: %s\n", rep.Aborted)
	}
	return nil
}
