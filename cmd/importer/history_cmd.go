package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uniimport/internal/core"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		limit      int
		runID      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs, or show one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			svc := newService(st, cfg, nil)

			if runID != "" {
				id, err := uuid.Parse(runID)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("invalid --id: %w", err))
				}
				_, rep, err := svc.GetImport(ctx, id)
				if errors.Is(err, core.ErrImportNotFound) {
					return withCode(exitUsage, err)
				}
				if err != nil {
					return withCode(exitDB, err)
				}
				return printReport(cmd.OutOrStdout(), rep, jsonOutput, svc.ErrorDisplayLimit())
			}

			runs, err := svc.ListImports(ctx, limit)
			if err != nil {
				return withCode(exitDB, err)
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tPROFILE\tFILE\tDRY\tROWS\tCREATED\tSKIPPED\tFAILED\tNOT ATTEMPTED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Profile, r.FileName, r.DryRun,
					r.TotalRows, r.Created, r.Skipped, r.Failed, r.NotAttempted)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "id", "", "show the report of one run")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}
