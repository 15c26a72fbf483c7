package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uniimport/internal/core"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List import profiles and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, def := range core.All() {
				fmt.Fprintf(tw, "%s\t%s\n", def.Info.Key, def.Info.Label)
				for _, f := range def.FieldSpecs {
					req := ""
					if f.Required {
						req = "required"
					}
					list := ""
					if f.Multi() {
						list = fmt.Sprintf("list (%s)", f.Delimiter)
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", f.Header, f.Name, req, list, f.Description)
				}
			}
			return tw.Flush()
		},
	}
}

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template <profile>",
		Short: "Write a header-only CSV for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := core.Get(args[0])
			if !ok {
				return withCode(exitUsage, fmt.Errorf("%w: %q", core.ErrUnknownProfile, args[0]))
			}
			body, err := core.TemplateCSV(def)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(output, body, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
