package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/quotations"
)

func newInspectDBCmd(global *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "inspect-db",
		Short: "List the tables and columns of the quotation database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load(true)
			if err != nil {
				return err
			}
			if dbPath != "" {
				if dbPath, err = absolute(dbPath); err != nil {
					return err
				}
				cfg.Sources.Database = dbPath
			}

			paths, err := config.GetPaths(cfg)
			if err != nil {
				return err
			}
			if !config.FileExists(paths.DatabaseFile) {
				return apierrors.NewNotFoundError("database " + paths.DatabaseFile)
			}

			tables, err := quotations.InspectSchema(cmd.Context(), paths.DatabaseFile)
			if err != nil {
				return err
			}
			return printSchema(cmd.OutOrStdout(), paths.DatabaseFile, tables)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Quotation sqlite database")
	return cmd
}

func printSchema(out io.Writer, path string, tables []quotations.TableSchema) error {
	fmt.Fprintf(out, "%s: %d tables\n", path, len(tables))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range tables {
		fmt.Fprintf(w, "\n%s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(w, "  %s\t%s\n", c.Name, c.Type)
		}
	}
	return w.Flush()
}
