package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgmigrate/internal/schema"
)

// newAnalyzeCmd inspects a schema or a single table: columns, DDL,
// partitions, and foreign-key edges, using the same Inspector the
// orchestrator uses to plan migrations.
func newAnalyzeCmd() *cobra.Command {
	var (
		conn       connFlags
		schemaName string
		table      string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Inspect a schema or table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if schemaName == "" {
				return fmt.Errorf("--schema is required")
			}

			pool, err := connectPool(ctx, conn, "database")
			if err != nil {
				return err
			}
			defer pool.Close()

			inspector := schema.NewInspector(pool)

			if table == "" {
				tables, err := inspector.ListBaseTables(ctx, schemaName)
				if err != nil {
					return fmt.Errorf("listing tables in %s: %w", schemaName, err)
				}
				for _, t := range tables {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}

			columns, err := inspector.Columns(ctx, schemaName, table)
			if err != nil {
				return fmt.Errorf("reading columns of %s.%s: %w", schemaName, table, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s columns:\n", schemaName, table)
			for _, c := range columns {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", c.Name, c.Type)
			}

			rowCount, err := inspector.RowCount(ctx, schemaName, table, "")
			if err != nil {
				return fmt.Errorf("counting rows of %s.%s: %w", schemaName, table, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "row count: %d\n", rowCount)

			edges, err := inspector.ForeignKeys(ctx, schemaName, []string{table})
			if err != nil {
				return fmt.Errorf("reading foreign keys of %s.%s: %w", schemaName, table, err)
			}
			if parents, ok := edges[table]; ok {
				for parent := range parents {
					fmt.Fprintf(cmd.OutOrStdout(), "references: %s\n", parent)
				}
			}

			return nil
		},
	}

	bindConnFlags(cmd, &conn, "database")
	cmd.Flags().StringVar(&schemaName, "schema", "", "schema to inspect")
	cmd.Flags().StringVar(&table, "table", "", "table to inspect, lists all tables in schema if omitted")
	return cmd
}
