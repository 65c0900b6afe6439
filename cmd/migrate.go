package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pgmigrate/internal/model"
	"pgmigrate/internal/relmigrate"
)

// newMigrateCmd migrates a single table directly, bypassing a plan file.
// Grounded on the teacher's single-verb root command, the original
// entrypoint for this CLI before the verb tree.
func newMigrateCmd() *cobra.Command {
	var (
		src, tgt          connFlags
		schemaName, table string
		targetSchema      string
		where             string
		limit             int
		createTable       bool
		truncate          bool
		ignore            []string
		transform         []string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate one table directly between two databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if schemaName == "" || table == "" {
				return fmt.Errorf("--schema and --table are required")
			}

			sourcePool, err := connectPool(ctx, src, "source")
			if err != nil {
				return err
			}
			defer sourcePool.Close()

			targetPool, err := connectPool(ctx, tgt, "target")
			if err != nil {
				return err
			}
			defer targetPool.Close()

			migrator := relmigrate.NewRelationalMigrator(sourcePool, src.target(), targetPool)

			job := model.TableJob{
				Source:      model.TableDescriptor{Schema: schemaName, Table: table},
				CreateTable: createTable,
				Truncate:    truncate,
			}
			if where != "" {
				job.Where = &where
			}
			if limit > 0 {
				job.RowLimit = &limit
			}
			if targetSchema != "" {
				job.TargetSchema = &targetSchema
			}

			opts := relmigrate.Options{
				RelColumnOptions: relmigrate.RelColumnOptions{
					Ignore:    ignore,
					Transform: parseTransformFlags(transform),
				},
			}

			if dryRun {
				log.Info().Str("schema", schemaName).Str("table", table).Msg("dry run: skipping migrate")
				return nil
			}

			result := migrator.MigrateTable(ctx, job, opts)
			printResult(cmd, result)
			return resultError(result)
		},
	}

	bindConnFlags(cmd, &src, "source")
	bindConnFlags(cmd, &tgt, "target")
	cmd.Flags().StringVar(&schemaName, "schema", "", "source schema name")
	cmd.Flags().StringVar(&table, "table", "", "table name")
	cmd.Flags().StringVar(&targetSchema, "target-schema", "", "target schema name, defaults to --schema")
	cmd.Flags().StringVar(&where, "where", "", "SQL filter applied to the source query")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit, 0 for unlimited")
	cmd.Flags().BoolVar(&createTable, "create-table", false, "create the target table if it does not exist")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "truncate the target table before loading")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "columns to drop from the migrated row")
	cmd.Flags().StringSliceVar(&transform, "transform", nil, "column=strategy column transforms, e.g. email=hash")

	return cmd
}

func bindConnFlags(cmd *cobra.Command, f *connFlags, prefix string) {
	cmd.Flags().StringVar(&f.host, prefix+"-host", "", prefix+" database host")
	cmd.Flags().IntVar(&f.port, prefix+"-port", 5432, prefix+" database port")
	cmd.Flags().StringVar(&f.user, prefix+"-user", "", prefix+" database user")
	cmd.Flags().StringVar(&f.password, prefix+"-password", "", prefix+" database password")
	cmd.Flags().StringVar(&f.database, prefix+"-database", "", prefix+" database name")
	cmd.Flags().StringVar(&f.schema, prefix+"-schema", "", prefix+" default schema")
}

// parseTransformFlags turns "col=strategy" flag values into the map
// RelColumnOptions.Transform expects.
func parseTransformFlags(values []string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		col, strategy, ok := strings.Cut(v, "=")
		if !ok {
			continue
		}
		out[col] = strategy
	}
	return out
}

func printResult(cmd *cobra.Command, r model.MigrationResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s.%s -> %s: %s (fetched=%d inserted=%d skipped=%d)\n",
		r.JobKind, r.Source, r.Target, r.Status, r.Fetched, r.Inserted, r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", e)
	}
}

func resultError(r model.MigrationResult) error {
	if r.Status == model.StatusError {
		return fmt.Errorf("migration of %s failed: %s", r.Source, strings.Join(r.Errors, "; "))
	}
	return nil
}
