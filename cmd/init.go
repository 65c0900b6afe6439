package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pgmigrate/internal/model"
	"pgmigrate/internal/schema"
)

// newInitCmd writes a sample plan file with every default filled in, so a
// user can edit it down instead of starting from a blank page.
func newInitCmd() *cobra.Command {
	var (
		out  string
		kind string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample migration plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error

			switch kind {
			case "warehouse":
				plan := schema.WarehousePlan{
					ParallelTables:     5,
					ParallelPartitions: 5,
					ParallelInserts:    4,
					BatchSize:          1000,
					StopOnError:        true,
					Tables: []schema.WarehouseTableEntry{
						{Catalog: "iceberg", Schema: "analytics", Table: "orders", Method: model.MethodObjectCopy},
					},
				}
				data, err = yaml.Marshal(plan)
			default:
				plan := schema.RelationalPlan{
					AutoOrder:         true,
					CreateTables:      true,
					ExcludeDateTables: true,
					Parallel:          true,
					MaxWorkers:        3,
					MaxTableWorkers:   5,
					Databases: []schema.RelDatabaseEntry{
						{Name: "app", Mode: model.ModeAll},
					},
				}
				data, err = yaml.Marshal(plan)
			}
			if err != nil {
				return fmt.Errorf("marshaling sample plan: %w", err)
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample %s plan to %s\n", kind, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "plan.yaml", "path to write the sample plan")
	cmd.Flags().StringVar(&kind, "kind", "relational", "plan kind: relational or warehouse")
	return cmd
}
