package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pgmigrate/internal/cache"
	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/model"
	"pgmigrate/internal/objectstore"
	"pgmigrate/internal/orchestrator"
	"pgmigrate/internal/relmigrate"
	"pgmigrate/internal/schema"
	"pgmigrate/internal/warehouse"
)

// newRunCmd loads a plan file and drives the orchestrator over it end to
// end. Exits non-zero if any table's result status is ERROR (§6).
func newRunCmd() *cobra.Command {
	var (
		planFile     string
		kind         string
		src, tgt     connFlags
		maxDatabases int
		maxTables    int
		cacheDir     string
		s3Endpoint   string
		s3Region     string
		s3AccessKey  string
		s3SecretKey  string
		s3PathStyle  bool
		sourceBucket string
		targetBucket string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			switch kind {
			case "warehouse":
				plan, err := schema.LoadWarehousePlan(planFile)
				if err != nil {
					return err
				}
				plan.Source = src.target()
				plan.Target = tgt.target()
				if plan.SourceBucket == "" {
					plan.SourceBucket = sourceBucket
				}
				if plan.TargetBucket == "" {
					plan.TargetBucket = targetBucket
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

				var copier *objectstore.Copier
				if s3Endpoint != "" || s3Region != "" {
					sourceClient, err := objectstore.NewClient(ctx, objectstore.Endpoint{
						Region: s3Region, EndpointURL: s3Endpoint,
						AccessKeyID: s3AccessKey, SecretAccessKey: s3SecretKey,
						PathStyle: s3PathStyle,
					})
					if err != nil {
						return fmt.Errorf("building source object-store client: %w", err)
					}
					targetClient, err := objectstore.NewClient(ctx, objectstore.Endpoint{
						Region: s3Region, EndpointURL: s3Endpoint,
						AccessKeyID: s3AccessKey, SecretAccessKey: s3SecretKey,
						PathStyle: s3PathStyle,
					})
					if err != nil {
						return fmt.Errorf("building target object-store client: %w", err)
					}
					copier = objectstore.NewCopier(sourceClient, targetClient, plan.ParallelPartitions)
				}

				store := cache.NewStore(cacheDir)
				wh := warehouse.NewWarehouseMigrator(sourcePool, targetPool, copier, store)
				orc := orchestrator.NewOrchestrator(sourcePool, nil, wh, orchestrator.Limits{
					MaxDatabases: maxDatabases, MaxTables: maxTables,
				})

				if dryRun {
					log.Info().Msg("dry run: not executing warehouse plan")
					return nil
				}

				results := orc.RunWarehousePlan(ctx, plan)
				return reportResults(cmd, results)

			default:
				plan, err := schema.LoadRelationalPlan(planFile)
				if err != nil {
					return err
				}
				plan.Source = src.target()
				plan.Target = tgt.target()

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

				rel := relmigrate.NewRelationalMigrator(sourcePool, src.target(), targetPool)
				orc := orchestrator.NewOrchestrator(sourcePool, rel, nil, orchestrator.Limits{
					MaxDatabases: maxDatabases, MaxTables: maxTables,
				})

				if dryRun {
					log.Info().Msg("dry run: not executing relational plan")
					return nil
				}

				results := orc.RunRelationalPlan(ctx, plan)
				return reportResults(cmd, results)
			}
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", "plan.yaml", "path to the plan file")
	cmd.Flags().StringVar(&kind, "kind", "relational", "plan kind: relational or warehouse")
	bindConnFlags(cmd, &src, "source")
	bindConnFlags(cmd, &tgt, "target")
	cmd.Flags().IntVar(&maxDatabases, "max-databases", 3, "max concurrent databases")
	cmd.Flags().IntVar(&maxTables, "max-tables", 5, "max concurrent tables per database")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", ".pgmigrate-cache", "extract cache directory")
	cmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().StringVar(&s3Region, "s3-region", "", "S3 region")
	cmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	cmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
	cmd.Flags().BoolVar(&s3PathStyle, "s3-path-style", false, "use path-style S3 addressing")
	cmd.Flags().StringVar(&sourceBucket, "source-bucket", "", "default source object-store bucket")
	cmd.Flags().StringVar(&targetBucket, "target-bucket", "", "default target object-store bucket")

	return cmd
}

func reportResults(cmd *cobra.Command, results []model.MigrationResult) error {
	failed := 0
	for _, r := range results {
		printResult(cmd, r)
		if r.Status == model.StatusError {
			failed++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d tables migrated, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed", failed, len(results))
	}
	return nil
}
