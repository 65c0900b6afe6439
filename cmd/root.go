package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dryRun bool

// NewRootCmd builds the migration CLI's command tree: show-config, init,
// migrate, run, analyze, check, cache. Grounded on the teacher's
// cmd/root.go single-verb shape, generalized to a verb tree the way
// cobra-based CLIs across the example pack lay out subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgmigrate",
		Short: "Orchestrates relational and warehouse table migrations",
		Long: `pgmigrate drives dependency-aware, parallel migrations between relational
databases and between Hive/Iceberg-style warehouse catalogs, from a single
YAML plan file.`,
	}

	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would be migrated without executing")
	viper.BindPFlag("dry-run", rootCmd.PersistentFlags().Lookup("dry-run"))

	rootCmd.AddCommand(
		newShowConfigCmd(),
		newInitCmd(),
		newMigrateCmd(),
		newRunCmd(),
		newAnalyzeCmd(),
		newCheckCmd(),
		newCacheCmd(),
	)

	return rootCmd
}
