package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgmigrate/internal/cache"
)

// newCacheCmd manages the on-disk extract cache used by the warehouse
// migrator's extract-then-load method.
func newCacheCmd() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the extract cache",
	}
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", ".pgmigrate-cache", "extract cache directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached extracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.NewStore(cacheDir)
			entries, err := store.ListCached()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no cached extracts")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s.%s.%s: %d rows, cached %s\n",
					e.Catalog, e.Schema, e.Table, e.RowCount, e.CachedAt.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.NewStore(cacheDir)
			if err := store.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}
