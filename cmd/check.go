package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCheckCmd verifies that both configured database endpoints are
// reachable, without migrating anything.
func newCheckCmd() *cobra.Command {
	var src, tgt connFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the source and target databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var failed bool
			for _, endpoint := range []struct {
				label string
				flags connFlags
			}{
				{"source", src},
				{"target", tgt},
			} {
				if endpoint.flags.host == "" {
					continue
				}
				pool, err := connectPool(ctx, endpoint.flags, endpoint.label)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED (%s)\n", endpoint.label, err)
					failed = true
					continue
				}
				if err := pool.Ping(ctx); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED (%s)\n", endpoint.label, err)
					failed = true
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", endpoint.label)
				}
				pool.Close()
			}

			if failed {
				return fmt.Errorf("one or more endpoints failed connectivity check")
			}
			return nil
		},
	}

	bindConnFlags(cmd, &src, "source")
	bindConnFlags(cmd, &tgt, "target")
	return cmd
}
