package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pgmigrate/internal/schema"
)

// newShowConfigCmd loads a column-transform config file (the ignore/
// transform surface from internal/schema/config.go) and prints it back out,
// with environment variables already expanded, so a user can confirm what
// will actually run before committing to it.
func newShowConfigCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "show-config",
		Short: "Load and print a column-transform config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := schema.LoadConfig(configFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.yaml", "path to the config file")
	return cmd
}
