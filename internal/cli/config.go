package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCommand creates the "config" cobra command, which prints the
// effective configuration after defaults, files, .env and environment
// variables have been merged.
func NewConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.YAML()
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
