package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/docker"
)

// NewLabelsCommand creates the "labels" cobra command, which prints the
// label triple for a scope and role. Other tools can attach the printed
// labels to their own containers to take part in the same scope.
func NewLabelsCommand() *cobra.Command {
	var scopeFlag, role string

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Print the label triple for a scope and role",
		Long: `Print the three labels that mark a container as a member of a scope.

Examples:
  tcscope labels --role redis
  docker run $(tcscope labels --scope proj-A --role redis | sed 's/^/--label /') redis`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveScope(scopeFlag)
			if err != nil {
				return err
			}
			if err := requireRole(role); err != nil {
				return err
			}
			return printLabels(cmd.OutOrStdout(), docker.ScopeLabels(s, role))
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "", "Scope name (default: git working tree name)")
	cmd.Flags().StringVar(&role, "role", "", "Container role within the scope (required)")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

// printLabels writes labels as a JSON object or as sorted key=value lines.
func printLabels(out io.Writer, labels map[string]string) error {
	if IsJSONOutput() {
		return printJSON(out, labels)
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s=%s\n", k, labels[k])
	}
	return nil
}
