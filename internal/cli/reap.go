// reap.go implements the "tcscope reap" command.
//
// The reap command cleans up the containers of one scope and role without
// starting anything new:
//  1. With --force, running containers carrying the label triple are stopped
//  2. One prune removes every stopped container carrying the triple
//
// Running containers are left alone unless --force is given.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/reaper"
)

// reapFlags holds the flag values for the reap command.
type reapFlags struct {
	scope string
	role  string
	force bool
	prune bool
}

// reapOptions are the resolved settings for one reap.
type reapOptions struct {
	scope string
	role  string
	force bool
	prune bool
}

// NewReapCommand creates the "reap" cobra command.
func NewReapCommand(a *app) *cobra.Command {
	flags := &reapFlags{}

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Remove stale containers of a scope and role",
		Long: `Remove containers left behind by earlier runs of the same scope and role.

Stopped containers carrying the label triple are pruned. Running ones are
stopped first only with --force. The scope defaults to the configured scope,
then to the name of the current git working tree.

Examples:
  tcscope reap --role redis
  tcscope reap --scope proj-A --role redis --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveScope(flags.scope, a.cfg.Scope)
			if err != nil {
				return err
			}
			if err := requireRole(flags.role); err != nil {
				return err
			}

			opts := reapOptions{
				scope: s,
				role:  flags.role,
				force: boolSetting(cmd, "force", flags.force, a.cfg.Prune.Force),
				prune: boolSetting(cmd, "prune", flags.prune, a.cfg.Prune.Enabled),
			}
			return runReap(cmd.Context(), cmd.OutOrStdout(), a.reaper(), opts)
		},
	}

	cmd.Flags().StringVar(&flags.scope, "scope", "", "Scope name (default: config, then git working tree name)")
	cmd.Flags().StringVar(&flags.role, "role", "", "Container role within the scope (required)")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Stop running containers before pruning")
	cmd.Flags().BoolVar(&flags.prune, "prune", true, "Prune stale containers (--prune=false only prints the labels)")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

// runReap is the main logic function for the reap command.
func runReap(ctx context.Context, out io.Writer, rp *reaper.Reaper, opts reapOptions) error {
	result := &model.ReapResult{Scope: opts.scope, Role: opts.role, Stopped: []string{}, Removed: []string{}}

	if opts.prune {
		var err error
		result, err = rp.Reap(ctx, opts.scope, opts.role, opts.force)
		if err != nil {
			return reapError(err, opts.scope, opts.role)
		}
	}

	return printReapResult(out, result)
}

// reapResultJSON is the JSON output of the reap command.
type reapResultJSON struct {
	*model.ReapResult
	Labels map[string]string `json:"labels"`
}

// printReapResult outputs the reap result in text or JSON format.
func printReapResult(out io.Writer, result *model.ReapResult) error {
	if IsJSONOutput() {
		return printJSON(out, reapResultJSON{
			ReapResult: result,
			Labels:     docker.ScopeLabels(result.Scope, result.Role),
		})
	}
	printReapResultText(out, result)
	return nil
}

func printReapResultText(out io.Writer, result *model.ReapResult) {
	if !result.Pruned {
		fmt.Fprintf(out, "Pruning disabled; nothing reaped for scope %q role %q.\n", result.Scope, result.Role)
		return
	}

	fmt.Fprintf(out, "Reaped scope %q role %q\n", result.Scope, result.Role)
	fmt.Fprintf(out, "  Stopped:   %s\n", formatIDs(result.Stopped))
	fmt.Fprintf(out, "  Removed:   %s\n", formatIDs(result.Removed))
	fmt.Fprintf(out, "  Reclaimed: %s\n", units.HumanSize(float64(result.SpaceReclaimed)))
}

// formatIDs abbreviates container IDs for display. Returns "-" for none.
func formatIDs(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	short := make([]string, 0, len(ids))
	for _, id := range ids {
		short = append(short, model.ShortID(id))
	}
	return strings.Join(short, ", ")
}
