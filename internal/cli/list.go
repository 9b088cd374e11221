// list.go implements the "tcscope list" command.
//
// The list command shows the containers that carry a complete scope label
// triple, grouped by scope. A container that belongs to several scopes is
// shown once per scope. Output is a text table or JSON, depending on --json.

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/docker/docker/api/types/filters"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	scope string
	role  string
}

// containerLister is what the list command needs from the Docker client.
type containerLister interface {
	ListContainers(ctx context.Context, f filters.Args, all bool) ([]model.ContainerInfo, error)
}

// NewListCommand creates the "list" cobra command.
func NewListCommand(a *app) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scope-labeled containers",
		Long: `List containers that carry a complete scope label triple, grouped by scope.

Both running and stopped containers are shown. Containers without the
prune sentinel are not listed because a reap would never remove them.

Examples:
  tcscope list
  tcscope list --scope proj-A
  tcscope list --scope proj-A --role redis --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.role != "" && flags.scope == "" {
				return model.NewCLIError(model.ExitInvalidRequest, "--role requires --scope")
			}
			client, err := a.shared.Get(cmd.Context())
			if err != nil {
				return err
			}
			return runList(cmd.Context(), cmd.OutOrStdout(), client, flags)
		},
	}

	cmd.Flags().StringVar(&flags.scope, "scope", "", "Only list containers of this scope")
	cmd.Flags().StringVar(&flags.role, "role", "", "Only list containers of this role (requires --scope)")

	return cmd
}

// listEntry is one container within one scope.
type listEntry struct {
	Scope         string               `json:"scope"`
	Role          string               `json:"role"`
	ContainerID   string               `json:"containerId"`
	ContainerName string               `json:"containerName"`
	Image         string               `json:"image"`
	State         model.ContainerState `json:"state"`
}

// runList is the main logic function for the list command.
func runList(ctx context.Context, out io.Writer, lister containerLister, flags *listFlags) error {
	// Narrow the query on the daemon side when possible; the label triple is
	// still checked client-side below.
	f := filters.NewArgs()
	switch {
	case flags.scope != "" && flags.role != "":
		f = docker.PruneFilter(flags.scope, flags.role)
	case flags.scope != "":
		f = docker.ScopeFilter(flags.scope)
	}

	containers, err := lister.ListContainers(ctx, f, true)
	if err != nil {
		return model.WrapCLIError(model.ExitEngineOperationFailed, "failed to list containers", err)
	}

	entries := buildListEntries(containers, flags.scope, flags.role)
	return printListResult(out, entries)
}

// buildListEntries flattens containers into one entry per scope membership,
// keeping only the requested scope and role when set. Entries are sorted by
// scope, role, then name.
func buildListEntries(containers []model.ContainerInfo, scopeName, role string) []listEntry {
	entries := make([]listEntry, 0, len(containers))
	for s, group := range docker.GroupByScope(containers) {
		if scopeName != "" && s != scopeName {
			continue
		}
		for _, c := range group {
			r := c.Labels[docker.ContainerLabelKey(s)]
			if role != "" && r != role {
				continue
			}
			entries = append(entries, listEntry{
				Scope:         s,
				Role:          r,
				ContainerID:   c.ContainerID,
				ContainerName: c.ContainerName,
				Image:         c.Image,
				State:         c.State,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.ContainerName < b.ContainerName
	})
	return entries
}

// printListResult outputs the entries in text or JSON format.
func printListResult(out io.Writer, entries []listEntry) error {
	if IsJSONOutput() {
		return printJSON(out, struct {
			Containers []listEntry `json:"containers"`
		}{Containers: entries})
	}
	printListResultText(out, entries)
	return nil
}

// printListResultText outputs the entries as a text table:
//
//	SCOPE      ROLE       CONTAINER     STATE     NAME
//	proj-A     redis      3f1c0a9e2b7d  exited    proj-A-redis-1a2b3c4d
func printListResultText(out io.Writer, entries []listEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scope-labeled containers found.")
		return
	}

	fmt.Fprintf(out, "%-20s %-15s %-13s %-10s %s\n", "SCOPE", "ROLE", "CONTAINER", "STATE", "NAME")
	for _, e := range entries {
		fmt.Fprintf(out, "%-20s %-15s %-13s %-10s %s\n",
			e.Scope, e.Role, model.ShortID(e.ContainerID), e.State, e.ContainerName)
	}
}
