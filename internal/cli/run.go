// run.go implements the "tcscope run" command.
//
// The run command starts a container described by a request file:
//  1. Load and validate the request file
//  2. Resolve scope and role (flags, then file, then config/git)
//  3. Reap stale containers of the same scope and role, then label the request
//  4. Attach the default log observer (unless disabled)
//  5. Check that published host ports are free
//  6. Create and start the container
//  7. With --follow, forward its logs until it exits or Ctrl-C is pressed

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/logconsumer"
	"github.com/shinji-kodama/tcscope/internal/logger"
	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/port"
	"github.com/shinji-kodama/tcscope/internal/reaper"
	"github.com/shinji-kodama/tcscope/internal/request"
	"github.com/shinji-kodama/tcscope/internal/requestfile"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	scope  string
	role   string
	force  bool
	prune  bool
	noLogs bool
	follow bool
}

// runOptions are the resolved settings for one run.
type runOptions struct {
	file       string
	scope      string
	role       string
	force      bool
	prune      bool
	attachLogs bool
	follow     bool
}

// containerRunner is what the run command needs from the Docker client.
type containerRunner interface {
	Run(ctx context.Context, req request.ContainerRequest) (*model.ContainerInfo, error)
	logconsumer.LogSource
}

// portChecker verifies published host ports before the container is created.
type portChecker interface {
	Check(req request.ContainerRequest) error
}

// runDeps are the collaborators of runRun, swapped out in tests.
type runDeps struct {
	reaper *reaper.Reaper
	runner containerRunner
	ports  portChecker
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <request-file>",
		Short: "Reap stale containers, then start a labeled container",
		Long: `Start the container described by a JSONC request file, after reaping
containers left behind by earlier runs of the same scope and role.

The new container carries the scope label triple so that the next run can
find and reap it. Its output is forwarded to tcscope's log (stdout at info,
stderr at error) while --follow is active.

Examples:
  tcscope run redis.jsonc
  tcscope run --scope proj-A --role redis --force --follow redis.jsonc`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				file:       args[0],
				scope:      flags.scope,
				role:       flags.role,
				force:      boolSetting(cmd, "force", flags.force, a.cfg.Prune.Force),
				prune:      boolSetting(cmd, "prune", flags.prune, a.cfg.Prune.Enabled),
				attachLogs: a.cfg.Logs.Attach && !flags.noLogs,
				follow:     flags.follow,
			}

			client, err := a.shared.Get(cmd.Context())
			if err != nil {
				return err
			}

			// Ctrl-C stops following; the container keeps running.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := runDeps{
				reaper: a.reaper(),
				runner: client,
				ports:  port.NewScanner(),
			}
			return runRun(ctx, cmd.OutOrStdout(), deps, a.cfg.Scope, opts)
		},
	}

	cmd.Flags().StringVar(&flags.scope, "scope", "", "Scope name (default: request file, config, then git working tree name)")
	cmd.Flags().StringVar(&flags.role, "role", "", "Container role (default: request file)")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Stop running containers of the same scope and role first")
	cmd.Flags().BoolVar(&flags.prune, "prune", true, "Reap stale containers before starting")
	cmd.Flags().BoolVar(&flags.noLogs, "no-logs", false, "Do not attach the default log observer")
	cmd.Flags().BoolVar(&flags.follow, "follow", false, "Forward container logs until it exits or Ctrl-C")
	cmd.MarkFlagsMutuallyExclusive("no-logs", "follow")

	return cmd
}

// runRun is the main logic function for the run command. configScope is
// the scope from configuration, used when neither the flag nor the request
// file sets one.
func runRun(ctx context.Context, out io.Writer, deps runDeps, configScope string, opts runOptions) error {
	// Step 1: Load and validate the request file.
	file, err := requestfile.Load(opts.file)
	if err != nil {
		return err
	}
	if verrs := file.Validate(); len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
		}
		return model.NewCLIError(
			model.ExitInvalidRequest,
			fmt.Sprintf("invalid request file %s:\n  %s", opts.file, strings.Join(msgs, "\n  ")),
		)
	}

	// Step 2: Resolve scope and role.
	scopeName, err := resolveScope(opts.scope, file.Scope, configScope)
	if err != nil {
		return err
	}
	role := firstNonEmpty(opts.role, file.Role)
	if err := requireRole(role); err != nil {
		return err
	}
	logger.Log.Debug().Str("scope", scopeName).Str("role", role).Str("image", file.Image).Msg("resolved request")

	req := file.ToRequest()
	if req.Name() == "" {
		req = req.WithName(request.GenerateName(scopeName, role))
	}

	// Step 3: Reap, then label.
	req, reaped, err := reaper.ReapAndLabel(ctx, deps.reaper, req, scopeName, role, opts.prune, opts.force)
	if err != nil {
		return reapError(err, scopeName, role)
	}

	// Step 4: Attach the default log observer.
	if opts.attachLogs {
		req = logconsumer.WithDefaultLogConsumer(req)
	}

	// Step 5: Fail early on taken host ports. This runs after the reap so
	// that ports held by a stale container just stopped count as free.
	if err := deps.ports.Check(req); err != nil {
		return err
	}

	// Step 6: Create and start.
	info, err := deps.runner.Run(ctx, req)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("container", info.ShortID()).
		Str("name", info.ContainerName).
		Msg("container started")

	if err := printRunResult(out, info, reaped); err != nil {
		return err
	}

	// Step 7: Follow logs.
	if opts.follow && len(req.LogConsumers()) > 0 {
		if err := logconsumer.Follow(ctx, deps.runner, info.ContainerID, req.LogConsumers()...); err != nil {
			return model.WrapCLIError(model.ExitEngineOperationFailed, "log forwarding stopped", err)
		}
	}
	return nil
}

// runResultJSON is the JSON output of the run command.
type runResultJSON struct {
	Container *model.ContainerInfo `json:"container"`
	Reap      *model.ReapResult    `json:"reap"`
}

// printRunResult outputs the run result in text or JSON format.
func printRunResult(out io.Writer, info *model.ContainerInfo, reaped *model.ReapResult) error {
	if IsJSONOutput() {
		return printJSON(out, runResultJSON{Container: info, Reap: reaped})
	}
	printRunResultText(out, info, reaped)
	return nil
}

func printRunResultText(out io.Writer, info *model.ContainerInfo, reaped *model.ReapResult) {
	fmt.Fprintf(out, "Started %s (%s) from %s\n", info.ContainerName, info.ShortID(), info.Image)
	if reaped.Pruned {
		fmt.Fprintf(out, "  Reaped:  %d stopped, %d removed\n", len(reaped.Stopped), len(reaped.Removed))
	} else {
		fmt.Fprintln(out, "  Reaped:  skipped (pruning disabled)")
	}

	keys := make([]string, 0, len(info.Labels))
	for k := range info.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "  Labels:")
	for _, k := range keys {
		fmt.Fprintf(out, "    %s=%s\n", k, info.Labels[k])
	}
}
