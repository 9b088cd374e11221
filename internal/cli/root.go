// Package cli implements the cobra-based CLI commands for tcscope.
//
// Each subcommand (reap, run, list, labels, config) is defined in its own
// file within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/config"
	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/logger"
	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/reaper"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose forces debug-level logging.
	verbose bool

	// configPath is an explicit config file; empty means search.
	configPath string
)

// Version, Commit and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app holds what the root command prepares before any subcommand runs.
type app struct {
	cfg *config.Config

	// shared is the process-wide Docker client, connected on first use.
	shared *docker.Shared
}

// reaper builds a Reaper on the shared client. Nothing connects until the
// first reap.
func (a *app) reaper() *reaper.Reaper {
	return reaper.New(reaper.SharedConnector(a.shared), logger.Log)
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tcscope",
		Short: "Scope-labeled test containers with stale container reaping",
		Long: `tcscope starts test containers tagged with a scope and a role, and reaps
containers left behind by earlier runs of the same scope and role before
starting new ones.

Membership is recorded only in three container labels:

  <scope>.testcontainers.scope     = <scope>
  <scope>.testcontainers.container = <role>
  <scope>.testcontainers.prune     = true

Any tool that writes the same labels takes part in the same scope.`,

		// We handle error output ourselves (text or JSON based on --json).
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML, JSON or JSONC)")

	rootCmd.AddCommand(NewReapCommand(a))
	rootCmd.AddCommand(NewRunCommand(a))
	rootCmd.AddCommand(NewListCommand(a))
	rootCmd.AddCommand(NewLabelsCommand())
	rootCmd.AddCommand(NewConfigCommand(a))

	return rootCmd
}

// setup loads configuration and initializes logging.
func (a *app) setup() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
	}
	a.cfg = cfg

	if err := logger.Init(cfg.LoggerOptions(verbose)); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to initialize logging", err)
	}
	if cfg.ConfigFilePath != "" {
		logger.Log.Debug().Str("path", cfg.ConfigFilePath).Msg("loaded config file")
	}

	a.shared = docker.NewShared(cfg.Docker.Host)
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.shared != nil {
		errs = append(errs, a.shared.Close())
	}
	errs = append(errs, logger.Close())
	return errors.Join(errs...)
}

// Execute runs the root command and handles exit codes.
//
// CLIError types carry their own exit codes; other errors exit with 1.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(os.Stderr, cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	printError(os.Stderr, err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError writes an error message in JSON or text format. Errors go to
// stderr even in JSON mode because stdout is reserved for command output.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{"message": message}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
