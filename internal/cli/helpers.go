package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/reaper"
	"github.com/shinji-kodama/tcscope/internal/scope"
)

// reapError maps a reaper error to a CLIError. A failed connection keeps the
// Docker client's own CLIError (ExitDockerNotRunning); every other engine
// failure exits with ExitEngineOperationFailed.
func reapError(err error, scopeName, role string) error {
	var engineErr *reaper.EngineError
	if !errors.As(err, &engineErr) {
		return err
	}

	if engineErr.Op == reaper.OpConnect {
		var cliErr *model.CLIError
		if errors.As(engineErr.Err, &cliErr) {
			return cliErr
		}
		return model.WrapCLIError(model.ExitDockerNotRunning, "cannot connect to Docker", engineErr.Err)
	}

	msg := fmt.Sprintf("failed to reap scope %q role %q", scopeName, role)
	if engineErr.NotFound() {
		msg += " (is another process reaping the same scope?)"
	}
	return model.WrapCLIError(model.ExitEngineOperationFailed, msg, err)
}

// boolSetting returns the flag value when the user set it explicitly, and
// the configured value otherwise.
func boolSetting(cmd *cobra.Command, name string, flagValue, configured bool) bool {
	if cmd.Flags().Changed(name) {
		return flagValue
	}
	return configured
}

// resolveScope picks the scope from the candidates (highest precedence
// first) or detects it from the working directory, then validates it.
func resolveScope(candidates ...string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	s, err := scope.Resolve(wd, candidates...)
	if err != nil {
		return "", err
	}
	if err := model.ValidateScopeName("scope", s); err != nil {
		return "", model.WrapCLIError(model.ExitInvalidRequest, "invalid scope", err)
	}
	return s, nil
}

// requireRole validates the role. An empty role is rejected: the label
// filter would otherwise match containers whose role label is empty.
func requireRole(role string) error {
	if err := model.ValidateScopeName("role", role); err != nil {
		return model.WrapCLIError(model.ExitInvalidRequest, "invalid role", err)
	}
	return nil
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
