// Package scope picks the scope name used when none is given explicitly.
//
// The default scope is the name of the enclosing git working tree, so every
// checkout (including each linked worktree) reaps only its own containers.
// Outside a repository the directory name is used instead. Git is invoked
// via os/exec so that the result matches what the user sees in a terminal.
package scope

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// Fallback is used when no usable name can be derived from the directory.
const Fallback = "default"

// Detect returns the default scope for dir.
func Detect(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	root := abs
	if top, err := repoRoot(abs); err == nil {
		root = top
	}
	return sanitize(filepath.Base(root)), nil
}

// Resolve returns the first non-empty candidate, or Detect(dir) when all are
// empty. Candidates are listed highest precedence first (flag, then config).
func Resolve(dir string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return c, nil
		}
	}
	return Detect(dir)
}

// repoRoot returns the top-level directory of the working tree containing
// dir.
func repoRoot(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Clean(strings.TrimSpace(out)), nil
}

func runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are constructed internally
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), msg, err)
	}
	return stdout.String(), nil
}

func sanitize(name string) string {
	return model.SanitizeScopeName(name, Fallback)
}
