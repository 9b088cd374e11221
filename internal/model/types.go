// Package model defines the domain types for the tcscope CLI.
//
// All entities in this package are transient. Scope membership is never
// stored anywhere except in the labels carried by the containers themselves,
// so every value here is either built for a single call or reconstructed
// from Docker API responses at runtime.
package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docker/go-units"
)

// ContainerState is the short state string reported by the Docker API for a
// container (the "State" column of `docker ps -a`).
type ContainerState string

const (
	// StateCreated indicates the container exists but was never started.
	StateCreated ContainerState = "created"

	// StateRunning indicates the container's main process is alive.
	// Only containers in this state are stopped by a forced reap.
	StateRunning ContainerState = "running"

	// StatePaused indicates the container is frozen by the cgroup freezer.
	StatePaused ContainerState = "paused"

	// StateExited indicates the main process has terminated.
	// Exited containers are what a prune removes.
	StateExited ContainerState = "exited"

	// StateDead indicates Docker failed to remove the container cleanly.
	StateDead ContainerState = "dead"
)

// String returns the string representation of ContainerState.
func (s ContainerState) String() string {
	return string(s)
}

// IsRunning reports whether the state is exactly "running".
// Paused containers are not considered running.
func (s ContainerState) IsRunning() bool {
	return s == StateRunning
}

// Stream identifies which output stream of a container a log line came from.
type Stream string

const (
	// StreamStdout is the container's standard output.
	StreamStdout Stream = "stdout"

	// StreamStderr is the container's standard error.
	StreamStderr Stream = "stderr"
)

// String returns the string representation of Stream.
func (s Stream) String() string {
	return string(s)
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the unique Docker container identifier.
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name,
	// without the leading "/" the API reports.
	ContainerName string `json:"containerName"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// State is the Docker container state (e.g., "running", "exited").
	State ContainerState `json:"state"`

	// Labels is the full set of Docker labels on the container.
	Labels map[string]string `json:"labels,omitempty"`
}

// ShortID returns the first 12 characters of the container ID, matching the
// abbreviated form printed by the docker CLI.
func (c ContainerInfo) ShortID() string {
	return ShortID(c.ContainerID)
}

// ShortID abbreviates a container ID to 12 characters.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// PruneReport is the engine's answer to a container prune request.
type PruneReport struct {
	// ContainersDeleted lists the IDs of the removed containers.
	ContainersDeleted []string `json:"containersDeleted"`

	// SpaceReclaimed is the number of bytes freed on the host.
	SpaceReclaimed uint64 `json:"spaceReclaimed"`
}

// HumanSpace formats SpaceReclaimed the way the docker CLI prints it
// (e.g. "4.1kB").
func (r PruneReport) HumanSpace() string {
	return units.HumanSize(float64(r.SpaceReclaimed))
}

// ReapResult summarises a single reap of one scope/role pair.
type ReapResult struct {
	// Scope and Role identify the label triple that was matched.
	Scope string `json:"scope"`
	Role  string `json:"role"`

	// Pruned is false when pruning was disabled and the engine was never
	// contacted.
	Pruned bool `json:"pruned"`

	// Stopped lists the IDs of running containers stopped before the prune.
	// Always empty unless the reap was forced.
	Stopped []string `json:"stopped"`

	// Removed lists the IDs the prune call reported as deleted.
	Removed []string `json:"removed"`

	// SpaceReclaimed is the number of bytes the prune call freed.
	SpaceReclaimed uint64 `json:"spaceReclaimed"`
}

// LogEntry is a single line of container output.
type LogEntry struct {
	// Stream is the output stream the line was written to.
	Stream Stream `json:"stream"`

	// Line is the line content without its trailing newline.
	Line string `json:"line"`
}

// LogConsumer receives container output one line at a time.
// Implementations must be safe to call from the goroutine that follows the
// container's log stream.
type LogConsumer interface {
	Accept(entry LogEntry)
}

// scopeNameRegex restricts scope and role values to characters that are safe
// both inside a Docker label key and inside a "key=value" label filter.
var scopeNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateScopeName checks that a scope or role value is usable as part of a
// label key and a label filter. kind is used in the error message only
// (e.g. "scope", "role").
func ValidateScopeName(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if !scopeNameRegex.MatchString(value) {
		return fmt.Errorf("invalid %s %q: must start with an alphanumeric character and contain only alphanumerics, '.', '_' or '-'", kind, value)
	}
	return nil
}

// SanitizeScopeName converts an arbitrary string (a directory or repository
// name, for example) into a valid scope name. Characters outside the allowed
// set become hyphens; the result is lowercased. Returns fallback when nothing
// usable remains.
func SanitizeScopeName(name, fallback string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-':
			result.WriteRune(r)
		default:
			result.WriteRune('-')
		}
	}

	// Leading punctuation is not allowed by scopeNameRegex.
	cleaned := strings.TrimLeft(result.String(), "._-")
	cleaned = strings.TrimRight(cleaned, "-")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitRequestNotFound indicates a container request file was not found.
	ExitRequestNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortUnavailable indicates a published host port is already in use.
	ExitPortUnavailable ExitCode = 4

	// ExitInvalidRequest indicates a container request or scope/role value
	// failed validation.
	ExitInvalidRequest ExitCode = 5

	// ExitEngineOperationFailed indicates a list, stop, prune or run call
	// against the Docker engine failed.
	ExitEngineOperationFailed ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
