// Package docker provides Docker Engine API wrappers for scope-labeled
// containers.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows) and a process-wide shared client
//   - The scope label triple: key construction, the label filter used for
//     both listing and pruning, and parsing memberships back out of labels
//     (labels are the only place scope membership is recorded)
//   - Container operations: list, stop, prune, run, and log streaming
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
