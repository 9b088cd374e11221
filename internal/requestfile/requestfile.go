// Package requestfile loads container requests from JSONC files.
//
// A request file describes one container for `tcscope run`:
//
//	{
//	  // Defaults to the configured or detected scope.
//	  "scope": "proj-A",
//	  "role": "redis",
//	  "image": "redis:7.2.4",
//	  "cmd": ["redis-server", "--appendonly", "yes"],
//	  "env": { "REDIS_ARGS": "--save 60 1" },
//	  "exposedPorts": ["6379/tcp"],
//	  "ports": ["16379:6379"],
//	}
//
// Comments and trailing commas are allowed; github.com/tidwall/jsonc strips
// them before the file is parsed with encoding/json.
package requestfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/request"
)

// File is the raw content of a request file. Unknown fields are ignored.
type File struct {
	// Scope and Role select the label triple. Both may be overridden on the
	// command line.
	Scope string `json:"scope,omitempty"`
	Role  string `json:"role,omitempty"`

	// Image is the image reference. Required.
	Image string `json:"image"`

	// Name is the container name. Generated from scope and role when empty.
	Name string `json:"name,omitempty"`

	Cmd []string          `json:"cmd,omitempty"`
	Env map[string]string `json:"env,omitempty"`

	// ExposedPorts are published on random host ports ("6379" or "6379/tcp").
	ExposedPorts []string `json:"exposedPorts,omitempty"`

	// Ports are explicit bindings in docker's
	// "[ip:]hostPort:containerPort[/proto]" form.
	Ports []string `json:"ports,omitempty"`

	// Labels are extra labels. They must not use the scope label keys.
	Labels map[string]string `json:"labels,omitempty"`
}

// Load reads a request file, strips JSONC comments, and parses it.
//
// Returns a CLIError with ExitRequestNotFound if the file does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitRequestNotFound,
				fmt.Sprintf("request file not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var f File
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, model.WrapCLIError(
			model.ExitInvalidRequest,
			fmt.Sprintf("failed to parse request file at %s", path),
			err,
		)
	}
	return &f, nil
}

// ToRequest builds the container request described by the file. Scope labels
// are not added here; the reaper adds them.
func (f *File) ToRequest() request.ContainerRequest {
	req := request.New(f.Image).
		WithName(f.Name).
		WithExposedPorts(f.ExposedPorts...).
		WithPortBindings(f.Ports...)

	if len(f.Cmd) > 0 {
		req = req.WithCmd(f.Cmd...)
	}
	for k, v := range f.Env {
		req = req.WithEnv(k, v)
	}
	if len(f.Labels) > 0 {
		req = req.WithLabels(f.Labels)
	}
	return req
}
