package requestfile

import (
	"fmt"
	"strings"

	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// ValidationError represents a specific validation failure in a request file.
type ValidationError struct {
	// Field is the JSON field that failed validation (e.g., "ports[1]").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("request file validation error: %s: %s", e.Field, e.Message)
}

// Validate checks a parsed request file and returns every problem found
// (empty list = valid). Scope and role are only checked when set; the CLI
// validates the final values after applying flags and defaults.
func (f *File) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(f.Image) == "" {
		add("image", "image is required")
	}

	if f.Scope != "" {
		if err := model.ValidateScopeName("scope", f.Scope); err != nil {
			add("scope", "%v", err)
		}
	}
	if f.Role != "" {
		if err := model.ValidateScopeName("role", f.Role); err != nil {
			add("role", "%v", err)
		}
	}

	for k := range f.Env {
		if k == "" || strings.ContainsAny(k, "= ") {
			add("env", "invalid variable name %q", k)
		}
	}

	for i, spec := range f.ExposedPorts {
		if strings.Contains(spec, ":") {
			add(fmt.Sprintf("exposedPorts[%d]", i), "%q has a host part; use ports for explicit bindings", spec)
			continue
		}
		proto, port := nat.SplitProtoPort(spec)
		if _, err := nat.NewPort(proto, port); err != nil {
			add(fmt.Sprintf("exposedPorts[%d]", i), "%v", err)
		}
	}

	for i, spec := range f.Ports {
		if !strings.Contains(spec, ":") {
			add(fmt.Sprintf("ports[%d]", i), "%q has no host port; use exposedPorts for random host ports", spec)
			continue
		}
		if _, err := nat.ParsePortSpec(spec); err != nil {
			add(fmt.Sprintf("ports[%d]", i), "%v", err)
		}
	}

	for k := range f.Labels {
		if isScopeLabelKey(k) {
			add("labels", "%q is reserved for scope labels", k)
		}
	}

	return errs
}

// isScopeLabelKey reports whether k has the shape of a scope label key for
// any scope.
func isScopeLabelKey(k string) bool {
	for _, suffix := range []string{docker.ScopeLabelSuffix, docker.ContainerLabelSuffix, docker.PruneLabelSuffix} {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}
