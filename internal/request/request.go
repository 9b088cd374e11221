// Package request defines ContainerRequest, an immutable-by-convention
// description of a container that has not been started yet.
//
// Every With* method has a value receiver and returns a modified copy. Maps
// and slices are cloned on write, so a request handed to a function is never
// changed behind the caller's back and the function keeps no reference to it.
package request

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// ContainerRequest describes a container to be created and started.
type ContainerRequest struct {
	image        string
	name         string
	cmd          []string
	env          map[string]string
	exposedPorts []string
	portBindings []string
	labels       map[string]string
	consumers    []model.LogConsumer
}

// New returns a request for the given image reference (e.g. "redis:7.2.4").
func New(image string) ContainerRequest {
	return ContainerRequest{image: image}
}

// WithName sets the container name. An empty name lets the runner generate
// one.
func (r ContainerRequest) WithName(name string) ContainerRequest {
	r.name = name
	return r
}

// WithCmd overrides the image's default command.
func (r ContainerRequest) WithCmd(cmd ...string) ContainerRequest {
	r.cmd = slices.Clone(cmd)
	return r
}

// WithEnv sets one environment variable.
func (r ContainerRequest) WithEnv(key, value string) ContainerRequest {
	env := maps.Clone(r.env)
	if env == nil {
		env = make(map[string]string)
	}
	env[key] = value
	r.env = env
	return r
}

// WithExposedPorts adds container ports in "port[/proto]" form
// (e.g. "6379/tcp"). Exposed ports are published on random host ports.
func (r ContainerRequest) WithExposedPorts(ports ...string) ContainerRequest {
	r.exposedPorts = append(slices.Clone(r.exposedPorts), ports...)
	return r
}

// WithPortBindings adds explicit host bindings in docker's
// "[ip:]hostPort:containerPort[/proto]" form (e.g. "16379:6379").
func (r ContainerRequest) WithPortBindings(specs ...string) ContainerRequest {
	r.portBindings = append(slices.Clone(r.portBindings), specs...)
	return r
}

// WithLabels merges labels into the request. Existing keys are overwritten,
// so applying the same labels twice is a no-op.
func (r ContainerRequest) WithLabels(labels map[string]string) ContainerRequest {
	merged := maps.Clone(r.labels)
	if merged == nil {
		merged = make(map[string]string, len(labels))
	}
	maps.Copy(merged, labels)
	r.labels = merged
	return r
}

// WithLogConsumer appends a consumer that will receive the container's
// output once it is started.
func (r ContainerRequest) WithLogConsumer(consumer model.LogConsumer) ContainerRequest {
	r.consumers = append(slices.Clone(r.consumers), consumer)
	return r
}

// Image returns the image reference.
func (r ContainerRequest) Image() string { return r.image }

// Name returns the requested container name, possibly empty.
func (r ContainerRequest) Name() string { return r.name }

// Cmd returns a copy of the command override.
func (r ContainerRequest) Cmd() []string { return slices.Clone(r.cmd) }

// Env returns a copy of the environment variables.
func (r ContainerRequest) Env() map[string]string { return maps.Clone(r.env) }

// Labels returns a copy of the labels.
func (r ContainerRequest) Labels() map[string]string { return maps.Clone(r.labels) }

// LogConsumers returns a copy of the attached consumers.
func (r ContainerRequest) LogConsumers() []model.LogConsumer { return slices.Clone(r.consumers) }

// PublishedPort is a host port a request binds explicitly.
type PublishedPort struct {
	HostPort int
	Protocol string
}

// PublishedPorts returns the fixed host ports the request binds. Bindings
// without a host port (random assignment) are omitted.
func (r ContainerRequest) PublishedPorts() ([]PublishedPort, error) {
	_, bindings, err := nat.ParsePortSpecs(r.portBindings)
	if err != nil {
		return nil, fmt.Errorf("invalid port binding: %w", err)
	}

	var published []PublishedPort
	for port, hostBindings := range bindings {
		for _, b := range hostBindings {
			if b.HostPort == "" {
				continue
			}
			hostPort, err := strconv.Atoi(b.HostPort)
			if err != nil {
				return nil, fmt.Errorf("invalid host port %q for %s: %w", b.HostPort, port, err)
			}
			published = append(published, PublishedPort{HostPort: hostPort, Protocol: port.Proto()})
		}
	}

	sort.Slice(published, func(i, j int) bool {
		if published[i].HostPort != published[j].HostPort {
			return published[i].HostPort < published[j].HostPort
		}
		return published[i].Protocol < published[j].Protocol
	})
	return published, nil
}

// ContainerConfig converts the request into Docker SDK create parameters.
func (r ContainerRequest) ContainerConfig() (*container.Config, *container.HostConfig, error) {
	if r.image == "" {
		return nil, nil, fmt.Errorf("image must not be empty")
	}

	specs := make([]string, 0, len(r.exposedPorts)+len(r.portBindings))
	specs = append(specs, r.exposedPorts...)
	specs = append(specs, r.portBindings...)
	exposed, bindings, err := nat.ParsePortSpecs(specs)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid port spec: %w", err)
	}

	// Exposed-only ports keep their empty binding and get a random host
	// port, like `docker run -P`. A port that is both exposed and bound
	// explicitly is published only on the explicit host port.
	for port, hostBindings := range bindings {
		bindings[port] = dropRandomBindings(hostBindings)
	}

	cfg := &container.Config{
		Image:        r.image,
		Cmd:          r.Cmd(),
		Env:          envList(r.env),
		Labels:       r.Labels(),
		ExposedPorts: exposed,
		Tty:          false,
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
	}
	return cfg, hostCfg, nil
}

// dropRandomBindings removes empty host bindings when at least one explicit
// binding is present.
func dropRandomBindings(hostBindings []nat.PortBinding) []nat.PortBinding {
	explicit := make([]nat.PortBinding, 0, len(hostBindings))
	for _, b := range hostBindings {
		if b.HostPort != "" {
			explicit = append(explicit, b)
		}
	}
	if len(explicit) == 0 {
		return hostBindings
	}
	return explicit
}

// envList renders an environment map as sorted KEY=VALUE entries.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

// GenerateName returns a container name of the form "<scope>-<role>-<8 hex>".
// The random suffix keeps names unique across repeated runs; the prefix makes
// scope containers easy to spot in `docker ps`.
func GenerateName(scope, role string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%s-%s", scope, role, suffix)
}
