package reaper

import (
	"context"

	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// Engine abstracts the container engine operations needed by the reaper.
type Engine interface {
	ListContainers(ctx context.Context, f filters.Args, all bool) ([]model.ContainerInfo, error)
	StopContainer(ctx context.Context, containerID string) error
	PruneContainers(ctx context.Context, f filters.Args) (model.PruneReport, error)
}

// Connector hands out an Engine. It is called once per reap, and only when
// pruning is enabled.
type Connector func(ctx context.Context) (Engine, error)

// SharedConnector adapts a process-wide docker.Shared handle to a Connector.
func SharedConnector(shared *docker.Shared) Connector {
	return func(ctx context.Context) (Engine, error) {
		c, err := shared.Get(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Labeler is any container request that can take extra labels. WithLabels
// must return a new value and leave the receiver unchanged.
type Labeler[R any] interface {
	WithLabels(labels map[string]string) R
}
