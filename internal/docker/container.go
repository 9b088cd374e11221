// container.go implements the Docker container operations tcscope needs:
// label-filtered listing, stop, prune, run, and log streaming.
//
// Listing, stopping and pruning return plain wrapped errors; the reaper
// classifies them. Run is called directly by the CLI and returns CLIErrors.
package docker

import (
	"context"
	"fmt"
	"io"
	"strings"

	cerrdefs "github.com/containerd/errdefs"

	// container package provides ListOptions, StopOptions, PruneReport and
	// the create/start parameter types.
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/request"
)

// ListContainers returns the containers matching f. When all is false the
// engine returns running containers only; when true, stopped and exited
// containers are included as well.
//
// The engine performs the label filtering server-side, which is cheaper
// than listing everything and filtering in Go.
func (c *Client) ListContainers(ctx context.Context, f filters.Args, all bool) ([]model.ContainerInfo, error) {
	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     all,
		Filters: f,
	})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	// Convert SDK structs to the domain model to decouple the rest of the
	// application from the Docker SDK types.
	result := make([]model.ContainerInfo, 0, len(containers))
	for _, ctr := range containers {
		result = append(result, containerToInfo(ctr))
	}
	return result, nil
}

// containerToInfo converts a Docker API container summary to our domain
// model ContainerInfo. This is a pure mapping function with no side effects.
func containerToInfo(c container.Summary) model.ContainerInfo {
	// Docker returns names as a slice, each with a leading "/" that is an
	// artifact of the API rather than part of the name.
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.Image,
		State:         model.ContainerState(c.State),
		Labels:        c.Labels,
	}
}

// StopContainer stops a running container by ID. It sends SIGTERM and, if
// the container does not exit within the daemon's default timeout
// (typically 10 seconds), SIGKILL.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	// StopOptions with nil Timeout uses Docker's default timeout.
	if err := c.inner.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return fmt.Errorf("container stop %s: %w", model.ShortID(containerID), err)
	}
	return nil
}

// PruneContainers removes every stopped container matching f. Running
// containers are never removed by a prune, whatever their labels.
func (c *Client) PruneContainers(ctx context.Context, f filters.Args) (model.PruneReport, error) {
	report, err := c.inner.ContainersPrune(ctx, f)
	if err != nil {
		return model.PruneReport{}, fmt.Errorf("container prune: %w", err)
	}
	return model.PruneReport{
		ContainersDeleted: report.ContainersDeleted,
		SpaceReclaimed:    report.SpaceReclaimed,
	}, nil
}

// Run creates and starts a container from req. A missing image is pulled
// once and the create is retried. If the start fails, the created container
// is force-removed so a failed run leaves nothing behind.
//
// Returns a model.CLIError with ExitInvalidRequest for requests that cannot
// be converted, and ExitEngineOperationFailed for daemon failures.
func (c *Client) Run(ctx context.Context, req request.ContainerRequest) (*model.ContainerInfo, error) {
	cfg, hostCfg, err := req.ContainerConfig()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidRequest, "invalid container request", err)
	}

	resp, err := c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, req.Name())
	if cerrdefs.IsNotFound(err) {
		if pullErr := c.pullImage(ctx, cfg.Image); pullErr != nil {
			return nil, pullErr
		}
		resp, err = c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, req.Name())
	}
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitEngineOperationFailed,
			fmt.Sprintf("failed to create container from image %q", cfg.Image),
			err,
		)
	}

	if err := c.inner.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Clean up on start failure.
		_ = c.inner.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, model.WrapCLIError(
			model.ExitEngineOperationFailed,
			fmt.Sprintf("failed to start container %s", model.ShortID(resp.ID)),
			err,
		)
	}

	return &model.ContainerInfo{
		ContainerID:   resp.ID,
		ContainerName: req.Name(),
		Image:         cfg.Image,
		State:         model.StateRunning,
		Labels:        cfg.Labels,
	}, nil
}

// pullImage pulls ref and waits for the pull to finish. The progress stream
// must be drained; the daemon only completes the pull once it is read.
func (c *Client) pullImage(ctx context.Context, ref string) error {
	rc, err := c.inner.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitEngineOperationFailed,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(
			model.ExitEngineOperationFailed,
			fmt.Sprintf("failed to read pull progress for image %q", ref),
			err,
		)
	}
	return nil
}

// ContainerLogs opens the multiplexed stdout/stderr log stream of a
// container. With follow set, the stream stays open until the container
// exits or ctx is cancelled. The caller must close the returned reader.
func (c *Client) ContainerLogs(ctx context.Context, containerID string, follow bool) (io.ReadCloser, error) {
	rc, err := c.inner.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	})
	if err != nil {
		return nil, fmt.Errorf("container logs %s: %w", model.ShortID(containerID), err)
	}
	return rc, nil
}
