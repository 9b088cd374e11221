package docker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/request"
)

// fakeAPI implements the handful of client.APIClient methods this package
// calls. Embedding the interface satisfies the rest; calling any of them
// panics, which flags an unexpected daemon call in a test.
type fakeAPI struct {
	client.APIClient

	listOpts   container.ListOptions
	summaries  []container.Summary
	listErr    error
	stopped    []string
	stopErr    error
	pruneArgs  filters.Args
	prune      container.PruneReport
	pruneErr   error
	createErrs []error
	createCfg  *container.Config
	createName string
	creates    int
	startErr   error
	removed    []string
	pulled     []string
	pullErr    error
	logs       string
	logsOpts   container.LogsOptions
	pingErr    error
	closed     int
}

func (f *fakeAPI) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.listOpts = opts
	return f.summaries, f.listErr
}

func (f *fakeAPI) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeAPI) ContainersPrune(_ context.Context, args filters.Args) (container.PruneReport, error) {
	f.pruneArgs = args
	return f.prune, f.pruneErr
}

func (f *fakeAPI) ContainerCreate(
	_ context.Context,
	cfg *container.Config,
	_ *container.HostConfig,
	_ *network.NetworkingConfig,
	_ *ocispec.Platform,
	name string,
) (container.CreateResponse, error) {
	f.creates++
	f.createCfg = cfg
	f.createName = name
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return container.CreateResponse{}, err
		}
	}
	return container.CreateResponse{ID: "0123456789abcdef0123"}, nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, _ string, _ container.StartOptions) error {
	return f.startErr
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, opts container.RemoveOptions) error {
	if opts.Force {
		f.removed = append(f.removed, id)
	}
	return nil
}

func (f *fakeAPI) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	f.pulled = append(f.pulled, ref)
	return io.NopCloser(strings.NewReader(`{"status":"Pull complete"}`)), nil
}

func (f *fakeAPI) ContainerLogs(_ context.Context, _ string, opts container.LogsOptions) (io.ReadCloser, error) {
	f.logsOpts = opts
	return io.NopCloser(strings.NewReader(f.logs)), nil
}

func (f *fakeAPI) Ping(_ context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeAPI) Close() error {
	f.closed++
	return nil
}

func TestContainerToInfo(t *testing.T) {
	info := containerToInfo(container.Summary{
		ID:     "abc123",
		Names:  []string{"/proj-A-redis-1"},
		Image:  "redis:7.2.4",
		State:  "running",
		Labels: ScopeLabels("proj-A", "redis"),
	})

	assert.Equal(t, "abc123", info.ContainerID)
	assert.Equal(t, "proj-A-redis-1", info.ContainerName, "leading slash should be trimmed")
	assert.Equal(t, model.StateRunning, info.State)
	assert.True(t, HasScopeLabels(info.Labels, "proj-A", "redis"))
}

func TestContainerToInfo_NoNames(t *testing.T) {
	info := containerToInfo(container.Summary{ID: "abc123", State: "exited"})
	assert.Empty(t, info.ContainerName)
	assert.Equal(t, model.StateExited, info.State)
}

// TestListContainers verifies that the filter and the all flag are passed
// through unchanged.
func TestListContainers(t *testing.T) {
	api := &fakeAPI{summaries: []container.Summary{
		{ID: "aaa", State: "running"},
		{ID: "bbb", State: "exited"},
	}}
	c := NewClientWithAPI(api)

	f := PruneFilter("proj-A", "redis")
	got, err := c.ListContainers(context.Background(), f, true)
	require.NoError(t, err)

	assert.True(t, api.listOpts.All)
	assert.ElementsMatch(t, f.Get("label"), api.listOpts.Filters.Get("label"))
	require.Len(t, got, 2)
	assert.Equal(t, "aaa", got[0].ContainerID)
}

func TestListContainers_Error(t *testing.T) {
	daemonErr := errors.New("daemon gone")
	c := NewClientWithAPI(&fakeAPI{listErr: daemonErr})

	_, err := c.ListContainers(context.Background(), filters.NewArgs(), false)
	assert.ErrorIs(t, err, daemonErr)
}

func TestStopContainer(t *testing.T) {
	api := &fakeAPI{}
	c := NewClientWithAPI(api)

	require.NoError(t, c.StopContainer(context.Background(), "aaa"))
	assert.Equal(t, []string{"aaa"}, api.stopped)

	api.stopErr = cerrdefs.ErrNotFound
	err := c.StopContainer(context.Background(), "bbb")
	assert.True(t, cerrdefs.IsNotFound(err), "wrapped error should keep its class")
}

func TestPruneContainers(t *testing.T) {
	api := &fakeAPI{prune: container.PruneReport{
		ContainersDeleted: []string{"aaa", "bbb"},
		SpaceReclaimed:    4096,
	}}
	c := NewClientWithAPI(api)

	f := PruneFilter("proj-A", "redis")
	report, err := c.PruneContainers(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaa", "bbb"}, report.ContainersDeleted)
	assert.Equal(t, uint64(4096), report.SpaceReclaimed)
	assert.ElementsMatch(t, f.Get("label"), api.pruneArgs.Get("label"))
}

func TestPruneContainers_Error(t *testing.T) {
	c := NewClientWithAPI(&fakeAPI{pruneErr: errors.New("a prune operation is already running")})

	_, err := c.PruneContainers(context.Background(), filters.NewArgs())
	assert.ErrorContains(t, err, "container prune")
}

func TestRun(t *testing.T) {
	api := &fakeAPI{}
	c := NewClientWithAPI(api)

	req := request.New("redis:7.2.4").
		WithName("proj-A-redis-1").
		WithLabels(ScopeLabels("proj-A", "redis"))

	info, err := c.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef0123", info.ContainerID)
	assert.Equal(t, "proj-A-redis-1", api.createName)
	assert.Equal(t, model.StateRunning, info.State)
	assert.True(t, HasScopeLabels(api.createCfg.Labels, "proj-A", "redis"))
	assert.Empty(t, api.pulled, "image present: no pull expected")
}

// TestRun_PullsMissingImage verifies the pull-then-retry path.
func TestRun_PullsMissingImage(t *testing.T) {
	api := &fakeAPI{createErrs: []error{cerrdefs.ErrNotFound}}
	c := NewClientWithAPI(api)

	_, err := c.Run(context.Background(), request.New("redis:7.2.4"))
	require.NoError(t, err)

	assert.Equal(t, []string{"redis:7.2.4"}, api.pulled)
	assert.Equal(t, 2, api.creates)
}

func TestRun_PullFailure(t *testing.T) {
	api := &fakeAPI{
		createErrs: []error{cerrdefs.ErrNotFound},
		pullErr:    errors.New("manifest unknown"),
	}
	c := NewClientWithAPI(api)

	_, err := c.Run(context.Background(), request.New("redis:does-not-exist"))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitEngineOperationFailed, cliErr.Code)
	assert.Equal(t, 1, api.creates)
}

// TestRun_StartFailureRemovesContainer verifies that a container that fails
// to start is force-removed.
func TestRun_StartFailureRemovesContainer(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("port is already allocated")}
	c := NewClientWithAPI(api)

	_, err := c.Run(context.Background(), request.New("redis:7.2.4"))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitEngineOperationFailed, cliErr.Code)
	assert.Equal(t, []string{"0123456789abcdef0123"}, api.removed)
}

func TestRun_InvalidRequest(t *testing.T) {
	api := &fakeAPI{}
	c := NewClientWithAPI(api)

	_, err := c.Run(context.Background(), request.New(""))

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInvalidRequest, cliErr.Code)
	assert.Zero(t, api.creates, "invalid requests never reach the daemon")
}

func TestContainerLogs(t *testing.T) {
	api := &fakeAPI{logs: "payload"}
	c := NewClientWithAPI(api)

	rc, err := c.ContainerLogs(context.Background(), "aaa", true)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.True(t, api.logsOpts.ShowStdout)
	assert.True(t, api.logsOpts.ShowStderr)
	assert.True(t, api.logsOpts.Follow)
}

// TestShared_CachesOnlySuccess verifies that a failed ping is not cached and
// a later Get connects again.
func TestShared_CachesOnlySuccess(t *testing.T) {
	api := &fakeAPI{pingErr: errors.New("connection refused")}
	attempts := 0
	s := &Shared{newClient: func(string) (*Client, error) {
		attempts++
		return NewClientWithAPI(api), nil
	}}

	_, err := s.Get(context.Background())
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
	assert.Equal(t, 1, api.closed, "failed client should be closed")

	api.pingErr = nil
	first, err := s.Get(context.Background())
	require.NoError(t, err)
	second, err := s.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, attempts)

	require.NoError(t, s.Close())
	assert.Equal(t, 2, api.closed)
}
