package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/reaper"
	"github.com/shinji-kodama/tcscope/internal/request"
)

// MockEngine mocks reaper.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ListContainers(ctx context.Context, f filters.Args, all bool) ([]model.ContainerInfo, error) {
	args := m.Called(ctx, f, all)
	if containers := args.Get(0); containers != nil {
		return containers.([]model.ContainerInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) StopContainer(ctx context.Context, containerID string) error {
	return m.Called(ctx, containerID).Error(0)
}

func (m *MockEngine) PruneContainers(ctx context.Context, f filters.Args) (model.PruneReport, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.PruneReport), args.Error(1)
}

// newTestReaper returns a Reaper whose connector hands out engine.
func newTestReaper(engine reaper.Engine) *reaper.Reaper {
	return reaper.New(func(context.Context) (reaper.Engine, error) { return engine, nil }, zerolog.Nop())
}

// fakeRunner records the request it was asked to run and serves a fixed
// multiplexed log stream.
type fakeRunner struct {
	ran      []request.ContainerRequest
	runErr   error
	logs     []byte
	followed []string
}

func (r *fakeRunner) Run(_ context.Context, req request.ContainerRequest) (*model.ContainerInfo, error) {
	if r.runErr != nil {
		return nil, r.runErr
	}
	r.ran = append(r.ran, req)
	return &model.ContainerInfo{
		ContainerID:   "0123456789abcdef0123",
		ContainerName: req.Name(),
		Image:         req.Image(),
		State:         model.StateRunning,
		Labels:        req.Labels(),
	}, nil
}

func (r *fakeRunner) ContainerLogs(_ context.Context, containerID string, follow bool) (io.ReadCloser, error) {
	if follow {
		r.followed = append(r.followed, containerID)
	}
	return io.NopCloser(bytes.NewReader(r.logs)), nil
}

// fakePorts is a portChecker with a fixed answer.
type fakePorts struct {
	err     error
	checked int
}

func (p *fakePorts) Check(request.ContainerRequest) error {
	p.checked++
	return p.err
}

// multiplexed builds a Docker log stream with one stdout frame.
func multiplexed(t *testing.T, stdout string) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	require.NoError(t, err)
	return buf.Bytes()
}

// withJSONOutput turns on --json for the duration of the test.
func withJSONOutput(t *testing.T) {
	t.Helper()
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
}
