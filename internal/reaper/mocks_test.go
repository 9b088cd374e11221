package reaper

import (
	"context"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/filters"
	"github.com/stretchr/testify/mock"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// MockEngine mocks the Engine interface.
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
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockEngine) PruneContainers(ctx context.Context, f filters.Args) (model.PruneReport, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(model.PruneReport), args.Error(1)
}

// fakeEngine is an in-memory engine with the daemon's relevant behaviour:
// label filters are ANDed, stop moves a container to exited, and prune
// removes matching containers that are not running.
type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]*model.ContainerInfo
	stopCalls  []string
	pruneCalls int
}

func newFakeEngine(containers ...model.ContainerInfo) *fakeEngine {
	e := &fakeEngine{containers: make(map[string]*model.ContainerInfo)}
	for i := range containers {
		c := containers[i]
		e.containers[c.ContainerID] = &c
	}
	return e
}

func (e *fakeEngine) ListContainers(_ context.Context, f filters.Args, all bool) ([]model.ContainerInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []model.ContainerInfo
	for _, c := range e.containers {
		if !matches(c.Labels, f) {
			continue
		}
		if !all && !c.State.IsRunning() {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (e *fakeEngine) StopContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopCalls = append(e.stopCalls, id)
	if c, ok := e.containers[id]; ok {
		c.State = model.StateExited
	}
	return nil
}

func (e *fakeEngine) PruneContainers(_ context.Context, f filters.Args) (model.PruneReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pruneCalls++
	report := model.PruneReport{ContainersDeleted: []string{}}
	for id, c := range e.containers {
		if c.State.IsRunning() || !matches(c.Labels, f) {
			continue
		}
		delete(e.containers, id)
		report.ContainersDeleted = append(report.ContainersDeleted, id)
		report.SpaceReclaimed += 1024
	}
	return report, nil
}

func (e *fakeEngine) state(id string) (model.ContainerState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[id]
	if !ok {
		return "", false
	}
	return c.State, true
}

// matches reports whether labels satisfy every "key=value" label filter.
func matches(labels map[string]string, f filters.Args) bool {
	for _, kv := range f.Get("label") {
		k, v, _ := strings.Cut(kv, "=")
		if got, ok := labels[k]; !ok || got != v {
			return false
		}
	}
	return true
}
