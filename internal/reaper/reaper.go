package reaper

import (
	"context"

	"github.com/docker/docker/api/types/filters"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/tcscope/internal/docker"
	"github.com/shinji-kodama/tcscope/internal/model"
)

// Reaper stops and prunes the containers of one scope/role pair.
type Reaper struct {
	connect Connector
	log     zerolog.Logger
}

// New creates a Reaper. connect is not called until the first Reap.
func New(connect Connector, log zerolog.Logger) *Reaper {
	return &Reaper{connect: connect, log: log}
}

// Reap prunes stopped containers carrying the label triple for scope and
// role. With force, running matches are stopped first so that the prune
// removes them too; if any stop fails the prune is skipped.
//
// Every engine failure is returned as an *EngineError. Nothing is retried.
func (r *Reaper) Reap(ctx context.Context, scope, role string, force bool) (*model.ReapResult, error) {
	engine, err := r.connect(ctx)
	if err != nil {
		return nil, &EngineError{Op: OpConnect, Err: err}
	}

	f := docker.PruneFilter(scope, role)
	result := &model.ReapResult{
		Scope:   scope,
		Role:    role,
		Pruned:  true,
		Stopped: []string{},
		Removed: []string{},
	}

	if force {
		stopped, err := stopRunning(ctx, engine, f)
		if err != nil {
			return nil, err
		}
		if len(stopped) > 0 {
			r.log.Warn().
				Str("scope", scope).
				Str("role", role).
				Strs("containers", stopped).
				Msg("stopped running containers")
			result.Stopped = stopped
		}
	}

	report, err := engine.PruneContainers(ctx, f)
	if err != nil {
		return nil, &EngineError{Op: OpPrune, Err: err}
	}
	if len(report.ContainersDeleted) > 0 {
		r.log.Warn().
			Str("scope", scope).
			Str("role", role).
			Strs("containers", report.ContainersDeleted).
			Str("reclaimed", report.HumanSpace()).
			Msg("pruned stale containers")
		result.Removed = report.ContainersDeleted
	}
	result.SpaceReclaimed = report.SpaceReclaimed

	return result, nil
}

// stopRunning stops every running container matching f concurrently and
// returns their IDs. The first failure cancels the remaining stops.
func stopRunning(ctx context.Context, engine Engine, f filters.Args) ([]string, error) {
	containers, err := engine.ListContainers(ctx, f, true)
	if err != nil {
		return nil, &EngineError{Op: OpList, Err: err}
	}

	var running []string
	for _, c := range containers {
		if c.State.IsRunning() {
			running = append(running, c.ContainerID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range running {
		g.Go(func() error {
			if err := engine.StopContainer(gctx, id); err != nil {
				return &EngineError{Op: OpStop, ContainerID: id, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return running, nil
}

// ReapAndLabel reaps scope/role when prune is set, then labels req. When
// prune is false the engine is never contacted and the returned result has
// Pruned set to false.
//
// On error the zero R is returned.
func ReapAndLabel[R Labeler[R]](
	ctx context.Context,
	rp *Reaper,
	req R,
	scope, role string,
	prune, force bool,
) (R, *model.ReapResult, error) {
	result := &model.ReapResult{Scope: scope, Role: role, Stopped: []string{}, Removed: []string{}}
	if prune {
		var err error
		result, err = rp.Reap(ctx, scope, role, force)
		if err != nil {
			var zero R
			return zero, nil, err
		}
	}
	return Label(req, scope, role), result, nil
}

// WithPruneExistedLabel is ReapAndLabel without the report.
func WithPruneExistedLabel[R Labeler[R]](
	ctx context.Context,
	rp *Reaper,
	req R,
	scope, role string,
	prune, force bool,
) (R, error) {
	labeled, _, err := ReapAndLabel(ctx, rp, req, scope, role, prune, force)
	return labeled, err
}
