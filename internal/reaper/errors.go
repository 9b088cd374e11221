package reaper

import (
	"errors"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"

	"github.com/shinji-kodama/tcscope/internal/model"
)

// Op names the engine call that failed.
type Op string

const (
	OpConnect Op = "connect"
	OpList    Op = "list"
	OpStop    Op = "stop"
	OpPrune   Op = "prune"
)

// ErrEngineOperation matches every *EngineError with errors.Is.
var ErrEngineOperation = errors.New("container engine operation failed")

// EngineError reports a failed engine call during a reap. Err is the
// engine's error, unmodified.
type EngineError struct {
	Op Op

	// ContainerID is set for OpStop only.
	ContainerID string

	Err error
}

func (e *EngineError) Error() string {
	if e.ContainerID != "" {
		return fmt.Sprintf("%s container %s: %v", e.Op, model.ShortID(e.ContainerID), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Is(target error) bool {
	return target == ErrEngineOperation
}

// NotFound reports whether the engine said the container was already gone.
// This is what a concurrent reaper working on the same scope looks like from
// here; the error is still returned to the caller.
func (e *EngineError) NotFound() bool {
	return cerrdefs.IsNotFound(e.Err)
}
