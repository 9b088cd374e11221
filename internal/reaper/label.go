package reaper

import "github.com/shinji-kodama/tcscope/internal/docker"

// Label returns req with the scope label triple added. Existing labels are
// kept; the three scope keys are overwritten, so labeling twice is a no-op.
func Label[R Labeler[R]](req R, scope, role string) R {
	return req.WithLabels(docker.ScopeLabels(scope, role))
}
